package cli

import (
	"context"

	"github.com/kirillkom/docchat/internal/core/ports"
)

type confirmRequest struct {
	prompt string
	reply  chan bool
}

// Prompter asks the REPL to read a yes/no answer from the terminal. Requests
// are served by App.Run, which owns stdin.
type Prompter struct {
	assumeYes bool
	requests  chan confirmRequest
}

var _ ports.Confirmer = (*Prompter)(nil)

func NewPrompter(assumeYes bool) *Prompter {
	return &Prompter{
		assumeYes: assumeYes,
		requests:  make(chan confirmRequest),
	}
}

func (p *Prompter) Confirm(ctx context.Context, prompt string) bool {
	if p.assumeYes {
		return true
	}
	req := confirmRequest{prompt: prompt, reply: make(chan bool, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return false
	}
	select {
	case ok := <-req.reply:
		return ok
	case <-ctx.Done():
		return false
	}
}
