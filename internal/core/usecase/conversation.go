package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docchat/internal/core/domain"
	"github.com/kirillkom/docchat/internal/core/ports"
)

type transcriptState interface {
	DocumentCount() int
	TryBeginSend() bool
	EndSend()
	AppendTranscript(entry domain.TranscriptEntry) domain.TranscriptEntry
}

// ConversationUseCase appends user, assistant and error turns to the
// transcript. At most one send is in flight, so turns never interleave.
type ConversationUseCase struct {
	chat  ports.ChatService
	state transcriptState
	newID func() string
	now   func() time.Time

	mu    sync.Mutex
	input string
}

func NewConversationUseCase(chat ports.ChatService, state transcriptState) *ConversationUseCase {
	return &ConversationUseCase{
		chat:  chat,
		state: state,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

func (uc *ConversationUseCase) SetInput(text string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.input = text
}

func (uc *ConversationUseCase) Input() string {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.input
}

// Submit sends the current input buffer.
func (uc *ConversationUseCase) Submit(ctx context.Context, documentIDs []string) (domain.Event, error) {
	return uc.Send(ctx, uc.Input(), documentIDs)
}

// Send rejects empty messages, concurrent sends and sends without documents
// locally. Otherwise the user turn is appended before the network call and
// exactly one assistant or error turn follows it.
func (uc *ConversationUseCase) Send(ctx context.Context, message string, documentIDs []string) (domain.Event, error) {
	if strings.TrimSpace(message) == "" {
		return nil, domain.NewValidationError("message", "message is empty")
	}
	if !uc.state.TryBeginSend() {
		return nil, domain.ErrBusy
	}
	defer uc.state.EndSend()

	if uc.state.DocumentCount() == 0 {
		return nil, domain.NewValidationError("documents", "no documents available")
	}

	question := uc.state.AppendTranscript(domain.TranscriptEntry{
		ID:        uc.newID(),
		Role:      domain.RoleUser,
		Content:   message,
		CreatedAt: uc.now(),
	})
	uc.SetInput("")

	reply, err := uc.chat.SendMessage(ctx, message, documentIDs)
	if err != nil {
		failure := uc.state.AppendTranscript(domain.TranscriptEntry{
			ID:        uc.newID(),
			Role:      domain.RoleError,
			Content:   domain.UserMessage(err, domain.MessageChatFailed),
			CreatedAt: uc.now(),
		})
		return domain.MessageFailed{Question: question, Failure: failure}, nil
	}

	confidence := reply.Confidence
	answer := uc.state.AppendTranscript(domain.TranscriptEntry{
		ID:         uc.newID(),
		Role:       domain.RoleAssistant,
		Content:    reply.Response,
		Sources:    reply.Sources,
		Confidence: &confidence,
		CreatedAt:  uc.now(),
	})
	return domain.MessageAnswered{Question: question, Answer: answer}, nil
}
