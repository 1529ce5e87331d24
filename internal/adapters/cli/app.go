package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/kirillkom/docchat/internal/core/domain"
	"github.com/kirillkom/docchat/internal/core/ports"
)

type Session interface {
	ports.SessionReader
	ports.SessionCommander
}

type Options struct {
	BaseURL string
	NoColor bool
	Logger  *slog.Logger
}

// App is the terminal front-end. Uploads, deletes and questions run in the
// background so the prompt stays usable; busy rules are enforced by the session.
type App struct {
	session  Session
	files    ports.FileSource
	prompter *Prompter
	in       io.Reader
	out      io.Writer
	colors   palette
	baseURL  string
	logger   *slog.Logger

	outMu sync.Mutex
	wg    sync.WaitGroup

	scopeMu sync.Mutex
	scope   []string
}

func New(session Session, files ports.FileSource, prompter *Prompter, in io.Reader, out io.Writer, opts Options) *App {
	if prompter == nil {
		prompter = NewPrompter(false)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		session:  session,
		files:    files,
		prompter: prompter,
		in:       in,
		out:      out,
		colors:   newPalette(opts.NoColor),
		baseURL:  opts.BaseURL,
		logger:   logger,
	}
}

// Run starts the session and serves commands until quit, EOF or ctx is done.
// It returns domain.ErrDegraded when the backend failed its health check.
func (a *App) Run(ctx context.Context) error {
	if a.session.Start(ctx) != domain.HealthHealthy {
		a.write(func(w io.Writer) { a.colors.degraded(w, a.baseURL) })
		return domain.ErrDegraded
	}

	a.write(func(w io.Writer) {
		a.colors.bold.Fprintln(w, "docchat: chat with your documents. Type 'help' for commands.")
		a.colors.documents(w, a.session.Documents(), a.session.PendingDeletes(), a.session.Loading())
	})
	if msg := a.session.LastError(); msg != "" {
		a.write(func(w io.Writer) { a.colors.failure.Fprintf(w, "✗ %s\n", msg) })
	}

	lines := a.readLines(ctx)
	defer a.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-a.prompter.requests:
			a.answer(ctx, req, lines)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := a.handle(ctx, strings.TrimSpace(line), lines); quit {
				return nil
			}
		}
	}
}

func (a *App) readLines(ctx context.Context) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			a.logger.Warn("stdin_read_failed", "error", err)
		}
	}()
	return lines
}

func (a *App) handle(ctx context.Context, line string, lines <-chan string) bool {
	if line == "" {
		return false
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return true
	case "help":
		a.println(helpText)
	case "list", "ls":
		a.write(func(w io.Writer) {
			a.colors.documents(w, a.session.Documents(), a.session.PendingDeletes(), a.session.Loading())
		})
	case "reload":
		a.report(a.session.Reload(ctx))
		a.write(func(w io.Writer) {
			a.colors.notification(w, a.session.Notification())
			a.colors.documents(w, a.session.Documents(), a.session.PendingDeletes(), false)
		})
	case "upload":
		a.upload(ctx, arg)
	case "delete", "rm":
		a.delete(ctx, arg, lines)
	case "scope":
		a.setScope(arg)
	case "ask":
		a.ask(ctx, arg)
	case "history":
		a.write(func(w io.Writer) {
			for _, e := range a.session.Transcript() {
				a.colors.entry(w, e)
			}
		})
	case "status":
		a.status()
	case "dismiss":
		a.session.DismissNotification()
		a.session.ClearError()
	default:
		a.ask(ctx, line)
	}
	return false
}

func (a *App) upload(ctx context.Context, path string) {
	if path == "" {
		a.errorf("usage: upload <path>")
		return
	}
	file, err := a.files.Stat(ctx, path)
	if err != nil {
		a.errorf("%v", err)
		return
	}
	if a.session.Uploading() {
		a.errorf("an upload is already in progress")
		return
	}

	a.muted("Uploading %s...", file.Name)
	a.spawn(func() {
		if err := a.session.Upload(ctx, []domain.UploadFile{file}); err != nil {
			a.report(err)
			return
		}
		a.write(func(w io.Writer) { a.colors.uploadStatus(w, a.session.UploadStatus()) })
	})
}

// delete blocks the prompt only until the confirmation has been answered.
func (a *App) delete(ctx context.Context, id string, lines <-chan string) {
	if id == "" {
		a.errorf("usage: delete <id>")
		return
	}

	settled := make(chan struct{})
	a.spawn(func() {
		defer close(settled)
		if err := a.session.Delete(ctx, id); err != nil {
			a.report(err)
			return
		}
		a.write(func(w io.Writer) { a.colors.notification(w, a.session.Notification()) })
	})

	if a.prompter.assumeYes {
		return
	}
	select {
	case req := <-a.prompter.requests:
		a.answer(ctx, req, lines)
	case <-settled:
	case <-ctx.Done():
	}
}

func (a *App) answer(ctx context.Context, req confirmRequest, lines <-chan string) {
	a.write(func(w io.Writer) { fmt.Fprintf(w, "%s [y/N]: ", req.prompt) })
	select {
	case line, ok := <-lines:
		reply := strings.ToLower(strings.TrimSpace(line))
		req.reply <- ok && (reply == "y" || reply == "yes")
	case <-ctx.Done():
		req.reply <- false
	}
}

func (a *App) ask(ctx context.Context, question string) {
	if a.session.Sending() {
		a.errorf("still waiting for the previous answer")
		return
	}
	scope := a.currentScope()
	a.spawn(func() {
		if err := a.session.Send(ctx, question, scope); err != nil {
			a.report(err)
			return
		}
		entries := a.session.Transcript()
		if len(entries) == 0 {
			return
		}
		a.write(func(w io.Writer) { a.colors.entry(w, entries[len(entries)-1]) })
	})
}

func (a *App) setScope(arg string) {
	a.scopeMu.Lock()
	defer a.scopeMu.Unlock()
	if arg == "" || strings.EqualFold(arg, "all") {
		a.scope = nil
		a.muted("Questions will search all documents.")
		return
	}
	a.scope = strings.Fields(arg)
	a.muted("Questions limited to %d document(s).", len(a.scope))
}

func (a *App) currentScope() []string {
	a.scopeMu.Lock()
	defer a.scopeMu.Unlock()
	if a.scope == nil {
		return nil
	}
	return append([]string(nil), a.scope...)
}

func (a *App) status() {
	a.write(func(w io.Writer) {
		fmt.Fprintf(w, "health:    %s\n", a.session.Health())
		fmt.Fprintf(w, "documents: %d\n", len(a.session.Documents()))
		fmt.Fprintf(w, "deleting:  %s\n", joinOrDash(a.session.PendingDeletes()))
		fmt.Fprintf(w, "uploading: %t\n", a.session.Uploading())
		fmt.Fprintf(w, "sending:   %t\n", a.session.Sending())
		fmt.Fprintf(w, "scope:     %s\n", joinOrAll(a.currentScope()))
		if s := a.session.UploadStatus(); s != nil {
			fmt.Fprintf(w, "last upload: %s (%s)\n", s.Message, s.Outcome)
		}
		if msg := a.session.LastError(); msg != "" {
			a.colors.failure.Fprintf(w, "error: %s\n", msg)
		}
		a.colors.notification(w, a.session.Notification())
	})
}

func (a *App) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCancelled):
		a.muted("Cancelled.")
	case errors.Is(err, domain.ErrBusy):
		a.errorf("already in progress")
	case errors.Is(err, domain.ErrDegraded):
		a.errorf("%s", domain.MessageBackendUnavailable)
	default:
		a.errorf("%s", domain.UserMessage(err, ""))
	}
}

func (a *App) spawn(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *App) write(fn func(w io.Writer)) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fn(a.out)
}

func (a *App) println(s string) {
	a.write(func(w io.Writer) { fmt.Fprintln(w, s) })
}

func (a *App) errorf(format string, args ...any) {
	a.write(func(w io.Writer) { a.colors.failure.Fprintf(w, "✗ "+format+"\n", args...) })
}

func (a *App) muted(format string, args ...any) {
	a.write(func(w io.Writer) { a.colors.muted.Fprintf(w, format+"\n", args...) })
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}

func joinOrAll(ids []string) string {
	if len(ids) == 0 {
		return "all documents"
	}
	return strings.Join(ids, ", ")
}
