package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/docchat/internal/core/domain"
	"github.com/kirillkom/docchat/internal/core/state"
	"github.com/kirillkom/docchat/internal/core/usecase"
)

type backendFake struct {
	mu        sync.Mutex
	healthErr error
	docs      []domain.Document
	deleted   []string
	questions []string
	scopes    [][]string
	reply     domain.ChatReply
}

func (f *backendFake) CheckHealth(context.Context) error { return f.healthErr }

func (f *backendFake) UploadDocument(_ context.Context, file domain.UploadFile) (domain.Document, error) {
	return domain.Document{ID: "d9", Filename: file.Name, FileType: domain.FileTypePDF, ChunksCount: 3, Status: domain.StatusProcessed}, nil
}

func (f *backendFake) ListDocuments(context.Context) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Document(nil), f.docs...), nil
}

func (f *backendFake) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *backendFake) SendMessage(_ context.Context, message string, ids []string) (domain.ChatReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, message)
	f.scopes = append(f.scopes, ids)
	return f.reply, nil
}

type filesFake struct{}

func (filesFake) Stat(_ context.Context, path string) (domain.UploadFile, error) {
	if path == "missing.pdf" {
		return domain.UploadFile{}, errors.New("stat missing.pdf: no such file or directory")
	}
	return domain.UploadFile{Name: path, Size: 2048}, nil
}

func runApp(t *testing.T, backend *backendFake, assumeYes bool, input string) string {
	t.Helper()
	prompter := NewPrompter(assumeYes)
	session := usecase.NewSession(usecase.SessionDeps{
		Documents: backend,
		Chat:      backend,
		Health:    backend,
		Confirmer: prompter,
		Store:     state.NewStore(time.Minute),
	})

	var out bytes.Buffer
	app := New(session, filesFake{}, prompter, strings.NewReader(input), &out, Options{
		BaseURL: "http://localhost:8000",
		NoColor: true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := app.Run(ctx)
	if backend.healthErr == nil && err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func report() domain.Document {
	return domain.Document{ID: "d1", Filename: "report.pdf", FileType: domain.FileTypePDF, ChunksCount: 12, Status: domain.StatusProcessed}
}

func TestRunShowsDegradedScreen(t *testing.T) {
	backend := &backendFake{healthErr: errors.New("connection refused")}
	prompter := NewPrompter(false)
	session := usecase.NewSession(usecase.SessionDeps{Documents: backend, Chat: backend, Health: backend, Confirmer: prompter})

	var out bytes.Buffer
	app := New(session, filesFake{}, prompter, strings.NewReader("list\n"), &out, Options{BaseURL: "http://localhost:8000", NoColor: true})
	err := app.Run(context.Background())

	if !errors.Is(err, domain.ErrDegraded) {
		t.Fatalf("expected degraded error, got %v", err)
	}
	for _, want := range []string{"Backend Unavailable", domain.MessageBackendUnavailable, "uvicorn app.main:app --reload", "http://localhost:8000"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestRunListsDocumentsOnStart(t *testing.T) {
	out := runApp(t, &backendFake{docs: []domain.Document{report()}}, false, "")

	if !strings.Contains(out, "Documents (1)") || !strings.Contains(out, "report.pdf") {
		t.Fatalf("expected document list, got:\n%s", out)
	}
}

func TestUploadPrintsOutcome(t *testing.T) {
	out := runApp(t, &backendFake{}, false, "upload report.pdf\n")

	if !strings.Contains(out, "Successfully uploaded report.pdf") {
		t.Fatalf("expected upload success, got:\n%s", out)
	}
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	out := runApp(t, &backendFake{}, false, "upload malware.exe\n")

	if !strings.Contains(out, "Unsupported file type. Please upload PDF, DOCX, or TXT files.") {
		t.Fatalf("expected rejection, got:\n%s", out)
	}
}

func TestUploadReportsMissingFile(t *testing.T) {
	out := runApp(t, &backendFake{}, false, "upload missing.pdf\n")

	if !strings.Contains(out, "no such file or directory") {
		t.Fatalf("expected stat error, got:\n%s", out)
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	backend := &backendFake{docs: []domain.Document{report()}}
	out := runApp(t, backend, false, "delete d1\ny\n")

	if !strings.Contains(out, domain.PromptConfirmDelete+" [y/N]: ") {
		t.Fatalf("expected confirmation prompt, got:\n%s", out)
	}
	if !strings.Contains(out, domain.MessageDeleted) {
		t.Fatalf("expected delete notification, got:\n%s", out)
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != "d1" {
		t.Fatalf("expected one delete call for d1, got %v", backend.deleted)
	}
}

func TestDeleteDeclined(t *testing.T) {
	backend := &backendFake{docs: []domain.Document{report()}}
	out := runApp(t, backend, false, "delete d1\nn\n")

	if !strings.Contains(out, "Cancelled.") {
		t.Fatalf("expected cancellation, got:\n%s", out)
	}
	if len(backend.deleted) != 0 {
		t.Fatalf("expected no delete call, got %v", backend.deleted)
	}
}

func TestDeleteAssumeYesSkipsPrompt(t *testing.T) {
	backend := &backendFake{docs: []domain.Document{report()}}
	out := runApp(t, backend, true, "delete d1\n")

	if strings.Contains(out, "[y/N]") {
		t.Fatalf("expected no prompt with assume yes, got:\n%s", out)
	}
	if len(backend.deleted) != 1 {
		t.Fatalf("expected one delete call, got %v", backend.deleted)
	}
}

func TestAskPrintsAnswerWithSources(t *testing.T) {
	backend := &backendFake{
		docs:  []domain.Document{report()},
		reply: domain.ChatReply{Response: "Refunds within 30 days.", Sources: []string{"report.pdf"}, Confidence: 0.82},
	}
	out := runApp(t, backend, false, "What is the refund policy?\n")

	for _, want := range []string{"assistant> Refunds within 30 days.", "Sources: report.pdf", "Confidence: 82%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if len(backend.scopes) != 1 || backend.scopes[0] != nil {
		t.Fatalf("expected unscoped question, got %v", backend.scopes)
	}
}

func TestAskWithoutDocumentsIsRejected(t *testing.T) {
	backend := &backendFake{}
	out := runApp(t, backend, false, "ask anything?\n")

	if !strings.Contains(out, "no documents available") {
		t.Fatalf("expected validation message, got:\n%s", out)
	}
	if len(backend.questions) != 0 {
		t.Fatalf("expected no chat call, got %v", backend.questions)
	}
}

func TestScopeLimitsQuestions(t *testing.T) {
	backend := &backendFake{
		docs:  []domain.Document{report()},
		reply: domain.ChatReply{Response: "ok", Sources: []string{}},
	}
	runApp(t, backend, false, "scope d1\nask summarize\n")

	if len(backend.scopes) != 1 || len(backend.scopes[0]) != 1 || backend.scopes[0][0] != "d1" {
		t.Fatalf("expected scope [d1], got %v", backend.scopes)
	}
}

func TestQuitStopsReadingInput(t *testing.T) {
	backend := &backendFake{docs: []domain.Document{report()}}
	runApp(t, backend, true, "quit\ndelete d1\n")

	if len(backend.deleted) != 0 {
		t.Fatalf("expected commands after quit to be ignored, got %v", backend.deleted)
	}
}
