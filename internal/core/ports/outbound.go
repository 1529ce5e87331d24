package ports

import (
	"context"

	"github.com/kirillkom/docchat/internal/core/domain"
)

// DocumentService is the remote document API.
type DocumentService interface {
	UploadDocument(ctx context.Context, file domain.UploadFile) (domain.Document, error)
	ListDocuments(ctx context.Context) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// ChatService is the remote chat API. A nil documentIDs scopes the question to all documents.
type ChatService interface {
	SendMessage(ctx context.Context, message string, documentIDs []string) (domain.ChatReply, error)
}

// HealthChecker probes backend liveness.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// Confirmer is the blocking yes/no gate shown before destructive actions.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// EventSink receives every dispatched session event.
type EventSink interface {
	Publish(ctx context.Context, event domain.Event) error
}

// FileSource resolves user-supplied paths into candidate upload files.
type FileSource interface {
	Stat(ctx context.Context, path string) (domain.UploadFile, error)
}

// EventRecorder counts dispatched session events.
type EventRecorder interface {
	RecordEvent(name string)
}
