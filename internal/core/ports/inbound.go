package ports

import (
	"context"

	"github.com/kirillkom/docchat/internal/core/domain"
)

// SessionReader is the read-only projection consumed by front-ends.
type SessionReader interface {
	Health() domain.HealthState
	Documents() []domain.Document
	PendingDeletes() []string
	Transcript() []domain.TranscriptEntry
	UploadStatus() *domain.UploadStatus
	Notification() *domain.Notification
	LastError() string
	Loading() bool
	Uploading() bool
	Sending() bool
}

// SessionCommander is the intent surface consumed by front-ends.
type SessionCommander interface {
	Start(ctx context.Context) domain.HealthState
	Reload(ctx context.Context) error
	Upload(ctx context.Context, files []domain.UploadFile) error
	Delete(ctx context.Context, id string) error
	Send(ctx context.Context, message string, documentIDs []string) error
	SetInput(text string)
	Submit(ctx context.Context, documentIDs []string) error
	DismissNotification()
	ClearError()
}
