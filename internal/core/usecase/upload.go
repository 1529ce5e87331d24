package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kirillkom/docchat/internal/core/domain"
	"github.com/kirillkom/docchat/internal/core/ports"
)

type UploadPhase string

const (
	UploadIdle       UploadPhase = "idle"
	UploadValidating UploadPhase = "validating"
	UploadUploading  UploadPhase = "uploading"
)

const messageUnsupportedType = "Unsupported file type. Please upload PDF, DOCX, or TXT files."

func messageTooLarge(maxBytes int64) string {
	return fmt.Sprintf("File size too large. Please upload files smaller than %s.", formatLimit(maxBytes))
}

func formatLimit(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// UploadUseCase validates a candidate file and submits it for ingestion. Only
// one upload may be in flight; it reports outcomes as events and never touches
// the document registry.
type UploadUseCase struct {
	docs     ports.DocumentService
	maxBytes int64

	mu    sync.Mutex
	phase UploadPhase
}

func NewUploadUseCase(docs ports.DocumentService, maxBytes int64) *UploadUseCase {
	if maxBytes <= 0 {
		maxBytes = domain.MaxUploadBytes
	}
	return &UploadUseCase{
		docs:     docs,
		maxBytes: maxBytes,
		phase:    UploadIdle,
	}
}

func (uc *UploadUseCase) Phase() UploadPhase {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.phase
}

func (uc *UploadUseCase) Busy() bool {
	return uc.Phase() != UploadIdle
}

// Upload runs one upload attempt. It returns domain.ErrBusy, with no other
// effect, when an attempt is already running. started, if set, receives
// UploadStarted before validation begins.
func (uc *UploadUseCase) Upload(ctx context.Context, files []domain.UploadFile, started func(domain.Event)) (domain.Event, error) {
	if len(files) == 0 {
		return domain.UploadIgnored{}, nil
	}
	if !uc.begin() {
		return nil, domain.ErrBusy
	}
	defer uc.setPhase(UploadIdle)

	file := files[0]
	if started != nil {
		started(domain.UploadStarted{Filename: file.Name})
	}
	if err := uc.validate(file); err != nil {
		slog.Info("upload_rejected", "filename", file.Name, "size", file.Size, "reason", err.Error())
		return domain.UploadRejected{Filename: file.Name, Message: err.Error()}, nil
	}

	uc.setPhase(UploadUploading)
	doc, err := uc.docs.UploadDocument(ctx, file)
	if err != nil {
		return domain.UploadFailed{
			Filename: file.Name,
			Message:  domain.UserMessage(err, domain.MessageUploadFailed),
		}, nil
	}

	return domain.UploadSucceeded{
		Document: doc,
		Message:  fmt.Sprintf("Successfully uploaded %s", file.Name),
	}, nil
}

func (uc *UploadUseCase) validate(file domain.UploadFile) error {
	if _, ok := domain.FileTypeFromName(file.Name); !ok {
		return domain.NewValidationError("file", messageUnsupportedType)
	}
	if file.Size > uc.maxBytes {
		return domain.NewValidationError("file", messageTooLarge(uc.maxBytes))
	}
	return nil
}

func (uc *UploadUseCase) begin() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.phase != UploadIdle {
		return false
	}
	uc.phase = UploadValidating
	return true
}

func (uc *UploadUseCase) setPhase(phase UploadPhase) {
	uc.mu.Lock()
	uc.phase = phase
	uc.mu.Unlock()
}
