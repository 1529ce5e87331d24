package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/docchat/internal/core/domain"
	"github.com/kirillkom/docchat/internal/core/ports"
)

type registryTracker interface {
	BeginLoad() uint64
	IsDeleting(id string) bool
	BeginDelete(id string) bool
}

// DocumentsUseCase loads the document snapshot and runs the delete protocol.
type DocumentsUseCase struct {
	docs     ports.DocumentService
	confirm  ports.Confirmer
	registry registryTracker
}

func NewDocumentsUseCase(docs ports.DocumentService, confirm ports.Confirmer, registry registryTracker) *DocumentsUseCase {
	return &DocumentsUseCase{
		docs:     docs,
		confirm:  confirm,
		registry: registry,
	}
}

// Load fetches a snapshot. The registry is marked loading until the returned
// event is applied.
func (uc *DocumentsUseCase) Load(ctx context.Context) domain.Event {
	since := uc.registry.BeginLoad()
	docs, err := uc.docs.ListDocuments(ctx)
	if err != nil {
		slog.Warn("documents_load_failed", "error", err)
		return domain.DocumentsLoadFailed{Message: domain.UserMessage(err, domain.MessageLoadFailed)}
	}
	return domain.DocumentsLoaded{Documents: docs, Since: since}
}

// Delete asks for confirmation, marks id pending and calls the backend.
// A declined confirmation returns domain.ErrCancelled; an id that is already
// being deleted returns domain.ErrBusy. Neither makes a network call.
func (uc *DocumentsUseCase) Delete(ctx context.Context, id string) (domain.Event, error) {
	if uc.registry.IsDeleting(id) {
		return nil, domain.ErrBusy
	}
	if uc.confirm != nil && !uc.confirm.Confirm(ctx, domain.PromptConfirmDelete) {
		return nil, domain.ErrCancelled
	}
	if !uc.registry.BeginDelete(id) {
		return nil, domain.ErrBusy
	}

	if err := uc.docs.DeleteDocument(ctx, id); err != nil {
		slog.Warn("delete_failed", "document_id", id, "error", err)
		return domain.DeleteFailed{
			DocumentID: id,
			Message:    domain.UserMessage(err, domain.MessageDeleteFailed),
		}, nil
	}
	return domain.DeleteSucceeded{DocumentID: id}, nil
}
