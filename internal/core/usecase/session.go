package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/docchat/internal/core/domain"
	"github.com/kirillkom/docchat/internal/core/ports"
	"github.com/kirillkom/docchat/internal/core/state"
)

type SessionDeps struct {
	Documents ports.DocumentService
	Chat      ports.ChatService
	Health    ports.HealthChecker
	Confirmer ports.Confirmer
	Sink      ports.EventSink
	Recorder  ports.EventRecorder
	Store     *state.Store
	MaxUpload int64
	Logger    *slog.Logger
}

// Session is the root of the client. It owns the state store and is the only
// place where orchestrator events are applied to it.
type Session struct {
	store        *state.Store
	health       ports.HealthChecker
	upload       *UploadUseCase
	documents    *DocumentsUseCase
	conversation *ConversationUseCase
	sink         ports.EventSink
	recorder     ports.EventRecorder
	logger       *slog.Logger
}

var (
	_ ports.SessionReader    = (*Session)(nil)
	_ ports.SessionCommander = (*Session)(nil)
)

func NewSession(deps SessionDeps) *Session {
	store := deps.Store
	if store == nil {
		store = state.NewStore(state.DefaultNotificationTTL)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:        store,
		health:       deps.Health,
		upload:       NewUploadUseCase(deps.Documents, deps.MaxUpload),
		documents:    NewDocumentsUseCase(deps.Documents, deps.Confirmer, store),
		conversation: NewConversationUseCase(deps.Chat, store),
		sink:         deps.Sink,
		recorder:     deps.Recorder,
		logger:       logger,
	}
}

// Start runs the health gate. A healthy backend triggers the initial document
// load; an unhealthy one leaves the session degraded and no load is attempted.
func (s *Session) Start(ctx context.Context) domain.HealthState {
	s.store.SetHealth(domain.HealthChecking)

	if err := s.health.CheckHealth(ctx); err != nil {
		s.logger.Error("health_unhealthy", "error", err)
		s.store.SetLastError(domain.MessageBackendUnavailable)
		s.dispatch(ctx, domain.HealthChanged{State: domain.HealthUnhealthy})
		return domain.HealthUnhealthy
	}

	s.dispatch(ctx, domain.HealthChanged{State: domain.HealthHealthy})
	_ = s.Reload(ctx)
	return domain.HealthHealthy
}

func (s *Session) Reload(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.dispatch(ctx, s.documents.Load(ctx))
	return nil
}

// Upload reports outcomes through the upload status slot and notifications.
// The returned error is set only when the attempt was refused.
func (s *Session) Upload(ctx context.Context, files []domain.UploadFile) error {
	if err := s.ready(); err != nil {
		return err
	}
	event, err := s.upload.Upload(ctx, files, func(e domain.Event) { s.dispatch(ctx, e) })
	if err != nil {
		return err
	}
	s.dispatch(ctx, event)
	return nil
}

func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	event, err := s.documents.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.dispatch(ctx, event)
	return nil
}

func (s *Session) Send(ctx context.Context, message string, documentIDs []string) error {
	if err := s.ready(); err != nil {
		return err
	}
	event, err := s.conversation.Send(ctx, message, documentIDs)
	if err != nil {
		return err
	}
	s.dispatch(ctx, event)
	return nil
}

func (s *Session) SetInput(text string) {
	s.conversation.SetInput(text)
}

func (s *Session) Input() string {
	return s.conversation.Input()
}

func (s *Session) Submit(ctx context.Context, documentIDs []string) error {
	return s.Send(ctx, s.conversation.Input(), documentIDs)
}

func (s *Session) DismissNotification() { s.store.DismissNotification() }
func (s *Session) ClearError() { s.store.SetLastError("") }

func (s *Session) Health() domain.HealthState { return s.store.Health() }
func (s *Session) Documents() []domain.Document { return s.store.Documents() }
func (s *Session) PendingDeletes() []string { return s.store.PendingDeletes() }
func (s *Session) Transcript() []domain.TranscriptEntry { return s.store.Transcript() }
func (s *Session) UploadStatus() *domain.UploadStatus { return s.store.UploadStatus() }
func (s *Session) Notification() *domain.Notification { return s.store.Notification() }
func (s *Session) LastError() string { return s.store.LastError() }
func (s *Session) Loading() bool { return s.store.Loading() }
func (s *Session) Uploading() bool { return s.upload.Busy() }
func (s *Session) Sending() bool { return s.store.Sending() }
func (s *Session) Document(id string) (domain.Document, bool) { return s.store.Document(id) }

func (s *Session) ready() error {
	if s.store.Health() == domain.HealthUnhealthy {
		return domain.ErrDegraded
	}
	return nil
}

func (s *Session) dispatch(ctx context.Context, event domain.Event) {
	if event == nil {
		return
	}

	switch e := event.(type) {
	case domain.HealthChanged:
		s.store.SetHealth(e.State)
	case domain.DocumentsLoaded:
		s.store.ApplyLoad(e.Since, e.Documents)
	case domain.DocumentsLoadFailed:
		s.store.EndLoad()
		s.fail(e.Message)
	case domain.UploadStarted:
		s.store.SetUploadStatus(nil)
	case domain.UploadRejected:
		s.store.SetUploadStatus(&domain.UploadStatus{Outcome: domain.UploadOutcomeError, Message: e.Message})
		s.fail(e.Message)
	case domain.UploadFailed:
		s.store.SetUploadStatus(&domain.UploadStatus{Outcome: domain.UploadOutcomeError, Message: e.Message})
		s.fail(e.Message)
	case domain.UploadSucceeded:
		doc := e.Document
		s.store.ApplyUploadSuccess(doc)
		s.store.SetUploadStatus(&domain.UploadStatus{Outcome: domain.UploadOutcomeSuccess, Message: e.Message, Document: &doc})
		s.store.Notify(domain.NotificationSuccess, domain.MessageUploaded)
	case domain.DeleteSucceeded:
		s.store.ApplyDeleteSuccess(e.DocumentID)
		s.store.Notify(domain.NotificationSuccess, domain.MessageDeleted)
	case domain.DeleteFailed:
		s.store.EndDelete(e.DocumentID)
		s.fail(e.Message)
	case domain.UploadIgnored, domain.MessageAnswered, domain.MessageFailed:
		// Transcript turns are appended by the conversation use case.
	}

	if s.recorder != nil {
		s.recorder.RecordEvent(event.EventName())
	}
	if s.sink != nil {
		if err := s.sink.Publish(ctx, event); err != nil {
			s.logger.Warn("event_publish_failed", "event", event.EventName(), "error", err)
		}
	}
}

func (s *Session) fail(message string) {
	s.store.SetLastError(message)
	s.store.Notify(domain.NotificationError, message)
}
