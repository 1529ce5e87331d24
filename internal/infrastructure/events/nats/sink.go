package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/kirillkom/docchat/internal/core/domain"
	"github.com/kirillkom/docchat/internal/core/ports"
	"github.com/kirillkom/docchat/internal/infrastructure/resilience"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// Sink publishes session events as JSON envelopes. Publishing is fire and
// forget; subscribers are observers only.
type Sink struct {
	conn      *nats.Conn
	pub       publisher
	subject   string
	sessionID string
	executor  *resilience.Executor
	now       func() time.Time
}

var _ ports.EventSink = (*Sink)(nil)

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

type Envelope struct {
	Event      string          `json:"event"`
	SessionID  string          `json:"session_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func New(url, subject string, options Options) (*Sink, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("docchat"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	sink := newSink(conn, subject, options.ResilienceExecutor)
	sink.conn = conn
	return sink, nil
}

func newSink(pub publisher, subject string, executor *resilience.Executor) *Sink {
	return &Sink{
		pub:       pub,
		subject:   subject,
		sessionID: uuid.NewString(),
		executor:  executor,
		now:       time.Now,
	}
}

func (s *Sink) Close() {
	if s.conn != nil {
		if err := s.conn.FlushTimeout(2 * time.Second); err != nil {
			slog.Warn("nats_flush_failed", "error", err)
		}
		s.conn.Close()
	}
}

func (s *Sink) Publish(ctx context.Context, event domain.Event) error {
	data, err := s.encode(event)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := s.pub.Publish(s.subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if s.executor != nil {
		err = s.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

func (s *Sink) encode(event domain.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event.EventName(), err)
	}
	data, err := json.Marshal(Envelope{
		Event:      event.EventName(),
		SessionID:  s.sessionID,
		OccurredAt: s.now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", event.EventName(), err)
	}
	return data, nil
}
