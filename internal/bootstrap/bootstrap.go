package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kirillkom/docchat/internal/adapters/cli"
	httpadapter "github.com/kirillkom/docchat/internal/adapters/http"
	"github.com/kirillkom/docchat/internal/config"
	"github.com/kirillkom/docchat/internal/core/ports"
	"github.com/kirillkom/docchat/internal/core/state"
	"github.com/kirillkom/docchat/internal/core/usecase"
	natsevents "github.com/kirillkom/docchat/internal/infrastructure/events/nats"
	"github.com/kirillkom/docchat/internal/infrastructure/ragapi"
	"github.com/kirillkom/docchat/internal/infrastructure/resilience"
	"github.com/kirillkom/docchat/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docchat/internal/infrastructure/transport"
	"github.com/kirillkom/docchat/internal/observability/metrics"
)

const serviceName = "docchat"

type App struct {
	Config config.Config

	Session  *usecase.Session
	Files    ports.FileSource
	Prompter *cli.Prompter
	Metrics  *metrics.ClientMetrics

	logger  *slog.Logger
	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	clientMetrics := metrics.NewClientMetrics(serviceName)

	apiPolicy := resilience.DefaultConfig()
	apiPolicy.RetryMaxAttempts = cfg.APIRetryMaxAttempts
	apiPolicy.BreakerEnabled = cfg.APIBreakerEnabled

	api := transport.New(cfg.APIBaseURL, transport.Options{
		Timeout:        cfg.RequestTimeout,
		Executor:       resilience.NewExecutor(apiPolicy),
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		Observer:       clientMetrics,
		Logger:         logger,
	})
	backend := ragapi.New(api, cfg.UploadTimeout)

	files, err := localfs.New("")
	if err != nil {
		return nil, fmt.Errorf("init file source: %w", err)
	}

	closers := []func(){}
	var sink ports.EventSink
	if cfg.NATSURL != "" {
		natsSink, err := natsevents.New(cfg.NATSURL, cfg.NATSSubject, natsevents.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
			Logger:             logger,
		})
		if err != nil {
			logger.Warn("event_sink_disabled", "error", err)
		} else {
			sink = natsSink
			closers = append(closers, natsSink.Close)
		}
	}

	prompter := cli.NewPrompter(cfg.AssumeYes)
	session := usecase.NewSession(usecase.SessionDeps{
		Documents: backend,
		Chat:      backend,
		Health:    backend,
		Confirmer: prompter,
		Sink:      sink,
		Recorder:  clientMetrics,
		Store:     state.NewStore(cfg.NotificationTTL),
		MaxUpload: cfg.MaxUploadBytes,
		Logger:    logger,
	})

	return &App{
		Config:   cfg,
		Session:  session,
		Files:    files,
		Prompter: prompter,
		Metrics:  clientMetrics,
		logger:   logger,
		closeFn: func() {
			for _, closeFn := range closers {
				closeFn()
			}
		},
	}, nil
}

// StatusHandler serves /healthz, /v1/session and /metrics for the session.
func (a *App) StatusHandler() http.Handler {
	serverMetrics := metrics.NewHTTPServerMetrics(serviceName, a.Metrics.Registry())
	wrap := func(next http.Handler) http.Handler {
		return serverMetrics.Middleware(serviceName, next)
	}
	return httpadapter.NewRouter(a.Session, a.Metrics.Handler(), wrap, a.logger).Handler()
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
