package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/docchat/internal/adapters/cli"
	"github.com/kirillkom/docchat/internal/bootstrap"
	"github.com/kirillkom/docchat/internal/config"
	"github.com/kirillkom/docchat/internal/core/domain"
	"github.com/kirillkom/docchat/internal/observability/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 2
	}

	logger, closeLog := newLogger(cfg)
	defer closeLog.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		fmt.Fprintf(os.Stderr, "bootstrap error: %v\n", err)
		return 1
	}
	defer app.Close()

	group, groupCtx := errgroup.WithContext(ctx)
	replCtx, cancelREPL := context.WithCancel(groupCtx)
	defer cancelREPL()

	var replErr error
	group.Go(func() error {
		defer cancelREPL()
		repl := cli.New(app.Session, app.Files, app.Prompter, os.Stdin, os.Stdout, cli.Options{
			BaseURL: cfg.APIBaseURL,
			NoColor: cfg.NoColor,
			Logger:  logger,
		})
		replErr = repl.Run(replCtx)
		return nil
	})

	if cfg.StatusPort != "" {
		server := &http.Server{
			Addr:              ":" + cfg.StatusPort,
			Handler:           app.StatusHandler(),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		group.Go(func() error {
			logger.Info("status_server_listening", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			<-replCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if err := group.Wait(); err != nil {
		logger.Error("docchat_stopped", "error", err)
		return 1
	}
	if errors.Is(replErr, domain.ErrDegraded) {
		return 1
	}
	return 0
}

func newLogger(cfg config.Config) (*slog.Logger, io.Closer) {
	if cfg.LogFile != "" {
		return logging.NewFileLogger("docchat", cfg.LogLevel, cfg.LogFile)
	}
	return logging.NewJSONLogger("docchat", cfg.LogLevel), io.NopCloser(nil)
}
