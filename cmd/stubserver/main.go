// Runs the TaskFlow fixture application standalone so the browser suite can
// be pointed at it via TASKFLOW_BASE_URL, or so selectors can be inspected
// by hand during test development.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskflowai/taskflow-e2e/internal/stubapp"
)

func main() {
	logger := newLogger(os.Stderr)

	addr := os.Getenv("TASKFLOW_STUB_ADDR")
	if addr == "" {
		addr = ":8787"
	}

	app, err := stubapp.New(logger)
	if err != nil {
		logger.Error("failed to build fixture app", "error", err)
		os.Exit(1)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("fixture app listening", "addr", addr,
			"email", stubapp.DefaultEmail)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("fixture app stopped")
}

func newLogger(w *os.File) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				if t, ok := attr.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.UTC().Format(time.RFC3339Nano))
				}
			}
			return attr
		},
	})
	return slog.New(handler)
}
