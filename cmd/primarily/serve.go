package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

type eventCloser interface {
	Close(ctx context.Context) error
}

// serve runs server until a signal arrives on quit or the listener fails.
// Either way the server is shut down and pending events are flushed before
// serve returns.
func serve(log *zap.Logger, server *http.Server, events eventCloser, quit <-chan os.Signal, timeout time.Duration) error {
	failed := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		select {
		case sig := <-quit:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
		case <-failed:
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
		if err := events.Close(ctx); err != nil {
			log.Warn("events left undelivered", zap.Error(err))
		}
	}()

	log.Info("server started", zap.String("addr", server.Addr))
	err := server.ListenAndServe()
	close(failed)
	<-stopped

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
