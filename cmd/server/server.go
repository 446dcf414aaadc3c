package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// readHeaderTimeout bounds how long a client may take to send request headers.
const readHeaderTimeout = 10 * time.Second

// Run listens on the configured port and serves until ctx is cancelled,
// then shuts the server and the dispatch queue down.
func (app *application) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", app.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return app.serve(ctx, ln)
}

// serve runs the HTTP server on ln alongside the dispatch queue.
// Queued work keeps running after ctx is cancelled until the shutdown
// timeout expires.
func (app *application) serve(ctx context.Context, ln net.Listener) error {
	if err := app.queue.Start(context.WithoutCancel(ctx)); err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to start dispatch queue: %w", err)
	}

	srv := &http.Server{
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("Starting server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("Shutting down server", "timeout", app.config.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
		}
		if err := app.queue.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("dispatch queue did not drain: %w", err))
		}

		stats := app.queue.Stats()
		app.logger.Info("Application shutdown completed",
			"tasks_completed", stats.Completed,
			"tasks_failed", stats.Failed,
			"tasks_stored", app.taskStore.Len())
		return errors.Join(errs...)
	})

	return g.Wait()
}
