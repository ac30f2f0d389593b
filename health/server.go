package health

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Server is the supervised background HTTP server exposing the health and
// metrics endpoints of the worker. It is owned by process lifecycle
// management: Run blocks until the context ends and shuts the listener down
// before returning.
type Server struct {
	addr    string
	handler http.Handler
	logger  *slog.Logger
}

// NewServer creates a health server for the given handler.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		addr:    addr,
		handler: handler,
		logger:  logger,
	}
}

// Run serves until ctx is cancelled. A listen failure is returned to the
// caller, failure to bind the health port is fatal to the process.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("health server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("health server shutdown failed", "error", err)
	}
	return <-errCh
}
