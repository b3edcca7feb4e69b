package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tfitzpatrick0/openclaw-droplet/internal/logging"
	"github.com/tfitzpatrick0/openclaw-droplet/internal/manager"

	"go.uber.org/zap"
)

// Server is the HTTP front-end of the droplet service.
type Server struct {
	manager *manager.Manager
	port    int
}

// NewServer creates a new Server
func NewServer(mgr *manager.Manager, port int) *Server {
	return &Server{
		manager: mgr,
		port:    port,
	}
}

// Handler builds the full route table, wrapped in request-id and
// logging middleware. Exposed so tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /resources", s.handleCreate)
	mux.HandleFunc("GET /resources", s.handleList)
	mux.HandleFunc("GET /resources/{id}", s.handleGet)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return withRequestID(withLogging(mux))
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger().Info("starting HTTP server", zap.Int("port", s.port))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logging.Logger().Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
