package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"hotel-rate-scraper/engine"
	"hotel-rate-scraper/storage"
	"hotel-rate-scraper/utils"
)

// Server is the small control plane: trigger a session now, inspect engine
// status, liveness. The dashboard proper lives elsewhere.
type Server struct {
	orch   *engine.Orchestrator
	store  storage.Store
	logger *utils.Logger
}

func New(orch *engine.Orchestrator, store storage.Store, logger *utils.Logger) *Server {
	return &Server{orch: orch, store: store, logger: logger}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/runs", s.handleTrigger)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Routes()}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[server] control plane listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": time.Now().Format(time.RFC3339)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	last, err := s.store.LastRun(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"running": s.orch.Running(),
		"lastRun": last,
	})
}

// handleTrigger starts a session now, bypassing window gating but not the
// single-concurrent-run invariant: a busy engine answers 409 immediately.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "POST only"})
		return
	}

	if err := s.orch.TriggerNow("manual trigger"); err != nil {
		if errors.Is(err, engine.ErrRunInProgress) {
			writeJSON(w, http.StatusConflict, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "started": true})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
