// Package health serves the liveness endpoints used by the hosting
// platform: /, /health and /status.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"schedule-bot/pkg/logx"
)

// Server reports the process as healthy for as long as it runs.
type Server struct {
	service  string
	sessions func() int
	now      func() time.Time
	log      logx.Logger
}

// New builds a server; sessions reports the number of live playback
// sessions and may be nil.
func New(service string, sessions func() int, log logx.Logger) *Server {
	return &Server{
		service:  service,
		sessions: sessions,
		now:      time.Now,
		log:      log.With(logx.String("component", "health")),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.health)
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /status", s.status)
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "healthy",
		"service":   s.service,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	n := 0
	if s.sessions != nil {
		n = s.sessions()
	}
	writeJSON(w, map[string]any{
		"status":   "running",
		"type":     "discord-bot",
		"sessions": n,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Run listens on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.log.Warn("health server shutdown", logx.Err(err))
		}
	}()

	s.log.Info("health server listening", logx.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
