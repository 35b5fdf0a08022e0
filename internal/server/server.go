// Package server exposes the stock checker over a JSON API and a web socket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Houeta/stockwatch/internal/models"
	"github.com/Houeta/stockwatch/internal/services/checker"
	"github.com/gorilla/websocket"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	refreshTimeout    = 5 * time.Minute
)

// Monitor controls the polling loop.
type Monitor interface {
	Start(ctx context.Context, interval time.Duration) bool
	Stop()
	Running() bool
	Interval() time.Duration
}

// Server serves the HTTP API and the socket endpoint.
type Server struct {
	log      *slog.Logger
	addr     string
	engine   checker.Interface
	monitor  Monitor
	hub      *Hub
	upgrader websocket.Upgrader
	now      func() time.Time

	// baseCtx outlives single requests; it is canceled on shutdown.
	baseCtx context.Context
}

// New creates a Server. Register Hub() with the checker's collaborators to get live updates.
func New(log *slog.Logger, addr string, engine checker.Interface, monitor Monitor) *Server {
	return &Server{
		log:      log,
		addr:     addr,
		engine:   engine,
		monitor:  monitor,
		hub:      NewHub(log),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		now:      time.Now,
		baseCtx:  context.Background(),
	}
}

// Hub returns the socket hub, a notifier.Collaborator.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stock", s.handleStock)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/changes", s.handleChanges)
	mux.HandleFunc("DELETE /api/changes", s.handleClearChanges)
	mux.HandleFunc("GET /api/monitoring", s.handleMonitoring)
	mux.HandleFunc("GET /ws", s.handleSocket)

	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	const opn = "server.Run"

	s.baseCtx = ctx
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "HTTP server is starting...", "op", opn, "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s: failed to serve: %w", opn, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: failed to shut down: %w", opn, err)
	}
	s.log.InfoContext(ctx, "HTTP server is stopped", "op", opn)

	return nil
}

type stockResponse struct {
	StockData []models.VariantRecord `json:"stock_data"`
	Stats     models.Stats           `json:"stats"`
	ChangeLog []models.ChangeEvent   `json:"change_log"`
	Time      string                 `json:"time"`
}

type refreshResponse struct {
	stockResponse
	Changes []models.ChangeEvent `json:"changes"`
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	availability := models.Availability(r.URL.Query().Get("filter"))
	switch availability {
	case models.AvailabilityAll, models.AvailabilityIn, models.AvailabilityOut:
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown filter %q, use in or out", availability))
		return
	}

	snap := s.engine.Snapshot()
	s.writeJSON(w, http.StatusOK, stockResponse{
		StockData: snap.Filter(r.URL.Query().Get("q"), availability),
		Stats:     snap.Stats(),
		ChangeLog: nonNil(s.engine.Changes()),
		Time:      s.now().Format(time.TimeOnly),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	result, err := s.engine.RunOnce(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Manual refresh failed", "op", "server.handleRefresh", "error", err)
		s.writeError(w, http.StatusBadGateway, "refresh failed: upstream catalog unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, refreshResponse{
		stockResponse: stockResponse{
			StockData: result.Snapshot.Filter("", models.AvailabilityAll),
			Stats:     result.Stats,
			ChangeLog: nonNil(s.engine.Changes()),
			Time:      s.now().Format(time.TimeOnly),
		},
		Changes: nonNil(result.Events),
	})
}

func (s *Server) handleChanges(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"change_log": nonNil(s.engine.Changes())})
}

func (s *Server) handleClearChanges(w http.ResponseWriter, _ *http.Request) {
	s.engine.ClearChanges()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMonitoring(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.monitoringStatus())
}

func (s *Server) monitoringStatus() MonitoringStatus {
	status := MonitoringStatus{Active: s.monitor.Running()}
	if status.Active {
		status.Interval = int(s.monitor.Interval() / time.Second)
	}

	return status
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write response", "op", "server.writeJSON", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
