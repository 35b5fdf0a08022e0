package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Houeta/stockwatch/internal/models"
	"github.com/Houeta/stockwatch/internal/notifier"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// defaultSocketInterval applies when start_monitoring carries no interval.
const defaultSocketInterval = 300 * time.Second

type startMonitoring struct {
	Interval int `json:"interval"` // seconds
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WarnContext(r.Context(), "Failed to upgrade socket", "op", "server.handleSocket", "error", err)
		return
	}

	c := &client{hub: s.hub, conn: conn, send: make(chan []byte, sendBuffer)}
	s.hub.register(c)
	c.reply(TypeConnected, map[string]string{"status": "ok"})
	c.reply(TypeMonitoringStatus, s.monitoringStatus())

	go c.writePump()
	go c.readPump(s.dispatch)
}

// dispatch handles one incoming socket message.
func (s *Server) dispatch(c *client, msg Envelope) {
	const opn = "server.dispatch"

	switch msg.Type {
	case TypeStartMonitoring:
		interval := defaultSocketInterval
		var req startMonitoring
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				c.reply(TypeError, map[string]string{"error": "invalid start_monitoring payload"})
				return
			}
		}
		if req.Interval > 0 {
			interval = time.Duration(req.Interval) * time.Second
		}

		// A new interval restarts the loop.
		if s.monitor.Running() && s.monitor.Interval() != interval {
			s.monitor.Stop()
		}
		if !s.monitor.Running() && !s.monitor.Start(s.baseCtx, interval) {
			c.reply(TypeError, map[string]string{"error": "monitoring could not be started with this interval"})
			return
		}
		s.log.Info("Monitoring requested over socket", "op", opn, "interval", interval.String())
		s.hub.broadcast(s.baseCtx, TypeMonitoringStatus, s.monitoringStatus())

	case TypeStopMonitoring:
		s.monitor.Stop()
		s.hub.broadcast(s.baseCtx, TypeMonitoringStatus, s.monitoringStatus())

	case TypeClearLog:
		s.engine.ClearChanges()
		s.hub.broadcast(s.baseCtx, TypeLogCleared, map[string]string{"status": "ok"})

	case TypeRefresh:
		// Results reach every socket through the hub once the cycle completes.
		go func() {
			ctx, cancel := context.WithTimeout(s.baseCtx, refreshTimeout)
			defer cancel()

			if _, err := s.engine.RunOnce(ctx); err != nil {
				s.log.Error("Socket refresh failed", "op", opn, "error", err)
			}
		}()

	case TypeTestChange:
		// The sample goes to every socket but never into the change log.
		event := sampleEvent(s.now())
		s.hub.broadcast(s.baseCtx, TypeTestChangeResult, TestChangeResult{
			Change:  event,
			Message: "TEST: " + notifier.Describe(event),
		})

	default:
		c.reply(TypeError, map[string]string{"error": "unknown message type " + msg.Type})
	}
}

func sampleEvent(now time.Time) models.ChangeEvent {
	return models.ChangeEvent{
		ID:           uuid.NewString(),
		Kind:         models.KindIn,
		ProductID:    "test",
		VariantID:    "test",
		ProductTitle: "PLA Filament",
		VariantTitle: "White / 1.75mm / 1kg",
		Timestamp:    now,
		Price:        decimal.RequireFromString("636.00"),
	}
}
