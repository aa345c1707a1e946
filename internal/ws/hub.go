package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"github.com/manav03panchal/nodiverse/internal/app"
	"github.com/manav03panchal/nodiverse/internal/store"
	"github.com/manav03panchal/nodiverse/pkg/metrics"
)

// Hub serves the websocket endpoint on top of a Registry.
type Hub struct {
	log *slog.Logger
	reg *Registry

	accept    *websocket.AcceptOptions
	readLimit int64
	queue     int
	msgRate   rate.Limit
	msgBurst  int
}

// Fallbacks for zero limits in cfg
const (
	defaultReadLimit    = 32 << 10
	defaultSendQueue    = 256
	defaultMessageBurst = 20
)

// NewHub sets up the hub with registry + logger
func NewHub(logger *slog.Logger, reg *Registry, cfg app.Config) *Hub {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultReadLimit
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaultSendQueue
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = defaultMessageBurst
	}
	msgRate := rate.Inf
	if cfg.MessageRate > 0 {
		msgRate = rate.Limit(cfg.MessageRate)
	}
	return &Hub{
		log: logger,
		reg: reg,
		accept: &websocket.AcceptOptions{
			OriginPatterns:  cfg.WSOrigins,
			CompressionMode: websocket.CompressionDisabled,
		},
		readLimit: cfg.MaxMessageSize,
		queue:     cfg.SendQueueSize,
		msgRate:   msgRate,
		msgBurst:  cfg.MessageBurst,
	}
}

// Registry returns the room registry the hub serves.
func (h *Hub) Registry() *Registry { return h.reg }

// ServeWS handles GET /ws/{event_id}/{user_id}. The goroutine blocks on
// reads for the life of the connection and always leaves the room on exit.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, userID := r.PathValue("event_id"), r.PathValue("user_id")
	if eventID == "" || userID == "" {
		http.Error(w, "event_id and user_id required", http.StatusBadRequest)
		return
	}
	log := h.log.With("user", userID, "event", eventID)

	c := NewConn(w, r, h.accept, h.readLimit, h.queue, log)
	if err := h.reg.Connect(ctx, c, userID, eventID); err != nil {
		h.reject(log, c, err)
		return
	}

	// Outbound writer
	go c.WriteLoop(ctx)

	if err := h.reg.BroadcastExcept(eventID, userID, NodeJoined{UserID: userID}); err != nil {
		log.Warn("ws.join.notify", "err", err)
	}

	limiter := rate.NewLimiter(h.msgRate, h.msgBurst)
	for {
		raw, err := c.Read(ctx)
		if err != nil {
			logClosed(log, err)
			break
		}
		if !limiter.Allow() {
			log.Warn("ws.rate_limited")
			continue
		}
		in, err := DecodeInbound(raw)
		if err != nil {
			log.Warn("ws.invalid_message", "err", err)
			continue
		}
		log.Debug("ws.message", "type", in.Type)
		_ = h.reg.BroadcastToEvent(eventID, Relay{Kind: in.Type, Data: in.Data, Sender: userID})
	}

	h.reg.Leave(c, userID, eventID)
	_ = c.Close(websocket.StatusNormalClosure, "")
}

func (h *Hub) reject(log *slog.Logger, c *Conn, err error) {
	if errors.Is(err, store.ErrNotFound) {
		metrics.Rejected.WithLabelValues("not_found").Inc()
		log.Info("ws.rejected", "err", err)
		_ = c.Close(StatusNotFound, "participant or event not found")
		return
	}
	metrics.Rejected.WithLabelValues("error").Inc()
	log.Error("ws.connect", "err", err)
	_ = c.Close(websocket.StatusInternalError, "connect failed")
}

func logClosed(log *slog.Logger, err error) {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		log.Info("ws.closed", "status", websocket.CloseStatus(err))
	case -1:
		log.Info("ws.closed.unexpected", "err", err)
	default:
		log.Warn("ws.closed", "status", websocket.CloseStatus(err), "err", err)
	}
}

// Shutdown closes every live websocket; their serving goroutines then leave their rooms.
func (h *Hub) Shutdown(ctx context.Context) { h.reg.Shutdown(ctx) }
