package httpx

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"time"

	"github.com/manav03panchal/nodiverse/internal/app"
	"github.com/manav03panchal/nodiverse/internal/ws"
	"github.com/manav03panchal/nodiverse/pkg/metrics"
)

//go:embed static/test_client.html
var testClient []byte

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, db Store) http.Handler {
	mw := NewMiddleware(cfg)
	users := &UsersAPI{DB: db, Log: logger}
	events := &EventsAPI{DB: db, Rooms: hub.Registry(), Log: logger}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("GET /readyz", ready(db, logger))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /test", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(testClient)
	})

	// WebSocket endpoint
	mux.HandleFunc("GET /ws/{event_id}/{user_id}", hub.ServeWS)

	// Users
	mux.Handle("POST /users", mw.Limit(users.Create))
	mux.Handle("POST /users/{$}", mw.Limit(users.Create))
	mux.Handle("GET /users", mw.Limit(users.List))
	mux.Handle("GET /users/{$}", mw.Limit(users.List))
	mux.Handle("GET /users/{id}", mw.Limit(users.Get))

	// Events, participants and connections
	mux.Handle("POST /events", mw.Limit(events.Create))
	mux.Handle("POST /events/{$}", mw.Limit(events.Create))
	mux.Handle("GET /events", mw.Limit(events.List))
	mux.Handle("GET /events/{$}", mw.Limit(events.List))
	mux.Handle("GET /events/{id}", mw.Limit(events.Get))
	mux.Handle("POST /events/{id}/participants", mw.Limit(events.AddParticipant))
	mux.Handle("GET /events/{id}/participants", mw.Limit(events.ListParticipants))
	mux.Handle("POST /events/{id}/connections", mw.Limit(events.CreateConnection))
	mux.Handle("GET /events/{id}/connections", mw.Limit(events.ListConnections))
	mux.Handle("PATCH /connections/{id}", mw.Limit(events.UpdateConnection))

	return mw.Wrap(mux)
}

func ready(db Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			log.Warn("http.readyz", "err", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
