package httpx

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/manav03panchal/nodiverse/internal/store"
	"github.com/manav03panchal/nodiverse/internal/ws"
)

type EventsAPI struct {
	DB    Store
	Rooms Broadcaster
	Log   *slog.Logger
}

type createEventReq struct {
	Name      string     `json:"name" validate:"required,max=200"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Status    string     `json:"status" validate:"omitempty,oneof=active ended"`
}

type addParticipantReq struct {
	UserID  string `json:"user_id" validate:"required"`
	EventID string `json:"event_id"`
	Role    string `json:"role" validate:"omitempty,oneof=participant mentor organizer"`
}

type createConnectionReq struct {
	UserID1 string `json:"user_id_1" validate:"required"`
	UserID2 string `json:"user_id_2" validate:"required,nefield=UserID1"`
	Status  string `json:"status" validate:"omitempty,oneof=pending accepted"`
}

type updateConnectionReq struct {
	Status string `json:"status" validate:"required,oneof=pending accepted"`
}

// Create adds a new event
func (a *EventsAPI) Create(w http.ResponseWriter, r *http.Request) {
	var req createEventReq
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		http.Error(w, "end_date before start_date", http.StatusBadRequest)
		return
	}

	ev, err := a.DB.CreateEvent(r.Context(), store.NewEvent{
		Name: req.Name, StartDate: req.StartDate, EndDate: req.EndDate, Status: req.Status,
	})
	if err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// List returns a page of events, newest first
func (a *EventsAPI) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r)
	events, err := a.DB.ListEvents(r.Context(), limit, offset)
	if err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Get returns one event
func (a *EventsAPI) Get(w http.ResponseWriter, r *http.Request) {
	ev, err := a.DB.GetEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// AddParticipant signs a user up for the event and announces it to the live room
func (a *EventsAPI) AddParticipant(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	var req addParticipantReq
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.EventID != "" && req.EventID != eventID {
		http.Error(w, "event_id does not match path", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	u, err := a.DB.GetUser(ctx, req.UserID)
	if err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	if req.Role == "" {
		req.Role = u.Role
	}
	ep, err := a.DB.AddParticipant(ctx, eventID, req.UserID, req.Role)
	if err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}

	notice := ws.NewUser{User: store.Participant{ID: u.ID, Name: u.Name, Role: ep.Role, Profile: u.Profile}}
	if err := a.Rooms.BroadcastToEvent(eventID, notice); err != nil {
		a.Log.Warn("http.participant.notify", "event", eventID, "err", err)
	}
	writeJSON(w, http.StatusOK, ep)
}

// ListParticipants returns the event's participants with their attributes
func (a *EventsAPI) ListParticipants(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if _, err := a.DB.GetEvent(r.Context(), eventID); err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	ps, err := a.DB.ListEventParticipants(r.Context(), eventID)
	if err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// CreateConnection records a link between two users of the event
func (a *EventsAPI) CreateConnection(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	var req createConnectionReq
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := a.DB.CreateConnection(r.Context(), store.NewConnection{
		UserID1: req.UserID1, UserID2: req.UserID2, EventID: eventID, Status: req.Status,
	})
	if err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	a.notifyConnection(c)
	writeJSON(w, http.StatusOK, c)
}

// ListConnections returns the event's recorded connections
func (a *EventsAPI) ListConnections(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if _, err := a.DB.GetEvent(r.Context(), eventID); err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	cs, err := a.DB.ListEventConnections(r.Context(), eventID)
	if err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// UpdateConnection changes a connection's status
func (a *EventsAPI) UpdateConnection(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid connection id", http.StatusBadRequest)
		return
	}
	var req updateConnectionReq
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := a.DB.UpdateConnectionStatus(r.Context(), id, req.Status)
	if err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	a.notifyConnection(c)
	writeJSON(w, http.StatusOK, c)
}

func (a *EventsAPI) notifyConnection(c store.Connection) {
	if err := a.Rooms.BroadcastToEvent(c.EventID, ws.NewConnectionUpdated(c)); err != nil {
		a.Log.Warn("http.connection.notify", "event", c.EventID, "err", err)
	}
}
