package httpx

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/manav03panchal/nodiverse/internal/store"
	"github.com/manav03panchal/nodiverse/internal/ws"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// memStore is an in-memory Store. It also serves as the websocket directory.
type memStore struct {
	mu           sync.Mutex
	users        map[string]store.User
	events       map[string]store.Event
	participants map[string][]store.EventParticipant
	connections  []store.Connection
	nextID       int64
	pingErr      error
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]store.User{},
		events:       map[string]store.Event{},
		participants: map[string][]store.EventParticipant{},
	}
}

func (m *memStore) CreateUser(_ context.Context, nu store.NewUser) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if nu.Email != "" {
		for _, u := range m.users {
			if u.Email == nu.Email {
				return store.User{}, store.ErrConflict
			}
		}
	}
	u := store.User{ID: uuid.NewString(), Name: nu.Name, Email: nu.Email, Role: nu.Role, Profile: nu.Profile, CreatedAt: time.Now()}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memStore) ListUsers(_ context.Context, limit, offset int) ([]store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := lo.Values(m.users)
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return paginate(users, limit, offset), nil
}

func (m *memStore) CreateEvent(_ context.Context, ne store.NewEvent) (store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ne.Status == "" {
		ne.Status = store.EventActive
	}
	ev := store.Event{ID: uuid.NewString(), Name: ne.Name, StartDate: ne.StartDate, EndDate: ne.EndDate, Status: ne.Status, CreatedAt: time.Now()}
	m.events[ev.ID] = ev
	return ev, nil
}

func (m *memStore) GetEvent(_ context.Context, id string) (store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return store.Event{}, store.ErrNotFound
	}
	return ev, nil
}

func (m *memStore) ListEvents(_ context.Context, limit, offset int) ([]store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := lo.Values(m.events)
	sort.Slice(events, func(i, j int) bool { return events[i].Name < events[j].Name })
	return paginate(events, limit, offset), nil
}

func (m *memStore) AddParticipant(_ context.Context, eventID, userID, role string) (store.EventParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[eventID]; !ok {
		return store.EventParticipant{}, store.ErrNotFound
	}
	if _, ok := m.users[userID]; !ok {
		return store.EventParticipant{}, store.ErrNotFound
	}
	if lo.ContainsBy(m.participants[eventID], func(ep store.EventParticipant) bool { return ep.UserID == userID }) {
		return store.EventParticipant{}, store.ErrConflict
	}
	m.nextID++
	ep := store.EventParticipant{ID: m.nextID, UserID: userID, EventID: eventID, Role: role, JoinedAt: time.Now()}
	m.participants[eventID] = append(m.participants[eventID], ep)
	return ep, nil
}

func (m *memStore) ListEventParticipants(_ context.Context, eventID string) ([]store.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Map(m.participants[eventID], func(ep store.EventParticipant, _ int) store.Participant {
		u := m.users[ep.UserID]
		return store.Participant{ID: u.ID, Name: u.Name, Role: ep.Role, Profile: u.Profile}
	}), nil
}

func (m *memStore) CreateConnection(_ context.Context, nc store.NewConnection) (store.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, okEvent := m.events[nc.EventID]
	_, ok1 := m.users[nc.UserID1]
	_, ok2 := m.users[nc.UserID2]
	if !okEvent || !ok1 || !ok2 {
		return store.Connection{}, store.ErrNotFound
	}
	if nc.Status == "" {
		nc.Status = store.ConnectionPending
	}
	m.nextID++
	c := store.Connection{ID: m.nextID, UserID1: nc.UserID1, UserID2: nc.UserID2, EventID: nc.EventID, Status: nc.Status, CreatedAt: time.Now()}
	m.connections = append(m.connections, c)
	return c, nil
}

func (m *memStore) UpdateConnectionStatus(_ context.Context, id int64, status string) (store.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.connections {
		if c.ID == id {
			m.connections[i].Status = status
			return m.connections[i], nil
		}
	}
	return store.Connection{}, store.ErrNotFound
}

func (m *memStore) ListEventConnections(_ context.Context, eventID string) ([]store.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Filter(m.connections, func(c store.Connection, _ int) bool { return c.EventID == eventID }), nil
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func paginate[T any](xs []T, limit, offset int) []T {
	if offset >= len(xs) {
		return []T{}
	}
	return xs[offset:min(len(xs), offset+limit)]
}

// recorder captures room broadcasts.
type recorder struct {
	mu   sync.Mutex
	sent map[string][]ws.Message
}

func (r *recorder) BroadcastToEvent(eventID string, msg ws.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = map[string][]ws.Message{}
	}
	r.sent[eventID] = append(r.sent[eventID], msg)
	return nil
}
