package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/manav03panchal/nodiverse/internal/store"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeDirectory struct {
	mu           sync.Mutex
	users        map[string]store.User
	events       map[string]store.Event
	participants map[string][]store.Participant
	connections  map[string][]store.Connection
	listErr      error
}

// newFakeDirectory holds event e1 ("HackED") with alice, bob and carol signed up.
func newFakeDirectory() *fakeDirectory {
	d := &fakeDirectory{
		users:        map[string]store.User{},
		events:       map[string]store.Event{"e1": {ID: "e1", Name: "HackED", Status: store.EventActive}},
		participants: map[string][]store.Participant{},
		connections:  map[string][]store.Connection{},
	}
	for _, u := range []store.User{
		{ID: "alice", Name: "Alice", Role: store.RoleOrganizer, Profile: map[string]any{"github": "https://github.com/alice"}},
		{ID: "bob", Name: "Bob", Role: store.RoleParticipant},
		{ID: "carol", Name: "Carol", Role: store.RoleMentor},
	} {
		d.users[u.ID] = u
		d.participants["e1"] = append(d.participants["e1"], store.Participant{ID: u.ID, Name: u.Name, Role: u.Role, Profile: u.Profile})
	}
	d.connections["e1"] = []store.Connection{{ID: 1, UserID1: "alice", UserID2: "bob", EventID: "e1", Status: store.ConnectionAccepted}}
	return d
}

func (d *fakeDirectory) GetUser(_ context.Context, id string) (store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (d *fakeDirectory) GetEvent(_ context.Context, id string) (store.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.events[id]
	if !ok {
		return store.Event{}, store.ErrNotFound
	}
	return e, nil
}

func (d *fakeDirectory) ListEventParticipants(_ context.Context, eventID string) ([]store.Participant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	return append([]store.Participant(nil), d.participants[eventID]...), nil
}

func (d *fakeDirectory) ListEventConnections(_ context.Context, eventID string) ([]store.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]store.Connection(nil), d.connections[eventID]...), nil
}

type fakePeer struct {
	mu        sync.Mutex
	accepted  bool
	acceptErr error
	sendErr   error
	sent      [][]byte
	closed    bool
	code      websocket.StatusCode

	closeDelay time.Duration // simulates a slow close handshake
}

func (p *fakePeer) Accept(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acceptErr != nil {
		return p.acceptErr
	}
	p.accepted = true
	return nil
}

func (p *fakePeer) Send(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, b)
	return nil
}

func (p *fakePeer) Close(code websocket.StatusCode, _ string) error {
	time.Sleep(p.closeDelay)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.code = code
	return nil
}

// wireMsg is the generic client-side view of any outbound frame.
type wireMsg struct {
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
	Sender string          `json:"sender"`
	User   json.RawMessage `json:"user"`
}

func (p *fakePeer) messages(t *testing.T) []wireMsg {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]wireMsg, 0, len(p.sent))
	for _, b := range p.sent {
		var m wireMsg
		require.NoError(t, json.Unmarshal(b, &m))
		out = append(out, m)
	}
	return out
}

func (p *fakePeer) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, m := range p.messages(t) {
		out = append(out, m.Type)
	}
	return out
}

func userIDOf(t *testing.T, m wireMsg) string {
	t.Helper()
	var d struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(m.Data, &d))
	return d.UserID
}
