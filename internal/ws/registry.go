package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"

	"github.com/manav03panchal/nodiverse/internal/store"
	"github.com/manav03panchal/nodiverse/pkg/metrics"
)

// ErrSendFailed wraps a delivery that could not be queued for one recipient.
var ErrSendFailed = errors.New("send failed")

// Directory is the durable-storage view the registry needs at connect time.
type Directory interface {
	GetUser(ctx context.Context, id string) (store.User, error)
	GetEvent(ctx context.Context, id string) (store.Event, error)
	ListEventParticipants(ctx context.Context, eventID string) ([]store.Participant, error)
	ListEventConnections(ctx context.Context, eventID string) ([]store.Connection, error)
}

// Peer is a live bidirectional channel to one participant.
type Peer interface {
	Accept(ctx context.Context) error
	Send(b []byte) error
	Close(code websocket.StatusCode, reason string) error
}

type session struct {
	peer    Peer
	eventID string
}

// Registry maps participants to their live connection and events to the set
// of participants currently connected to them.
type Registry struct {
	log *slog.Logger
	dir Directory

	mu    sync.RWMutex
	peers map[string]session            // participant -> live connection
	rooms map[string]map[string]struct{} // event -> connected participants
}

func NewRegistry(dir Directory, log *slog.Logger) *Registry {
	return &Registry{
		log:   log,
		dir:   dir,
		peers: map[string]session{},
		rooms: map[string]map[string]struct{}{},
	}
}

// Connect validates the pair against storage, accepts the peer, registers it
// and sends it the initial_state snapshot. Errors wrapping store.ErrNotFound
// mean nothing was registered and the caller should close with StatusNotFound.
// Other members are not notified here.
func (r *Registry) Connect(ctx context.Context, p Peer, userID, eventID string) error {
	if _, err := r.dir.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("user %q: %w", userID, err)
	}
	ev, err := r.dir.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("event %q: %w", eventID, err)
	}

	if err := p.Accept(ctx); err != nil {
		return fmt.Errorf("accept: %w", err)
	}

	r.mu.Lock()
	prev, hadPrev := r.peers[userID]
	r.peers[userID] = session{peer: p, eventID: eventID}
	members := r.rooms[eventID]
	if members == nil {
		members = map[string]struct{}{}
		r.rooms[eventID] = members
	}
	_, wasMember := members[userID]
	members[userID] = struct{}{}
	r.updateGaugesLocked()
	r.mu.Unlock()

	undo := func() { r.rollback(p, userID, eventID, prev, hadPrev, wasMember) }
	snapshot, err := r.snapshot(ctx, ev)
	if err != nil {
		undo()
		return err
	}
	b, err := Encode(snapshot)
	if err != nil {
		undo()
		return err
	}
	if err := p.Send(b); err != nil {
		undo()
		return fmt.Errorf("initial state: %w", err)
	}

	r.log.Info("ws.connect", "user", userID, "event", eventID, "participants", len(snapshot.Participants))
	return nil
}

func (r *Registry) snapshot(ctx context.Context, ev store.Event) (InitialState, error) {
	participants, err := r.dir.ListEventParticipants(ctx, ev.ID)
	if err != nil {
		return InitialState{}, fmt.Errorf("participants: %w", err)
	}
	conns, err := r.dir.ListEventConnections(ctx, ev.ID)
	if err != nil {
		return InitialState{}, fmt.Errorf("connections: %w", err)
	}
	return newInitialState(ev, participants, conns, r.Online(ev.ID)), nil
}

// rollback undoes a Connect that registered p but failed afterwards, without
// telling anyone. The session p displaced, if any, is put back.
func (r *Registry) rollback(p Peer, userID, eventID string, prev session, hadPrev, wasMember bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.peers[userID]; !ok || s.peer != p {
		return
	}
	if hadPrev {
		r.peers[userID] = prev
	} else {
		delete(r.peers, userID)
	}
	if !wasMember {
		r.removeMemberLocked(userID, eventID)
	}
	r.updateGaugesLocked()
}

// Disconnect removes userID's live connection and its membership in eventID,
// then tells the remaining members. Repeated calls are no-ops and report false.
func (r *Registry) Disconnect(userID, eventID string) bool {
	r.mu.Lock()
	delete(r.peers, userID)
	removed := r.removeMemberLocked(userID, eventID)
	r.updateGaugesLocked()
	r.mu.Unlock()

	return r.left(removed, userID, eventID)
}

// Leave is Disconnect for the goroutine serving p. If userID has since
// reconnected to the same event on a newer handle, nothing is removed; if it
// reconnected elsewhere, only the membership in eventID is dropped.
func (r *Registry) Leave(p Peer, userID, eventID string) bool {
	r.mu.Lock()
	s, ok := r.peers[userID]
	if ok && s.peer != p && s.eventID == eventID {
		r.mu.Unlock()
		r.log.Debug("ws.leave.superseded", "user", userID, "event", eventID)
		return false
	}
	if ok && s.peer == p {
		delete(r.peers, userID)
	}
	removed := r.removeMemberLocked(userID, eventID)
	r.updateGaugesLocked()
	r.mu.Unlock()

	return r.left(removed, userID, eventID)
}

func (r *Registry) left(removed bool, userID, eventID string) bool {
	if !removed {
		return false
	}
	r.log.Info("ws.disconnect", "user", userID, "event", eventID)
	if err := r.BroadcastToEvent(eventID, NodeLeft{UserID: userID}); err != nil {
		r.log.Warn("ws.disconnect.notify", "event", eventID, "err", err)
	}
	return true
}

func (r *Registry) removeMemberLocked(userID, eventID string) bool {
	members, ok := r.rooms[eventID]
	if !ok {
		return false
	}
	if _, ok := members[userID]; !ok {
		return false
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(r.rooms, eventID)
	}
	return true
}

func (r *Registry) updateGaugesLocked() {
	metrics.Connections.Set(float64(len(r.peers)))
	metrics.Rooms.Set(float64(len(r.rooms)))
}

// BroadcastToEvent queues msg for every member of eventID that has a live
// connection. A failure for one recipient does not stop the others; all
// failures come back joined.
func (r *Registry) BroadcastToEvent(eventID string, msg Message) error {
	return r.BroadcastExcept(eventID, "", msg)
}

// BroadcastExcept is BroadcastToEvent skipping exceptUserID.
func (r *Registry) BroadcastExcept(eventID, exceptUserID string, msg Message) error {
	b, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	metrics.Messages.WithLabelValues(metricType(msg)).Inc()

	// queue under the read lock: a member removed concurrently gets nothing after its removal
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for userID := range r.rooms[eventID] {
		if userID == exceptUserID {
			continue
		}
		s, ok := r.peers[userID]
		if !ok {
			continue
		}
		if err := s.peer.Send(b); err != nil {
			metrics.SendFailures.Inc()
			r.log.Warn("ws.broadcast.failed", "event", eventID, "user", userID, "type", msg.Type(), "err", err)
			errs = append(errs, fmt.Errorf("%w to %s: %w", ErrSendFailed, userID, err))
		}
	}
	return errors.Join(errs...)
}

// metricType keeps client-chosen relay types out of metric labels.
func metricType(msg Message) string {
	if _, ok := msg.(Relay); ok {
		return "relay"
	}
	return msg.Type()
}

// Members returns the participants registered in eventID's membership set, sorted.
func (r *Registry) Members(eventID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := lo.Keys(r.rooms[eventID])
	sort.Strings(ids)
	return ids
}

// Online returns the members of eventID that currently have a live connection, sorted.
func (r *Registry) Online(eventID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := lo.Filter(lo.Keys(r.rooms[eventID]), func(id string, _ int) bool {
		_, ok := r.peers[id]
		return ok
	})
	sort.Strings(ids)
	return ids
}

// Shutdown closes every live connection with StatusGoingAway, all at once,
// and waits for the close handshakes until ctx is done. The serving
// goroutines observe the closure and run the disconnect sequence themselves.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.RLock()
	peers := lo.MapToSlice(r.peers, func(_ string, s session) Peer { return s.peer })
	r.mu.RUnlock()

	var g errgroup.Group
	for _, p := range peers {
		g.Go(func() error {
			return p.Close(websocket.StatusGoingAway, "server shutting down")
		})
	}
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			r.log.Debug("ws.shutdown.close", "err", err)
		}
		r.log.Info("ws.shutdown", "closed", len(peers))
	case <-ctx.Done():
		r.log.Warn("ws.shutdown.timeout", "peers", len(peers), "err", ctx.Err())
	}
}
