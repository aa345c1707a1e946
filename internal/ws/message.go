package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/manav03panchal/nodiverse/internal/store"
)

// Outbound message types with a fixed shape. Anything else a client sends is
// relayed verbatim under its own type.
const (
	TypeInitialState      = "initial_state"
	TypeNodeJoined        = "node_joined"
	TypeNodeLeft          = "node_left"
	TypeNewUser           = "new_user"
	TypeConnectionUpdated = "connection_updated"
)

// Message is an outbound room message. The concrete type decides the "type"
// field of the envelope; Relay carries client-chosen types through unchanged.
type Message interface {
	Type() string
}

// Inbound is a frame received from a client: {type, data}.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EventInfo identifies the event in initial_state.
type EventInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ConnectionInfo is a recorded connection as the room sees it.
type ConnectionInfo struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Status string `json:"status"`
}

// InitialState is the snapshot sent once to a freshly connected participant.
type InitialState struct {
	Event        EventInfo           `json:"event"`
	Participants []store.Participant `json:"participants"`
	Connections  []ConnectionInfo    `json:"connections"`
	Online       []string            `json:"online"`
}

// NodeJoined tells the other members that a participant connected.
type NodeJoined struct {
	UserID string `json:"user_id"`
}

// NodeLeft tells the remaining members that a participant disconnected.
type NodeLeft struct {
	UserID string `json:"user_id"`
}

// NewUser announces a participant added to the event through the REST API.
type NewUser struct {
	User store.Participant
}

// ConnectionUpdated announces a created or re-statused connection.
type ConnectionUpdated struct {
	Connection ConnectionInfo `json:"connection"`
	ID         int64          `json:"id"`
}

// Relay is a client message rebroadcast to the room with its sender attached.
type Relay struct {
	Kind   string
	Data   json.RawMessage
	Sender string
}

func (InitialState) Type() string      { return TypeInitialState }
func (NodeJoined) Type() string        { return TypeNodeJoined }
func (NodeLeft) Type() string          { return TypeNodeLeft }
func (NewUser) Type() string           { return TypeNewUser }
func (ConnectionUpdated) Type() string { return TypeConnectionUpdated }
func (r Relay) Type() string           { return r.Kind }

type envelope struct {
	Type   string `json:"type"`
	Data   any    `json:"data"`
	Sender string `json:"sender,omitempty"`
}

// Encode renders m in its wire shape.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case nil:
		return nil, errors.New("ws: nil message")
	case Relay:
		data := v.Data
		if len(data) == 0 {
			data = json.RawMessage("null")
		}
		return json.Marshal(envelope{Type: v.Kind, Data: data, Sender: v.Sender})
	case NewUser:
		// the web client reads this one from a top-level "user" field
		return json.Marshal(struct {
			Type string            `json:"type"`
			User store.Participant `json:"user"`
		}{TypeNewUser, v.User})
	default:
		return json.Marshal(envelope{Type: m.Type(), Data: m})
	}
}

// DecodeInbound parses a client frame. The payload must be a JSON object.
func DecodeInbound(b []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(b, &in); err != nil {
		return Inbound{}, fmt.Errorf("decode inbound: %w", err)
	}
	return in, nil
}

func toConnectionInfo(c store.Connection) ConnectionInfo {
	return ConnectionInfo{Source: c.UserID1, Target: c.UserID2, Status: c.Status}
}

// NewConnectionUpdated builds the room notice for a connection status change.
func NewConnectionUpdated(c store.Connection) ConnectionUpdated {
	return ConnectionUpdated{ID: c.ID, Connection: toConnectionInfo(c)}
}

func newInitialState(ev store.Event, participants []store.Participant, conns []store.Connection, online []string) InitialState {
	if participants == nil {
		participants = []store.Participant{}
	}
	return InitialState{
		Event:        EventInfo{ID: ev.ID, Name: ev.Name},
		Participants: participants,
		Connections:  lo.Map(conns, func(c store.Connection, _ int) ConnectionInfo { return toConnectionInfo(c) }),
		Online:       online,
	}
}
