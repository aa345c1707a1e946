package store

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// User roles
const (
	RoleParticipant = "participant"
	RoleMentor      = "mentor"
	RoleOrganizer   = "organizer"
)

// Connection statuses
const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
)

// Event statuses
const (
	EventActive = "active"
	EventEnded  = "ended"
)

type User struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Role      string         `json:"role"`
	Profile   map[string]any `json:"profile"`
	CreatedAt time.Time      `json:"created_at"`
}

type NewUser struct {
	Name    string
	Email   string
	Role    string
	Profile map[string]any
}

type Event struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

type NewEvent struct {
	Name      string
	StartDate *time.Time
	EndDate   *time.Time
	Status    string
}

type EventParticipant struct {
	ID       int64     `json:"id"`
	UserID   string    `json:"user_id"`
	EventID  string    `json:"event_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Participant is a user joined with its membership in one event.
type Participant struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Role    string         `json:"role"`
	Profile map[string]any `json:"profile"`
}

// Connection is a recorded pairwise link between two users within an event.
type Connection struct {
	ID        int64     `json:"id"`
	UserID1   string    `json:"user_id_1"`
	UserID2   string    `json:"user_id_2"`
	EventID   string    `json:"event_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type NewConnection struct {
	UserID1 string
	UserID2 string
	EventID string
	Status  string
}
