package store

import (
	"context"

	"github.com/google/uuid"
)

const eventColumns = `id, name, start_date, end_date, COALESCE(status, ''), created_at`

func scanEvent(row rowScanner) (Event, error) {
	var e Event
	if err := row.Scan(&e.ID, &e.Name, &e.StartDate, &e.EndDate, &e.Status, &e.CreatedAt); err != nil {
		return Event{}, mapErr(err)
	}
	return e, nil
}

// CreateEvent inserts an event with a fresh id
func (p *Postgres) CreateEvent(ctx context.Context, ne NewEvent) (Event, error) {
	if ne.Status == "" {
		ne.Status = EventActive
	}
	row := p.pool.QueryRow(ctx, `
		INSERT INTO events (id, name, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+eventColumns,
		uuid.NewString(), ne.Name, ne.StartDate, ne.EndDate, ne.Status)

	e, err := scanEvent(row)
	if err != nil {
		return Event{}, err
	}
	p.log.Info("event.created", "id", e.ID, "name", e.Name)
	return e, nil
}

// GetEvent fetches an event by id
func (p *Postgres) GetEvent(ctx context.Context, id string) (Event, error) {
	return scanEvent(p.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// ListEvents returns events, newest first
func (p *Postgres) ListEvents(ctx context.Context, limit, offset int) ([]Event, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddParticipant records userID as a member of eventID.
// Unknown user or event maps to ErrNotFound, a repeated add to ErrConflict.
func (p *Postgres) AddParticipant(ctx context.Context, eventID, userID, role string) (EventParticipant, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO event_participants (user_id, event_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, event_id, COALESCE(role, ''), joined_at
	`, userID, eventID, role)

	var ep EventParticipant
	if err := row.Scan(&ep.ID, &ep.UserID, &ep.EventID, &ep.Role, &ep.JoinedAt); err != nil {
		return EventParticipant{}, mapErr(err)
	}
	p.log.Info("event.participant.added", "event", eventID, "user", userID, "role", role)
	return ep, nil
}

// ListEventParticipants joins the event's memberships with user attributes.
// The event role wins over the user's default role.
func (p *Postgres) ListEventParticipants(ctx context.Context, eventID string) ([]Participant, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT u.id, u.name, COALESCE(NULLIF(ep.role, ''), u.role, ''), COALESCE(u.profile, '{}'::jsonb)
		FROM event_participants ep
		JOIN users u ON u.id = ep.user_id
		WHERE ep.event_id = $1
		ORDER BY ep.joined_at, ep.id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Participant{}
	for rows.Next() {
		var pt Participant
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.Role, &pt.Profile); err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}
