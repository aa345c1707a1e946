package store

import "context"

const connectionColumns = `id, user_id_1, user_id_2, event_id, COALESCE(status, ''), created_at`

func scanConnection(row rowScanner) (Connection, error) {
	var c Connection
	if err := row.Scan(&c.ID, &c.UserID1, &c.UserID2, &c.EventID, &c.Status, &c.CreatedAt); err != nil {
		return Connection{}, mapErr(err)
	}
	return c, nil
}

// CreateConnection records a link between two users of an event
func (p *Postgres) CreateConnection(ctx context.Context, nc NewConnection) (Connection, error) {
	if nc.Status == "" {
		nc.Status = ConnectionPending
	}
	row := p.pool.QueryRow(ctx, `
		INSERT INTO connections (user_id_1, user_id_2, event_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+connectionColumns,
		nc.UserID1, nc.UserID2, nc.EventID, nc.Status)
	return scanConnection(row)
}

// UpdateConnectionStatus changes the status of a recorded connection
func (p *Postgres) UpdateConnectionStatus(ctx context.Context, id int64, status string) (Connection, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE connections SET status = $2
		WHERE id = $1
		RETURNING `+connectionColumns,
		id, status)
	return scanConnection(row)
}

// ListEventConnections returns every connection scoped to eventID
func (p *Postgres) ListEventConnections(ctx context.Context, eventID string) ([]Connection, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+connectionColumns+`
		FROM connections
		WHERE event_id = $1
		ORDER BY id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
