package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

const userColumns = `id, name, COALESCE(email, ''), COALESCE(role, ''), COALESCE(profile, '{}'::jsonb), created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Profile, &u.CreatedAt); err != nil {
		return User{}, mapErr(err)
	}
	return u, nil
}

// normEmail trims and lowercases the email (needed if DB col isnt citext)
func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// CreateUser inserts a user with a fresh id
func (p *Postgres) CreateUser(ctx context.Context, nu NewUser) (User, error) {
	if nu.Profile == nil {
		nu.Profile = map[string]any{}
	}
	row := p.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, role, profile)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		RETURNING `+userColumns,
		uuid.NewString(), nu.Name, normEmail(nu.Email), nu.Role, nu.Profile)

	u, err := scanUser(row)
	if err != nil {
		return User{}, err
	}
	p.log.Info("user.created", "id", u.ID, "role", u.Role)
	return u, nil
}

// GetUser fetches a user by id
func (p *Postgres) GetUser(ctx context.Context, id string) (User, error) {
	return scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// ListUsers returns users ordered by creation time
func (p *Postgres) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
