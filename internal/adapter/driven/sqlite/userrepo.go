package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserStore = (*UserRepo)(nil)

// UserRepo is the SQLite implementation of the UserStore port interface.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// LoadAll returns every cached user keyed by login.
func (r *UserRepo) LoadAll(ctx context.Context) (map[string]model.User, error) {
	rows, err := r.db.Reader.QueryContext(ctx, `SELECT login, email FROM users`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make(map[string]model.User)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.Login, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[u.Login] = u
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// SaveAll upserts users. Cached users are never removed.
func (r *UserRepo) SaveAll(ctx context.Context, users map[string]model.User) error {
	const query = `
		INSERT INTO users (login, email) VALUES (?, ?)
		ON CONFLICT(login) DO UPDATE SET email = excluded.email
	`

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for login, u := range users {
			if _, err := tx.ExecContext(ctx, query, login, u.Email); err != nil {
				return fmt.Errorf("upsert user %s: %w", login, err)
			}
		}
		return nil
	})
}
