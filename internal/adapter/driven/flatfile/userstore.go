package flatfile

import (
	"context"
	"fmt"
	"slices"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserStore = (*UserStore)(nil)

// UserStore persists the email cache as "login email" lines; email may be absent.
type UserStore struct {
	path string
}

// NewUserStore creates a UserStore backed by the file at path.
func NewUserStore(path string) *UserStore {
	return &UserStore{path: path}
}

// LoadAll reads every cached user.
func (s *UserStore) LoadAll(_ context.Context) (map[string]model.User, error) {
	users := make(map[string]model.User)

	_, err := readLines(s.path, func(fields []string) error {
		if len(fields) > 2 {
			return fmt.Errorf("expected at most 2 fields, got %d", len(fields))
		}
		u := model.User{Login: fields[0]}
		if len(fields) == 2 {
			u.Email = fields[1]
		}
		users[u.Login] = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	return users, nil
}

// SaveAll rewrites the file with users sorted by login.
func (s *UserStore) SaveAll(_ context.Context, users map[string]model.User) error {
	logins := make([]string, 0, len(users))
	for login := range users {
		logins = append(logins, login)
	}
	slices.Sort(logins)

	lines := make([]string, 0, len(logins))
	for _, login := range logins {
		line, err := joinFields(login, users[login].Email)
		if err != nil {
			return fmt.Errorf("save user %s: %w", login, err)
		}
		lines = append(lines, line)
	}

	if err := writeLines(s.path, lines); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}
