package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ProjectStore = (*ProjectRepo)(nil)

// ProjectRepo is the SQLite implementation of the ProjectStore port interface.
type ProjectRepo struct {
	db *DB
}

// NewProjectRepo creates a new ProjectRepo backed by the given DB.
func NewProjectRepo(db *DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// LoadAll returns every stored project keyed by repository.
func (r *ProjectRepo) LoadAll(ctx context.Context) (map[string]model.Project, error) {
	const query = `SELECT repo_id, last_refreshed FROM projects`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make(map[string]model.Project)
	for rows.Next() {
		var p model.Project
		var refreshed sql.NullString
		if err := rows.Scan(&p.RepoID, &refreshed); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if p.LastRefreshed, err = scanNullTime(refreshed); err != nil {
			return nil, fmt.Errorf("parse last_refreshed for %s: %w", p.RepoID, err)
		}
		projects[p.RepoID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

// SaveAll replaces the stored projects with projects in a single transaction.
func (r *ProjectRepo) SaveAll(ctx context.Context, projects map[string]model.Project) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM projects`); err != nil {
			return fmt.Errorf("clear projects: %w", err)
		}

		for id, p := range projects {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO projects (repo_id, last_refreshed) VALUES (?, ?)`,
				id, nullTime(p.LastRefreshed),
			)
			if err != nil {
				return fmt.Errorf("insert project %s: %w", id, err)
			}
		}
		return nil
	})
}
