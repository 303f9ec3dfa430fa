package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PRStore = (*PRRepo)(nil)

// PRRepo is the SQLite implementation of the PRStore port interface.
type PRRepo struct {
	db *DB
}

// NewPRRepo creates a new PRRepo backed by the given DB.
func NewPRRepo(db *DB) *PRRepo {
	return &PRRepo{db: db}
}

// LoadAll returns every stored pull request keyed by repository and number.
func (r *PRRepo) LoadAll(ctx context.Context) (map[model.PRKey]model.PullRequest, error) {
	const query = `
		SELECT repo_id, number, author, created_at, updated_at, analyzed_at, ntp, tp
		FROM pull_requests
	`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query pull requests: %w", err)
	}
	defer rows.Close()

	prs := make(map[model.PRKey]model.PullRequest)
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		prs[pr.Key()] = *pr
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}

	return prs, nil
}

// SaveAll replaces the stored pull requests with prs in a single transaction.
func (r *PRRepo) SaveAll(ctx context.Context, prs map[model.PRKey]model.PullRequest) error {
	const insert = `
		INSERT INTO pull_requests (
			repo_id, number, author, created_at, updated_at, analyzed_at, ntp, tp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pull_requests`); err != nil {
			return fmt.Errorf("clear pull requests: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, pr := range prs {
			_, err := stmt.ExecContext(ctx,
				pr.RepoID, pr.Number, pr.Author,
				pr.CreatedAt.UTC().Format(time.RFC3339), pr.UpdatedAt.UTC().Format(time.RFC3339),
				nullTime(pr.AnalyzedAt), pr.NTP, pr.TP,
			)
			if err != nil {
				return fmt.Errorf("insert pull request %s: %w", pr.Key(), err)
			}
		}
		return nil
	})
}

func scanPR(s scanner) (*model.PullRequest, error) {
	var pr model.PullRequest
	var createdAt, updatedAt string
	var analyzedAt sql.NullString

	err := s.Scan(
		&pr.RepoID, &pr.Number, &pr.Author,
		&createdAt, &updatedAt, &analyzedAt, &pr.NTP, &pr.TP,
	)
	if err != nil {
		return nil, err
	}

	pr.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	pr.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	pr.AnalyzedAt, err = scanNullTime(analyzedAt)
	if err != nil {
		return nil, fmt.Errorf("parse analyzed_at: %w", err)
	}

	return &pr, nil
}

// withTx runs fn inside a writer transaction, committing on success.
func withTx(ctx context.Context, db *DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
