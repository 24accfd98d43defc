package main

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// pgMatchRegistry implements MatchRegistry on PostgreSQL.
type pgMatchRegistry struct {
	db *sqlx.DB
}

func newPgMatchRegistry(db *sqlx.DB) *pgMatchRegistry {
	return &pgMatchRegistry{db: db}
}

// Create normalizes the pair before the insert so that create(a,b) and
// create(b,a) hit the same row. Re-creating an existing pair returns the
// existing match id, never a duplicate-row error.
func (r *pgMatchRegistry) Create(ctx context.Context, a, b int64) (int64, error) {
	lo, hi := normalizePair(a, b)
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO matches (user_a, user_b, created_at, active)
		VALUES ($1, $2, NOW(), TRUE)
		ON CONFLICT (user_a, user_b) DO UPDATE SET active = TRUE
		RETURNING id
	`, lo, hi).Scan(&id)
	if err != nil {
		return 0, storageErr("match create", err)
	}
	return id, nil
}

func (r *pgMatchRegistry) ListActive(ctx context.Context, userID int64) ([]Match, error) {
	var matches []Match
	err := r.db.SelectContext(ctx, &matches, `
		SELECT id, user_a, user_b, created_at, active
		FROM matches
		WHERE (user_a = $1 OR user_b = $1) AND active = TRUE
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, storageErr("match list", err)
	}
	return matches, nil
}
