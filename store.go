package main

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// The storage services the engine is built against. Each is a pure
// data/query service; only the ConversationEngine is state-machine-aware.
// Absent records come back as (nil, nil), never as an error.

// ProfileStore owns Profile records.
type ProfileStore interface {
	// Upsert creates or fully replaces a profile.
	Upsert(ctx context.Context, p Profile) error
	// UpdateLocation sets the geolocation and refreshes last activity.
	UpdateLocation(ctx context.Context, userID int64, lat, lon float64) error
	// Touch refreshes the last-activity timestamp only.
	Touch(ctx context.Context, userID int64) error
	Get(ctx context.Context, userID int64) (*Profile, error)
	// GetMany batch-loads profiles; missing ids are simply absent from the result.
	GetMany(ctx context.Context, userIDs []int64) (map[int64]*Profile, error)
}

// PreferenceStore owns Preference records, keyed by the profile's user id.
type PreferenceStore interface {
	Upsert(ctx context.Context, pref Preference) error
	Get(ctx context.Context, userID int64) (*Preference, error)
	// SetField blindly updates a single field from the closed PrefField set.
	// Cross-field invariants (min <= max) are the caller's responsibility.
	SetField(ctx context.Context, userID int64, field PrefField, value any) error
}

// InteractionLedger records directional swipes and detects reciprocity.
type InteractionLedger interface {
	// Record upserts the (from, to) edge and, for likes, reports whether the
	// reverse like already exists. On reciprocity the match is created in the
	// same atomic unit. The combined upsert+lookup+create serializes per
	// unordered pair.
	Record(ctx context.Context, from, to int64, kind SwipeKind) (mutual bool, err error)
	// NextRequest returns one pending one-sided like aimed at userID
	// (no corresponding match yet), newest first, or nil if there is none.
	NextRequest(ctx context.Context, userID int64) (*Interaction, error)
}

// MatchRegistry owns the symmetric match relation.
type MatchRegistry interface {
	// Create upserts the normalized pair; calling it twice in either order
	// yields exactly one match. Returns the match id.
	Create(ctx context.Context, a, b int64) (int64, error)
	// ListActive returns the user's active matches, newest first.
	ListActive(ctx context.Context, userID int64) ([]Match, error)
}

// CandidateSelector produces the next unseen, eligible candidates for a user.
type CandidateSelector interface {
	// NextCandidates returns up to limit profiles passing the compatibility
	// filter. An empty slice means no candidates; it is not an error.
	NextCandidates(ctx context.Context, userID int64, limit int) ([]Profile, error)
}

// withTx wraps a function in a database transaction.
// - Ensures COMMIT on success, ROLLBACK on errors or panics.
// - Keeps store methods tiny and all state changes atomic.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}

	defer func() {
		// If the callback panics, make sure to rollback before re-panicking
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
