package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// pgInteractionLedger implements InteractionLedger on PostgreSQL.
//
// Record runs the upsert, the reverse-edge lookup and the conditional match
// insert inside one transaction holding a pair-scoped advisory lock. Row
// locks cannot serialize two concurrent *first* inserts for the opposite
// directions of a pair, the advisory lock can.
type pgInteractionLedger struct {
	db *sqlx.DB
}

func newPgInteractionLedger(db *sqlx.DB) *pgInteractionLedger {
	return &pgInteractionLedger{db: db}
}

func pairLockKey(a, b int64) string {
	lo, hi := normalizePair(a, b)
	return fmt.Sprintf("swipe:%d:%d", lo, hi)
}

func (l *pgInteractionLedger) Record(ctx context.Context, from, to int64, kind SwipeKind) (bool, error) {
	mutual := false
	err := withTx(ctx, l.db, func(tx *sqlx.Tx) error {
		// Serialize with the reverse-direction swipe for this pair.
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, pairLockKey(from, to)); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO interactions (from_id, to_id, kind, created_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (from_id, to_id) DO UPDATE SET kind = EXCLUDED.kind, created_at = NOW()
		`, from, to, kind); err != nil {
			return err
		}

		if kind != SwipeLike {
			return nil
		}

		var reverse bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM interactions
				WHERE from_id = $1 AND to_id = $2 AND kind = 'like'
			)
		`, to, from).Scan(&reverse); err != nil {
			return err
		}
		if !reverse {
			return nil
		}

		lo, hi := normalizePair(from, to)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO matches (user_a, user_b, created_at, active)
			VALUES ($1, $2, NOW(), TRUE)
			ON CONFLICT (user_a, user_b) DO NOTHING
		`, lo, hi); err != nil {
			return err
		}
		mutual = true
		return nil
	})
	if err != nil {
		return false, storageErr("interaction record", err)
	}
	return mutual, nil
}

func (l *pgInteractionLedger) NextRequest(ctx context.Context, userID int64) (*Interaction, error) {
	var in Interaction
	err := l.db.GetContext(ctx, &in, `
		SELECT i.from_id, i.to_id, i.kind, i.created_at
		FROM interactions i
		WHERE i.to_id = $1
		  AND i.kind = 'like'
		  AND NOT EXISTS (
			SELECT 1 FROM matches m
			WHERE m.user_a = LEAST(i.from_id, i.to_id)
			  AND m.user_b = GREATEST(i.from_id, i.to_id)
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM interactions r
			WHERE r.from_id = i.to_id AND r.to_id = i.from_id
		  )
		ORDER BY i.created_at DESC
		LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("pending request lookup", err)
	}
	return &in, nil
}
