package main

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// pgPreferenceStore implements PreferenceStore on PostgreSQL.
//
// SetField dispatches over the closed PrefField set; there is no dynamic
// column interpolation. The store does not re-check cross-field invariants,
// the validated engine handlers do that before calling in.
type pgPreferenceStore struct {
	db *sqlx.DB
}

func newPgPreferenceStore(db *sqlx.DB) *pgPreferenceStore {
	return &pgPreferenceStore{db: db}
}

func (s *pgPreferenceStore) Upsert(ctx context.Context, pref Preference) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, preferred_gender, min_age, max_age, max_distance_km)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			preferred_gender = EXCLUDED.preferred_gender,
			min_age          = EXCLUDED.min_age,
			max_age          = EXCLUDED.max_age,
			max_distance_km  = EXCLUDED.max_distance_km
	`, pref.UserID, pref.PreferredGender, pref.MinAge, pref.MaxAge, pref.MaxDistanceKm)
	if err != nil {
		return storageErr("preference upsert", err)
	}
	return nil
}

func (s *pgPreferenceStore) Get(ctx context.Context, userID int64) (*Preference, error) {
	var pref Preference
	err := s.db.GetContext(ctx, &pref, `
		SELECT user_id, preferred_gender, min_age, max_age, max_distance_km
		FROM preferences WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("preference get", err)
	}
	return &pref, nil
}

func (s *pgPreferenceStore) SetField(ctx context.Context, userID int64, field PrefField, value any) error {
	var query string
	switch field {
	case FieldPreferredGender:
		query = `UPDATE preferences SET preferred_gender = $2 WHERE user_id = $1`
	case FieldMinAge:
		query = `UPDATE preferences SET min_age = $2 WHERE user_id = $1`
	case FieldMaxAge:
		query = `UPDATE preferences SET max_age = $2 WHERE user_id = $1`
	case FieldMaxDistance:
		query = `UPDATE preferences SET max_distance_km = $2 WHERE user_id = $1`
	default:
		return validationErr("field", "unknown preference field "+string(field))
	}
	if _, err := s.db.ExecContext(ctx, query, userID, value); err != nil {
		return storageErr("preference set "+string(field), err)
	}
	return nil
}
