package main

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// pgProfileStore implements ProfileStore on PostgreSQL.
type pgProfileStore struct {
	db *sqlx.DB
}

func newPgProfileStore(db *sqlx.DB) *pgProfileStore {
	return &pgProfileStore{db: db}
}

func (s *pgProfileStore) Upsert(ctx context.Context, p Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, username, display_name, age, gender, about_me, latitude, longitude, last_activity, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), TRUE)
		ON CONFLICT (user_id) DO UPDATE SET
			username      = EXCLUDED.username,
			display_name  = EXCLUDED.display_name,
			age           = EXCLUDED.age,
			gender        = EXCLUDED.gender,
			about_me      = EXCLUDED.about_me,
			latitude      = EXCLUDED.latitude,
			longitude     = EXCLUDED.longitude,
			last_activity = NOW(),
			active        = TRUE
	`, p.UserID, p.Username, p.DisplayName, p.Age, p.Gender, p.AboutMe, p.Latitude, p.Longitude)
	if err != nil {
		return storageErr("profile upsert", err)
	}
	return nil
}

func (s *pgProfileStore) UpdateLocation(ctx context.Context, userID int64, lat, lon float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET latitude = $2, longitude = $3, last_activity = NOW()
		WHERE user_id = $1
	`, userID, lat, lon)
	if err != nil {
		return storageErr("profile location update", err)
	}
	return nil
}

func (s *pgProfileStore) Touch(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE profiles SET last_activity = NOW() WHERE user_id = $1`, userID)
	if err != nil {
		return storageErr("profile touch", err)
	}
	return nil
}

func (s *pgProfileStore) Get(ctx context.Context, userID int64) (*Profile, error) {
	var p Profile
	err := s.db.GetContext(ctx, &p, `
		SELECT user_id, username, display_name, age, gender, about_me, latitude, longitude, last_activity, active
		FROM profiles WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("profile get", err)
	}
	return &p, nil
}

func (s *pgProfileStore) GetMany(ctx context.Context, userIDs []int64) (map[int64]*Profile, error) {
	out := make(map[int64]*Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []Profile
	err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, username, display_name, age, gender, about_me, latitude, longitude, last_activity, active
		FROM profiles WHERE user_id = ANY($1)
	`, pq.Array(userIDs))
	if err != nil {
		return nil, storageErr("profile batch get", err)
	}
	for i := range rows {
		out[rows[i].UserID] = &rows[i]
	}
	return out, nil
}
