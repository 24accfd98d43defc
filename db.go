package main

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"
)

func initDB(connStr string, log zerolog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	log.Info().Msg("database connection established")
	return db, nil
}

// ensureSchema creates the tables on first start so a fresh database works
// without a separate migration step.
func ensureSchema(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id       BIGINT PRIMARY KEY,
			username      TEXT NOT NULL DEFAULT '',
			display_name  TEXT NOT NULL,
			age           INT NOT NULL,
			gender        TEXT NOT NULL,
			about_me      TEXT NOT NULL DEFAULT '',
			latitude      DOUBLE PRECISION,
			longitude     DOUBLE PRECISION,
			last_activity TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			active        BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS preferences (
			user_id          BIGINT PRIMARY KEY REFERENCES profiles (user_id),
			preferred_gender TEXT NOT NULL DEFAULT 'any',
			min_age          INT NOT NULL DEFAULT 13,
			max_age          INT NOT NULL DEFAULT 99,
			max_distance_km  INT NOT NULL DEFAULT 50
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id         BIGSERIAL PRIMARY KEY,
			from_id    BIGINT NOT NULL,
			to_id      BIGINT NOT NULL,
			kind       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (from_id, to_id)
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id         BIGSERIAL PRIMARY KEY,
			user_a     BIGINT NOT NULL,
			user_b     BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			active     BOOLEAN NOT NULL DEFAULT TRUE,
			UNIQUE (user_a, user_b),
			CHECK (user_a < user_b)
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
