package main

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// pgCandidateSelector implements CandidateSelector on PostgreSQL.
//
// The hard filter (self, already-decided, inactive, age band, gender,
// geolocated) runs in SQL; the max-distance cutoff runs in Go over the whole
// prefiltered set. No row limit on the query: a limit before the distance
// cutoff could land entirely on far-away rows and hide eligible nearby
// profiles behind an empty result.
type pgCandidateSelector struct {
	db       *sqlx.DB
	profiles ProfileStore
	prefs    PreferenceStore
}

func newPgCandidateSelector(db *sqlx.DB, profiles ProfileStore, prefs PreferenceStore) *pgCandidateSelector {
	return &pgCandidateSelector{db: db, profiles: profiles, prefs: prefs}
}

func (s *pgCandidateSelector) NextCandidates(ctx context.Context, userID int64, limit int) ([]Profile, error) {
	if limit <= 0 {
		limit = 1
	}
	me, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	pref, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if me == nil || pref == nil {
		return nil, nil
	}

	var rows []Profile
	err = s.db.SelectContext(ctx, &rows, `
		SELECT p.user_id, p.username, p.display_name, p.age, p.gender, p.about_me,
		       p.latitude, p.longitude, p.last_activity, p.active
		FROM profiles p
		WHERE p.user_id <> $1
		  AND p.active = TRUE
		  AND p.latitude IS NOT NULL
		  AND p.longitude IS NOT NULL
		  AND p.age BETWEEN $2 AND $3
		  AND ($4 = 'any' OR p.gender = $4)
		  AND NOT EXISTS (
			SELECT 1 FROM interactions i
			WHERE i.from_id = $1 AND i.to_id = p.user_id
		  )
		ORDER BY p.user_id
	`, userID, pref.MinAge, pref.MaxAge, pref.PreferredGender)
	if err != nil {
		return nil, storageErr("candidate query", err)
	}

	out := make([]Profile, 0, limit)
	for i := range rows {
		if !withinDistance(me, &rows[i], pref.MaxDistanceKm) {
			continue
		}
		out = append(out, rows[i])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// eligibleCandidate is the shared filter predicate, used by the in-memory
// selector and by tests as the reference semantics.
func eligibleCandidate(me *Profile, pref *Preference, cand *Profile) bool {
	if cand.UserID == me.UserID || !cand.Active || !cand.HasLocation() {
		return false
	}
	if cand.Age < pref.MinAge || cand.Age > pref.MaxAge {
		return false
	}
	if pref.PreferredGender != PreferAny && cand.Gender != pref.PreferredGender {
		return false
	}
	return withinDistance(me, cand, pref.MaxDistanceKm)
}
