package main

import "time"

// Gender values stored on a profile.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"

	// PreferAny is only valid as a preference filter, never on a profile.
	PreferAny Gender = "any"
)

// ValidProfileGender reports whether g may be stored on a profile.
func ValidProfileGender(g Gender) bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

// SwipeKind is the direction of a recorded swipe.
type SwipeKind string

const (
	SwipeLike    SwipeKind = "like"
	SwipeDislike SwipeKind = "dislike"
)

// Profile is a user's dating-facing identity record.
// Location is optional: Latitude and Longitude are either both set or both nil.
type Profile struct {
	UserID       int64     `db:"user_id"`
	Username     string    `db:"username"`
	DisplayName  string    `db:"display_name"`
	Age          int       `db:"age"`
	Gender       Gender    `db:"gender"`
	AboutMe      string    `db:"about_me"`
	Latitude     *float64  `db:"latitude"`
	Longitude    *float64  `db:"longitude"`
	LastActivity time.Time `db:"last_activity"`
	Active       bool      `db:"active"`
}

// HasLocation reports whether the profile carries a geolocation.
func (p *Profile) HasLocation() bool {
	return p != nil && p.Latitude != nil && p.Longitude != nil
}

// Preference is a user's candidate filter settings. One row per profile.
type Preference struct {
	UserID          int64  `db:"user_id"`
	PreferredGender Gender `db:"preferred_gender"`
	MinAge          int    `db:"min_age"`
	MaxAge          int    `db:"max_age"`
	MaxDistanceKm   int    `db:"max_distance_km"`
}

// DefaultPreference returns the filter created right after profile creation.
func DefaultPreference(userID int64) Preference {
	return Preference{
		UserID:          userID,
		PreferredGender: PreferAny,
		MinAge:          13,
		MaxAge:          99,
		MaxDistanceKm:   50,
	}
}

// PrefField is the closed set of individually updatable preference fields.
type PrefField string

const (
	FieldPreferredGender PrefField = "preferred_gender"
	FieldMinAge          PrefField = "min_age"
	FieldMaxAge          PrefField = "max_age"
	FieldMaxDistance     PrefField = "max_distance_km"
)

// Interaction is a directional swipe edge. At most one per ordered pair;
// re-swiping overwrites the prior edge.
type Interaction struct {
	FromID    int64     `db:"from_id"`
	ToID      int64     `db:"to_id"`
	Kind      SwipeKind `db:"kind"`
	CreatedAt time.Time `db:"created_at"`
}

// Match is an undirected edge between two users, stored canonically with
// UserA < UserB so swipe order never produces a duplicate pair.
type Match struct {
	ID        int64     `db:"id"`
	UserA     int64     `db:"user_a"`
	UserB     int64     `db:"user_b"`
	CreatedAt time.Time `db:"created_at"`
	Active    bool      `db:"active"`
}

// Peer returns the other participant of the match.
func (m Match) Peer(userID int64) int64 {
	if m.UserA == userID {
		return m.UserB
	}
	return m.UserA
}

// normalizePair orders an unordered user pair canonically.
func normalizePair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
