package main

import (
	"context"
	"sort"
	"sync"
	"time"
)

// In-memory implementations of the storage services. They back the unit
// tests and the dev mode that runs without DATABASE_URL. Semantics mirror
// the PostgreSQL stores, including pair-level serialization in the ledger.

type memProfileStore struct {
	mu       sync.RWMutex
	profiles map[int64]Profile
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{profiles: make(map[int64]Profile)}
}

func (s *memProfileStore) Upsert(_ context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.LastActivity = time.Now().UTC()
	p.Active = true
	s.profiles[p.UserID] = p
	return nil
}

func (s *memProfileStore) UpdateLocation(_ context.Context, userID int64, lat, lon float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil
	}
	p.Latitude, p.Longitude = &lat, &lon
	p.LastActivity = time.Now().UTC()
	s.profiles[userID] = p
	return nil
}

func (s *memProfileStore) Touch(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userID]; ok {
		p.LastActivity = time.Now().UTC()
		s.profiles[userID] = p
	}
	return nil
}

func (s *memProfileStore) Get(_ context.Context, userID int64) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memProfileStore) GetMany(_ context.Context, userIDs []int64) (map[int64]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]*Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			cp := p
			out[id] = &cp
		}
	}
	return out, nil
}

type memPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[int64]Preference
}

func newMemPreferenceStore() *memPreferenceStore {
	return &memPreferenceStore{prefs: make(map[int64]Preference)}
}

func (s *memPreferenceStore) Upsert(_ context.Context, pref Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[pref.UserID] = pref
	return nil
}

func (s *memPreferenceStore) Get(_ context.Context, userID int64) (*Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pref, ok := s.prefs[userID]
	if !ok {
		return nil, nil
	}
	return &pref, nil
}

func (s *memPreferenceStore) SetField(_ context.Context, userID int64, field PrefField, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pref, ok := s.prefs[userID]
	if !ok {
		return nil
	}
	switch field {
	case FieldPreferredGender:
		switch v := value.(type) {
		case Gender:
			pref.PreferredGender = v
		case string:
			pref.PreferredGender = Gender(v)
		default:
			return validationErr(string(field), "expected a gender value")
		}
	case FieldMinAge:
		n, ok := value.(int)
		if !ok {
			return validationErr(string(field), "expected an integer value")
		}
		pref.MinAge = n
	case FieldMaxAge:
		n, ok := value.(int)
		if !ok {
			return validationErr(string(field), "expected an integer value")
		}
		pref.MaxAge = n
	case FieldMaxDistance:
		n, ok := value.(int)
		if !ok {
			return validationErr(string(field), "expected an integer value")
		}
		pref.MaxDistanceKm = n
	default:
		return validationErr("field", "unknown preference field "+string(field))
	}
	s.prefs[userID] = pref
	return nil
}

type pairKey struct {
	lo, hi int64
}

func keyFor(a, b int64) pairKey {
	lo, hi := normalizePair(a, b)
	return pairKey{lo: lo, hi: hi}
}

type orderedPair struct {
	from, to int64
}

// memInteractionLedger keeps one lock per unordered pair so the
// upsert+reverse-check+create sequence serializes against the opposite
// direction, mirroring the advisory lock in the PostgreSQL ledger.
type memInteractionLedger struct {
	mu       sync.Mutex
	locks    map[pairKey]*sync.Mutex
	edges    map[orderedPair]Interaction
	registry MatchRegistry
}

func newMemInteractionLedger(registry MatchRegistry) *memInteractionLedger {
	return &memInteractionLedger{
		locks:    make(map[pairKey]*sync.Mutex),
		edges:    make(map[orderedPair]Interaction),
		registry: registry,
	}
}

func (l *memInteractionLedger) pairLock(a, b int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := keyFor(a, b)
	lk, ok := l.locks[k]
	if !ok {
		lk = &sync.Mutex{}
		l.locks[k] = lk
	}
	return lk
}

func (l *memInteractionLedger) Record(ctx context.Context, from, to int64, kind SwipeKind) (bool, error) {
	lk := l.pairLock(from, to)
	lk.Lock()
	defer lk.Unlock()

	l.mu.Lock()
	l.edges[orderedPair{from, to}] = Interaction{FromID: from, ToID: to, Kind: kind, CreatedAt: time.Now().UTC()}
	reverse, hasReverse := l.edges[orderedPair{to, from}]
	l.mu.Unlock()

	if kind != SwipeLike || !hasReverse || reverse.Kind != SwipeLike {
		return false, nil
	}
	if _, err := l.registry.Create(ctx, from, to); err != nil {
		return false, err
	}
	return true, nil
}

func (l *memInteractionLedger) NextRequest(ctx context.Context, userID int64) (*Interaction, error) {
	l.mu.Lock()
	var pending []Interaction
	for k, in := range l.edges {
		if k.to != userID || in.Kind != SwipeLike {
			continue
		}
		if _, decided := l.edges[orderedPair{userID, k.from}]; decided {
			continue
		}
		pending = append(pending, in)
	}
	l.mu.Unlock()

	matches, err := l.registry.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	matched := make(map[int64]struct{}, len(matches))
	for _, m := range matches {
		matched[m.Peer(userID)] = struct{}{}
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.After(pending[j].CreatedAt) })
	for i := range pending {
		if _, ok := matched[pending[i].FromID]; !ok {
			return &pending[i], nil
		}
	}
	return nil, nil
}

type memMatchRegistry struct {
	mu      sync.Mutex
	nextID  int64
	byPair  map[pairKey]*Match
	ordered []*Match
}

func newMemMatchRegistry() *memMatchRegistry {
	return &memMatchRegistry{nextID: 1, byPair: make(map[pairKey]*Match)}
}

func (r *memMatchRegistry) Create(_ context.Context, a, b int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := keyFor(a, b)
	if m, ok := r.byPair[k]; ok {
		m.Active = true
		return m.ID, nil
	}
	m := &Match{ID: r.nextID, UserA: k.lo, UserB: k.hi, CreatedAt: time.Now().UTC(), Active: true}
	r.nextID++
	r.byPair[k] = m
	r.ordered = append(r.ordered, m)
	return m.ID, nil
}

func (r *memMatchRegistry) ListActive(_ context.Context, userID int64) ([]Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Match
	// ordered holds matches oldest first; walk backwards for newest first.
	for i := len(r.ordered) - 1; i >= 0; i-- {
		m := r.ordered[i]
		if m.Active && (m.UserA == userID || m.UserB == userID) {
			out = append(out, *m)
		}
	}
	return out, nil
}

// memCandidateSelector applies the shared filter predicate over the
// in-memory profile set. Ordering is by user id for determinism.
type memCandidateSelector struct {
	profiles *memProfileStore
	prefs    *memPreferenceStore
	ledger   *memInteractionLedger
}

func newMemCandidateSelector(profiles *memProfileStore, prefs *memPreferenceStore, ledger *memInteractionLedger) *memCandidateSelector {
	return &memCandidateSelector{profiles: profiles, prefs: prefs, ledger: ledger}
}

func (s *memCandidateSelector) NextCandidates(ctx context.Context, userID int64, limit int) ([]Profile, error) {
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

	s.profiles.mu.RLock()
	all := make([]Profile, 0, len(s.profiles.profiles))
	for _, p := range s.profiles.profiles {
		all = append(all, p)
	}
	s.profiles.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })

	s.ledger.mu.Lock()
	decided := make(map[int64]struct{})
	for k := range s.ledger.edges {
		if k.from == userID {
			decided[k.to] = struct{}{}
		}
	}
	s.ledger.mu.Unlock()

	out := make([]Profile, 0, limit)
	for i := range all {
		if _, seen := decided[all[i].UserID]; seen {
			continue
		}
		if !eligibleCandidate(me, pref, &all[i]) {
			continue
		}
		out = append(out, all[i])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
