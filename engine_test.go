package main

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// ============================================================================
// CONVERSATION ENGINE TEST SUITE
// ============================================================================

// recordingOutbox captures outbound directives per target user.
type recordingOutbox struct {
	mu       sync.Mutex
	messages map[int64][]sentMessage
	locReqs  map[int64]int
}

type sentMessage struct {
	text    string
	choices []Choice
}

func newRecordingOutbox() *recordingOutbox {
	return &recordingOutbox{
		messages: make(map[int64][]sentMessage),
		locReqs:  make(map[int64]int),
	}
}

func (o *recordingOutbox) SendText(_ context.Context, target int64, content string, choices []Choice) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages[target] = append(o.messages[target], sentMessage{text: content, choices: choices})
	return nil
}

func (o *recordingOutbox) RequestLocation(_ context.Context, target int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.locReqs[target]++
	return nil
}

func (o *recordingOutbox) last(target int64) sentMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.messages[target]
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

func (o *recordingOutbox) anyContains(target int64, substr string) bool {
	return o.countContains(target, substr) > 0
}

func (o *recordingOutbox) countContains(target int64, substr string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, m := range o.messages[target] {
		if strings.Contains(m.text, substr) {
			n++
		}
	}
	return n
}

func (o *recordingOutbox) locationRequests(target int64) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.locReqs[target]
}

type testEnv struct {
	engine   *Engine
	out      *recordingOutbox
	profiles *memProfileStore
	prefs    *memPreferenceStore
	ledger   *memInteractionLedger
	matches  *memMatchRegistry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	out := newRecordingOutbox()
	profiles := newMemProfileStore()
	prefs := newMemPreferenceStore()
	matches := newMemMatchRegistry()
	ledger := newMemInteractionLedger(matches)
	selector := newMemCandidateSelector(profiles, prefs, ledger)
	notifier := newMatchNotifier(profiles, out, zerolog.Nop())
	t.Cleanup(notifier.Close)

	engine := NewEngine(profiles, prefs, ledger, matches, selector, out, notifier, zerolog.Nop())
	return &testEnv{
		engine:   engine,
		out:      out,
		profiles: profiles,
		prefs:    prefs,
		ledger:   ledger,
		matches:  matches,
	}
}

func (env *testEnv) start(t *testing.T, userID int64, username string) {
	t.Helper()
	if err := env.engine.Handle(context.Background(), Event{Kind: EventSessionStart, UserID: userID, Username: username}); err != nil {
		t.Fatalf("session_start for %d: %v", userID, err)
	}
}

func (env *testEnv) text(t *testing.T, userID int64, text string) {
	t.Helper()
	if err := env.engine.Handle(context.Background(), Event{Kind: EventText, UserID: userID, Text: text}); err != nil {
		t.Fatalf("text %q for %d: %v", text, userID, err)
	}
}

func (env *testEnv) button(t *testing.T, userID int64, data string) {
	t.Helper()
	if err := env.engine.Handle(context.Background(), Event{Kind: EventButton, UserID: userID, Callback: data}); err != nil {
		t.Fatalf("button %q for %d: %v", data, userID, err)
	}
}

func (env *testEnv) location(t *testing.T, userID int64, lat, lon float64) {
	t.Helper()
	if err := env.engine.Handle(context.Background(), Event{Kind: EventLocation, UserID: userID, Lat: lat, Lon: lon}); err != nil {
		t.Fatalf("location for %d: %v", userID, err)
	}
}

// onboard drives a fresh user through profile creation, preference setup and
// location sharing, ending at the main menu.
func (env *testEnv) onboard(t *testing.T, userID int64, name string, age string, gender string, lat, lon float64) {
	t.Helper()
	env.start(t, userID, strings.ToLower(name))
	env.text(t, userID, name)
	env.text(t, userID, age)
	env.button(t, userID, "gender:"+gender)
	env.text(t, userID, "I enjoy hiking and board games on rainy days.")
	env.button(t, userID, "settings:prefs")
	env.button(t, userID, "prefgender:any")
	env.text(t, userID, "18")
	env.text(t, userID, "60")
	env.text(t, userID, "200")
	env.location(t, userID, lat, lon)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEngineSuite(t *testing.T) {
	t.Run("Onboarding", testOnboarding)
	t.Run("InputValidation", testInputValidation)
	t.Run("PreferenceChain", testPreferenceChain)
	t.Run("MutualLike", testMutualLike)
	t.Run("Requests", testRequests)
	t.Run("Cancel", testCancel)
	t.Run("LocationGate", testLocationGate)
	t.Run("NoSession", testNoSession)
}

func testOnboarding(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.start(t, 1, "ana")
	if got := env.out.last(1).text; !strings.Contains(got, "What is your name?") {
		t.Fatalf("expected name prompt, got %q", got)
	}

	env.text(t, 1, "Ana")
	env.text(t, 1, "28")
	env.button(t, 1, "gender:female")
	env.text(t, 1, "Coffee enthusiast, amateur painter, always up for a concert.")

	p, err := env.profiles.Get(ctx, 1)
	if err != nil || p == nil {
		t.Fatalf("profile not persisted: %v", err)
	}
	if p.DisplayName != "Ana" || p.Age != 28 || p.Gender != GenderFemale {
		t.Errorf("unexpected profile: %+v", p)
	}
	if p.Username != "ana" {
		t.Errorf("username not captured from session start: %q", p.Username)
	}

	pref, err := env.prefs.Get(ctx, 1)
	if err != nil || pref == nil {
		t.Fatalf("default preference not persisted: %v", err)
	}
	if pref.PreferredGender != PreferAny || pref.MinAge != 13 || pref.MaxAge != 99 || pref.MaxDistanceKm != 50 {
		t.Errorf("unexpected default preference: %+v", pref)
	}

	t.Run("Returning user greeted by name", func(t *testing.T) {
		env.start(t, 1, "ana")
		if got := env.out.last(1).text; !strings.Contains(got, "Welcome back, Ana") {
			t.Errorf("expected welcome back greeting, got %q", got)
		}
	})
}

func testInputValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.start(t, 2, "bo")
	env.text(t, 2, "B") // too short
	if got := env.out.last(2).text; !strings.Contains(got, "valid name") {
		t.Errorf("expected name re-prompt, got %q", got)
	}
	env.text(t, 2, "Bo")

	env.text(t, 2, "abc") // not a number
	if got := env.out.last(2).text; !strings.Contains(got, "valid number") {
		t.Errorf("expected age re-prompt, got %q", got)
	}
	env.text(t, 2, "12") // under age
	if got := env.out.last(2).text; !strings.Contains(got, "at least 13") {
		t.Errorf("expected underage re-prompt, got %q", got)
	}
	env.text(t, 2, "25")

	env.button(t, 2, "gender:dragon")
	if got := env.out.last(2).text; !strings.Contains(got, "buttons") {
		t.Errorf("expected gender re-prompt, got %q", got)
	}
	env.button(t, 2, "gender:male")

	env.text(t, 2, "too short")
	if got := env.out.last(2).text; !strings.Contains(got, "at least 10 characters") {
		t.Errorf("expected description re-prompt, got %q", got)
	}
	env.text(t, 2, "A perfectly long enough description of myself.")

	if p, _ := env.profiles.Get(ctx, 2); p == nil || p.Age != 25 {
		t.Fatalf("profile should be created after corrections, got %+v", p)
	}
}

func testPreferenceChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.onboard(t, 3, "Cleo", "30", "female", 60.17, 24.94)

	pref, _ := env.prefs.Get(ctx, 3)
	if pref.PreferredGender != PreferAny || pref.MinAge != 18 || pref.MaxAge != 60 || pref.MaxDistanceKm != 200 {
		t.Fatalf("unexpected preference after chain: %+v", pref)
	}
	p, _ := env.profiles.Get(ctx, 3)
	if !p.HasLocation() || *p.Latitude != 60.17 {
		t.Fatalf("location not stored: %+v", p)
	}

	t.Run("Max below min re-prompts", func(t *testing.T) {
		env.button(t, 3, "settings:prefs")
		env.button(t, 3, "prefgender:female")
		env.text(t, 3, "40")
		env.text(t, 3, "30")
		if got := env.out.last(3).text; !strings.Contains(got, "at least the minimum") {
			t.Errorf("expected cross-field re-prompt, got %q", got)
		}
		// Still in the max-age step; a valid value proceeds.
		env.text(t, 3, "55")
		if got := env.out.last(3).text; !strings.Contains(got, "distance") {
			t.Errorf("expected distance prompt, got %q", got)
		}
		env.text(t, 3, "100")
		env.location(t, 3, 60.2, 24.9)

		pref, _ := env.prefs.Get(ctx, 3)
		if pref.MinAge != 40 || pref.MaxAge != 55 {
			t.Errorf("expected 40-55 range, got %+v", pref)
		}
	})

	t.Run("Distance bounds enforced", func(t *testing.T) {
		env.button(t, 3, "settings:prefs")
		env.button(t, 3, "prefgender:any")
		env.text(t, 3, "18")
		env.text(t, 3, "99")
		env.text(t, 3, "0")
		if got := env.out.last(3).text; !strings.Contains(got, "minimum distance is 1") {
			t.Errorf("expected lower-bound re-prompt, got %q", got)
		}
		env.text(t, 3, "2000")
		if got := env.out.last(3).text; !strings.Contains(got, "maximum distance is 1000") {
			t.Errorf("expected upper-bound re-prompt, got %q", got)
		}
		env.text(t, 3, "300")
		env.location(t, 3, 60.2, 24.9)
	})
}

func testMutualLike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.onboard(t, 10, "Dora", "27", "female", 60.17, 24.94)
	env.onboard(t, 11, "Eli", "29", "male", 60.18, 24.95)
	env.onboard(t, 12, "Faye", "28", "female", 60.19, 24.96)

	// Dora browses and likes Eli.
	env.button(t, 10, "menu:swipe")
	if got := env.out.last(10).text; !strings.Contains(got, "Eli") {
		t.Fatalf("expected Eli's card, got %q", got)
	}
	env.button(t, 10, "like:11")

	// One-sided like: no match yet, browsing continues with the next card.
	if ms, _ := env.matches.ListActive(ctx, 10); len(ms) != 0 {
		t.Fatalf("match created from one-sided like: %+v", ms)
	}
	if got := env.out.last(10).text; !strings.Contains(got, "Faye") {
		t.Fatalf("expected next candidate after a one-sided like, got %q", got)
	}

	// Eli likes back.
	env.button(t, 11, "menu:swipe")
	env.button(t, 11, "like:10")

	ms, _ := env.matches.ListActive(ctx, 10)
	if len(ms) != 1 {
		t.Fatalf("expected one match, got %d", len(ms))
	}
	if ms[0].Peer(10) != 11 {
		t.Errorf("unexpected peer: %+v", ms[0])
	}

	// Reciprocity ends the browsing loop: Eli lands on the main menu, not on
	// Faye's card, even though she is still an eligible candidate for him.
	if !env.out.anyContains(11, "new match") {
		t.Error("expected main menu with match notice after mutual like")
	}
	if env.out.anyContains(11, "Faye") {
		t.Error("browsing continued past a mutual like")
	}

	// Both sides get the asynchronous match notice.
	waitFor(t, "match notices", func() bool {
		return env.out.anyContains(10, "It's a match with Eli") &&
			env.out.anyContains(11, "It's a match with Dora")
	})

	t.Run("Matches listing shows peer", func(t *testing.T) {
		env.button(t, 10, "menu:matches")
		waitFor(t, "matches listing", func() bool {
			return env.out.anyContains(10, "Eli, 29")
		})
	})
}

func testRequests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.onboard(t, 20, "Finn", "33", "male", 60.17, 24.94)
	env.onboard(t, 21, "Gia", "31", "female", 60.18, 24.95)
	env.onboard(t, 22, "Hana", "30", "female", 60.19, 24.96)

	// Both women like Finn.
	env.button(t, 21, "menu:swipe")
	env.button(t, 21, "like:20")
	env.button(t, 22, "menu:swipe")
	env.button(t, 22, "like:20")

	t.Run("Accept creates a match and returns to the menu", func(t *testing.T) {
		env.button(t, 20, "menu:requests")
		if got := env.out.last(20).text; !strings.Contains(got, "liked you") {
			t.Fatalf("expected request card, got %q", got)
		}

		// The card carries the sender id in the accept callback.
		card := env.out.last(20)
		accept := card.choices[0].Data
		env.button(t, 20, accept)

		if ms, _ := env.matches.ListActive(ctx, 20); len(ms) != 1 {
			t.Fatalf("expected one match after accept, got %d", len(ms))
		}
		if !env.out.anyContains(20, "accepted") {
			t.Error("expected accept confirmation on the main menu")
		}
		// The review loop ended at the menu: the remaining request card is
		// not shown until the user opens the queue again.
		if n := env.out.countContains(20, "liked you"); n != 1 {
			t.Errorf("review continued past the accept, %d request cards shown", n)
		}
	})

	t.Run("Decline leaves no match and drops the request", func(t *testing.T) {
		// Let the accept's asynchronous match notice land before reading
		// further replies.
		waitFor(t, "accept match notice", func() bool {
			return env.out.anyContains(20, "It's a match with")
		})

		// The second pending request is reached through the menu again.
		env.button(t, 20, "menu:requests")
		card := env.out.last(20)
		if !strings.Contains(card.text, "liked you") {
			t.Fatalf("expected the remaining request card, got %q", card.text)
		}
		decline := card.choices[1].Data
		env.button(t, 20, decline)

		if ms, _ := env.matches.ListActive(ctx, 20); len(ms) != 1 {
			t.Fatalf("decline must not create a match")
		}
		if !env.out.anyContains(20, "declined") {
			t.Error("expected decline confirmation on the main menu")
		}

		// The declined request does not resurface.
		env.button(t, 20, "menu:requests")
		if !env.out.anyContains(20, "No pending requests") {
			t.Error("expected an empty queue after the decline")
		}
	})
}

func testCancel(t *testing.T) {
	env := newTestEnv(t)

	env.start(t, 30, "ivo")
	env.text(t, 30, "Ivo")
	env.text(t, 30, "40")

	if err := env.engine.Handle(context.Background(), Event{Kind: EventCancel, UserID: 30}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := env.out.last(30).text; !strings.Contains(got, "cancelled") {
		t.Errorf("expected cancellation notice, got %q", got)
	}

	// The half-entered profile is gone; a new session starts from scratch.
	env.start(t, 30, "ivo")
	if got := env.out.last(30).text; !strings.Contains(got, "What is your name?") {
		t.Errorf("expected fresh onboarding after cancel, got %q", got)
	}
}

func testLocationGate(t *testing.T) {
	env := newTestEnv(t)

	// Full onboarding minus the location share.
	env.start(t, 40, "juno")
	env.text(t, 40, "Juno")
	env.text(t, 40, "26")
	env.button(t, 40, "gender:other")
	env.text(t, 40, "Synthesizers, street food, long walks around the harbor.")

	env.button(t, 40, "menu:swipe")
	if got := env.out.last(40).text; !strings.Contains(got, "share your location") {
		t.Errorf("expected location gate, got %q", got)
	}

	t.Run("Own profile shows preferences and location status", func(t *testing.T) {
		env.button(t, 40, "menu:profile")
		got := env.out.last(40).text
		if !strings.Contains(got, "Juno, 26") {
			t.Errorf("expected profile card, got %q", got)
		}
		if !strings.Contains(got, "Looking for: any, ages 13-99, within 50 km") {
			t.Errorf("expected default preferences rendered, got %q", got)
		}
		if !strings.Contains(got, "Location: not shared yet") {
			t.Errorf("expected unshared location status, got %q", got)
		}
	})

	t.Run("Location request directive sent from settings", func(t *testing.T) {
		env.button(t, 40, "settings:location")
		if env.out.locationRequests(40) == 0 {
			t.Error("expected a location request directive")
		}
		env.location(t, 40, 60.17, 24.94)
		env.button(t, 40, "menu:swipe")
		if got := env.out.last(40).text; !strings.Contains(got, "No more profiles") {
			t.Errorf("expected empty candidate feed, got %q", got)
		}
	})
}

func testNoSession(t *testing.T) {
	env := newTestEnv(t)

	env.text(t, 50, "hello?")
	if got := env.out.last(50).text; !strings.Contains(got, "No active session") {
		t.Errorf("expected no-session notice, got %q", got)
	}

	t.Run("Unknown event kind in state re-prompts", func(t *testing.T) {
		env.onboard(t, 51, "Kai", "35", "male", 60.17, 24.94)
		// Text at the main menu has no handler.
		env.text(t, 51, "random text")
		if got := env.out.last(51).text; !strings.Contains(got, "options shown") {
			t.Errorf("expected generic re-prompt, got %q", got)
		}
	})
}
