package main

import (
	"context"

	"github.com/rs/zerolog"
)

// State is the explicit conversation state tag. Transitions are defined by
// the (state, event kind) dispatch table built in NewEngine, never by
// handler registration order.
type State int

const (
	StateMainMenu State = iota
	StateCreateProfile
	StateEditPrefGender
	StateEditPrefAgeMin
	StateEditPrefAgeMax
	StateEditPrefDistance
	StateAwaitLocation
	StateSwiping
	StateRequests
	StateSettings
)

func (s State) String() string {
	switch s {
	case StateMainMenu:
		return "main_menu"
	case StateCreateProfile:
		return "create_profile"
	case StateEditPrefGender:
		return "edit_pref_gender"
	case StateEditPrefAgeMin:
		return "edit_pref_age_min"
	case StateEditPrefAgeMax:
		return "edit_pref_age_max"
	case StateEditPrefDistance:
		return "edit_pref_distance"
	case StateAwaitLocation:
		return "await_location"
	case StateSwiping:
		return "swiping"
	case StateRequests:
		return "requests"
	case StateSettings:
		return "settings"
	default:
		return "unknown"
	}
}

type handlerFunc func(ctx context.Context, s *session, ev Event) (State, error)

// Engine sequences the multi-step user flow. It is the only component aware
// of the state machine; the stores are pure data/query services injected at
// construction.
type Engine struct {
	profiles ProfileStore
	prefs    PreferenceStore
	ledger   InteractionLedger
	matches  MatchRegistry
	selector CandidateSelector
	out      Outbox
	notifier *matchNotifier
	sessions *sessionManager
	peers    *profileLoader
	log      zerolog.Logger

	routes map[State]map[EventKind]handlerFunc
}

func NewEngine(
	profiles ProfileStore,
	prefs PreferenceStore,
	ledger InteractionLedger,
	matches MatchRegistry,
	selector CandidateSelector,
	out Outbox,
	notifier *matchNotifier,
	log zerolog.Logger,
) *Engine {
	e := &Engine{
		profiles: profiles,
		prefs:    prefs,
		ledger:   ledger,
		matches:  matches,
		selector: selector,
		out:      out,
		notifier: notifier,
		sessions: newSessionManager(),
		peers:    newProfileLoader(profiles),
		log:      log,
	}
	e.routes = map[State]map[EventKind]handlerFunc{
		StateMainMenu: {
			EventButton: e.handleMenuButton,
		},
		StateCreateProfile: {
			EventText:   e.handleCreateProfileText,
			EventButton: e.handleCreateProfileButton,
		},
		StateEditPrefGender: {
			EventButton: e.handlePrefGender,
		},
		StateEditPrefAgeMin: {
			EventText: e.handlePrefMinAge,
		},
		StateEditPrefAgeMax: {
			EventText: e.handlePrefMaxAge,
		},
		StateEditPrefDistance: {
			EventText: e.handlePrefDistance,
		},
		StateAwaitLocation: {
			EventLocation: e.handleLocation,
			EventText:     e.handleLocationReprompt,
		},
		StateSwiping: {
			EventButton: e.handleSwipeButton,
		},
		StateRequests: {
			EventButton: e.handleRequestButton,
		},
		StateSettings: {
			EventButton: e.handleMenuButton,
		},
	}
	return e
}

// Handle maps one inbound event to a handler and applies the resulting
// transition. Validation problems are answered in-state by the handlers;
// only storage failures propagate here, where the session is abandoned
// rather than left inconsistent.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	if ev.Kind == EventCancel {
		e.sessions.End(ev.UserID)
		e.reply(ctx, ev.UserID, "Operation cancelled. Start a new session whenever you are ready.", nil)
		return nil
	}

	if ev.Kind == EventSessionStart {
		return e.handleSessionStart(ctx, ev)
	}

	s := e.sessions.Lookup(ev.UserID)
	if s == nil {
		e.reply(ctx, ev.UserID, "No active session. Start one to continue.", nil)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handler := e.routes[s.state][ev.Kind]
	if handler == nil {
		e.reply(ctx, ev.UserID, "That is not something I can do right now. Please use the options shown.", nil)
		return nil
	}

	next, err := handler(ctx, s, ev)
	if err != nil {
		e.log.Error().Err(err).Int64("user_id", ev.UserID).Stringer("state", s.state).Msg("handler failed")
		e.sessions.End(ev.UserID)
		e.reply(ctx, ev.UserID, "Something went wrong on our side. Please start a new session.", nil)
		return err
	}
	if next != s.state {
		e.log.Debug().Int64("user_id", ev.UserID).Stringer("from", s.state).Stringer("to", next).Msg("transition")
	}
	s.state = next
	return nil
}

func (e *Engine) handleSessionStart(ctx context.Context, ev Event) error {
	s := e.sessions.Start(ev.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := e.profiles.Get(ctx, ev.UserID)
	if err != nil {
		e.log.Error().Err(err).Int64("user_id", ev.UserID).Msg("profile lookup failed")
		e.sessions.End(ev.UserID)
		e.reply(ctx, ev.UserID, "Something went wrong on our side. Please start a new session.", nil)
		return err
	}

	if profile != nil {
		if err := e.profiles.Touch(ctx, ev.UserID); err != nil {
			e.log.Warn().Err(err).Int64("user_id", ev.UserID).Msg("activity refresh failed")
		}
		s.state = StateMainMenu
		e.sendMainMenu(ctx, ev.UserID, "Welcome back, "+profile.DisplayName+"! What would you like to do?")
		return nil
	}

	s.clearScratch()
	s.setScratch("username", ev.Username)
	s.state = StateCreateProfile
	e.reply(ctx, ev.UserID, "Welcome! Let's create your profile. What is your name?", nil)
	return nil
}

// reply sends to the acting user. A failed delivery to the user's own
// session is logged and swallowed; it never affects committed state.
func (e *Engine) reply(ctx context.Context, userID int64, content string, choices []Choice) {
	if err := e.out.SendText(ctx, userID, content, choices); err != nil {
		e.log.Warn().Err(err).Int64("user_id", userID).Msg("delivery failed")
	}
}

func (e *Engine) sendMainMenu(ctx context.Context, userID int64, content string) {
	e.reply(ctx, userID, content, []Choice{
		{Label: "Browse profiles", Data: "menu:swipe"},
		{Label: "Requests", Data: "menu:requests"},
		{Label: "My matches", Data: "menu:matches"},
		{Label: "My profile", Data: "menu:profile"},
		{Label: "Settings", Data: "menu:settings"},
	})
}
