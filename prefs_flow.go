package main

import (
	"context"
	"strconv"
	"strings"
)

// Preference editing is a strict linear chain:
// gender -> min age -> max age -> distance -> await location -> main menu.
// Invalid input answers with a corrective message and keeps the state.

func (e *Engine) startPrefChain(ctx context.Context, s *session) (State, error) {
	e.reply(ctx, s.userID, "Preference setup. Which gender are you interested in?", []Choice{
		{Label: "Men", Data: "prefgender:male"},
		{Label: "Women", Data: "prefgender:female"},
		{Label: "Everyone", Data: "prefgender:any"},
	})
	return StateEditPrefGender, nil
}

func (e *Engine) handlePrefGender(ctx context.Context, s *session, ev Event) (State, error) {
	action, arg := splitCallback(ev.Callback)
	if action != "prefgender" {
		e.reply(ctx, s.userID, "Please use the options shown.", nil)
		return StateEditPrefGender, nil
	}
	g := Gender(arg)
	if g != PreferAny && !ValidProfileGender(g) {
		e.reply(ctx, s.userID, "Please use the options shown.", nil)
		return StateEditPrefGender, nil
	}
	if err := e.prefs.SetField(ctx, s.userID, FieldPreferredGender, g); err != nil {
		return StateEditPrefGender, err
	}
	e.reply(ctx, s.userID, "What is the minimum age you prefer? (13 or older)", nil)
	return StateEditPrefAgeMin, nil
}

func (e *Engine) handlePrefMinAge(ctx context.Context, s *session, ev Event) (State, error) {
	minAge, err := strconv.Atoi(strings.TrimSpace(ev.Text))
	if err != nil {
		e.reply(ctx, s.userID, "Please enter a valid number.", nil)
		return StateEditPrefAgeMin, nil
	}
	if minAge < 13 || minAge > 99 {
		e.reply(ctx, s.userID, "Please enter a valid age (13-99).", nil)
		return StateEditPrefAgeMin, nil
	}
	if err := e.prefs.SetField(ctx, s.userID, FieldMinAge, minAge); err != nil {
		return StateEditPrefAgeMin, err
	}
	e.reply(ctx, s.userID, "Minimum age set to "+strconv.Itoa(minAge)+". And the maximum age?", nil)
	return StateEditPrefAgeMax, nil
}

func (e *Engine) handlePrefMaxAge(ctx context.Context, s *session, ev Event) (State, error) {
	maxAge, err := strconv.Atoi(strings.TrimSpace(ev.Text))
	if err != nil {
		e.reply(ctx, s.userID, "Please enter a valid number.", nil)
		return StateEditPrefAgeMax, nil
	}
	if maxAge < 13 || maxAge > 99 {
		e.reply(ctx, s.userID, "Please enter a valid age (13-99).", nil)
		return StateEditPrefAgeMax, nil
	}
	pref, err := e.prefs.Get(ctx, s.userID)
	if err != nil {
		return StateEditPrefAgeMax, err
	}
	if pref == nil {
		return StateEditPrefAgeMax, ErrNotFound
	}
	// The min <= max invariant is enforced here, before the store is touched.
	if maxAge < pref.MinAge {
		e.reply(ctx, s.userID, "The maximum age ("+strconv.Itoa(maxAge)+") must be at least the minimum ("+strconv.Itoa(pref.MinAge)+"). Please enter a higher value.", nil)
		return StateEditPrefAgeMax, nil
	}
	if err := e.prefs.SetField(ctx, s.userID, FieldMaxAge, maxAge); err != nil {
		return StateEditPrefAgeMax, err
	}
	e.reply(ctx, s.userID, "Age range set to "+strconv.Itoa(pref.MinAge)+"-"+strconv.Itoa(maxAge)+". Up to what distance (km) should we search? (1-1000)", nil)
	return StateEditPrefDistance, nil
}

func (e *Engine) handlePrefDistance(ctx context.Context, s *session, ev Event) (State, error) {
	dist, err := strconv.Atoi(strings.TrimSpace(ev.Text))
	if err != nil {
		e.reply(ctx, s.userID, "Please enter a valid number for the distance.", nil)
		return StateEditPrefDistance, nil
	}
	if dist < 1 {
		e.reply(ctx, s.userID, "The minimum distance is 1 km. Please enter a valid value.", nil)
		return StateEditPrefDistance, nil
	}
	if dist > 1000 {
		e.reply(ctx, s.userID, "The maximum distance is 1000 km. Please enter a smaller value.", nil)
		return StateEditPrefDistance, nil
	}
	if err := e.prefs.SetField(ctx, s.userID, FieldMaxDistance, dist); err != nil {
		return StateEditPrefDistance, err
	}
	return e.askLocation(ctx, s, "Preferences saved! Last step: share your location so we can show nearby profiles.")
}

func (e *Engine) askLocation(ctx context.Context, s *session, content string) (State, error) {
	e.reply(ctx, s.userID, content, nil)
	if err := e.out.RequestLocation(ctx, s.userID); err != nil {
		e.log.Warn().Err(err).Int64("user_id", s.userID).Msg("location request delivery failed")
	}
	return StateAwaitLocation, nil
}

func (e *Engine) handleLocation(ctx context.Context, s *session, ev Event) (State, error) {
	if err := e.profiles.UpdateLocation(ctx, s.userID, ev.Lat, ev.Lon); err != nil {
		return StateAwaitLocation, err
	}
	e.sendMainMenu(ctx, s.userID, "Location saved! You are all set, pick an option:")
	return StateMainMenu, nil
}

func (e *Engine) handleLocationReprompt(ctx context.Context, s *session, _ Event) (State, error) {
	e.reply(ctx, s.userID, "No location received. Please use the location button to share it.", nil)
	if err := e.out.RequestLocation(ctx, s.userID); err != nil {
		e.log.Warn().Err(err).Int64("user_id", s.userID).Msg("location request delivery failed")
	}
	return StateAwaitLocation, nil
}
