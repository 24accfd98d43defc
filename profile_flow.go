package main

import (
	"context"
	"strconv"
	"strings"
)

// Profile creation is a sub-sequence of StateCreateProfile driven by which
// scratch fields are still unset: name, then age, then gender (buttons),
// then description. On description acceptance the profile and its default
// preference are persisted and the session moves to the main menu.

const (
	scratchUsername = "username"
	scratchName     = "name"
	scratchAge      = "age"
	scratchGender   = "gender"
)

var genderChoices = []Choice{
	{Label: "Man", Data: "gender:male"},
	{Label: "Woman", Data: "gender:female"},
	{Label: "Other", Data: "gender:other"},
}

func (e *Engine) handleCreateProfileText(ctx context.Context, s *session, ev Event) (State, error) {
	if _, ok := s.getScratch(scratchName); !ok {
		return e.acceptName(ctx, s, ev.Text)
	}
	if _, ok := s.getScratch(scratchAge); !ok {
		return e.acceptAge(ctx, s, ev.Text)
	}
	if _, ok := s.getScratch(scratchGender); !ok {
		e.reply(ctx, s.userID, "Please pick your gender using the buttons.", genderChoices)
		return StateCreateProfile, nil
	}
	return e.acceptDescription(ctx, s, ev.Text)
}

func (e *Engine) acceptName(ctx context.Context, s *session, text string) (State, error) {
	name := strings.TrimSpace(text)
	if len(name) < 2 {
		e.reply(ctx, s.userID, "Please enter a valid name (at least 2 characters).", nil)
		return StateCreateProfile, nil
	}
	s.setScratch(scratchName, name)
	e.reply(ctx, s.userID, "Great, "+name+"! How old are you?", nil)
	return StateCreateProfile, nil
}

func (e *Engine) acceptAge(ctx context.Context, s *session, text string) (State, error) {
	age, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		e.reply(ctx, s.userID, "Please enter a valid number for your age.", nil)
		return StateCreateProfile, nil
	}
	if age < 13 {
		e.reply(ctx, s.userID, "You must be at least 13 years old. Please enter your real age.", nil)
		return StateCreateProfile, nil
	}
	if age > 120 {
		e.reply(ctx, s.userID, "Please enter a valid age (13-120).", nil)
		return StateCreateProfile, nil
	}
	s.setScratch(scratchAge, strconv.Itoa(age))
	e.reply(ctx, s.userID, "Perfect. What is your gender?", genderChoices)
	return StateCreateProfile, nil
}

func (e *Engine) handleCreateProfileButton(ctx context.Context, s *session, ev Event) (State, error) {
	action, arg := splitCallback(ev.Callback)
	if action != "gender" {
		e.reply(ctx, s.userID, "Please use the options shown.", nil)
		return StateCreateProfile, nil
	}
	if _, ok := s.getScratch(scratchAge); !ok {
		e.reply(ctx, s.userID, "Let's finish the previous step first.", nil)
		return StateCreateProfile, nil
	}
	g := Gender(arg)
	if !ValidProfileGender(g) {
		e.reply(ctx, s.userID, "Please pick your gender using the buttons.", genderChoices)
		return StateCreateProfile, nil
	}
	s.setScratch(scratchGender, arg)
	e.reply(ctx, s.userID, "Excellent! Now write a short description about yourself (interests, hobbies, what you are looking for).", nil)
	return StateCreateProfile, nil
}

func (e *Engine) acceptDescription(ctx context.Context, s *session, text string) (State, error) {
	desc := strings.TrimSpace(text)
	if len(desc) < 10 {
		e.reply(ctx, s.userID, "Please write at least 10 characters for your description.", nil)
		return StateCreateProfile, nil
	}
	if len(desc) > 500 {
		desc = desc[:500]
	}

	name, _ := s.getScratch(scratchName)
	ageStr, _ := s.getScratch(scratchAge)
	genderStr, _ := s.getScratch(scratchGender)
	username, _ := s.getScratch(scratchUsername)
	age, _ := strconv.Atoi(ageStr)

	profile := Profile{
		UserID:      s.userID,
		Username:    username,
		DisplayName: name,
		Age:         age,
		Gender:      Gender(genderStr),
		AboutMe:     desc,
	}
	if err := e.profiles.Upsert(ctx, profile); err != nil {
		return StateCreateProfile, err
	}
	if err := e.prefs.Upsert(ctx, DefaultPreference(s.userID)); err != nil {
		return StateCreateProfile, err
	}
	s.clearScratch()

	e.reply(ctx, s.userID, "Profile created! To start browsing you still need to set your preferences and share your location.", []Choice{
		{Label: "Set preferences", Data: "settings:prefs"},
		{Label: "Share location", Data: "settings:location"},
	})
	return StateMainMenu, nil
}

// splitCallback parses an "action:argument" callback token.
func splitCallback(cb string) (string, string) {
	action, arg, _ := strings.Cut(cb, ":")
	return action, arg
}
