package main

import (
	"context"
	"strconv"
	"strings"
)

func (e *Engine) handleMenuButton(ctx context.Context, s *session, ev Event) (State, error) {
	action, arg := splitCallback(ev.Callback)
	switch action {
	case "menu":
		switch arg {
		case "swipe":
			return e.showNextCandidate(ctx, s)
		case "requests":
			return e.showNextRequest(ctx, s)
		case "matches":
			return e.listMatches(ctx, s)
		case "profile":
			return e.showOwnProfile(ctx, s)
		case "settings":
			e.reply(ctx, s.userID, "Settings:", []Choice{
				{Label: "Edit preferences", Data: "settings:prefs"},
				{Label: "Update location", Data: "settings:location"},
				{Label: "Back", Data: "menu:main"},
			})
			return StateSettings, nil
		case "main":
			e.sendMainMenu(ctx, s.userID, "What would you like to do?")
			return StateMainMenu, nil
		}
	case "settings":
		switch arg {
		case "prefs":
			return e.startPrefChain(ctx, s)
		case "location":
			return e.askLocation(ctx, s, "Share your location so we can show nearby profiles.")
		}
	}
	e.reply(ctx, s.userID, "Please use the options shown.", nil)
	return s.state, nil
}

// showNextCandidate fetches one eligible profile and presents it for a swipe.
// Browsing requires a stored location; candidates are distance-filtered
// against it.
func (e *Engine) showNextCandidate(ctx context.Context, s *session) (State, error) {
	me, err := e.profiles.Get(ctx, s.userID)
	if err != nil {
		return s.state, err
	}
	if me == nil {
		return s.state, ErrNotFound
	}
	if !me.HasLocation() {
		e.reply(ctx, s.userID, "You need to share your location before browsing.", []Choice{
			{Label: "Share location", Data: "settings:location"},
			{Label: "Back", Data: "menu:main"},
		})
		return StateMainMenu, nil
	}

	cands, err := e.selector.NextCandidates(ctx, s.userID, 1)
	if err != nil {
		return s.state, err
	}
	if len(cands) == 0 {
		e.sendMainMenu(ctx, s.userID, "No more profiles in your area right now. Check back later!")
		return StateMainMenu, nil
	}

	cand := cands[0]
	id := strconv.FormatInt(cand.UserID, 10)
	e.reply(ctx, s.userID, formatProfile(&cand), []Choice{
		{Label: "Like", Data: "like:" + id},
		{Label: "Pass", Data: "dislike:" + id},
		{Label: "Back to menu", Data: "menu:main"},
	})
	return StateSwiping, nil
}

func (e *Engine) handleSwipeButton(ctx context.Context, s *session, ev Event) (State, error) {
	action, arg := splitCallback(ev.Callback)

	var kind SwipeKind
	switch action {
	case "like":
		kind = SwipeLike
	case "dislike":
		kind = SwipeDislike
	case "menu", "settings":
		return e.handleMenuButton(ctx, s, ev)
	default:
		e.reply(ctx, s.userID, "Please use the options shown.", nil)
		return StateSwiping, nil
	}

	target, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || target == s.userID {
		e.reply(ctx, s.userID, "Please use the options shown.", nil)
		return StateSwiping, nil
	}

	mutual, err := e.ledger.Record(ctx, s.userID, target, kind)
	if err != nil {
		return StateSwiping, err
	}
	if mutual {
		// Reciprocity ends the browsing loop: both sides get the notice and
		// the swiper lands back on the main menu.
		e.notifier.MatchMade(s.userID, target)
		e.sendMainMenu(ctx, s.userID, "You have a new match! What would you like to do next?")
		return StateMainMenu, nil
	}
	return e.showNextCandidate(ctx, s)
}

// showNextRequest presents the newest pending like aimed at the user, one at
// a time.
func (e *Engine) showNextRequest(ctx context.Context, s *session) (State, error) {
	req, err := e.ledger.NextRequest(ctx, s.userID)
	if err != nil {
		return s.state, err
	}
	if req == nil {
		e.sendMainMenu(ctx, s.userID, "No pending requests.")
		return StateMainMenu, nil
	}

	sender, err := e.peers.Load(ctx, req.FromID)
	if err != nil {
		return s.state, err
	}
	if sender == nil {
		// Sender profile is gone; drop the request by declining it.
		if _, err := e.ledger.Record(ctx, s.userID, req.FromID, SwipeDislike); err != nil {
			return s.state, err
		}
		return e.showNextRequest(ctx, s)
	}

	id := strconv.FormatInt(req.FromID, 10)
	e.reply(ctx, s.userID, "Someone liked you!\n\n"+formatProfile(sender), []Choice{
		{Label: "Accept", Data: "accept:" + id},
		{Label: "Decline", Data: "decline:" + id},
		{Label: "Back to menu", Data: "menu:main"},
	})
	return StateRequests, nil
}

func (e *Engine) handleRequestButton(ctx context.Context, s *session, ev Event) (State, error) {
	action, arg := splitCallback(ev.Callback)

	switch action {
	case "menu", "settings":
		return e.handleMenuButton(ctx, s, ev)
	case "accept":
		sender, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			e.reply(ctx, s.userID, "Please use the options shown.", nil)
			return StateRequests, nil
		}
		// Accepting is a like back: the ledger detects reciprocity and
		// creates the match in the same atomic unit as the swipe.
		mutual, err := e.ledger.Record(ctx, s.userID, sender, SwipeLike)
		if err != nil {
			return StateRequests, err
		}
		if mutual {
			e.notifier.MatchMade(s.userID, sender)
		}
		e.sendMainMenu(ctx, s.userID, "Request accepted, you have a new match!")
		return StateMainMenu, nil
	case "decline":
		sender, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			e.reply(ctx, s.userID, "Please use the options shown.", nil)
			return StateRequests, nil
		}
		if _, err := e.ledger.Record(ctx, s.userID, sender, SwipeDislike); err != nil {
			return StateRequests, err
		}
		e.sendMainMenu(ctx, s.userID, "Request declined.")
		return StateMainMenu, nil
	}
	e.reply(ctx, s.userID, "Please use the options shown.", nil)
	return StateRequests, nil
}

func (e *Engine) listMatches(ctx context.Context, s *session) (State, error) {
	ms, err := e.matches.ListActive(ctx, s.userID)
	if err != nil {
		return s.state, err
	}
	if len(ms) == 0 {
		e.sendMainMenu(ctx, s.userID, "No matches yet. Keep browsing!")
		return StateMainMenu, nil
	}

	peerIDs := make([]int64, 0, len(ms))
	for _, m := range ms {
		peerIDs = append(peerIDs, m.Peer(s.userID))
	}
	peers, err := e.peers.LoadMany(ctx, peerIDs)
	if err != nil {
		return s.state, err
	}

	var b strings.Builder
	b.WriteString("Your matches:\n")
	for _, m := range ms {
		p := peers[m.Peer(s.userID)]
		if p == nil {
			continue
		}
		b.WriteString("\n- " + p.DisplayName + ", " + strconv.Itoa(p.Age))
	}
	e.reply(ctx, s.userID, b.String(), nil)
	e.sendMainMenu(ctx, s.userID, "What would you like to do?")
	return StateMainMenu, nil
}

func (e *Engine) showOwnProfile(ctx context.Context, s *session) (State, error) {
	p, err := e.profiles.Get(ctx, s.userID)
	if err != nil {
		return s.state, err
	}
	if p == nil {
		return s.state, ErrNotFound
	}
	pref, err := e.prefs.Get(ctx, s.userID)
	if err != nil {
		return s.state, err
	}

	var b strings.Builder
	b.WriteString("Your profile:\n\n")
	b.WriteString(formatProfile(p))
	if pref != nil {
		b.WriteString("\n\nLooking for: " + string(pref.PreferredGender))
		b.WriteString(", ages " + strconv.Itoa(pref.MinAge) + "-" + strconv.Itoa(pref.MaxAge))
		b.WriteString(", within " + strconv.Itoa(pref.MaxDistanceKm) + " km")
	}
	if p.HasLocation() {
		b.WriteString("\nLocation: shared")
	} else {
		b.WriteString("\nLocation: not shared yet")
	}

	e.reply(ctx, s.userID, b.String(), []Choice{
		{Label: "Edit preferences", Data: "settings:prefs"},
		{Label: "Update location", Data: "settings:location"},
		{Label: "Back", Data: "menu:main"},
	})
	return StateMainMenu, nil
}

func formatProfile(p *Profile) string {
	return p.DisplayName + ", " + strconv.Itoa(p.Age) + " (" + string(p.Gender) + ")\n\n" + p.AboutMe
}
