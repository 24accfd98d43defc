package main

import "context"

// The engine's transport boundary. Inbound user activity arrives as Events;
// the engine answers with outbound directives through an Outbox. The engine
// never assumes a specific delivery channel.

// EventKind discriminates inbound events.
type EventKind string

const (
	EventSessionStart EventKind = "session_start"
	EventText         EventKind = "text"
	EventButton       EventKind = "button"
	EventLocation     EventKind = "location"
	EventCancel       EventKind = "cancel"
)

// Event is one discrete inbound user action.
type Event struct {
	Kind     EventKind
	UserID   int64
	Username string // set on session_start
	Text     string // set on text
	Callback string // set on button
	Lat, Lon float64
}

// Choice is a button offered alongside an outbound message. Data is the
// callback token echoed back in a button event.
type Choice struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Outbox delivers outbound directives. Implementations are best-effort for
// targets other than the acting user; a failed delivery must not affect
// already-committed state.
type Outbox interface {
	SendText(ctx context.Context, target int64, content string, choices []Choice) error
	RequestLocation(ctx context.Context, target int64) error
}
