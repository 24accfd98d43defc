package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestMatchNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("Both participants get a named notice", func(t *testing.T) {
		profiles := newMemProfileStore()
		profiles.Upsert(ctx, Profile{UserID: 1, DisplayName: "Ana", Age: 28})
		profiles.Upsert(ctx, Profile{UserID: 2, DisplayName: "Ben", Age: 30})

		out := newRecordingOutbox()
		n := newMatchNotifier(profiles, out, zerolog.Nop())
		defer n.Close()

		n.MatchMade(1, 2)

		waitFor(t, "match notices", func() bool {
			return out.anyContains(1, "It's a match with Ben") &&
				out.anyContains(2, "It's a match with Ana")
		})
	})

	t.Run("Missing peer profile falls back to a generic notice", func(t *testing.T) {
		profiles := newMemProfileStore()
		profiles.Upsert(ctx, Profile{UserID: 1, DisplayName: "Ana", Age: 28})

		out := newRecordingOutbox()
		n := newMatchNotifier(profiles, out, zerolog.Nop())
		defer n.Close()

		n.MatchMade(1, 2)

		waitFor(t, "generic notice", func() bool {
			return out.anyContains(1, "It's a match!")
		})
	})

	t.Run("Close is safe to call twice", func(t *testing.T) {
		n := newMatchNotifier(newMemProfileStore(), newRecordingOutbox(), zerolog.Nop())
		n.Close()
		n.Close()
	})
}
