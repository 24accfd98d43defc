package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// matchNotifier delivers "it's a match" notices to both participants without
// blocking the swipe path. Pairs are queued and a single worker drains them;
// delivery is best-effort and guarded by a circuit breaker so a dead
// transport cannot pile up slow sends.
type matchNotifier struct {
	profiles ProfileStore
	out      Outbox
	log      zerolog.Logger

	queue   chan [2]int64
	breaker *gobreaker.CircuitBreaker
	done    chan struct{}
	once    sync.Once
}

func newMatchNotifier(profiles ProfileStore, out Outbox, log zerolog.Logger) *matchNotifier {
	n := &matchNotifier{
		profiles: profiles,
		out:      out,
		log:      log,
		queue:    make(chan [2]int64, 256),
		done:     make(chan struct{}),
	}
	n.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "match-notify",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("breaker state change")
		},
	})
	go n.run()
	return n
}

// MatchMade queues a notification for both members of the pair. If the queue
// is full the notice is dropped; the match itself is already committed.
func (n *matchNotifier) MatchMade(a, b int64) {
	select {
	case n.queue <- [2]int64{a, b}:
	default:
		n.log.Warn().Int64("user_a", a).Int64("user_b", b).Msg("notify queue full, dropping")
	}
}

func (n *matchNotifier) run() {
	for {
		select {
		case pair := <-n.queue:
			n.deliver(pair[0], pair[1])
		case <-n.done:
			return
		}
	}
}

func (n *matchNotifier) deliver(a, b int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	profiles, err := n.profiles.GetMany(ctx, []int64{a, b})
	if err != nil {
		n.log.Error().Err(err).Int64("user_a", a).Int64("user_b", b).Msg("notify profile load failed")
		return
	}

	n.notifyOne(ctx, a, profiles[b])
	n.notifyOne(ctx, b, profiles[a])
}

func (n *matchNotifier) notifyOne(ctx context.Context, target int64, peer *Profile) {
	content := "It's a match! Start a conversation and say hi."
	if peer != nil {
		content = "It's a match with " + peer.DisplayName + "! Start a conversation and say hi."
	}
	_, err := n.breaker.Execute(func() (any, error) {
		return nil, n.out.SendText(ctx, target, content, nil)
	})
	if err != nil {
		n.log.Warn().Err(err).Int64("user_id", target).Msg("match notice delivery failed")
	}
}

// Close stops the worker. Queued notices not yet delivered are dropped.
func (n *matchNotifier) Close() {
	n.once.Do(func() { close(n.done) })
}
