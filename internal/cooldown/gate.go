package cooldown

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces the two throttles the transport requires: a per-user
// inbound spacing that silently drops bursty events, and a global
// outbound spacing that serializes every send the bot performs.
type Gate struct {
	inboundEvery time.Duration

	mu       sync.Mutex
	users    map[int64]*rate.Limiter

	outboundEvery time.Duration
	sendMu        sync.Mutex
	lastSent      time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a gate with the given inbound and outbound spacing.
func New(inbound, outbound time.Duration) *Gate {
	return &Gate{
		inboundEvery:  inbound,
		users:         make(map[int64]*rate.Limiter),
		outboundEvery: outbound,
		now:           time.Now,
		sleep:         sleepCtx,
	}
}

// AdmitInbound reports whether an event from userID arriving at now may
// be processed. A rejected event is dropped: no handler runs and no
// response is sent. Message and button events share the same clock.
func (g *Gate) AdmitInbound(userID int64, now time.Time) bool {
	g.mu.Lock()
	limiter, ok := g.users[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(g.inboundEvery), 1)
		g.users[userID] = limiter
	}
	g.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// Send serializes an outbound transmission. All sends across all users
// pass through here; each waits until at least the configured spacing
// has elapsed since the previous send completed. lastSent is advanced
// at completion time regardless of the send's outcome.
func (g *Gate) Send(ctx context.Context, send func() error) error {
	g.sendMu.Lock()
	defer g.sendMu.Unlock()

	if delay := g.outboundEvery - g.now().Sub(g.lastSent); delay > 0 {
		if err := g.sleep(ctx, delay); err != nil {
			return err
		}
	}
	defer func() {
		g.lastSent = g.now()
	}()
	return send()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
