// Package ratelimit serializes outbound requests onto the service's allowed
// pacing and daily quota.
//
// One Governor guards one tier's RateState for the whole process. Every
// fetcher bound to that tier must share the same Governor, or the pacing
// guarantee is void. The state is in-memory only; an optional Store shares
// it best-effort with other processes behind the same IP, but there is no
// durable persistence across restarts.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pubproxy/pubproxy-go/apierrors"
	"github.com/pubproxy/pubproxy-go/clock"
	"github.com/pubproxy/pubproxy-go/pkg/metrics"
)

// Reservation is permission to issue exactly one request, granted at
// GrantedAt. Remaining is the quota left after this grant, or
// QuotaUnlimited.
type Reservation struct {
	ID        string
	GrantedAt time.Time
	Remaining int
}

// Snapshot is a best-effort view of the governor's state, used by the batch
// planner. The governor remains the sole source of truth.
type Snapshot struct {
	Remaining   int
	NextAllowed time.Time
}

// Governor owns one tier's RateState and grants request slots in FIFO order
// of arrival, at most one per MinInterval, until the daily quota runs out.
type Governor struct {
	tier  Tier
	ts    clock.TimeSource
	store Store
	log   *slog.Logger

	mu          sync.Mutex
	busy        bool
	waiters     []chan struct{}
	initialized bool
	nextAllowed time.Time
	remaining   int
	lastReset   time.Time
}

// NewGovernor constructs a governor for the tier. ts may be nil for the wall
// clock, store may be nil for process-local state only.
func NewGovernor(tier Tier, ts clock.TimeSource, store Store, log *slog.Logger) *Governor {
	if ts == nil {
		ts = clock.NewRealTimeSource()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Governor{
		tier:  tier,
		ts:    ts,
		store: store,
		log:   log,
	}
}

// Tier returns the limits the governor enforces.
func (g *Governor) Tier() Tier {
	return g.tier
}

// Reserve blocks until the caller may issue one request, then consumes a
// quota unit and advances the pacing clock. It fails with a
// QuotaExceededError when the daily quota is exhausted, without waiting and
// without touching the pacing clock. Cancelling ctx while waiting abandons
// the reservation without consuming anything.
//
// Grants are strictly FIFO by arrival, so a caller cannot be starved past
// the quota boundary by later arrivals.
func (g *Governor) Reserve(ctx context.Context) (*Reservation, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := g.acquireTurn(ctx); err != nil {
		return nil, err
	}
	defer g.releaseTurn()

	stored := g.loadStored(ctx)

	g.mu.Lock()
	now := g.ts.Now()
	g.initLocked(now)
	g.mergeStoredLocked(stored, now)
	g.resetIfNewDayLocked(now)

	if !g.tier.Unlimited() && g.remaining == 0 {
		g.mu.Unlock()
		return nil, apierrors.NewQuotaExceededError(
			fmt.Sprintf("daily quota of %d requests exhausted", g.tier.DailyQuota))
	}

	wait := g.nextAllowed.Sub(now)
	g.mu.Unlock()

	if wait > 0 {
		timer := g.ts.NewTimer(wait)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
	metrics.RecordReservationWait(wait)

	g.mu.Lock()
	granted := g.ts.Now()
	g.resetIfNewDayLocked(granted)
	if !g.tier.Unlimited() {
		g.remaining--
	}
	g.nextAllowed = granted.Add(g.tier.MinInterval)
	remaining := g.remaining
	state := State{
		NextAllowed: g.nextAllowed,
		Remaining:   g.remaining,
		LastReset:   g.lastReset,
	}
	g.mu.Unlock()

	g.saveStored(ctx, state)
	metrics.SetQuotaRemaining(g.tier.Name, remaining)

	return &Reservation{
		ID:        uuid.NewString(),
		GrantedAt: granted,
		Remaining: remaining,
	}, nil
}

// Snapshot returns the current remaining quota and the earliest instant the
// next request may be issued. Best-effort: a concurrent reservation may
// invalidate it immediately.
func (g *Governor) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.ts.Now()
	g.initLocked(now)
	g.resetIfNewDayLocked(now)

	return Snapshot{
		Remaining:   g.remaining,
		NextAllowed: g.nextAllowed,
	}
}

// acquireTurn enqueues the caller into the FIFO line and blocks until it is
// at the head. Abandoning the wait removes the caller from the line; if the
// turn was already handed over, it is passed along instead.
func (g *Governor) acquireTurn(ctx context.Context) error {
	g.mu.Lock()
	if !g.busy {
		g.busy = true
		g.mu.Unlock()
		return nil
	}

	turn := make(chan struct{})
	g.waiters = append(g.waiters, turn)
	g.mu.Unlock()

	select {
	case <-turn:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		for i, w := range g.waiters {
			if w == turn {
				g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
				g.mu.Unlock()
				return ctx.Err()
			}
		}
		g.mu.Unlock()
		// The turn was granted concurrently with cancellation; hand it on.
		g.releaseTurn()
		return ctx.Err()
	}
}

func (g *Governor) releaseTurn() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.waiters) > 0 {
		next := g.waiters[0]
		g.waiters = g.waiters[1:]
		close(next)
		return
	}
	g.busy = false
}

// initLocked lazily seeds the state on first use: full quota, requests
// allowed immediately.
func (g *Governor) initLocked(now time.Time) {
	if g.initialized {
		return
	}

	g.initialized = true
	g.nextAllowed = now
	g.remaining = g.tier.DailyQuota
	g.lastReset = now
}

func (g *Governor) resetIfNewDayLocked(now time.Time) {
	if g.tier.Unlimited() {
		return
	}

	if sameLocalDay(g.lastReset, now) {
		return
	}

	g.remaining = g.tier.DailyQuota
	g.lastReset = now
	g.log.Debug("daily quota reset",
		slog.String("tier", g.tier.Name),
		slog.Int("remaining", g.remaining),
	)
}

// mergeStoredLocked folds a best-effort cross-process view into the local
// state, always toward the more conservative value.
func (g *Governor) mergeStoredLocked(stored *State, now time.Time) {
	if stored == nil {
		return
	}

	if stored.NextAllowed.After(g.nextAllowed) {
		g.nextAllowed = stored.NextAllowed
	}

	if !g.tier.Unlimited() && sameLocalDay(stored.LastReset, now) && stored.Remaining < g.remaining {
		g.remaining = stored.Remaining
	}
}

func (g *Governor) loadStored(ctx context.Context) *State {
	if g.store == nil {
		return nil
	}

	stored, err := g.store.Load(ctx)
	if err != nil {
		g.log.Warn("rate-state store read failed; using local state",
			slog.String("tier", g.tier.Name), slog.Any("error", err))
		return nil
	}
	return stored
}

func (g *Governor) saveStored(ctx context.Context, state State) {
	if g.store == nil {
		return
	}

	if err := g.store.Save(ctx, state); err != nil {
		g.log.Warn("rate-state store write failed",
			slog.String("tier", g.tier.Name), slog.Any("error", err))
	}
}

func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
