// Package fetcher is the rate-governed fetch engine: it plans batches,
// waits on the rate governor, issues requests through the transport, and
// accumulates decoded proxy records.
package fetcher

import (
	"log/slog"
	"sync"

	"github.com/pubproxy/pubproxy-go/clock"
	"github.com/pubproxy/pubproxy-go/opts"
	"github.com/pubproxy/pubproxy-go/ratelimit"
)

// Config carries the session's collaborators. Every field is optional; zero
// values select the production defaults.
type Config struct {
	// Transport overrides the HTTP transport, mainly for tests.
	Transport Transport
	// TimeSource overrides the wall clock, mainly for tests.
	TimeSource clock.TimeSource
	// KV, when set, shares rate state best-effort with other processes
	// through a ratelimit.RedisStore per tier.
	KV ratelimit.KV
	// Logger receives structured progress and warning logs.
	Logger *slog.Logger
	// KeylessTier and KeyedTier override the built-in tier limits, for
	// when the service changes them ahead of a release. A tier with an
	// empty Name is ignored.
	KeylessTier ratelimit.Tier
	KeyedTier   ratelimit.Tier
}

// Session is the per-process entry point. It owns one rate governor per
// tier, shared by every fetcher it spawns; construct exactly one Session per
// process or the rate-limiting guarantee is void for the extra copies.
//
// Separate processes behind the same IP are only coordinated best-effort
// when a KV store is configured; otherwise that remains a known limitation
// of the process-local design.
type Session struct {
	transport Transport
	ts        clock.TimeSource
	kv        ratelimit.KV
	log       *slog.Logger

	keylessTier ratelimit.Tier
	keyedTier   ratelimit.Tier

	mu        sync.Mutex
	governors map[string]*ratelimit.Governor
}

// NewSession builds a session with cfg's collaborators, defaulting to the
// production transport and clock.
func NewSession(cfg Config) *Session {
	transport := cfg.Transport
	if transport == nil {
		transport = NewHTTPTransport(DefaultBaseURL, 0)
	}

	ts := cfg.TimeSource
	if ts == nil {
		ts = clock.NewRealTimeSource()
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	keyless := cfg.KeylessTier
	if keyless.Name == "" {
		keyless = ratelimit.Keyless()
	}
	keyed := cfg.KeyedTier
	if keyed.Name == "" {
		keyed = ratelimit.Keyed()
	}

	return &Session{
		transport:   transport,
		ts:          ts,
		kv:          cfg.KV,
		log:         log,
		keylessTier: keyless,
		keyedTier:   keyed,
		governors:   make(map[string]*ratelimit.Governor),
	}
}

// SpawnFetcher binds a fetcher to o. Fetchers sharing a tier share the
// session's governor for it.
func (s *Session) SpawnFetcher(o *opts.Opts) *Fetcher {
	tier := s.keylessTier
	if o.HasAPIKey() {
		tier = s.keyedTier
	}

	return &Fetcher{
		session:  s,
		opts:     o,
		governor: s.governorFor(tier),
		log:      s.log.With(slog.String("tier", tier.Name)),
	}
}

// governorFor lazily creates the shared governor for a tier.
func (s *Session) governorFor(tier ratelimit.Tier) *ratelimit.Governor {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gov, ok := s.governors[tier.Name]; ok {
		return gov
	}

	var store ratelimit.Store
	if s.kv != nil {
		store = ratelimit.NewRedisStore(s.kv, tier.Name, s.log)
	}

	gov := ratelimit.NewGovernor(tier, s.ts, store, s.log)
	s.governors[tier.Name] = gov
	return gov
}
