package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/pubproxy/pubproxy-go/apierrors"
	"github.com/pubproxy/pubproxy-go/opts"
	"github.com/pubproxy/pubproxy-go/pkg/metrics"
	"github.com/pubproxy/pubproxy-go/proxy"
	"github.com/pubproxy/pubproxy-go/ratelimit"
)

// Fetcher fetches proxies matching one immutable Opts value. Spawn via
// Session.SpawnFetcher; safe for concurrent use.
type Fetcher struct {
	session  *Session
	opts     *opts.Opts
	governor *ratelimit.Governor
	log      *slog.Logger
}

// Fetch retrieves up to count proxies, batching them into the fewest
// possible requests and pacing each one through the rate governor. Chunks
// are issued strictly sequentially; the governor only grants one slot per
// interval anyway.
//
// On any chunk failure the whole call fails with the first classified error
// and records gathered by earlier chunks are discarded; there is no partial
// success. The engine never retries a failed remote call — retrying into an
// already-throttled service risks extending the penalty window, so retry
// decisions belong to the caller (see apierrors.WithRetry).
func (f *Fetcher) Fetch(ctx context.Context, count int) ([]proxy.Proxy, error) {
	start := time.Now()

	if ctx == nil {
		ctx = context.Background()
	}

	if count <= 0 {
		return nil, f.fail(start, apierrors.NewInvalidRequestError(
			"requested proxy count must be positive"))
	}

	tier := f.governor.Tier()
	snapshot := f.governor.Snapshot()
	plan := planBatches(count, tier.PerRequestCap, snapshot.Remaining)
	if len(plan) == 0 {
		return nil, f.fail(start, apierrors.NewQuotaExceededError(
			"daily quota exhausted; no requests can be planned"))
	}

	f.log.Debug("fetch planned",
		slog.Int("requested", count),
		slog.Int("chunks", len(plan)),
		slog.Int("quota_remaining", snapshot.Remaining),
	)

	collected := make([]proxy.Proxy, 0, count)
	for i, chunk := range plan {
		records, err := f.fetchChunk(ctx, chunk)
		if err != nil {
			// Discard everything gathered so far rather than silently
			// under-delivering.
			return nil, f.fail(start, err)
		}

		f.log.Debug("chunk fetched",
			slog.Int("chunk", i+1),
			slog.Int("of", len(plan)),
			slog.Int("asked", chunk),
			slog.Int("received", len(records)),
		)

		collected = append(collected, records...)
	}

	metrics.RecordFetch("ok", time.Since(start))
	metrics.RecordProxies(len(collected))

	return collected, nil
}

func (f *Fetcher) fetchChunk(ctx context.Context, chunk int) ([]proxy.Proxy, error) {
	if _, err := f.governor.Reserve(ctx); err != nil {
		return nil, err
	}

	query := f.opts.Values()
	query.Set("limit", strconv.Itoa(chunk))

	resp, err := f.session.transport.Do(ctx, query)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Caller cancellation is not a service failure; propagate it
			// unclassified, same as a cancelled Reserve.
			return nil, err
		}
		return nil, apierrors.NewTransportError(err)
	}

	body := string(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierrors.ClassifyResponse(resp.StatusCode, body)
	}

	records, err := proxy.Decode(resp.Body)
	if err != nil {
		// Known error notices arrive with success status codes too, so
		// match the body before giving up on the response.
		return nil, apierrors.ClassifyResponse(resp.StatusCode, body)
	}

	return records, nil
}

func (f *Fetcher) fail(start time.Time, err error) error {
	status := string(apierrors.KindOf(err))
	if status == "" {
		status = "aborted"
	}
	metrics.RecordFetch(status, time.Since(start))
	return err
}
