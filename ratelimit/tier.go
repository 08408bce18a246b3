package ratelimit

import "time"

// QuotaUnlimited disables daily-quota tracking for a tier.
const QuotaUnlimited = -1

// Tier describes an access level's usage limits: how many proxies one
// request may ask for, how many requests the local day allows, and the floor
// between consecutive requests.
type Tier struct {
	Name          string
	PerRequestCap int
	DailyQuota    int
	MinInterval   time.Duration
}

// Keyless is the free tier. The service enforces 50 requests per day and
// throttles at 2+ requests per second; the interval carries a small margin
// over one second to stay clear of clock skew against the service.
func Keyless() Tier {
	return Tier{
		Name:          "keyless",
		PerRequestCap: 5,
		DailyQuota:    50,
		MinInterval:   1100 * time.Millisecond,
	}
}

// Keyed is the premium tier reached with an API key: a larger per-request
// cap and no pacing or quota.
func Keyed() Tier {
	return Tier{
		Name:          "keyed",
		PerRequestCap: 20,
		DailyQuota:    QuotaUnlimited,
		MinInterval:   0,
	}
}

// Unlimited reports whether the tier tracks a daily quota at all.
func (t Tier) Unlimited() bool {
	return t.DailyQuota == QuotaUnlimited
}
