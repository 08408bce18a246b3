package fetcher

import "github.com/pubproxy/pubproxy-go/ratelimit"

// planBatches splits a desired proxy total into per-request chunk sizes.
// Every chunk is the per-request cap except possibly the last, and the sum
// is truncated to the quota budget. An exhausted budget yields an empty
// plan; ratelimit.QuotaUnlimited disables truncation.
//
// Pure and deterministic; the governor remains the source of truth and may
// still reject individual reservations.
func planBatches(total, cap, quota int) []int {
	if total <= 0 || cap < 1 {
		return nil
	}

	budget := total
	if quota != ratelimit.QuotaUnlimited && quota < budget {
		budget = quota
	}
	if budget <= 0 {
		return nil
	}

	plan := make([]int, 0, (budget+cap-1)/cap)
	for budget > 0 {
		chunk := cap
		if budget < cap {
			chunk = budget
		}
		plan = append(plan, chunk)
		budget -= chunk
	}

	return plan
}
