package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pubproxy/pubproxy-go/ratelimit"
)

func TestPlanBatches(t *testing.T) {
	testCases := []struct {
		name  string
		total int
		cap   int
		quota int
		want  []int
	}{
		{
			name:  "even split at the cap",
			total: 10,
			cap:   5,
			quota: 50,
			want:  []int{5, 5},
		},
		{
			name:  "unlimited quota never truncates",
			total: 10,
			cap:   5,
			quota: ratelimit.QuotaUnlimited,
			want:  []int{5, 5},
		},
		{
			name:  "below the cap fits one chunk",
			total: 3,
			cap:   5,
			quota: 50,
			want:  []int{3},
		},
		{
			name:  "uneven tail chunk",
			total: 12,
			cap:   5,
			quota: 50,
			want:  []int{5, 5, 2},
		},
		{
			name:  "quota truncates the total",
			total: 7,
			cap:   5,
			quota: 1,
			want:  []int{1},
		},
		{
			name:  "exhausted quota yields no plan",
			total: 10,
			cap:   5,
			quota: 0,
			want:  nil,
		},
		{
			name:  "zero total yields no plan",
			total: 0,
			cap:   5,
			quota: 50,
			want:  nil,
		},
		{
			name:  "degenerate cap yields no plan",
			total: 10,
			cap:   0,
			quota: 50,
			want:  nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := planBatches(tc.total, tc.cap, tc.quota)
			assert.Equal(t, tc.want, got)

			sum := 0
			for _, chunk := range got {
				assert.LessOrEqual(t, chunk, tc.cap)
				assert.Positive(t, chunk)
				sum += chunk
			}
			if tc.quota != ratelimit.QuotaUnlimited && tc.quota < tc.total {
				assert.Equal(t, max(0, tc.quota), sum)
			} else if tc.total > 0 && tc.cap >= 1 {
				assert.Equal(t, tc.total, sum)
			}
		})
	}
}
