package marketdata

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimits is the data.rate_limits config tree: tokens per second, keyed
// by provider name.
type RateLimits map[string]float64

// tokenBuckets holds one rate.Limiter per provider, shared across workers:
// one bucket per provider, shared across all callers rather than a single
// global queue, so a slow provider never throttles a fast one.
// golang.org/x/time/rate is the off-the-shelf token-bucket limiter used here
// in place of a hand-rolled worker queue.
type tokenBuckets struct {
	limiters map[string]*rate.Limiter
}

func newTokenBuckets(limits RateLimits) *tokenBuckets {
	tb := &tokenBuckets{limiters: make(map[string]*rate.Limiter, len(limits))}
	for provider, tps := range limits {
		if tps <= 0 {
			continue
		}
		tb.limiters[provider] = rate.NewLimiter(rate.Limit(tps), burstFor(tps))
	}
	return tb
}

func burstFor(tps float64) int {
	if tps < 1 {
		return 1
	}
	return int(tps)
}

// wait blocks until the provider's bucket has a token, or ctx is cancelled.
// A provider with no configured limit is unthrottled.
func (tb *tokenBuckets) wait(ctx context.Context, provider string) error {
	lim, ok := tb.limiters[provider]
	if !ok {
		return nil
	}
	return lim.Wait(ctx)
}
