package llm

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// RateLimited wraps a provider with a token bucket so bursts of commands do
// not exceed the upstream quota.
type RateLimited struct {
	provider Provider
	limiter  *rate.Limiter
}

func NewRateLimited(provider Provider, requestsPerMinute float64) *RateLimited {
	burst := int(math.Max(1, math.Ceil(requestsPerMinute/60)))
	return &RateLimited{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerMinute/60), burst),
	}
}

func (r *RateLimited) Generate(ctx context.Context, messages []Message) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.provider.Generate(ctx, messages)
}
