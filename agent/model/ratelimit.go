package model

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedClient wraps a Client with a token-bucket limiter so a single
// noisy agent run cannot exhaust a provider's per-minute quota.
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps inner with a limiter allowing rps requests per
// second and a burst of burst.
func NewRateLimitedClient(inner Client, rps float64, burst int) *RateLimitedClient {
	return &RateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Name implements Client.
func (r *RateLimitedClient) Name() string { return r.inner.Name() }

// ChatCompletion blocks until the limiter admits the call, then delegates.
func (r *RateLimitedClient) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return ChatResponse{}, err
	}
	return r.inner.ChatCompletion(ctx, req)
}
