package model

import (
	"context"
	"fmt"
)

// FallbackClient chains a list of Client backends, trying each in order
// until one returns a response without error. Retries live only at this
// layer: the orchestrator's own components never retry a tool call, only
// the model-client layer retries across backends.
type FallbackClient struct {
	name     string
	backends []Client
}

// NewFallbackClient builds a Client that tries backends in order. name is a
// logical identifier used for logging/telemetry (e.g. "primary", "cheap").
func NewFallbackClient(name string, backends ...Client) *FallbackClient {
	return &FallbackClient{name: name, backends: backends}
}

// Name implements Client.
func (f *FallbackClient) Name() string { return f.name }

// ChatCompletion tries each backend in order, returning the first successful
// response. If every backend fails, the last error is returned wrapped with
// the attempted backend names so callers can log a single actionable error
// rather than the first (possibly least relevant) failure.
func (f *FallbackClient) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var lastErr error
	var tried []string
	for _, backend := range f.backends {
		if ctx.Err() != nil {
			return ChatResponse{}, ctx.Err()
		}
		resp, err := backend.ChatCompletion(ctx, req)
		if err == nil {
			resp.Provider = backend.Name()
			return resp, nil
		}
		tried = append(tried, backend.Name())
		lastErr = err
	}
	if lastErr == nil {
		return ChatResponse{}, fmt.Errorf("model: fallback chain %q has no backends configured", f.name)
	}
	return ChatResponse{}, fmt.Errorf("model: all backends exhausted %v: %w", tried, lastErr)
}
