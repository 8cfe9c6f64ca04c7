// Package crmclient implements the CRM/prospecting HTTP client: an external
// collaborator whose interface, not its internals, is the orchestrator's
// concern. It binds each of the five tools.Ident values to a JSON-over-HTTP
// call against a configured CRM API, a plain REST POST per tool.
package crmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anushka192001/Sales-dev-assistant/agent/tools"
)

// Client calls a CRM/prospecting API over HTTP. One endpoint per tool,
// rooted at baseURL.
type Client struct {
	baseURL string
	http    *http.Client
	headers http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default *http.Client (e.g. for a custom
// transport or test double).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithHeader sets a header sent on every request (e.g. an API key).
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// New constructs a Client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tools returns a tools.Func for every endpoint this client supports, keyed
// by tools.Ident, ready to pass to tools.Registry.Register alongside each
// tool's Spec.
func (c *Client) Tools() map[tools.Ident]tools.Func {
	return map[tools.Ident]tools.Func{
		tools.SearchLeads:          c.call("/v1/leads/search"),
		tools.SearchCompanies:      c.call("/v1/companies/search"),
		tools.GenerateEmail:        c.call("/v1/emails/generate"),
		tools.CreateCadence:        c.call("/v1/cadences"),
		tools.AddContactsToCadence: c.call("/v1/cadences/contacts"),
	}
}

// call returns a tools.Func that POSTs args as a JSON body to path and
// decodes the JSON response as the tool's result.
func (c *Client) call(path string) tools.Func {
	return func(ctx context.Context, args map[string]any) (map[string]any, error) {
		body, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("crmclient: encoding request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("crmclient: building request: %w", err)
		}
		req.Header = c.headers.Clone()
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("crmclient: %s: %w", path, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("crmclient: reading response from %s: %w", path, err)
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("crmclient: %s returned status %d: %s", path, resp.StatusCode, string(raw))
		}

		var result map[string]any
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("crmclient: decoding response from %s: %w", path, err)
		}
		return result, nil
	}
}
