// Package titlegen derives a short display title for a session from its
// first business request. It follows the same fallible-LLM-subcontractor
// pattern as agent/enummap and agent/missingtool: a cheap, temperature-0
// call with a deterministic fallback so a title is always produced even if
// the model is unavailable or returns garbage.
package titlegen

import (
	"context"
	"strings"

	"github.com/anushka192001/Sales-dev-assistant/agent/model"
	"github.com/anushka192001/Sales-dev-assistant/agent/telemetry"
)

const maxTitleLength = 60

const systemPrompt = `Produce a short title, six words or fewer, summarizing the user's request
below. Respond with the title text only, no quotes or punctuation at the end.`

// Generator produces session titles.
type Generator struct {
	client model.Client
	model  string
	log    telemetry.Logger
}

// New constructs a Generator. client may be nil, in which case Generate
// always falls back to a truncated copy of the input text.
func New(client model.Client, modelName string, log telemetry.Logger) *Generator {
	if log == nil {
		log = telemetry.NoopLogger{}
	}
	return &Generator{client: client, model: modelName, log: log}
}

// Generate returns a display title for firstMessage, the session's first
// business request.
func (g *Generator) Generate(ctx context.Context, firstMessage string) string {
	firstMessage = strings.TrimSpace(firstMessage)
	if firstMessage == "" {
		return "New conversation"
	}
	if g.client == nil {
		return fallbackTitle(firstMessage)
	}

	resp, err := g.client.ChatCompletion(ctx, model.ChatRequest{
		Model:       g.model,
		Temperature: 0,
		MaxTokens:   20,
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: systemPrompt},
			{Role: model.RoleUser, Content: firstMessage},
		},
	})
	if err != nil {
		g.log.Warn(ctx, "titlegen: llm call failed, using fallback", "error", err)
		return fallbackTitle(firstMessage)
	}

	title := strings.TrimSpace(resp.Message.Content)
	if title == "" {
		return fallbackTitle(firstMessage)
	}
	return truncate(title)
}

// fallbackTitle truncates the raw request text to a display-safe length when
// no model is configured or the call fails.
func fallbackTitle(text string) string {
	return truncate(strings.TrimSpace(text))
}

func truncate(s string) string {
	if len(s) <= maxTitleLength {
		return s
	}
	cut := s[:maxTitleLength]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}
