package model

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient adapts the Anthropic Messages API to the Client interface.
// It is one of the two concrete backends wired into the orchestrator's LLM
// fallback list (see FallbackClient); the other is OpenAIClient.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient constructs a Client backed by the given API key and
// default model (e.g. anthropic.ModelClaude3_5HaikuLatest for the cheap
// subcontractor calls C1/C4/C5 make).
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Name implements Client.
func (a *AnthropicClient) Name() string { return "anthropic" }

// ChatCompletion implements Client by translating the normalized request
// into an Anthropic Messages.New call and translating the response back.
func (a *AnthropicClient) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = a.model
	}

	var system string
	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += m.Content
		case RoleUser, RoleTool:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: int64(maxTokensOrDefault(req.MaxTokens)),
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("anthropic: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return ChatResponse{
		Message: Message{Role: RoleAssistant, Content: text},
		Usage: TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		Provider: a.Name(),
	}, nil
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 1024
	}
	return n
}
