package model

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient adapts the go-openai chat completion API to the Client
// interface. Used as the cheap fallback backend in the LLM subcontractor
// chain (enum mapping, missing-tool analysis, and dependency analysis all
// prefer a cheap model).
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs a Client backed by the given API key and
// default model (e.g. openai.GPT4oMini).
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Name implements Client.
func (o *OpenAIClient) Name() string { return "openai" }

// ChatCompletion implements Client.
func (o *OpenAIClient) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = o.model
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	params := openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    msgs,
		Temperature: float32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = req.MaxTokens
	}
	if req.ResponseFormat == ResponseFormatJSON {
		params.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, params)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("openai: empty choices in response")
	}

	return ChatResponse{
		Message: Message{Role: RoleAssistant, Content: resp.Choices[0].Message.Content},
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Provider: o.Name(),
	}, nil
}
