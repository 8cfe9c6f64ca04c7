package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anushka192001/Sales-dev-assistant/agent/convstore"
	"github.com/anushka192001/Sales-dev-assistant/agent/model"
)

func TestAssemblePrependsSystemPrompt(t *testing.T) {
	t.Parallel()

	out := Assemble("you are a sales assistant", nil, nil)

	require.Len(t, out, 1)
	assert.Equal(t, model.RoleSystem, out[0].Role)
	assert.Equal(t, "you are a sales assistant", out[0].Content)
}

func TestAssembleOmitsSystemMessageWhenPromptEmpty(t *testing.T) {
	t.Parallel()

	out := Assemble("", []model.Message{{Role: model.RoleUser, Content: "hi"}}, nil)

	require.Len(t, out, 1)
	assert.Equal(t, model.RoleUser, out[0].Role)
}

func TestAssembleReinsertsToolResultAfterAssistantCall(t *testing.T) {
	t.Parallel()

	durable := []model.Message{
		{Role: model.RoleUser, Content: "find leads at acme"},
		{
			Role: model.RoleAssistant,
			ToolCalls: []model.ToolCall{
				{ID: "call_0", Name: "search_leads"},
			},
		},
		// The raw tool message from durable history must never be replayed
		// directly; Assemble reconstructs it from toolOutputs instead.
		{Role: model.RoleTool, ToolCallID: "call_0", Content: "stale raw payload"},
	}
	outputs := []convstore.ToolOutput{
		{ToolCallID: "call_0", ToolName: "search_leads", Description: "found 3 leads"},
	}

	out := Assemble("", durable, outputs)

	require.Len(t, out, 3)
	assert.Equal(t, model.RoleUser, out[0].Role)
	assert.Equal(t, model.RoleAssistant, out[1].Role)
	assert.Equal(t, model.RoleTool, out[2].Role)
	assert.Equal(t, "call_0", out[2].ToolCallID)
	assert.Equal(t, "search_leads completed: found 3 leads", out[2].Content)
}

func TestAssembleSynthesizesMissingResult(t *testing.T) {
	t.Parallel()

	durable := []model.Message{
		{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{{ID: "call_0", Name: "search_leads"}}},
	}

	out := Assemble("", durable, nil)

	require.Len(t, out, 2)
	assert.Equal(t, "Result for call_0 not found", out[1].Content)
}

func TestAssembleSummarizesFailedToolResult(t *testing.T) {
	t.Parallel()

	durable := []model.Message{
		{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{{ID: "call_0", Name: "create_cadence"}}},
	}
	outputs := []convstore.ToolOutput{
		{ToolCallID: "call_0", ToolName: "create_cadence", Result: map[string]any{"status": "failed", "error": "quota exceeded"}},
	}

	out := Assemble("", durable, outputs)

	assert.Equal(t, "create_cadence failed: quota exceeded", out[1].Content)
}

func TestAssembleInsertsBridgingMessageBeforeUserAfterTool(t *testing.T) {
	t.Parallel()

	durable := []model.Message{
		{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{{ID: "call_0", Name: "search_leads"}}},
		{Role: model.RoleUser, Content: "now draft an email"},
	}
	outputs := []convstore.ToolOutput{
		{ToolCallID: "call_0", ToolName: "search_leads", Description: "found 3 leads"},
	}

	out := Assemble("", durable, outputs)

	// assistant call, its tool result, the bridging message, then the user turn.
	require.Len(t, out, 4)
	assert.Equal(t, model.RoleAssistant, out[2].Role)
	assert.Equal(t, BridgingMessageContent, out[2].Content)
	assert.Equal(t, model.RoleUser, out[3].Role)
}

func TestAssembleDropsResumeCommandsFromTranscript(t *testing.T) {
	t.Parallel()

	durable := []model.Message{
		{Role: model.RoleUser, Content: "find leads"},
		{Role: model.RoleUser, Content: "APPROVE_PLAN:plan_1_abcdef01"},
	}

	out := Assemble("", durable, nil)

	require.Len(t, out, 1)
	assert.Equal(t, "find leads", out[0].Content)
}

func TestAssembleLeavesAssistantTextOnlyMessagesUntouched(t *testing.T) {
	t.Parallel()

	durable := []model.Message{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello, how can I help?"},
	}

	out := Assemble("", durable, nil)

	require.Len(t, out, 2)
	assert.Equal(t, "hello, how can I help?", out[1].Content)
}
