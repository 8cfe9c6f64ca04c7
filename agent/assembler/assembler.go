// Package assembler implements the Message Assembler: it rebuilds the
// LLM-facing message list from durable history, reinserting tool-result
// messages after their originating assistant message and inserting
// bridging assistant messages wherever a user message would otherwise
// immediately follow a tool message.
package assembler

import (
	"fmt"

	"github.com/anushka192001/Sales-dev-assistant/agent/convstore"
	"github.com/anushka192001/Sales-dev-assistant/agent/interrupt"
	"github.com/anushka192001/Sales-dev-assistant/agent/model"
)

// BridgingMessageContent is the fixed, content-free text the original
// system uses for a bridging assistant message; it must never be treated
// as semantic output.
const BridgingMessageContent = "I have completed the requested actions. What would you like to do next?"

// missingResultTemplate matches the original system's synthetic error body
// for a tool_call_id with no recorded ToolOutput.
const missingResultTemplate = "Result for %s not found"

// Assemble builds the LLM-facing message list from durable history.
// systemPrompt is prepended verbatim as the first message.
func Assemble(systemPrompt string, durableMessages []model.Message, toolOutputs []convstore.ToolOutput) []model.Message {
	resultByCallID := make(map[string]convstore.ToolOutput, len(toolOutputs))
	for _, out := range toolOutputs {
		resultByCallID[out.ToolCallID] = out
	}

	out := make([]model.Message, 0, len(durableMessages)+2)
	if systemPrompt != "" {
		out = append(out, model.Message{Role: model.RoleSystem, Content: systemPrompt})
	}

	for _, m := range durableMessages {
		switch m.Role {
		case model.RoleTool:
			// Reconstructed below, alongside the assistant message that
			// requested it; never replayed directly from durable history.
			continue

		case model.RoleUser:
			if interrupt.IsResumeCommand(m.Content) {
				continue
			}
			if len(out) > 0 && out[len(out)-1].Role == model.RoleTool {
				out = append(out, bridgingMessage())
			}
			out = append(out, m)

		case model.RoleAssistant:
			out = append(out, m)
			if len(m.ToolCalls) == 0 {
				continue
			}
			for _, call := range m.ToolCalls {
				out = append(out, toolResultMessage(call, resultByCallID))
			}

		default:
			out = append(out, m)
		}
	}

	return out
}

func toolResultMessage(call model.ToolCall, resultByCallID map[string]convstore.ToolOutput) model.Message {
	output, ok := resultByCallID[call.ID]
	if !ok {
		return model.Message{
			Role:       model.RoleTool,
			ToolCallID: call.ID,
			Content:    fmt.Sprintf(missingResultTemplate, call.ID),
		}
	}
	return model.Message{
		Role:       model.RoleTool,
		ToolCallID: call.ID,
		Content:    summarizeResult(output),
	}
}

// summarizeResult renders a compact textual summary of a tool's result for
// the LLM-facing transcript; the structured value itself lives only in the
// durable ToolOutput.
func summarizeResult(out convstore.ToolOutput) string {
	if status, ok := out.Result["status"].(string); ok && status == "failed" {
		if errMsg, ok := out.Result["error"].(string); ok {
			return fmt.Sprintf("%s failed: %s", out.ToolName, errMsg)
		}
		return fmt.Sprintf("%s failed", out.ToolName)
	}
	return fmt.Sprintf("%s completed: %s", out.ToolName, out.Description)
}

func bridgingMessage() model.Message {
	return model.Message{Role: model.RoleAssistant, Content: BridgingMessageContent}
}
