package convstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anushka192001/Sales-dev-assistant/agent/model"
)

func TestMergeAppendsNewMessages(t *testing.T) {
	t.Parallel()

	existing := []model.Message{{Role: model.RoleUser, Content: "find me some leads"}}
	incoming := []model.Message{{Role: model.RoleAssistant, Content: "on it"}}

	merged := Merge(existing, incoming)

	assert.Equal(t, append(append([]model.Message{}, existing...), incoming...), merged)
}

func TestMergeDedupesToolMessagesByToolCallID(t *testing.T) {
	t.Parallel()

	existing := []model.Message{
		{Role: model.RoleTool, ToolCallID: "call_0", Content: `{"leads":[]}`},
	}
	// Same tool_call_id, different content: the Step Executor's local result
	// and the eventually-saved copy can diverge in formatting, but they
	// still refer to the same executed call and must collapse to one entry.
	incoming := []model.Message{
		{Role: model.RoleTool, ToolCallID: "call_0", Content: `{"leads": []}`},
	}

	merged := Merge(existing, incoming)

	assert.Equal(t, existing, merged)
}

func TestMergeDedupesNonToolMessagesByCanonicalJSON(t *testing.T) {
	t.Parallel()

	msg := model.Message{Role: model.RoleUser, Content: "hello"}
	existing := []model.Message{msg}
	incoming := []model.Message{msg}

	merged := Merge(existing, incoming)

	assert.Equal(t, existing, merged)
}

func TestMergeKeepsDistinctToolCallIDs(t *testing.T) {
	t.Parallel()

	existing := []model.Message{{Role: model.RoleTool, ToolCallID: "call_0", Content: "a"}}
	incoming := []model.Message{{Role: model.RoleTool, ToolCallID: "call_1", Content: "b"}}

	merged := Merge(existing, incoming)

	assert.Len(t, merged, 2)
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	a := []model.Message{
		{Role: model.RoleUser, Content: "find leads at acme"},
		{Role: model.RoleTool, ToolCallID: "call_0", Content: `{"ok":true}`},
	}
	b := []model.Message{
		{Role: model.RoleAssistant, Content: "here are the results"},
		{Role: model.RoleTool, ToolCallID: "call_0", Content: `{"ok":true}`},
	}

	once := Merge(a, b)
	twice := Merge(a, once)

	assert.Equal(t, once, twice)
}

func TestMergeDedupesWithinIncomingItself(t *testing.T) {
	t.Parallel()

	msg := model.Message{Role: model.RoleUser, Content: "same message twice"}
	incoming := []model.Message{msg, msg}

	merged := Merge(nil, incoming)

	assert.Len(t, merged, 1)
}
