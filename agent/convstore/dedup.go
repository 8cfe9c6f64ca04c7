package convstore

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/anushka192001/Sales-dev-assistant/agent/model"
)

var unmarshalableCounter atomic.Uint64

// Merge implements the dedup reducer: a raw append-merge corrupts history
// on resume paths because the same tool messages can be
// emitted twice (once by the Step Executor, once when the turn is finally
// saved). Two messages are considered equal iff:
//   - both have role=tool and an equal (non-empty) ToolCallID, or
//   - otherwise, their canonical JSON encodings are byte-identical.
//
// Merge returns existing with every message from incoming appended in order,
// skipping any message already present (in existing, or earlier in
// incoming). This makes Merge idempotent: Merge(A, Merge(A, B)) == Merge(A, B),
// because Merge(A, B) applied to A's own output reintroduces nothing new.
func Merge(existing []model.Message, incoming []model.Message) []model.Message {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	result := make([]model.Message, 0, len(existing)+len(incoming))

	for _, m := range existing {
		key := dedupKey(m)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, m)
	}
	for _, m := range incoming {
		key := dedupKey(m)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, m)
	}
	return result
}

// dedupKey returns the equality key for m per the rules documented on Merge.
func dedupKey(m model.Message) string {
	if m.Role == model.RoleTool && m.ToolCallID != "" {
		return "tool:" + m.ToolCallID
	}
	// canonical JSON: struct fields marshal in fixed declared order and
	// encoding/json sorts map keys, so this is stable across calls.
	enc, err := json.Marshal(m)
	if err != nil {
		// Marshaling a Message can only fail if Arguments contains a value
		// json can't encode; treat as never-equal rather than panicking.
		return fmt.Sprintf("unmarshalable:%d", unmarshalableCounter.Add(1))
	}
	return "json:" + string(enc)
}
