// Package plan implements the Plan Builder and the ExecutionPlan/
// ExecutionStep data model. Plans are immutable once built except for the
// one atomic whole-plan replacement a human reviewer may perform during
// EDIT_PLAN, and the SkipReason the workflow records on a step that
// empty-result pruning skipped.
package plan

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/anushka192001/Sales-dev-assistant/agent/model"
)

// ExecutionType classifies how a plan's steps are scheduled.
type ExecutionType string

const (
	ExecutionSequential ExecutionType = "sequential"
	ExecutionParallel   ExecutionType = "parallel"
)

type (
	// Step is one node in an ExecutionPlan's dependency DAG.
	Step struct {
		StepID             string         `json:"step_id"`
		ToolCallID         string         `json:"tool_call_id"`
		ToolName           string         `json:"tool_name"`
		ToolArgs           map[string]any `json:"tool_args"`
		Description        string         `json:"description"`
		DependsOn          []string       `json:"depends_on"`
		UsePreviousResults bool           `json:"use_previous_results"`
		SkipReason         string         `json:"skip_reason,omitempty"`
	}

	// Plan is a DAG of tool calls derived for one user turn, immutable
	// outside of EDIT_PLAN whole-plan replacement and the SkipReason the
	// workflow records on pruned steps.
	Plan struct {
		PlanID        string        `json:"plan_id"`
		ExecutionType ExecutionType `json:"execution_type"`
		Steps         []Step        `json:"steps"`
	}

	// ToolCallInput is the minimal shape the Plan Builder needs per tool call:
	// the validated/augmented arguments plus identity. Dependencies is the
	// step_id list this call depends on, as produced by the Dependency
	// Analyzer (agent/depgraph).
	ToolCallInput struct {
		ToolCall     model.ToolCall
		Description  string
		Dependencies []string
	}
)

// Build converts a final, ordered set of tool calls plus their dependency
// map into an immutable ExecutionPlan. step_i ids are assigned in call
// order. existingPlanID, when non-empty, is reused instead of minting a new
// plan_id — this is what keeps the checkpoint thread id stable across the
// review interrupt when plan_execution re-runs for a resumed turn.
func Build(calls []ToolCallInput, existingPlanID string) Plan {
	planID := existingPlanID
	if planID == "" {
		planID = NewPlanID()
	}

	steps := make([]Step, 0, len(calls))
	anyDeps := false
	for i, c := range calls {
		stepID := fmt.Sprintf("step_%d", i)
		deps := append([]string{}, c.Dependencies...)
		if len(deps) > 0 {
			anyDeps = true
		}
		steps = append(steps, Step{
			StepID:             stepID,
			ToolCallID:         c.ToolCall.ID,
			ToolName:           c.ToolCall.Name,
			ToolArgs:           c.ToolCall.Arguments,
			Description:        c.Description,
			DependsOn:          deps,
			UsePreviousResults: len(deps) > 0,
		})
	}

	execType := ExecutionParallel
	if anyDeps {
		execType = ExecutionSequential
	}

	return Plan{PlanID: planID, ExecutionType: execType, Steps: steps}
}

// Encode serializes p to JSON. Paired with DecodePlan, Encode is a
// round-trip identity: serialize then deserialize reproduces p exactly,
// including SkipReason.
func Encode(p Plan) ([]byte, error) {
	return json.Marshal(p)
}

// DecodePlan deserializes a plan previously produced by Encode, or the raw
// JSON object a caller sends in an EDIT_PLAN resume command.
func DecodePlan(data []byte) (Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Validate checks the DAG invariants every ExecutionPlan must satisfy:
// depends_on is acyclic, parallel plans carry no
// dependencies, and step_ids are unique. It does not repair anything —
// repair is the Dependency Analyzer's job (agent/depgraph) before Build is
// ever called; Validate exists to catch a malformed EDIT_PLAN payload.
func (p Plan) Validate() error {
	seen := make(map[string]struct{}, len(p.Steps))
	byID := make(map[string]Step, len(p.Steps))
	for _, s := range p.Steps {
		if _, dup := seen[s.StepID]; dup {
			return fmt.Errorf("plan: duplicate step_id %q", s.StepID)
		}
		seen[s.StepID] = struct{}{}
		byID[s.StepID] = s
	}

	if p.ExecutionType == ExecutionParallel {
		for _, s := range p.Steps {
			if len(s.DependsOn) > 0 {
				return fmt.Errorf("plan: execution_type=parallel but step %q has dependencies", s.StepID)
			}
		}
	}

	// Cycle check via DFS coloring.
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(p.Steps))
	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case gray:
			return fmt.Errorf("plan: dependency cycle detected at step %q", id)
		case black:
			return nil
		}
		color[id] = gray
		for _, dep := range byID[id].DependsOn {
			if _, ok := byID[dep]; !ok {
				return fmt.Errorf("plan: step %q depends on unknown step %q", id, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}
	for _, s := range p.Steps {
		if err := visit(s.StepID); err != nil {
			return err
		}
	}
	return nil
}

// NewPlanID mints a plan_id matching the grammar plan_[0-9]+_[0-9a-f]+.
func NewPlanID() string {
	return fmt.Sprintf("plan_%d_%s", uuidTimeComponent(), uuid.NewString()[:8])
}

// uuidTimeComponent returns a random numeric component for the plan id (the
// 32-bit ID of a fresh random UUID, not ordered by time) without touching wall-clock time directly in packages that may be
// invoked from deterministic workflow code; callers executing inside a
// workflow should instead derive this from engine.WorkflowContext.Now().
var uuidTimeComponent = func() int64 {
	return int64(uuid.New().ID())
}
