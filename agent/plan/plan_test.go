package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anushka192001/Sales-dev-assistant/agent/model"
)

func TestBuildSequentialWhenStepsDependOnEachOther(t *testing.T) {
	t.Parallel()

	calls := []ToolCallInput{
		{ToolCall: model.ToolCall{ID: "call_0", Name: "search_leads"}, Description: "find leads"},
		{ToolCall: model.ToolCall{ID: "call_1", Name: "generate_email"}, Description: "draft email", Dependencies: []string{"step_0"}},
	}

	p := Build(calls, "")

	assert.NotEmpty(t, p.PlanID)
	assert.Equal(t, ExecutionSequential, p.ExecutionType)
	require.Len(t, p.Steps, 2)
	assert.Equal(t, "step_0", p.Steps[0].StepID)
	assert.False(t, p.Steps[0].UsePreviousResults)
	assert.Equal(t, "step_1", p.Steps[1].StepID)
	assert.Equal(t, []string{"step_0"}, p.Steps[1].DependsOn)
	assert.True(t, p.Steps[1].UsePreviousResults)
}

func TestBuildParallelWhenNoStepDependsOnAnother(t *testing.T) {
	t.Parallel()

	calls := []ToolCallInput{
		{ToolCall: model.ToolCall{ID: "call_0", Name: "search_leads"}},
		{ToolCall: model.ToolCall{ID: "call_1", Name: "search_companies"}},
	}

	p := Build(calls, "")

	assert.Equal(t, ExecutionParallel, p.ExecutionType)
}

func TestBuildReusesExistingPlanID(t *testing.T) {
	t.Parallel()

	p := Build(nil, "plan_123_abcdef01")

	assert.Equal(t, "plan_123_abcdef01", p.PlanID)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	p := Plan{
		PlanID:        "plan_1_deadbeef",
		ExecutionType: ExecutionSequential,
		Steps: []Step{
			{
				StepID:     "step_0",
				ToolCallID: "call_0",
				ToolName:   "search_leads",
				ToolArgs:   map[string]any{"keywords": "vp sales"},
				DependsOn:  nil,
				SkipReason: "",
			},
			{
				StepID:     "step_1",
				ToolCallID: "call_1",
				ToolName:   "generate_email",
				DependsOn:  []string{"step_0"},
				SkipReason: "duplicate of step_0",
			},
		},
	}

	data, err := Encode(p)
	require.NoError(t, err)

	decoded, err := DecodePlan(data)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestValidateRejectsDuplicateStepIDs(t *testing.T) {
	t.Parallel()

	p := Plan{Steps: []Step{{StepID: "step_0"}, {StepID: "step_0"}}}

	err := p.Validate()

	assert.ErrorContains(t, err, "duplicate step_id")
}

func TestValidateRejectsDependenciesOnParallelPlan(t *testing.T) {
	t.Parallel()

	p := Plan{
		ExecutionType: ExecutionParallel,
		Steps: []Step{
			{StepID: "step_0"},
			{StepID: "step_1", DependsOn: []string{"step_0"}},
		},
	}

	err := p.Validate()

	assert.ErrorContains(t, err, "execution_type=parallel")
}

func TestValidateRejectsUnknownDependency(t *testing.T) {
	t.Parallel()

	p := Plan{
		ExecutionType: ExecutionSequential,
		Steps:         []Step{{StepID: "step_0", DependsOn: []string{"step_missing"}}},
	}

	err := p.Validate()

	assert.ErrorContains(t, err, "unknown step")
}

func TestValidateDetectsCycle(t *testing.T) {
	t.Parallel()

	p := Plan{
		ExecutionType: ExecutionSequential,
		Steps: []Step{
			{StepID: "step_0", DependsOn: []string{"step_1"}},
			{StepID: "step_1", DependsOn: []string{"step_0"}},
		},
	}

	err := p.Validate()

	assert.ErrorContains(t, err, "dependency cycle")
}

func TestValidateAcceptsAcyclicSequentialPlan(t *testing.T) {
	t.Parallel()

	p := Plan{
		ExecutionType: ExecutionSequential,
		Steps: []Step{
			{StepID: "step_0"},
			{StepID: "step_1", DependsOn: []string{"step_0"}},
			{StepID: "step_2", DependsOn: []string{"step_0", "step_1"}},
		},
	}

	assert.NoError(t, p.Validate())
}

func TestNewPlanIDMatchesGrammar(t *testing.T) {
	t.Parallel()

	id := NewPlanID()

	assert.Regexp(t, `^plan_\d+_[0-9a-f]+$`, id)
}
