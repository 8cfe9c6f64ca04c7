package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anushka192001/Sales-dev-assistant/agent/argvalidate"
	"github.com/anushka192001/Sales-dev-assistant/agent/ctxbuild"
	"github.com/anushka192001/Sales-dev-assistant/agent/plan"
	"github.com/anushka192001/Sales-dev-assistant/agent/tools"
)

func newRegistry(t *testing.T, impls map[tools.Ident]tools.Func) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	for name, impl := range impls {
		require.NoError(t, reg.Register(tools.Spec{Name: name, Impl: impl}))
	}
	return reg
}

func TestDefaultArgsForCreateCadence(t *testing.T) {
	t.Parallel()

	args := DefaultArgsFor(tools.CreateCadence, "launch a campaign for VP Sales leads", ctxbuild.SummaryData{})

	assert.Equal(t, "launch a campaign for VP Sales leads", args["name"])
	assert.Equal(t, "launch a campaign for VP Sales leads", args["description"])
}

func TestDefaultArgsForCreateCadenceTruncatesLongNames(t *testing.T) {
	t.Parallel()

	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	args := DefaultArgsFor(tools.CreateCadence, long, ctxbuild.SummaryData{})

	name, ok := args["name"].(string)
	require.True(t, ok)
	assert.LessOrEqual(t, len(name), maxDefaultCadenceNameLen)
}

func TestDefaultArgsForCreateCadenceDefaultsOnEmptyMessage(t *testing.T) {
	t.Parallel()

	args := DefaultArgsFor(tools.CreateCadence, "   ", ctxbuild.SummaryData{})
	assert.Equal(t, "New Cadence", args["name"])
}

func TestDefaultArgsForAddContactsToCadenceUsesSummary(t *testing.T) {
	t.Parallel()

	summary := ctxbuild.SummaryData{CadenceID: "cad_1", ContactIDs: []string{"1", "2"}}
	args := DefaultArgsFor(tools.AddContactsToCadence, "add these contacts", summary)

	assert.Equal(t, "cad_1", args["cadence_id"])
	assert.Equal(t, []string{"1", "2"}, args["recipients_ids"])
}

func TestDefaultArgsForAddContactsToCadenceOmitsMissingSummaryFields(t *testing.T) {
	t.Parallel()

	args := DefaultArgsFor(tools.AddContactsToCadence, "add these contacts", ctxbuild.SummaryData{})
	_, hasCadence := args["cadence_id"]
	_, hasContacts := args["recipients_ids"]
	assert.False(t, hasCadence)
	assert.False(t, hasContacts)
}

func TestDefaultArgsForGenerateEmailUsesFirstCompanyName(t *testing.T) {
	t.Parallel()

	summary := ctxbuild.SummaryData{ContactCompanyNames: []string{"Acme", "Globex"}}
	args := DefaultArgsFor(tools.GenerateEmail, "draft an intro email", summary)

	assert.Equal(t, "draft an intro email", args["purpose"])
	assert.Equal(t, "Acme", args["company_name"])
}

func TestDefaultArgsForUnknownToolReturnsEmptyMap(t *testing.T) {
	t.Parallel()

	args := DefaultArgsFor(tools.SearchLeads, "find leads", ctxbuild.SummaryData{})
	assert.Empty(t, args)
}

func TestExecuteReadyInjectsDependencyResultBeforeExecution(t *testing.T) {
	t.Parallel()

	var gotArgs map[string]any
	reg := newRegistry(t, map[tools.Ident]tools.Func{
		tools.CreateCadence: func(_ context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"cadence_id": "cad_1"}, nil
		},
		tools.AddContactsToCadence: func(_ context.Context, args map[string]any) (map[string]any, error) {
			gotArgs = args
			return map[string]any{"status": "ok"}, nil
		},
	})
	validator := argvalidate.New(nil)
	exec := New(reg, validator, nil)

	p := plan.Plan{
		PlanID: "plan_1",
		Steps: []plan.Step{
			{StepID: "step_0", ToolCallID: "call_0", ToolName: string(tools.CreateCadence), ToolArgs: map[string]any{"name": "Outreach"}},
			{
				StepID: "step_1", ToolCallID: "call_1", ToolName: string(tools.AddContactsToCadence),
				DependsOn: []string{"step_0"}, UsePreviousResults: true,
				ToolArgs: map[string]any{"recipients_ids": []string{"1"}},
			},
		},
	}

	completed := map[string]struct{}{}
	stepResults := map[string]StepResult{}

	tick, err := exec.ExecuteReady(context.Background(), p, completed, stepResults, "session_1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"step_0"}, tick.NewCompleted)

	completed["step_0"] = struct{}{}
	stepResults["step_0"] = tick.StepResults["step_0"]

	tick2, err := exec.ExecuteReady(context.Background(), p, completed, stepResults, "session_1")
	require.NoError(t, err)
	require.Contains(t, tick2.NewCompleted, "step_1")
	require.Equal(t, "cad_1", gotArgs["cadence_id"])
}

func TestExecuteReadyRecordsToolFailureWithoutError(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, map[tools.Ident]tools.Func{
		tools.SearchLeads: func(_ context.Context, args map[string]any) (map[string]any, error) {
			return nil, assert.AnError
		},
	})
	validator := argvalidate.New(nil)
	exec := New(reg, validator, nil)

	p := plan.Plan{
		PlanID: "plan_1",
		Steps: []plan.Step{
			{StepID: "step_0", ToolCallID: "call_0", ToolName: string(tools.SearchLeads)},
		},
	}

	tick, err := exec.ExecuteReady(context.Background(), p, map[string]struct{}{}, map[string]StepResult{}, "session_1")
	require.NoError(t, err)
	require.True(t, tick.StepResults["step_0"].Failed())
	assert.NotEmpty(t, tick.StepResults["step_0"].Error)
}

func TestApplyEmptyResultPruningSkipsIndependentOtherSearch(t *testing.T) {
	t.Parallel()

	p := plan.Plan{
		Steps: []plan.Step{
			{StepID: "step_0", ToolName: string(tools.SearchLeads)},
			{StepID: "step_1", ToolName: string(tools.SearchCompanies)},
		},
	}
	completed := map[string]struct{}{}
	tick := TickResult{
		StepResults:  map[string]StepResult{"step_0": {Status: "completed", Result: map[string]any{"contacts": []any{}}}},
		SkippedSteps: map[string]string{},
	}
	combined := map[string]StepResult{"step_0": tick.StepResults["step_0"]}

	applyEmptyResultPruning(p, completed, tick, combined)

	assert.Equal(t, "no contacts found", tick.SkippedSteps["step_1"])
}

func TestApplyEmptyResultPruningLeavesDependentStepsAlone(t *testing.T) {
	t.Parallel()

	p := plan.Plan{
		Steps: []plan.Step{
			{StepID: "step_0", ToolName: string(tools.SearchLeads)},
			{StepID: "step_1", ToolName: string(tools.SearchCompanies), DependsOn: []string{"step_0"}},
		},
	}
	completed := map[string]struct{}{}
	tick := TickResult{
		StepResults:  map[string]StepResult{"step_0": {Status: "completed", Result: map[string]any{"contacts": []any{}}}},
		SkippedSteps: map[string]string{},
	}
	combined := map[string]StepResult{"step_0": tick.StepResults["step_0"]}

	applyEmptyResultPruning(p, completed, tick, combined)

	assert.Empty(t, tick.SkippedSteps)
}

func TestReadyStepsSkipsCompletedAndWaitsOnDependencies(t *testing.T) {
	t.Parallel()

	p := plan.Plan{
		Steps: []plan.Step{
			{StepID: "step_0", ToolName: string(tools.SearchLeads)},
			{StepID: "step_1", ToolName: string(tools.CreateCadence), DependsOn: []string{"step_0"}},
		},
	}

	ready := ReadySteps(p, map[string]struct{}{})
	require.Len(t, ready, 1)
	assert.Equal(t, "step_0", ready[0].StepID)

	ready = ReadySteps(p, map[string]struct{}{"step_0": {}})
	require.Len(t, ready, 1)
	assert.Equal(t, "step_1", ready[0].StepID)
}
