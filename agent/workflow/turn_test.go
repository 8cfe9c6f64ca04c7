package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anushka192001/Sales-dev-assistant/agent/convstore"
	"github.com/anushka192001/Sales-dev-assistant/agent/engine"
	"github.com/anushka192001/Sales-dev-assistant/agent/engine/inmem"
	"github.com/anushka192001/Sales-dev-assistant/agent/executor"
	"github.com/anushka192001/Sales-dev-assistant/agent/hooks"
	"github.com/anushka192001/Sales-dev-assistant/agent/interrupt"
	"github.com/anushka192001/Sales-dev-assistant/agent/model"
	"github.com/anushka192001/Sales-dev-assistant/agent/plan"
)

// recorder captures every event published during a test run, safe for
// concurrent publish (the workflow runs on its own goroutine in inmem).
type recorder struct {
	mu     sync.Mutex
	events []hooks.Event
}

func (r *recorder) HandleEvent(_ context.Context, event hooks.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) snapshot() []hooks.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]hooks.Event, len(r.events))
	copy(out, r.events)
	return out
}

func newTestEngine(t *testing.T, bus hooks.Bus, activities map[string]engine.ActivityFunc) engine.Engine {
	t.Helper()
	eng := inmem.New()
	require.NoError(t, eng.RegisterWorkflow(context.Background(), engine.WorkflowDefinition{
		Name:    "orchestrator.turn",
		Handler: NewWorkflow(bus),
	}))
	for name, fn := range activities {
		require.NoError(t, eng.RegisterActivity(context.Background(), engine.ActivityDefinition{Name: name, Handler: fn}))
	}
	return eng
}

// noSessionCheckpointLoad simulates a brand-new session: Load always returns
// ErrSessionNotFound, which run() treats as an empty history, not an error.
func noSessionCheckpointLoad(context.Context, any) (any, error) {
	return convstore.Session{}, convstore.ErrSessionNotFound
}

func noopCheckpointSave(context.Context, any) (any, error) {
	return nil, nil
}

// TestRunTextResponseScenario covers the direct-answer path: the agent
// answers with no tool calls, and the turn ends with a text_response.
func TestRunTextResponseScenario(t *testing.T) {
	t.Parallel()

	bus := hooks.NewBus()
	rec := &recorder{}
	_, err := bus.Register(rec)
	require.NoError(t, err)

	activities := map[string]engine.ActivityFunc{
		ActivityCheckpointLoad: noSessionCheckpointLoad,
		ActivityCheckpointSave: noopCheckpointSave,
		ActivityAgentCall: func(context.Context, any) (any, error) {
			return model.ChatResponse{Message: model.Message{Role: model.RoleAssistant, Content: "Here are three leads I found."}}, nil
		},
	}
	eng := newTestEngine(t, bus, activities)

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:       "sess-1",
		Workflow: "orchestrator.turn",
		Input:    TurnInput{UserID: "u1", SessionID: "sess-1", Message: "find me some leads"},
	})
	require.NoError(t, err)

	var result TurnResult
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, handle.Wait(ctx, &result))

	assert.Equal(t, "text_response", result.Type)
	assert.Equal(t, "Here are three leads I found.", result.Message)

	events := rec.snapshot()
	require.NotEmpty(t, events)
	assert.Equal(t, hooks.Connected, events[0].Type())
	assert.Equal(t, hooks.Done, events[len(events)-1].Type())
}

// TestRunToolExecutionScenario covers a parallel two-search turn: the agent
// requests tool calls, a plan is built, a human approves it, and both steps execute to
// completion in a single tick (a parallel plan).
func TestRunToolExecutionScenario(t *testing.T) {
	t.Parallel()

	bus := hooks.NewBus()
	rec := &recorder{}
	_, err := bus.Register(rec)
	require.NoError(t, err)

	builtPlan := plan.Plan{
		PlanID:        "plan_1_deadbeef",
		ExecutionType: plan.ExecutionParallel,
		Steps: []plan.Step{
			{StepID: "step_0", ToolCallID: "call_0", ToolName: "search_leads", Description: "search for VP Sales leads"},
			{StepID: "step_1", ToolCallID: "call_1", ToolName: "search_companies", Description: "search for matching companies"},
		},
	}

	activities := map[string]engine.ActivityFunc{
		ActivityCheckpointLoad: noSessionCheckpointLoad,
		ActivityCheckpointSave: noopCheckpointSave,
		ActivityAgentCall: func(context.Context, any) (any, error) {
			return model.ChatResponse{Message: model.Message{
				Role: model.RoleAssistant,
				ToolCalls: []model.ToolCall{
					{ID: "call_0", Name: "search_leads", Arguments: map[string]any{"job_titles": []any{"VP Sales"}}},
					{ID: "call_1", Name: "search_companies", Arguments: map[string]any{"industries": []any{"saas"}}},
				},
			}}, nil
		},
		ActivityPlanExecution: func(context.Context, any) (any, error) {
			return PlanExecutionResult{Plan: builtPlan}, nil
		},
		ActivityExecuteReady: func(context.Context, any) (any, error) {
			return executor.TickResult{
				NewCompleted: []string{"step_0", "step_1"},
				StepResults: map[string]executor.StepResult{
					"step_0": {Status: "completed", Result: map[string]any{"leads": []any{"jane@acme.com"}}, Description: "found 1 lead"},
					"step_1": {Status: "completed", Result: map[string]any{"companies": []any{"acme"}}, Description: "found 1 company"},
				},
				NewToolOutputs: []convstore.ToolOutput{
					{ToolCallID: "call_0", ToolName: "search_leads", StepID: "step_0", Description: "found 1 lead"},
					{ToolCallID: "call_1", ToolName: "search_companies", StepID: "step_1", Description: "found 1 company"},
				},
			}, nil
		},
	}
	eng := newTestEngine(t, bus, activities)

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:       "sess-2",
		Workflow: "orchestrator.turn",
		Input:    TurnInput{UserID: "u1", SessionID: "sess-2", Message: "find leads and companies for our campaign"},
	})
	require.NoError(t, err)

	// The review_plan signal channel is buffered, so the approval can be sent
	// immediately without waiting for the workflow to reach that node.
	require.NoError(t, handle.Signal(context.Background(), interrupt.SignalResumePlan, "APPROVE_PLAN:plan_1_deadbeef"))

	var result TurnResult
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, handle.Wait(ctx, &result))

	assert.Equal(t, "tool_response", result.Type)
	assert.Equal(t, plan.ExecutionParallel, result.ExecutionType)
	assert.Equal(t, "Completed 2 step(s) successfully.", result.Message)
	require.Len(t, result.ToolOutputs, 2)

	events := rec.snapshot()
	var sawPlanReview bool
	var progressCount int
	for _, e := range events {
		switch e.Type() {
		case hooks.PlanReview:
			sawPlanReview = true
		case hooks.Progress:
			progressCount++
		}
	}
	assert.True(t, sawPlanReview)
	assert.Equal(t, 2, progressCount)
}

// TestRunCheckpointLoadFailureReturnsGracefulTextResponse covers a
// checkpoint backend error other than ErrSessionNotFound: the turn must not
// crash the workflow, it reports a recoverable text_response instead.
func TestRunCheckpointLoadFailureReturnsGracefulTextResponse(t *testing.T) {
	t.Parallel()

	bus := hooks.NewBus()
	activities := map[string]engine.ActivityFunc{
		ActivityCheckpointLoad: func(context.Context, any) (any, error) {
			return convstore.Session{}, assertAnError
		},
		ActivityCheckpointSave: noopCheckpointSave,
	}
	eng := newTestEngine(t, bus, activities)

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:       "sess-3",
		Workflow: "orchestrator.turn",
		Input:    TurnInput{UserID: "u1", SessionID: "sess-3", Message: "hello"},
	})
	require.NoError(t, err)

	var result TurnResult
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, handle.Wait(ctx, &result))

	assert.Equal(t, "text_response", result.Type)
	assert.Contains(t, result.Message, "couldn't load")
}

// TestRunTitleGenerationOnFirstTurn covers the supplemented title-generation
// feature: a first turn with NeedsTitle publishes a title_update_triggered
// event with the generated title.
func TestRunTitleGenerationOnFirstTurn(t *testing.T) {
	t.Parallel()

	bus := hooks.NewBus()
	rec := &recorder{}
	_, err := bus.Register(rec)
	require.NoError(t, err)

	activities := map[string]engine.ActivityFunc{
		ActivityCheckpointLoad: noSessionCheckpointLoad,
		ActivityCheckpointSave: noopCheckpointSave,
		ActivityTitleGenerate: func(context.Context, any) (any, error) {
			return "Prospecting VP Sales leads", nil
		},
		ActivityAgentCall: func(context.Context, any) (any, error) {
			return model.ChatResponse{Message: model.Message{Role: model.RoleAssistant, Content: "sure, let's get started"}}, nil
		},
	}
	eng := newTestEngine(t, bus, activities)

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:       "sess-4",
		Workflow: "orchestrator.turn",
		Input:    TurnInput{UserID: "u1", SessionID: "sess-4", Message: "find VP Sales leads", NeedsTitle: true},
	})
	require.NoError(t, err)

	var result TurnResult
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, handle.Wait(ctx, &result))

	events := rec.snapshot()
	var titleEvent *hooks.TitleUpdateTriggeredEvent
	for _, e := range events {
		if te, ok := e.(*hooks.TitleUpdateTriggeredEvent); ok {
			titleEvent = te
		}
	}
	require.NotNil(t, titleEvent)
	assert.Equal(t, "Prospecting VP Sales leads", titleEvent.Title)
}

type stringError string

func (e stringError) Error() string { return string(e) }

const assertAnError = stringError("boom")
