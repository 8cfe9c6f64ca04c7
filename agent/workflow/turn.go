// Package workflow implements the turn state machine: the directed graph
// over WorkflowState with nodes {agent, plan_execution, review_plan,
// execute_step, check_completion, respond}. It is written as a single
// engine.WorkflowFunc so either the in-memory or Temporal engine.Engine can
// drive it unmodified.
package workflow

import (
	"errors"
	"fmt"

	"github.com/anushka192001/Sales-dev-assistant/agent/assembler"
	"github.com/anushka192001/Sales-dev-assistant/agent/convstore"
	"github.com/anushka192001/Sales-dev-assistant/agent/ctxbuild"
	"github.com/anushka192001/Sales-dev-assistant/agent/engine"
	"github.com/anushka192001/Sales-dev-assistant/agent/executor"
	"github.com/anushka192001/Sales-dev-assistant/agent/hooks"
	"github.com/anushka192001/Sales-dev-assistant/agent/interrupt"
	"github.com/anushka192001/Sales-dev-assistant/agent/model"
	"github.com/anushka192001/Sales-dev-assistant/agent/plan"
	"github.com/anushka192001/Sales-dev-assistant/agent/tools"
)

// Activity names registered against engine.Engine. Every outbound call
// (LLM, argument/enum/dependency analysis chain, step execution, store I/O)
// is an activity so the workflow function itself stays deterministic and
// replay-safe.
const (
	ActivityAgentCall      = "orchestrator.agent_call"
	ActivityPlanExecution  = "orchestrator.plan_execution"
	ActivityExecuteReady   = "orchestrator.execute_ready"
	ActivityCheckpointLoad = "orchestrator.checkpoint_load"
	ActivityCheckpointSave = "orchestrator.checkpoint_save"
	ActivityTitleGenerate  = "orchestrator.title_generate"
)

// State is the per-thread state a turn's workflow carries across nodes.
type State struct {
	SessionID         string                        `json:"session_id"`
	Messages          []model.Message               `json:"messages"`
	ToolOutputs       []convstore.ToolOutput        `json:"tool_outputs"`
	StepResults       map[string]executor.StepResult `json:"step_results"`
	CompletedSteps    map[string]struct{}           `json:"completed_steps"`
	ExecutionPlan     *plan.Plan                    `json:"execution_plan,omitempty"`
	ExecutionProgress string                        `json:"execution_progress"`
	Model             string                        `json:"model"`
	PlanID            string                        `json:"plan_id,omitempty"`
	// ContextString is the Context Builder's markdown summary of prior tool
	// activity, computed once from the loaded checkpoint and prepended to
	// every agent call as the system prompt.
	ContextString string `json:"-"`
	// Summary is the same Context Builder pass's typed companion to
	// ContextString, threaded into plan_execution so the Missing-Tool
	// Analyzer and default_args_for can consult durable state (does a
	// cadence already exist? is there email content on record?) without a
	// second store round trip.
	Summary ctxbuild.SummaryData `json:"-"`
}

// TurnInput is the workflow's external input: either a fresh user message or
// a resume command delivered as the "new user message".
type TurnInput struct {
	UserID      string
	SessionID   string
	Message     string // empty on pure resume re-entry with nil inputs
	Model       string
	// NeedsTitle marks a session's first turn, the only point a title is
	// generated.
	NeedsTitle bool
}

// TurnResult is the final aggregated result for a turn.
type TurnResult struct {
	Type             string                  `json:"type"` // "tool_response" | "text_response"
	ExecutionType    plan.ExecutionType      `json:"execution_type,omitempty"`
	Message          string                  `json:"message"`
	Data             map[string]any          `json:"data,omitempty"`
	SuggestedActions []string                `json:"suggested_actions,omitempty"`
	ToolOutputs      []convstore.ToolOutput  `json:"tool_outputs,omitempty"`
}

// NewWorkflow builds the engine.WorkflowFunc for one turn, publishing
// lifecycle events to bus as the state machine advances. bus may be nil,
// in which case events are simply not published — useful for tests that
// only care about the returned TurnResult.
func NewWorkflow(bus hooks.Bus) engine.WorkflowFunc {
	if bus == nil {
		bus = hooks.NewBus()
	}
	return func(ctx engine.WorkflowContext, input any) (any, error) {
		return run(ctx, input, bus)
	}
}

// Run is the default engine.WorkflowFunc for one turn, with no event bus
// wired. Most callers should use NewWorkflow to get progress/result events.
func Run(ctx engine.WorkflowContext, input any) (any, error) {
	return run(ctx, input, hooks.NewBus())
}

// run is the turn state machine: input is a *TurnInput for a fresh turn, or
// nil for a resume re-entry, which re-enters the graph with null inputs so
// no agent call is made.
func run(ctx engine.WorkflowContext, input any, bus hooks.Bus) (any, error) {
	var in *TurnInput
	switch v := input.(type) {
	case *TurnInput:
		in = v
	case TurnInput:
		in = &v
	}

	state := State{
		StepResults:    make(map[string]executor.StepResult),
		CompletedSteps: make(map[string]struct{}),
	}

	// loadedMessages/loadedToolOutputs mark the boundary between durable
	// history already in the conversation store and what this turn adds, so
	// the eventual checkpoint save only ships the delta (Save is itself
	// merge-based, but there is no reason to resend history).
	var loadedMessages, loadedToolOutputs int
	var title string

	if in != nil {
		state.SessionID = in.SessionID
		state.Model = in.Model

		var sess convstore.Session
		err := ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{
			Name:  ActivityCheckpointLoad,
			Input: CheckpointLoadInput{UserID: in.UserID, SessionID: in.SessionID},
		}, &sess)
		if err != nil && !errors.Is(err, convstore.ErrSessionNotFound) {
			result := textResponse("I couldn't load your conversation history. Please try again.")
			publishTerminal(ctx, bus, in.SessionID, result)
			return result, nil
		}
		state.Messages = sess.Messages
		state.ToolOutputs = sess.ToolOutputs
		if state.Model == "" {
			state.Model = sess.Model
		}
		loadedMessages = len(state.Messages)
		loadedToolOutputs = len(state.ToolOutputs)
		built := ctxbuild.BuildFromSession(sess)
		state.ContextString = built.ContextString
		state.Summary = built.Summary

		_ = bus.Publish(ctx.Context(), hooks.NewConnectedEvent(in.SessionID, state.Model))
		if in.NeedsTitle && in.Message != "" {
			if err := ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{Name: ActivityTitleGenerate, Input: in.Message}, &title); err == nil && title != "" {
				_ = bus.Publish(ctx.Context(), hooks.NewTitleUpdateTriggeredEvent(in.SessionID, title))
			} else {
				title = ""
			}
		}
	}

	finish := func(result TurnResult) (any, error) {
		if in != nil {
			newMessages := append([]model.Message{}, state.Messages[min(loadedMessages, len(state.Messages)):]...)
			newOutputs := append([]convstore.ToolOutput{}, state.ToolOutputs[min(loadedToolOutputs, len(state.ToolOutputs)):]...)
			saveErr := ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{
				Name: ActivityCheckpointSave,
				Input: CheckpointSaveInput{
					UserID:         in.UserID,
					SessionID:      state.SessionID,
					NewMessages:    newMessages,
					NewToolOutputs: newOutputs,
					Title:          title,
				},
			}, nil)
			if saveErr != nil {
				_ = bus.Publish(ctx.Context(), hooks.NewErrorEvent(state.SessionID, saveErr.Error(), "Failed to persist conversation"))
			}
		}
		publishTerminal(ctx, bus, state.SessionID, result)
		return result, nil
	}

	node := "agent"
	if in == nil {
		// Resume re-entry: the checkpoint already has a plan and we skip the
		// LLM call entirely.
		node = "review_plan"
	}

	for {
		switch node {
		case "agent":
			resp, err := callAgent(ctx, &state, in)
			if err != nil {
				return finish(textResponse("I hit an error reaching the assistant. Please try again."))
			}
			if len(resp.Message.ToolCalls) == 0 {
				state.Messages = append(state.Messages, resp.Message)
				node = "respond"
				continue
			}
			state.Messages = append(state.Messages, resp.Message)
			node = "plan_execution"

		case "plan_execution":
			if err := runPlanExecution(ctx, &state); err != nil {
				return finish(textResponse(fmt.Sprintf("Planning failed: %v", err)))
			}
			node = "review_plan"

		case "review_plan":
			_ = bus.Publish(ctx.Context(), hooks.NewPlanReviewEvent(state.SessionID, *state.ExecutionPlan, "Review the proposed plan before execution continues."))
			if err := reviewPlan(ctx, &state); err != nil {
				_ = bus.Publish(ctx.Context(), hooks.NewErrorEvent(state.SessionID, err.Error(), "Plan review failed"))
				_, _ = finish(textResponse(fmt.Sprintf("Plan review failed: %v", err)))
				return nil, err
			}
			node = "execute_step"

		case "execute_step":
			done, err := runExecuteStep(ctx, &state, bus)
			if err != nil {
				_ = bus.Publish(ctx.Context(), hooks.NewErrorEvent(state.SessionID, err.Error(), "Step execution failed"))
				_, _ = finish(textResponse(fmt.Sprintf("Step execution failed: %v", err)))
				return nil, err
			}
			if !done {
				continue // self-loop while more steps are ready
			}
			node = "check_completion"

		case "check_completion":
			node = "respond"

		case "respond":
			return finish(buildFinalResult(&state))
		}
	}
}

// publishTerminal emits the result+done pair every exit path from run must
// send: a turn always ends in a "result" event followed by "done".
func publishTerminal(ctx engine.WorkflowContext, bus hooks.Bus, sessionID string, result TurnResult) {
	_ = bus.Publish(ctx.Context(), hooks.NewResultEvent(sessionID, result.Type, result.ExecutionType, result.Message, result.Data, result.SuggestedActions, result.ToolOutputs))
	_ = bus.Publish(ctx.Context(), hooks.NewDoneEvent(sessionID))
}

// callAgent invokes the agent LLM call activity with the assembled message
// list, normalizing the response to {role, content, tool_calls}.
func callAgent(ctx engine.WorkflowContext, state *State, in *TurnInput) (model.ChatResponse, error) {
	if in != nil && in.Message != "" {
		state.Messages = append(state.Messages, model.Message{Role: model.RoleUser, Content: in.Message})
	}
	var resp model.ChatResponse
	err := ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{
		Name:  ActivityAgentCall,
		Input: assembler.Assemble(state.ContextString, state.Messages, state.ToolOutputs),
	}, &resp)
	if err != nil {
		return model.ChatResponse{}, err
	}
	resp.Message = model.Message{Role: model.RoleAssistant, Content: resp.Message.Content, ToolCalls: resp.Message.ToolCalls}
	return resp, nil
}

// runPlanExecution invokes the detect/validate/resolve/analyze/build
// activity chain and stores the resulting plan on state.
func runPlanExecution(ctx engine.WorkflowContext, state *State) error {
	var built PlanExecutionResult
	existingID := ""
	if state.ExecutionPlan != nil {
		existingID = state.ExecutionPlan.PlanID
	}
	err := ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{
		Name: ActivityPlanExecution,
		Input: PlanExecutionInput{
			SessionID:      state.SessionID,
			Messages:       state.Messages,
			ExistingPlanID: existingID,
			Summary:        state.Summary,
		},
	}, &built)
	if err != nil {
		return err
	}
	state.ExecutionPlan = &built.Plan
	state.PlanID = built.Plan.PlanID
	if built.SystemNote != "" {
		state.Messages = append(state.Messages, model.Message{Role: model.RoleSystem, Content: built.SystemNote})
	}
	return nil
}

// PlanExecutionInput is the activity payload for the plan-execution chain.
type PlanExecutionInput struct {
	SessionID      string
	Messages       []model.Message
	ExistingPlanID string
	Summary        ctxbuild.SummaryData
}

// PlanExecutionResult is the plan-execution chain's output: the built plan,
// plus an optional system-role note describing any tool call the
// Missing-Tool Analyzer synthesized this turn (check_missing's contract
// requires the synthesis to be visible to the LLM on the next call, not
// just silently present in the plan).
type PlanExecutionResult struct {
	Plan       plan.Plan
	SystemNote string
}

// CheckpointLoadInput is the activity payload for ActivityCheckpointLoad.
type CheckpointLoadInput struct {
	UserID    string
	SessionID string
}

// CheckpointSaveInput is the activity payload for ActivityCheckpointSave.
type CheckpointSaveInput struct {
	UserID         string
	SessionID      string
	NewMessages    []model.Message
	NewToolOutputs []convstore.ToolOutput
	Title          string
}

// reviewPlan is the static interrupt: it suspends until a resume signal
// arrives. run publishes the plan_review event just before calling it.
func reviewPlan(ctx engine.WorkflowContext, state *State) error {
	if state.ExecutionPlan == nil {
		return fmt.Errorf("workflow: review_plan entered with no execution plan")
	}

	ctrl := interrupt.NewController(ctx)
	resume, err := ctrl.WaitResume(ctx.Context())
	if err != nil {
		return err
	}

	if resume.PlanID != state.ExecutionPlan.PlanID {
		return fmt.Errorf("workflow: resume plan_id %q does not match checkpointed plan %q", resume.PlanID, state.ExecutionPlan.PlanID)
	}

	switch resume.Kind {
	case interrupt.KindEdit:
		if resume.EditedPlan == nil {
			return fmt.Errorf("workflow: edit resume carried no plan")
		}
		if err := resume.EditedPlan.Validate(); err != nil {
			return err
		}
		// Whole-plan atomic replacement; the checkpointed plan_id is kept
		// whatever plan_id the edited payload carries.
		resume.EditedPlan.PlanID = state.ExecutionPlan.PlanID
		state.ExecutionPlan = resume.EditedPlan
	case interrupt.KindApprove:
		// proceed as-is
	}
	return nil
}

// runExecuteStep delegates one ready wave to the Step Executor, publishes a
// progress event per step that finished this wave, and reports whether the
// plan is now fully complete.
func runExecuteStep(ctx engine.WorkflowContext, state *State, bus hooks.Bus) (bool, error) {
	var tick executor.TickResult
	err := ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{
		Name: ActivityExecuteReady,
		Input: ExecuteTickInput{
			Plan:           *state.ExecutionPlan,
			CompletedSteps: state.CompletedSteps,
			StepResults:    state.StepResults,
			SessionID:      state.SessionID,
		},
	}, &tick)
	if err != nil {
		return false, err
	}

	descByStep := make(map[string]string, len(state.ExecutionPlan.Steps))
	for _, s := range state.ExecutionPlan.Steps {
		descByStep[s.StepID] = s.Description
	}

	for _, id := range tick.NewCompleted {
		state.CompletedSteps[id] = struct{}{}
	}
	for id, res := range tick.StepResults {
		state.StepResults[id] = res
	}
	for _, stepID := range tick.NewCompleted {
		res := tick.StepResults[stepID]
		_ = bus.Publish(ctx.Context(), hooks.NewProgressEvent(state.SessionID, "execute_step", hooks.StepProgress{
			StepID:        stepID,
			Description:   descByStep[stepID],
			Status:        res.Status,
			Message:       res.Error,
			ResultSummary: res.Description,
		}))
	}
	state.ToolOutputs = append(state.ToolOutputs, tick.NewToolOutputs...)
	state.Messages = append(state.Messages, tick.NewMessages...)

	for stepID, reason := range tick.SkippedSteps {
		for i := range state.ExecutionPlan.Steps {
			if state.ExecutionPlan.Steps[i].StepID == stepID {
				state.ExecutionPlan.Steps[i].SkipReason = reason
			}
		}
	}

	for _, step := range state.ExecutionPlan.Steps {
		if _, done := state.CompletedSteps[step.StepID]; !done {
			return false, nil
		}
	}
	return true, nil
}

type ExecuteTickInput struct {
	Plan           plan.Plan
	CompletedSteps map[string]struct{}
	StepResults    map[string]executor.StepResult
	SessionID      string
}

// buildFinalResult assembles the turn's final result shape.
func buildFinalResult(state *State) TurnResult {
	if state.ExecutionPlan == nil {
		lastText := ""
		for i := len(state.Messages) - 1; i >= 0; i-- {
			if state.Messages[i].Role == model.RoleAssistant {
				lastText = state.Messages[i].Content
				break
			}
		}
		return textResponse(lastText)
	}

	data := make(map[string]any, len(state.StepResults))
	for stepID, res := range state.StepResults {
		data[stepID] = res.Result
	}

	return TurnResult{
		Type:             "tool_response",
		ExecutionType:    state.ExecutionPlan.ExecutionType,
		Message:          summarizeOutcome(state),
		Data:             data,
		SuggestedActions: suggestActions(state.ExecutionPlan.Steps),
		ToolOutputs:      state.ToolOutputs,
	}
}

// suggestActions proposes follow-up actions based on which tools ran this
// turn, mirroring original_source/agent.py's _suggest_user_action: each
// tool that appears in the plan contributes its own fixed suggestion list,
// deduplicated and returned in a stable order (set().union in the original
// has no defined order; here the order is fixed: tools in the order they
// are checked below, each tool's suggestions in list order, first
// occurrence kept).
func suggestActions(steps []plan.Step) []string {
	ran := make(map[tools.Ident]bool, len(steps))
	for _, s := range steps {
		ran[tools.Ident(s.ToolName)] = true
	}

	seen := map[string]struct{}{}
	var out []string
	add := func(suggestions ...string) {
		for _, s := range suggestions {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	if ran[tools.SearchLeads] {
		add(
			"Add these contacts to a new list",
			"Start an outreach campaign for these contacts",
			"Generate personalized emails for these contacts",
			"Create a cadence for follow-up outreach",
		)
	}
	if ran[tools.SearchCompanies] {
		add(
			"Find contacts at these companies",
			"Search for decision makers at these companies",
			"Generate company-specific outreach emails",
		)
	}
	if ran[tools.GenerateEmail] {
		add(
			"Create a cadence using this email template",
			"Search for more contacts to send this email to",
			"Generate variations of this email",
		)
	}
	if ran[tools.CreateCadence] {
		add(
			"Add more contacts to this cadence",
			"Monitor cadence performance",
			"Create similar cadences for other segments",
		)
	}
	if ran[tools.AddContactsToCadence] {
		add(
			"Review and activate the cadence",
			"Add more contacts to this cadence",
			"Monitor outreach performance",
		)
	}
	return out
}

func summarizeOutcome(state *State) string {
	completed, failed := 0, 0
	for _, res := range state.StepResults {
		if res.Failed() {
			failed++
		} else {
			completed++
		}
	}
	if failed == 0 {
		return fmt.Sprintf("Completed %d step(s) successfully.", completed)
	}
	return fmt.Sprintf("Completed %d step(s), %d failed.", completed, failed)
}

func textResponse(text string) TurnResult {
	return TurnResult{Type: "text_response", Message: text}
}
