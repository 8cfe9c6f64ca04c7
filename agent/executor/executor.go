// Package executor implements the Step Executor: given a plan and the set
// of already-completed steps, it identifies
// the ready set, prepares each step's arguments by injecting dependency
// results, invokes the registered tool, and records a ToolOutput plus a
// bridging message for every wave it runs.
package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/anushka192001/Sales-dev-assistant/agent/argvalidate"
	"github.com/anushka192001/Sales-dev-assistant/agent/assembler"
	"github.com/anushka192001/Sales-dev-assistant/agent/convstore"
	"github.com/anushka192001/Sales-dev-assistant/agent/ctxbuild"
	"github.com/anushka192001/Sales-dev-assistant/agent/model"
	"github.com/anushka192001/Sales-dev-assistant/agent/plan"
	"github.com/anushka192001/Sales-dev-assistant/agent/telemetry"
	"github.com/anushka192001/Sales-dev-assistant/agent/toolerrors"
	"github.com/anushka192001/Sales-dev-assistant/agent/tools"
)

// maxDefaultCadenceNameLen bounds the synthesized cadence name default_args_for
// derives from a raw user message.
const maxDefaultCadenceNameLen = 60

// DefaultArgsFor implements default_args_for(tool, user_message, context):
// when the Missing-Tool Analyzer (agent/missingtool) decides tool should
// have been called but wasn't, this synthesizes a best-effort argument map
// for it, preferring values already on record in context over anything
// that would require a new search. It follows the same per-tool shape as
// injectDependencyResult below, since both are "fill in a tool's arguments
// from data this turn already has" rules — injectDependencyResult from a
// sibling step's result, this one from the session's durable summary.
func DefaultArgsFor(toolName tools.Ident, userMessage string, summary ctxbuild.SummaryData) map[string]any {
	switch toolName {
	case tools.CreateCadence:
		return map[string]any{
			"name":        defaultCadenceName(userMessage),
			"description": userMessage,
		}
	case tools.AddContactsToCadence:
		args := map[string]any{}
		if summary.CadenceID != "" {
			args["cadence_id"] = summary.CadenceID
		}
		if len(summary.ContactIDs) > 0 {
			args["recipients_ids"] = summary.ContactIDs
		}
		return args
	case tools.GenerateEmail:
		args := map[string]any{"purpose": userMessage}
		if len(summary.ContactCompanyNames) > 0 {
			args["company_name"] = summary.ContactCompanyNames[0]
		}
		return args
	default:
		return map[string]any{}
	}
}

func defaultCadenceName(userMessage string) string {
	trimmed := strings.TrimSpace(userMessage)
	if trimmed == "" {
		return "New Cadence"
	}
	if len(trimmed) > maxDefaultCadenceNameLen {
		trimmed = trimmed[:maxDefaultCadenceNameLen]
	}
	return trimmed
}

// StepResult is one step's recorded outcome, keyed by step_id in the
// caller's WorkflowState.step_results map.
type StepResult struct {
	Status      string         `json:"status"` // "completed" | "failed"
	Result      map[string]any `json:"result"`
	Error       string         `json:"error,omitempty"`
	Description string         `json:"description"`
}

// Failed reports whether this result represents a failed step, the signal
// dependents check before running to decide dependency-failed.
func (r StepResult) Failed() bool { return r.Status == "failed" }

// Executor runs one tick of ready steps.
type Executor struct {
	registry  *tools.Registry
	validator *argvalidate.Validator
	log       telemetry.Logger
}

// New constructs an Executor.
func New(registry *tools.Registry, validator *argvalidate.Validator, log telemetry.Logger) *Executor {
	if log == nil {
		log = telemetry.NoopLogger{}
	}
	return &Executor{registry: registry, validator: validator, log: log}
}

// TickResult is the outcome of one execute_ready call.
type TickResult struct {
	NewCompleted   []string
	StepResults    map[string]StepResult
	NewToolOutputs []convstore.ToolOutput
	NewMessages    []model.Message
	// SkippedSteps maps step_id to the skip_reason assigned this tick by
	// empty-result pruning, so the caller can thread it back into the plan.
	SkippedSteps map[string]string
}

// ReadySteps returns the steps in p that are not yet completed and whose
// every dependency is in completed. A step
// with a non-empty SkipReason is ready immediately regardless of
// dependencies having results, since it will be synthesized rather than
// executed.
func ReadySteps(p plan.Plan, completed map[string]struct{}) []plan.Step {
	var ready []plan.Step
	for _, step := range p.Steps {
		if _, done := completed[step.StepID]; done {
			continue
		}
		if step.SkipReason != "" {
			ready = append(ready, step)
			continue
		}
		allDepsMet := true
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				allDepsMet = false
				break
			}
		}
		if allDepsMet {
			ready = append(ready, step)
		}
	}
	return ready
}

// ExecuteReady runs every currently ready step in p concurrently as one
// wave, fanning out and joining before appending a single bridging message.
// completed and stepResults are the caller's
// running state as of the start of the tick; ExecuteReady does not mutate
// them — it returns the delta.
func (e *Executor) ExecuteReady(ctx context.Context, p plan.Plan, completed map[string]struct{}, stepResults map[string]StepResult, sessionID string) (TickResult, error) {
	ready := ReadySteps(p, completed)
	result := TickResult{
		StepResults:  make(map[string]StepResult, len(ready)),
		SkippedSteps: make(map[string]string),
	}
	if len(ready) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, step := range ready {
		step := step
		g.Go(func() error {
			res, output, msg := e.executeStep(gctx, step, stepResults, sessionID, p.PlanID)

			mu.Lock()
			defer mu.Unlock()
			result.NewCompleted = append(result.NewCompleted, step.StepID)
			result.StepResults[step.StepID] = res
			if output != nil {
				result.NewToolOutputs = append(result.NewToolOutputs, *output)
			}
			if msg != nil {
				result.NewMessages = append(result.NewMessages, *msg)
			}
			return nil
		})
	}
	// Errors from individual steps are captured in StepResult, not
	// propagated — a step's failure never aborts the wave. errgroup is used
	// purely for the fan-out/fan-in join, so g.Wait()'s error is always nil
	// here.
	_ = g.Wait()

	// Merge this wave's results into a combined view so pruning can see
	// results produced in the same wave (e.g. two independent searches).
	combined := make(map[string]StepResult, len(stepResults)+len(result.StepResults))
	for k, v := range stepResults {
		combined[k] = v
	}
	for k, v := range result.StepResults {
		combined[k] = v
	}

	applyEmptyResultPruning(p, completed, result, combined)

	if len(result.NewMessages) > 0 || len(result.NewToolOutputs) > 0 {
		result.NewMessages = append(result.NewMessages, model.Message{
			Role:    model.RoleAssistant,
			Content: assembler.BridgingMessageContent,
		})
	}

	// Deterministic ordering for reproducible tests.
	sort.Slice(result.NewToolOutputs, func(i, j int) bool {
		return result.NewToolOutputs[i].StepID < result.NewToolOutputs[j].StepID
	})

	return result, nil
}

func (e *Executor) executeStep(ctx context.Context, step plan.Step, priorResults map[string]StepResult, sessionID, planID string) (StepResult, *convstore.ToolOutput, *model.Message) {
	if step.SkipReason != "" {
		res := StepResult{Status: "completed", Result: map[string]any{"skipped": true, "reason": step.SkipReason}, Description: step.SkipReason}
		return res, nil, nil
	}

	args := make(map[string]any, len(step.ToolArgs))
	for k, v := range step.ToolArgs {
		args[k] = v
	}

	if step.UsePreviousResults {
		for _, dep := range step.DependsOn {
			depResult, ok := priorResults[dep]
			if !ok {
				continue
			}
			if depResult.Failed() {
				return e.failStep(step, toolerrors.New(toolerrors.KindDependencyFailed, fmt.Sprintf("dependency step %s failed", dep)))
			}
			injectDependencyResult(tools.Ident(step.ToolName), args, depResult.Result)
		}
		if tools.Ident(step.ToolName) == tools.AddContactsToCadence {
			if !hasDigitStringSlice(args["recipients_ids"]) {
				args["recipients_ids"] = scanForContactIDs(priorResults)
			}
		}
	}

	validated, err := e.validator.Validate(tools.Ident(step.ToolName), args)
	if err != nil {
		return e.failStep(step, toolerrors.Wrap(toolerrors.KindInvalidArguments, err))
	}
	if tools.Ident(step.ToolName) == tools.AddContactsToCadence && !hasDigitStringSlice(validated.Args["recipients_ids"]) {
		return e.failStep(step, toolerrors.New(toolerrors.KindInvalidArguments, "add_contacts_to_cadence: recipients_ids is empty after dependency and context scan"))
	}

	spec, ok := e.registry.Lookup(tools.Ident(step.ToolName))
	if !ok {
		return e.failStep(step, toolerrors.Newf(toolerrors.KindInvalidArguments, "unregistered tool %q", step.ToolName))
	}

	result, err := spec.Impl(ctx, validated.Args)
	if err != nil {
		return e.failStep(step, toolerrors.Wrap(toolerrors.KindProviderError, err))
	}

	output := convstore.ToolOutput{
		ToolCallID:  step.ToolCallID,
		ToolName:    step.ToolName,
		StepID:      step.StepID,
		PlanID:      planID,
		Result:      result,
		Description: step.Description,
	}
	stepRes := StepResult{Status: "completed", Result: result, Description: step.Description}
	msg := &model.Message{Role: model.RoleTool, ToolCallID: step.ToolCallID, Content: fmt.Sprintf("%s completed: %s", step.ToolName, step.Description)}
	return stepRes, &output, msg
}

func (e *Executor) failStep(step plan.Step, toolErr *toolerrors.ToolError) (StepResult, *convstore.ToolOutput, *model.Message) {
	e.log.Warn(context.Background(), "executor: step failed", "step_id", step.StepID, "tool", step.ToolName, "kind", toolErr.Kind, "error", toolErr.Message)
	result := map[string]any{"error": toolErr.Message, "status": "failed"}
	stepRes := StepResult{Status: "failed", Result: result, Error: toolErr.Message, Description: step.Description}
	output := convstore.ToolOutput{
		ToolCallID:  step.ToolCallID,
		ToolName:    step.ToolName,
		StepID:      step.StepID,
		Result:      result,
		Description: step.Description,
	}
	msg := &model.Message{Role: model.RoleTool, ToolCallID: step.ToolCallID, Content: fmt.Sprintf("%s failed: %s", step.ToolName, toolErr.Message)}
	return stepRes, &output, msg
}

// injectDependencyResult applies the per-tool injection rules for one
// dependency's result.
func injectDependencyResult(toolName tools.Ident, args map[string]any, depResult map[string]any) {
	switch toolName {
	case tools.SearchLeads:
		if companies, ok := depResult["companies"].([]any); ok {
			args["companyIds"] = extractIDs(companies)
		}
	case tools.SearchCompanies:
		if contacts, ok := depResult["contacts"].([]any); ok {
			args["companyName"] = uniqueStrings(extractField(contacts, "company_name"))
		}
	case tools.CreateCadence:
		body, hasBody := depResult["body"]
		subject, hasSubject := depResult["subject"]
		if hasBody || hasSubject {
			args["template_details"] = map[string]any{"body": body, "subject": subject}
		}
		if contacts, ok := depResult["contacts"].([]any); ok {
			args["recipients_ids"] = extractIDs(contacts)
		}
	case tools.AddContactsToCadence:
		if id, ok := depResult["cadence_id"]; ok {
			args["cadence_id"] = id
		}
		if name, ok := depResult["cadence_name"]; ok {
			args["name"] = name
		}
		if contacts, ok := depResult["contacts"].([]any); ok {
			existing, _ := args["recipients_ids"].([]string)
			args["recipients_ids"] = uniqueStrings(append(existing, extractIDs(contacts)...))
		}
	}
}

func extractIDs(items []any) []string {
	return extractField(items, "id")
}

func extractField(items []any, field string) []string {
	var out []string
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := m[field].(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func hasDigitStringSlice(v any) bool {
	ids, ok := v.([]string)
	if !ok || len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if id == "" || !isAllDigits(id) {
			return false
		}
	}
	return true
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// scanForContactIDs scans step_results of the current plan for the first
// result containing a contacts field and uses those ids.
func scanForContactIDs(stepResults map[string]StepResult) []string {
	ids := make([]string, 0)
	keys := make([]string, 0, len(stepResults))
	for k := range stepResults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		res := stepResults[k]
		contacts, ok := res.Result["contacts"].([]any)
		if !ok || len(contacts) == 0 {
			continue
		}
		ids = extractIDs(contacts)
		break
	}
	return ids
}

// applyEmptyResultPruning: a zero-result search_leads or search_companies
// step causes any
// non-completed *independent* sibling of the other search type to receive
// a skip_reason. Dependent searches are left alone.
func applyEmptyResultPruning(p plan.Plan, completed map[string]struct{}, tick TickResult, combined map[string]StepResult) {
	emptyLeads, emptyCompanies := false, false
	for _, step := range p.Steps {
		res, ok := tick.StepResults[step.StepID]
		if !ok || res.Failed() {
			continue
		}
		switch tools.Ident(step.ToolName) {
		case tools.SearchLeads:
			if contacts, ok := res.Result["contacts"].([]any); ok && len(contacts) == 0 {
				emptyLeads = true
			}
		case tools.SearchCompanies:
			if companies, ok := res.Result["companies"].([]any); ok && len(companies) == 0 {
				emptyCompanies = true
			}
		}
	}

	if !emptyLeads && !emptyCompanies {
		return
	}

	for i := range p.Steps {
		step := &p.Steps[i]
		if _, done := completed[step.StepID]; done {
			continue
		}
		if _, doneThisTick := tick.StepResults[step.StepID]; doneThisTick {
			continue
		}
		if len(step.DependsOn) > 0 {
			continue // dependent searches are not skipped
		}
		switch {
		case emptyLeads && tools.Ident(step.ToolName) == tools.SearchCompanies:
			tick.SkippedSteps[step.StepID] = "no contacts found"
		case emptyCompanies && tools.Ident(step.ToolName) == tools.SearchLeads:
			tick.SkippedSteps[step.StepID] = "no companies found"
		}
	}
}
