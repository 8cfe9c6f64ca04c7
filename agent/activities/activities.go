// Package activities binds the engine.Engine activity names the turn state
// machine (agent/workflow) calls by name to their concrete implementations.
// Every side effect in the orchestrator (LLM calls, the argument-validation
// through plan-building chain, tool execution, store I/O) lives behind one
// of these methods so the workflow function itself stays pure and
// replay-safe.
package activities

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/anushka192001/Sales-dev-assistant/agent/argvalidate"
	"github.com/anushka192001/Sales-dev-assistant/agent/convstore"
	"github.com/anushka192001/Sales-dev-assistant/agent/depgraph"
	"github.com/anushka192001/Sales-dev-assistant/agent/enummap"
	"github.com/anushka192001/Sales-dev-assistant/agent/executor"
	"github.com/anushka192001/Sales-dev-assistant/agent/missingtool"
	"github.com/anushka192001/Sales-dev-assistant/agent/model"
	"github.com/anushka192001/Sales-dev-assistant/agent/plan"
	"github.com/anushka192001/Sales-dev-assistant/agent/telemetry"
	"github.com/anushka192001/Sales-dev-assistant/agent/titlegen"
	"github.com/anushka192001/Sales-dev-assistant/agent/tools"
	"github.com/anushka192001/Sales-dev-assistant/agent/workflow"
)

// Activities bundles the collaborators every activity method needs. It is
// registered with engine.Engine once per activity name at startup.
type Activities struct {
	Client       model.Client
	ModelName    string
	SystemPrompt string
	Registry     *tools.Registry
	Validator    *argvalidate.Validator
	EnumMapper   *enummap.Mapper
	Missing      *missingtool.Analyzer
	DepAnalyzer  *depgraph.Analyzer
	Executor     *executor.Executor
	TitleGen     *titlegen.Generator
	Store        convstore.Store
	Log          telemetry.Logger
}

// CheckpointLoad implements workflow.ActivityCheckpointLoad: loads durable
// session state ahead of a turn.
func (a *Activities) CheckpointLoad(ctx context.Context, input any) (any, error) {
	key, ok := input.(workflow.CheckpointLoadInput)
	if !ok {
		if p, ok := input.(*workflow.CheckpointLoadInput); ok {
			key = *p
		} else {
			return nil, fmt.Errorf("activities: CheckpointLoad got unexpected input type %T", input)
		}
	}
	return a.Store.Load(ctx, key.UserID, key.SessionID)
}

// CheckpointSave implements workflow.ActivityCheckpointSave: merges and
// persists the turn's durable state.
func (a *Activities) CheckpointSave(ctx context.Context, input any) (any, error) {
	in, ok := input.(workflow.CheckpointSaveInput)
	if !ok {
		if p, ok := input.(*workflow.CheckpointSaveInput); ok {
			in = *p
		} else {
			return nil, fmt.Errorf("activities: CheckpointSave got unexpected input type %T", input)
		}
	}
	return nil, a.Store.Save(ctx, in.UserID, in.SessionID, in.NewMessages, in.NewToolOutputs, in.Title)
}

// TitleGenerate implements workflow.ActivityTitleGenerate: a best-effort
// conversation-title suggestion derived from the turn's first message.
func (a *Activities) TitleGenerate(ctx context.Context, input any) (any, error) {
	firstMessage, _ := input.(string)
	if a.TitleGen == nil {
		return "", nil
	}
	return a.TitleGen.Generate(ctx, firstMessage), nil
}

// AgentCall implements workflow.ActivityAgentCall: one chat-completion call
// against the assembled message list.
func (a *Activities) AgentCall(ctx context.Context, input any) (any, error) {
	messages, ok := input.([]model.Message)
	if !ok {
		return nil, fmt.Errorf("activities: AgentCall expected []model.Message, got %T", input)
	}
	return a.Client.ChatCompletion(ctx, model.ChatRequest{
		Model:       a.ModelName,
		Temperature: 0,
		Messages:    messages,
		ToolSchemas: a.toolSchemas(),
	})
}

func (a *Activities) toolSchemas() []model.ToolSchema {
	names := a.Registry.Names()
	schemas := make([]model.ToolSchema, 0, len(names))
	for _, name := range names {
		spec, ok := a.Registry.Lookup(name)
		if !ok {
			continue
		}
		schemas = append(schemas, model.ToolSchema{Name: string(spec.Name), Description: spec.Description, Parameters: spec.Parameters})
	}
	return schemas
}

// PlanExecution implements workflow.ActivityPlanExecution, the pipeline that
// turns an assistant message's tool calls into an ExecutionPlan. It runs the
// Missing-Tool Analyzer on the assistant's raw tool calls first, then
// validates arguments and resolves enum vocabulary for every call,
// synthesized ones included, in a single pass, then analyzes dependencies
// and builds the plan. No validation pass runs before the missing-tool check.
func (a *Activities) PlanExecution(ctx context.Context, input any) (any, error) {
	in, ok := input.(workflow.PlanExecutionInput)
	if !ok {
		if p, ok := input.(*workflow.PlanExecutionInput); ok {
			in = *p
		} else {
			return nil, fmt.Errorf("activities: PlanExecution got unexpected input type %T", input)
		}
	}

	lastAssistant := lastAssistantMessage(in.Messages)
	lastUser := lastUserMessage(in.Messages)
	calls := append([]model.ToolCall{}, lastAssistant.ToolCalls...)

	// If the user's request or the assistant's reply implies a tool call
	// that wasn't made, synthesize one with a best-effort argument set and
	// surface the synthesis to the LLM via a system-role note next turn.
	var systemNote string
	if a.Missing != nil {
		missingResult := a.Missing.CheckMissing(ctx, in.SessionID, lastUser, lastAssistant.ToolCalls, in.Summary)
		if missingResult.HasMissing {
			var synthesized []string
			for _, toolID := range missingResult.MissingTools {
				calls = append(calls, model.ToolCall{
					ID:            "auto_" + uuid.NewString()[:8],
					Name:          string(toolID),
					Arguments:     executor.DefaultArgsFor(toolID, lastUser, in.Summary),
					AutoGenerated: true,
				})
				synthesized = append(synthesized, string(toolID))
			}
			if len(synthesized) > 0 {
				systemNote = fmt.Sprintf(
					"Note: the following tool call(s) were automatically added this turn because the request implied them but the assistant didn't call them: %s. Reason: %s",
					strings.Join(synthesized, ", "), missingResult.Reasoning,
				)
			}
		}
	}

	// Validate/rename arguments and resolve enum vocabulary before
	// dependency analysis sees them.
	descriptions := make([]string, len(calls))
	for i, call := range calls {
		result, err := a.Validator.Validate(tools.Ident(call.Name), call.Arguments)
		if err != nil {
			descriptions[i] = fmt.Sprintf("%s (argument error: %v)", call.Name, err)
			continue
		}
		calls[i].Arguments = a.resolveEnums(ctx, tools.Ident(call.Name), result.Args)
		descriptions[i] = call.Name
	}

	// Dependency analysis over the validated batch.
	depCalls := make([]depgraph.Call, len(calls))
	for i, call := range calls {
		depCalls[i] = depgraph.Call{Index: i, Tool: tools.Ident(call.Name), Args: call.Arguments}
	}
	deps := a.DepAnalyzer.Analyze(ctx, depCalls)

	// Build the immutable plan.
	inputs := make([]plan.ToolCallInput, len(calls))
	for i, call := range calls {
		var depStepIDs []string
		for _, depIdx := range deps[i] {
			depStepIDs = append(depStepIDs, fmt.Sprintf("step_%d", depIdx))
		}
		inputs[i] = plan.ToolCallInput{ToolCall: call, Description: descriptions[i], Dependencies: depStepIDs}
	}

	return workflow.PlanExecutionResult{
		Plan:       plan.Build(inputs, in.ExistingPlanID),
		SystemNote: systemNote,
	}, nil
}

// resolveEnums resolves every parameter the enum mapper recognizes for
// toolName to its canonical vocabulary, leaving everything else untouched.
func (a *Activities) resolveEnums(ctx context.Context, toolName tools.Ident, args map[string]any) map[string]any {
	if a.EnumMapper == nil {
		return args
	}
	categoryByParam := map[string]enummap.Category{
		"industries":       enummap.CategoryIndustry,
		"company_sizes":    enummap.CategorySize,
		"seniority":        enummap.CategorySeniority,
		"revenue_ranges":   enummap.CategoryRevenue,
		"funding_types":    enummap.CategoryFundingType,
		"hiring_areas":     enummap.CategoryHiringArea,
		"functional_level": enummap.CategoryFunctionalLevel,
		"company_types":    enummap.CategoryCompanyType,
		"locations":        enummap.CategoryCity,
	}
	for param, category := range categoryByParam {
		raw, ok := args[param]
		if !ok {
			continue
		}
		rawStrs := toStringSlice(raw)
		if rawStrs == nil {
			continue
		}
		var resolved []string
		for _, r := range rawStrs {
			resolved = append(resolved, a.EnumMapper.Resolve(ctx, category, r)...)
		}
		args[param] = dedupeStrings(resolved)
	}
	_ = toolName
	return args
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{vv}
	default:
		return nil
	}
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func lastAssistantMessage(messages []model.Message) model.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleAssistant {
			return messages[i]
		}
	}
	return model.Message{}
}

// lastUserMessage returns the most recent user-role message's content, the
// basis check_missing reasons over. A plan-resume command ("APPROVE_PLAN:",
// "EDIT_PLAN:") carries no new intent of its own, so it is skipped in favor
// of the business request that originally produced the plan being resumed.
func lastUserMessage(messages []model.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != model.RoleUser {
			continue
		}
		content := messages[i].Content
		if strings.HasPrefix(content, "APPROVE_PLAN:") || strings.HasPrefix(content, "EDIT_PLAN:") {
			continue
		}
		return content
	}
	return ""
}

// ExecuteReady implements workflow.ActivityExecuteReady: delegates directly
// to the Step Executor.
func (a *Activities) ExecuteReady(ctx context.Context, input any) (any, error) {
	in, ok := input.(workflow.ExecuteTickInput)
	if !ok {
		if p, ok := input.(*workflow.ExecuteTickInput); ok {
			in = *p
		} else {
			return nil, fmt.Errorf("activities: ExecuteReady got unexpected input type %T", input)
		}
	}
	return a.Executor.ExecuteReady(ctx, in.Plan, in.CompletedSteps, in.StepResults, in.SessionID)
}

// Names returns the activity-name -> handler map for engine.Engine
// registration.
func (a *Activities) Names() map[string]func(context.Context, any) (any, error) {
	return map[string]func(context.Context, any) (any, error){
		workflow.ActivityAgentCall:      a.AgentCall,
		workflow.ActivityPlanExecution:  a.PlanExecution,
		workflow.ActivityExecuteReady:   a.ExecuteReady,
		workflow.ActivityTitleGenerate:  a.TitleGenerate,
		workflow.ActivityCheckpointLoad: a.CheckpointLoad,
		workflow.ActivityCheckpointSave: a.CheckpointSave,
	}
}
