package hooks

import (
	"github.com/anushka192001/Sales-dev-assistant/agent/convstore"
	"github.com/anushka192001/Sales-dev-assistant/agent/plan"
)

// EventType discriminates concrete Event implementations in the
// client-facing event set.
type EventType string

const (
	Connected           EventType = "connected"
	TitleUpdateTriggered EventType = "title_update_triggered"
	PlanReview          EventType = "plan_review"
	Progress            EventType = "progress"
	Result              EventType = "result"
	Done                EventType = "done"
	Error               EventType = "error"
)

// Event is the interface every hook event implements. Subscribers type-switch
// on the concrete type to read event-specific fields.
type Event interface {
	Type() EventType
	SessionID() string
}

type baseEvent struct {
	sessionID string
}

func (e baseEvent) SessionID() string { return e.sessionID }

// ConnectedEvent fires once a turn's workflow starts, before any LLM call.
type ConnectedEvent struct {
	baseEvent
	Model string
}

func (e *ConnectedEvent) Type() EventType { return Connected }

// NewConnectedEvent constructs a ConnectedEvent.
func NewConnectedEvent(sessionID, model string) *ConnectedEvent {
	return &ConnectedEvent{baseEvent: baseEvent{sessionID: sessionID}, Model: model}
}

// TitleUpdateTriggeredEvent fires after the title generator (agent/titlegen)
// has returned a non-empty title on a turn whose TurnInput.NeedsTitle is
// set; Title carries that title.
type TitleUpdateTriggeredEvent struct {
	baseEvent
	Title string
}

func (e *TitleUpdateTriggeredEvent) Type() EventType { return TitleUpdateTriggered }

// NewTitleUpdateTriggeredEvent constructs a TitleUpdateTriggeredEvent.
func NewTitleUpdateTriggeredEvent(sessionID, title string) *TitleUpdateTriggeredEvent {
	return &TitleUpdateTriggeredEvent{baseEvent: baseEvent{sessionID: sessionID}, Title: title}
}

// PlanReviewEvent fires when the review_plan node suspends a turn awaiting an
// APPROVE_PLAN/EDIT_PLAN resume command.
type PlanReviewEvent struct {
	baseEvent
	Plan    plan.Plan
	PlanID  string
	Message string
}

func (e *PlanReviewEvent) Type() EventType { return PlanReview }

// NewPlanReviewEvent constructs a PlanReviewEvent.
func NewPlanReviewEvent(sessionID string, p plan.Plan, message string) *PlanReviewEvent {
	return &PlanReviewEvent{baseEvent: baseEvent{sessionID: sessionID}, Plan: p, PlanID: p.PlanID, Message: message}
}

// StepProgress is the per-step payload carried by a ProgressEvent.
type StepProgress struct {
	StepID        string `json:"step_id"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	ResultSummary string `json:"result_summary,omitempty"`
}

// ProgressEvent fires once per completed or skipped step during execute_step.
type ProgressEvent struct {
	baseEvent
	Node     string
	Progress StepProgress
}

func (e *ProgressEvent) Type() EventType { return Progress }

// NewProgressEvent constructs a ProgressEvent.
func NewProgressEvent(sessionID, node string, p StepProgress) *ProgressEvent {
	return &ProgressEvent{baseEvent: baseEvent{sessionID: sessionID}, Node: node, Progress: p}
}

// ResultEvent carries the final aggregated result for a turn.
type ResultEvent struct {
	baseEvent
	ResultType       string
	ExecutionType    plan.ExecutionType
	Message          string
	Data             map[string]any
	SuggestedActions []string
	ToolOutputs      []convstore.ToolOutput
}

func (e *ResultEvent) Type() EventType { return Result }

// NewResultEvent constructs a ResultEvent.
func NewResultEvent(sessionID, resultType string, execType plan.ExecutionType, message string, data map[string]any, suggestedActions []string, toolOutputs []convstore.ToolOutput) *ResultEvent {
	return &ResultEvent{
		baseEvent:        baseEvent{sessionID: sessionID},
		ResultType:       resultType,
		ExecutionType:    execType,
		Message:          message,
		Data:             data,
		SuggestedActions: suggestedActions,
		ToolOutputs:      toolOutputs,
	}
}

// DoneEvent fires once a turn's workflow run completes, success or failure.
type DoneEvent struct {
	baseEvent
}

func (e *DoneEvent) Type() EventType { return Done }

// NewDoneEvent constructs a DoneEvent.
func NewDoneEvent(sessionID string) *DoneEvent {
	return &DoneEvent{baseEvent: baseEvent{sessionID: sessionID}}
}

// ErrorEvent fires when a turn terminates with an unrecoverable error.
type ErrorEvent struct {
	baseEvent
	Err     string
	Message string
}

func (e *ErrorEvent) Type() EventType { return Error }

// NewErrorEvent constructs an ErrorEvent.
func NewErrorEvent(sessionID, err, message string) *ErrorEvent {
	return &ErrorEvent{baseEvent: baseEvent{sessionID: sessionID}, Err: err, Message: message}
}
