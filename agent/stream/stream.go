// Package stream delivers client-facing turn updates over a transport. It
// sits downstream of agent/hooks: a Subscriber
// bridges selected internal hook events into the wire-friendly Event types
// this package defines, filtering out anything not meant for clients.
package stream

import (
	"context"

	"github.com/anushka192001/Sales-dev-assistant/agent/convstore"
	"github.com/anushka192001/Sales-dev-assistant/agent/hooks"
	"github.com/anushka192001/Sales-dev-assistant/agent/plan"
)

// EventType discriminates concrete Event implementations.
type EventType string

const (
	EventConnected           EventType = "connected"
	EventTitleUpdateTriggered EventType = "title_update_triggered"
	EventPlanReview          EventType = "plan_review"
	EventProgress            EventType = "progress"
	EventResult              EventType = "result"
	EventDone                EventType = "done"
	EventError               EventType = "error"
)

// Sink delivers streaming updates to clients over a transport (SSE,
// WebSocket, message bus). Implementations must be safe for concurrent Send.
type Sink interface {
	// Send marshals and delivers event to the underlying transport.
	Send(ctx context.Context, event Event) error
	// Close releases transport resources. Idempotent.
	Close(ctx context.Context) error
}

// Event is the interface every wire event implements.
type Event interface {
	Type() EventType
	SessionID() string
	// Payload returns the event-specific data in a JSON-serializable form.
	Payload() any
}

// Base carries fields common to every wire event.
type Base struct {
	EventType EventType `json:"type"`
	Session   string    `json:"session_id"`
}

func (b Base) Type() EventType    { return b.EventType }
func (b Base) SessionID() string  { return b.Session }

// Connected is sent once a turn's workflow starts.
type Connected struct {
	Base
	Model string `json:"model"`
}

func (e *Connected) Payload() any { return struct {
	Model string `json:"model"`
}{Model: e.Model} }

// TitleUpdateTriggered signals a session's display title has been (re)computed.
type TitleUpdateTriggered struct {
	Base
	Title string `json:"title"`
}

func (e *TitleUpdateTriggered) Payload() any { return struct {
	Title string `json:"title"`
}{Title: e.Title} }

// PlanReview carries the plan a human must approve or edit before execution
// continues.
type PlanReview struct {
	Base
	Plan    plan.Plan `json:"plan"`
	PlanID  string    `json:"plan_id"`
	Message string    `json:"message"`
}

func (e *PlanReview) Payload() any { return struct {
	Plan    plan.Plan `json:"plan"`
	PlanID  string    `json:"plan_id"`
	Message string    `json:"message"`
}{Plan: e.Plan, PlanID: e.PlanID, Message: e.Message} }

// Progress carries one step's status update.
type Progress struct {
	Base
	Node     string             `json:"node"`
	Progress hooks.StepProgress `json:"progress"`
}

func (e *Progress) Payload() any { return struct {
	Node     string             `json:"node"`
	Progress hooks.StepProgress `json:"progress"`
}{Node: e.Node, Progress: e.Progress} }

// Result carries the final aggregated result for a turn.
type Result struct {
	Base
	ResultType       string                 `json:"type_"`
	ExecutionType    plan.ExecutionType     `json:"execution_type,omitempty"`
	Message          string                 `json:"message"`
	Data             map[string]any         `json:"data,omitempty"`
	SuggestedActions []string               `json:"suggested_actions,omitempty"`
	ToolOutputs      []convstore.ToolOutput `json:"tool_outputs,omitempty"`
}

func (e *Result) Payload() any { return e }

// Done is sent once a turn's workflow run completes.
type Done struct {
	Base
}

func (e *Done) Payload() any { return struct{}{} }

// Error is sent when a turn terminates with an unrecoverable error.
type Error struct {
	Base
	Err     string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Payload() any { return struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}{Err: e.Err, Message: e.Message} }

// Subscriber bridges internal hooks.Event values onto a Sink, translating
// the (larger, internal) hook vocabulary into the client-facing wire events
// above and dropping anything not in that set.
type Subscriber struct {
	sink Sink
}

// NewSubscriber wires a Subscriber that forwards to sink.
func NewSubscriber(sink Sink) *Subscriber {
	return &Subscriber{sink: sink}
}

// HandleEvent implements hooks.Subscriber.
func (s *Subscriber) HandleEvent(ctx context.Context, event hooks.Event) error {
	wire := translate(event)
	if wire == nil {
		return nil
	}
	return s.sink.Send(ctx, wire)
}

func translate(event hooks.Event) Event {
	switch e := event.(type) {
	case *hooks.ConnectedEvent:
		return &Connected{Base: Base{EventType: EventConnected, Session: e.SessionID()}, Model: e.Model}
	case *hooks.TitleUpdateTriggeredEvent:
		return &TitleUpdateTriggered{Base: Base{EventType: EventTitleUpdateTriggered, Session: e.SessionID()}, Title: e.Title}
	case *hooks.PlanReviewEvent:
		return &PlanReview{Base: Base{EventType: EventPlanReview, Session: e.SessionID()}, Plan: e.Plan, PlanID: e.PlanID, Message: e.Message}
	case *hooks.ProgressEvent:
		return &Progress{Base: Base{EventType: EventProgress, Session: e.SessionID()}, Node: e.Node, Progress: e.Progress}
	case *hooks.ResultEvent:
		return &Result{
			Base:             Base{EventType: EventResult, Session: e.SessionID()},
			ResultType:       e.ResultType,
			ExecutionType:    e.ExecutionType,
			Message:          e.Message,
			Data:             e.Data,
			SuggestedActions: e.SuggestedActions,
			ToolOutputs:      e.ToolOutputs,
		}
	case *hooks.DoneEvent:
		return &Done{Base: Base{EventType: EventDone, Session: e.SessionID()}}
	case *hooks.ErrorEvent:
		return &Error{Base: Base{EventType: EventError, Session: e.SessionID()}, Err: e.Err, Message: e.Message}
	default:
		return nil
	}
}
