// Package interrupt provides the review_plan static interrupt: the
// Workflow Engine node that pauses a turn for human approval or edit of an
// ExecutionPlan, and the signal plumbing a caller uses to resume it.
package interrupt

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/anushka192001/Sales-dev-assistant/agent/engine"
	"github.com/anushka192001/Sales-dev-assistant/agent/plan"
)

// SignalResumePlan is the workflow signal name carrying the resume command
// for a paused review_plan node.
const SignalResumePlan = "orchestrator.resume_plan"

// planIDPattern matches the plan_id grammar: plan_[0-9]+_[0-9a-f]+.
var planIDPattern = regexp.MustCompile(`^plan_[0-9]+_[0-9a-f]+$`)

// ErrMalformedResume is returned when a resume command does not match either
// recognized grammar.
var ErrMalformedResume = errors.New("interrupt: malformed resume command")

// Kind distinguishes the two resume commands.
type Kind string

const (
	KindApprove Kind = "approve"
	KindEdit    Kind = "edit"
)

// Resume is a parsed resume command.
type Resume struct {
	Kind       Kind
	PlanID     string
	EditedPlan *plan.Plan // set only when Kind == KindEdit
}

// ParseResume parses a raw user message of the form
// "APPROVE_PLAN:<plan_id>" or "EDIT_PLAN:<plan_id>:<json-object>".
// Returns ErrMalformedResume for anything else, including a well-formed
// prefix with an invalid plan_id or unparsable JSON body.
func ParseResume(raw string) (Resume, error) {
	switch {
	case strings.HasPrefix(raw, "APPROVE_PLAN:"):
		planID := strings.TrimPrefix(raw, "APPROVE_PLAN:")
		if !planIDPattern.MatchString(planID) {
			return Resume{}, fmt.Errorf("%w: invalid plan_id %q", ErrMalformedResume, planID)
		}
		return Resume{Kind: KindApprove, PlanID: planID}, nil

	case strings.HasPrefix(raw, "EDIT_PLAN:"):
		rest := strings.TrimPrefix(raw, "EDIT_PLAN:")
		planID, jsonBody, found := strings.Cut(rest, ":")
		if !found || !planIDPattern.MatchString(planID) {
			return Resume{}, fmt.Errorf("%w: invalid plan_id in edit command", ErrMalformedResume)
		}
		edited, err := plan.DecodePlan([]byte(jsonBody))
		if err != nil {
			return Resume{}, fmt.Errorf("%w: %v", ErrMalformedResume, err)
		}
		return Resume{Kind: KindEdit, PlanID: planID, EditedPlan: &edited}, nil

	default:
		return Resume{}, ErrMalformedResume
	}
}

// IsResumeCommand reports whether raw is a resume command, matching the
// Message Assembler's skip rule: these messages are never replayed into the
// LLM-facing sequence.
func IsResumeCommand(raw string) bool {
	return strings.HasPrefix(raw, "APPROVE_PLAN:") || strings.HasPrefix(raw, "EDIT_PLAN:")
}

// Controller drains the review_plan interrupt's resume signal for one
// workflow execution.
type Controller struct {
	resumeCh engine.SignalChannel
}

// NewController wires a Controller to the workflow context's resume signal
// channel.
func NewController(wfCtx engine.WorkflowContext) *Controller {
	return &Controller{resumeCh: wfCtx.SignalChannel(SignalResumePlan)}
}

// WaitResume blocks until a resume command is signaled, decoding and parsing
// it. This is the review_plan node's suspend point.
func (c *Controller) WaitResume(ctx context.Context) (Resume, error) {
	var raw string
	if err := c.resumeCh.Receive(ctx, &raw); err != nil {
		return Resume{}, err
	}
	return ParseResume(raw)
}

// PollResume attempts a non-blocking receive, used by callers that want to
// check for an already-delivered resume before suspending.
func (c *Controller) PollResume() (Resume, bool) {
	var raw string
	if !c.resumeCh.ReceiveAsync(&raw) {
		return Resume{}, false
	}
	resume, err := ParseResume(raw)
	if err != nil {
		return Resume{}, false
	}
	return resume, true
}
