// Package toolerrors provides the structured error taxonomy used across the
// orchestrator. Every failure that can surface from a plan step, an LLM
// subcontractor call, or a resume command is represented as a *ToolError with
// a stable Kind so callers can branch on failure category without parsing
// free-form strings.
package toolerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a ToolError into one of the taxonomy buckets. See the
// orchestrator design notes for the authoritative list of kinds and their
// propagation policy.
type Kind string

const (
	// KindNetwork marks a transport failure calling the LLM or a tool.
	KindNetwork Kind = "network"
	// KindDecode marks malformed JSON returned by the LLM or a tool.
	KindDecode Kind = "decode"
	// KindProviderError marks a structured error field in an LLM/tool response.
	KindProviderError Kind = "provider-error"
	// KindInvalidArguments marks a step that failed argument validation before
	// any outbound call was made.
	KindInvalidArguments Kind = "invalid-arguments"
	// KindDependencyFailed marks a step that was aborted because a dependency
	// recorded status=failed.
	KindDependencyFailed Kind = "dependency-failed"
	// KindCycleDetected marks a dependency cycle that was automatically
	// repaired; never user-visible, logged only.
	KindCycleDetected Kind = "cycle-detected"
	// KindMissingPlan marks a resume command referencing an unknown plan_id.
	KindMissingPlan Kind = "missing-plan"
	// KindMissingCheckpoint marks a resume command whose checkpoint thread
	// could not be located.
	KindMissingCheckpoint Kind = "missing-checkpoint"
)

// ToolError is a structured failure that preserves a stable Kind, a
// human-readable Message, and an optional causal chain. It implements
// errors.Is/As via Unwrap so callers can test for a Kind or an underlying
// cause without string matching.
type ToolError struct {
	Kind    Kind
	Message string
	Cause   *ToolError
}

// New constructs a ToolError with the given kind and message.
func New(kind Kind, message string) *ToolError {
	if message == "" {
		message = string(kind)
	}
	return &ToolError{Kind: kind, Message: message}
}

// Newf formats a message according to a format specifier.
func Newf(kind Kind, format string, args ...any) *ToolError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap converts an arbitrary error into a ToolError chain, tagging the
// outermost link with kind. If err is already a *ToolError its existing Kind
// is preserved and kind is ignored.
func Wrap(kind Kind, err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{
		Kind:    kind,
		Message: err.Error(),
		Cause:   Wrap(kind, errors.Unwrap(err)),
	}
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause to support errors.Is/As.
func (e *ToolError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is a *ToolError with the same Kind, letting
// callers write errors.Is(err, toolerrors.New(toolerrors.KindDependencyFailed, "")).
func (e *ToolError) Is(target error) bool {
	te, ok := target.(*ToolError)
	if !ok || e == nil {
		return false
	}
	return e.Kind == te.Kind
}
