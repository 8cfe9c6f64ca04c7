// Package engine defines the workflow engine abstractions the orchestrator's
// state machine (agent/workflow) runs on top of. It provides a pluggable
// interface so the C7 Workflow Engine can target Temporal or an in-memory
// backend for tests without the state-machine code changing.
package engine

import (
	"context"
	"time"

	"github.com/anushka192001/Sales-dev-assistant/agent/telemetry"
)

type (
	// Engine abstracts workflow registration and execution so adapters
	// (Temporal, in-memory) can be swapped without touching the turn state
	// machine.
	Engine interface {
		// RegisterWorkflow registers a workflow definition with the engine.
		// Called once during service startup before any worker runs.
		RegisterWorkflow(ctx context.Context, def WorkflowDefinition) error

		// RegisterActivity registers an activity definition with the engine.
		// Called once during service startup before any worker runs.
		RegisterActivity(ctx context.Context, def ActivityDefinition) error

		// StartWorkflow initiates a new workflow execution and returns a
		// handle for interacting with it. req.ID must be unique for the
		// engine instance.
		StartWorkflow(ctx context.Context, req WorkflowStartRequest) (WorkflowHandle, error)
	}

	// WorkflowDefinition binds a workflow handler to a logical name and
	// default queue.
	WorkflowDefinition struct {
		// Name is the logical identifier registered with the engine, e.g.
		// "OrchestratorTurn".
		Name string
		// TaskQueue is the default queue new workflow executions start on.
		TaskQueue string
		// Handler is the workflow function invoked when the workflow runs.
		Handler WorkflowFunc
	}

	// WorkflowFunc is the turn state machine's entry point. It receives a
	// WorkflowContext and its typed input, returning a result or error. The
	// function must be deterministic: given the same inputs and activity
	// results it must produce the same execution sequence, since the
	// Temporal backend relies on replay.
	WorkflowFunc func(ctx WorkflowContext, input any) (any, error)

	// WorkflowContext exposes engine operations to the turn state machine
	// within a workflow execution's deterministic environment. It wraps
	// engine-specific contexts (Temporal workflow.Context, the in-memory
	// engine's own context) behind one API for activity execution, signal
	// handling, and observability.
	//
	// Direct I/O, random number generation, or system clock access inside a
	// workflow function violates replay determinism; use Now() and route all
	// outbound calls (LLM, tools, store) through ExecuteActivity.
	WorkflowContext interface {
		// Context returns the Go context for the workflow. Use this only for
		// cancellation propagation into ExecuteActivity calls, never for
		// direct I/O from workflow code.
		Context() context.Context

		// WorkflowID returns this execution's unique identifier — for the
		// orchestrator, the thread id (plan_id or session_id).
		WorkflowID() string

		// RunID returns the engine-assigned run identifier.
		RunID() string

		// ExecuteActivity schedules an activity and blocks for its result,
		// decoding it into result.
		ExecuteActivity(ctx context.Context, req ActivityRequest, result any) error

		// ExecuteActivityAsync schedules an activity without blocking,
		// returning a Future. Used to fan out a ready wave of steps
		// concurrently.
		ExecuteActivityAsync(ctx context.Context, req ActivityRequest) (Future, error)

		// SignalChannel returns the channel for the named signal — the
		// review_plan interrupt receives APPROVE_PLAN/EDIT_PLAN resumes this
		// way.
		SignalChannel(name string) SignalChannel

		// Logger returns a logger scoped to this workflow execution.
		Logger() telemetry.Logger
		// Metrics returns a metrics recorder scoped to this workflow execution.
		Metrics() telemetry.Metrics
		// Tracer returns a tracer for spans within this workflow execution.
		Tracer() telemetry.Tracer

		// Now returns the current time in a replay-safe, deterministic way.
		Now() time.Time
	}

	// Future represents a pending activity result. ExecuteActivityAsync
	// returns one per scheduled activity so a ready wave's steps can be
	// joined with Get after they are all in flight.
	Future interface {
		// Get blocks until the activity completes and decodes its result
		// into result. Safe to call more than once; returns the same
		// result/error each time.
		Get(ctx context.Context, result any) error
		// IsReady reports whether Get will return without blocking.
		IsReady() bool
	}

	// ActivityDefinition registers an activity handler with optional
	// defaults. Activities are the only place in the orchestrator allowed to
	// perform I/O (LLM calls, tool calls, store reads/writes).
	ActivityDefinition struct {
		Name    string
		Handler ActivityFunc
		Options ActivityOptions
	}

	// ActivityFunc handles one activity invocation. Unlike workflow
	// functions, activities may perform side effects freely.
	ActivityFunc func(ctx context.Context, input any) (any, error)

	// ActivityOptions configures retry/timeout behavior for an activity.
	ActivityOptions struct {
		Queue       string
		RetryPolicy RetryPolicy
		// Timeout is stored with the registration; neither bundled engine
		// reads it. The engines apply ActivityRequest.Timeout per call.
		Timeout time.Duration
	}

	// WorkflowStartRequest describes how to launch a workflow execution.
	WorkflowStartRequest struct {
		// ID is the workflow identifier — the orchestrator's thread id.
		ID               string
		Workflow         string
		TaskQueue        string
		Input            any
		Memo             map[string]any
		SearchAttributes map[string]any
		RetryPolicy      RetryPolicy
	}

	// ActivityRequest contains what's needed to schedule one activity call.
	ActivityRequest struct {
		Name        string
		Input       any
		Queue       string
		RetryPolicy RetryPolicy
		Timeout     time.Duration
	}

	// WorkflowHandle lets callers interact with a running workflow.
	WorkflowHandle interface {
		// Wait blocks until the workflow completes, decoding its result.
		Wait(ctx context.Context, result any) error
		// Signal sends an asynchronous message to the workflow — the
		// caller-facing side of review_plan's resume.
		Signal(ctx context.Context, name string, payload any) error
		// Cancel requests cancellation of the workflow.
		Cancel(ctx context.Context) error
	}

	// RetryPolicy defines retry semantics shared by workflows and
	// activities. Zero-valued fields mean "use the engine's default."
	RetryPolicy struct {
		MaxAttempts        int
		InitialInterval    time.Duration
		BackoffCoefficient float64
	}

	// SignalChannel exposes workflow signal delivery in an engine-agnostic
	// way, wrapping Temporal signal channels or the in-memory engine's
	// native Go channels behind one blocking/non-blocking receive API.
	SignalChannel interface {
		// Receive blocks until a signal is delivered and decodes it into dest.
		Receive(ctx context.Context, dest any) error
		// ReceiveAsync attempts a non-blocking receive, reporting whether a
		// value was written into dest.
		ReceiveAsync(dest any) bool
	}
)
