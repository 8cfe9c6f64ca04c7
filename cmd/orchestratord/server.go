package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/anushka192001/Sales-dev-assistant/agent/engine"
	"github.com/anushka192001/Sales-dev-assistant/agent/hooks"
	"github.com/anushka192001/Sales-dev-assistant/agent/interrupt"
	"github.com/anushka192001/Sales-dev-assistant/agent/stream"
	"github.com/anushka192001/Sales-dev-assistant/agent/telemetry"
	"github.com/anushka192001/Sales-dev-assistant/agent/workflow"
)

// server exposes the two HTTP operations a front door needs against one
// turn's workflow execution: submitting a message (streaming lifecycle
// events back over SSE) and resuming a paused review_plan interrupt. The
// actual client-facing surface (auth, routing, multi-tenant concerns) is
// out of scope; this is the minimal wiring that exercises every piece
// built underneath it end to end.
type server struct {
	eng   engine.Engine
	bus   hooks.Bus
	log   telemetry.Logger
	queue string

	mu      sync.Mutex
	handles map[string]engine.WorkflowHandle
}

func newServer(eng engine.Engine, bus hooks.Bus, log telemetry.Logger, queue string) *server {
	return &server{eng: eng, bus: bus, log: log, queue: queue, handles: make(map[string]engine.WorkflowHandle)}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/{session_id}/turns", s.handleTurn)
	mux.HandleFunc("POST /sessions/{session_id}/resume", s.handleResume)
	return mux
}

type turnRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
	Model   string `json:"model"`
}

// handleTurn starts (or continues) one turn's workflow execution and
// streams its lifecycle events back over SSE until the turn's "done" event
// fires.
func (s *server) handleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request body: %v", err), http.StatusBadRequest)
		return
	}

	sink := newSSESink(w)
	sub := stream.NewSubscriber(sink)
	// The bus is shared across every in-flight turn, so filter to this
	// request's session before handing events to the stream bridge.
	filtered := hooks.SubscriberFunc(func(ctx context.Context, event hooks.Event) error {
		if event.SessionID() != sessionID {
			return nil
		}
		return sub.HandleEvent(ctx, event)
	})
	subscription, err := s.bus.Register(filtered)
	if err != nil {
		http.Error(w, "failed to subscribe to turn events", http.StatusInternalServerError)
		return
	}
	defer subscription.Close()

	sink.writeHeader()

	needsTitle := req.Message != "" // a real front door would track this per-session instead
	handle, err := s.eng.StartWorkflow(r.Context(), engine.WorkflowStartRequest{
		ID:        sessionID,
		Workflow:  "orchestrator.turn",
		TaskQueue: s.queue,
		Input: workflow.TurnInput{
			UserID:     req.UserID,
			SessionID:  sessionID,
			Message:    req.Message,
			Model:      req.Model,
			NeedsTitle: needsTitle,
		},
	})
	if err != nil {
		s.log.Error(r.Context(), "orchestratord: start workflow failed", "session_id", sessionID, "error", err)
		return
	}

	s.mu.Lock()
	s.handles[sessionID] = handle
	s.mu.Unlock()

	var result workflow.TurnResult
	if err := handle.Wait(r.Context(), &result); err != nil {
		s.log.Error(r.Context(), "orchestratord: turn failed", "session_id", sessionID, "error", err)
	}
}

type resumeRequest struct {
	Command string `json:"command"` // "APPROVE_PLAN:<plan_id>" or "EDIT_PLAN:<plan_id>:<json>"
}

// handleResume delivers a review_plan resume command to an in-flight turn
// suspended at the review_plan interrupt.
func (s *server) handleResume(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	s.mu.Lock()
	handle, ok := s.handles[sessionID]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "no in-flight turn for session", http.StatusNotFound)
		return
	}

	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request body: %v", err), http.StatusBadRequest)
		return
	}
	if _, err := interrupt.ParseResume(req.Command); err != nil {
		http.Error(w, fmt.Sprintf("malformed resume command: %v", err), http.StatusBadRequest)
		return
	}

	if err := handle.Signal(r.Context(), interrupt.SignalResumePlan, req.Command); err != nil {
		http.Error(w, fmt.Sprintf("failed to signal resume: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// sseSink implements stream.Sink over a single HTTP response, writing one
// "event: <type>\ndata: <json>\n\n" frame per event (no library needed: the SSE wire
// format is three lines of plain text, stdlib net/http's Flusher is
// sufficient and nothing in the retrieval pack carries a dedicated SSE
// library).
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSESink(w http.ResponseWriter) *sseSink {
	flusher, _ := w.(http.Flusher)
	return &sseSink{w: w, flusher: flusher}
}

func (s *sseSink) writeHeader() {
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.w.WriteHeader(http.StatusOK)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func (s *sseSink) Send(_ context.Context, event stream.Event) error {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Type(), payload); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *sseSink) Close(context.Context) error { return nil }
