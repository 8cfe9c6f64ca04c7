// Package convstore implements the Conversation Store Adapter: the sole
// writer of a session's durable Messages and ToolOutputs. Concrete backends
// live in the mongo and sql subpackages; cache.go adds the per-session lazy
// cache.
package convstore

import (
	"context"
	"errors"
	"time"

	"github.com/anushka192001/Sales-dev-assistant/agent/model"
)

type (
	// ToolOutput is the durable record of one executed step.
	ToolOutput struct {
		ToolCallID  string         `json:"tool_call_id" bson:"tool_call_id"`
		ToolName    string         `json:"tool_name" bson:"tool_name"`
		StepID      string         `json:"step_id" bson:"step_id"`
		PlanID      string         `json:"plan_id" bson:"plan_id"`
		Result      map[string]any `json:"result" bson:"result"`
		Description string         `json:"description" bson:"description"`
	}

	// Session is a logical conversation scoped to a user.
	Session struct {
		SessionID    string          `json:"session_id" bson:"_id"`
		UserID       string          `json:"user_id" bson:"user_id"`
		Messages     []model.Message `json:"messages" bson:"messages"`
		ToolOutputs  []ToolOutput    `json:"tool_outputs" bson:"tool_outputs"`
		Title        string          `json:"title" bson:"title"`
		Model        string          `json:"model" bson:"model"`
		LastUpdated  time.Time       `json:"last_updated" bson:"last_updated"`
		MessageCount int             `json:"message_count" bson:"message_count"`
	}

	// Store is the durable persistence boundary for sessions. Implementations
	// must be the sole writer of a session's Messages/ToolOutputs: concurrent
	// Save calls for the same session_id must not interleave partial writes.
	Store interface {
		// Load returns the session, or ErrSessionNotFound if it does not
		// exist for the given user.
		Load(ctx context.Context, userID, sessionID string) (Session, error)
		// Save merges newMessages/newToolOutputs into the session's durable
		// history using the dedup reducer (Merge) and persists the result.
		// Creates the session if it does not yet exist.
		Save(ctx context.Context, userID, sessionID string, newMessages []model.Message, newToolOutputs []ToolOutput, title string) error
		// Delete removes a session permanently.
		Delete(ctx context.Context, userID, sessionID string) error
		// ListSessions returns every session of a user, messages and tool
		// outputs included.
		ListSessions(ctx context.Context, userID string) ([]Session, error)
	}
)

// ErrSessionNotFound is returned by Load when no session exists for the
// given (userID, sessionID) pair.
var ErrSessionNotFound = errors.New("convstore: session not found")
