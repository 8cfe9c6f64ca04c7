// Package mongo wires convstore.Store to MongoDB. Each session is one
// document keyed by session_id; Save performs the dedup-reducer merge
// in-process (loading the current document, merging, then replacing) rather
// than relying on database-side array append semantics.
package mongo

import (
	"context"
	"errors"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/anushka192001/Sales-dev-assistant/agent/convstore"
	"github.com/anushka192001/Sales-dev-assistant/agent/model"
)

const defaultTimeout = 5 * time.Second

// Store implements convstore.Store backed by a MongoDB collection.
type Store struct {
	coll    *mongodriver.Collection
	timeout time.Duration
}

// Options configures Store.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// NewStore constructs a Mongo-backed Store.
func NewStore(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("convstore/mongo: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("convstore/mongo: database is required")
	}
	collection := opts.Collection
	if collection == "" {
		collection = "conversations"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{
		coll:    opts.Client.Database(opts.Database).Collection(collection),
		timeout: timeout,
	}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Load implements convstore.Store.
func (s *Store) Load(ctx context.Context, userID, sessionID string) (convstore.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc convstore.Session
	err := s.coll.FindOne(ctx, docFilter(userID, sessionID)).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return convstore.Session{}, convstore.ErrSessionNotFound
	}
	if err != nil {
		return convstore.Session{}, err
	}
	return doc, nil
}

// Save implements convstore.Store: load-merge-replace under the dedup
// reducer, creating the document on first use.
func (s *Store) Save(ctx context.Context, userID, sessionID string, newMessages []model.Message, newToolOutputs []convstore.ToolOutput, title string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	existing, err := s.Load(ctx, userID, sessionID)
	if err != nil && !errors.Is(err, convstore.ErrSessionNotFound) {
		return err
	}
	if errors.Is(err, convstore.ErrSessionNotFound) {
		existing = convstore.Session{SessionID: sessionID, UserID: userID}
	}

	merged := existing
	merged.Messages = convstore.Merge(existing.Messages, newMessages)
	merged.ToolOutputs = append(append([]convstore.ToolOutput{}, existing.ToolOutputs...), dedupToolOutputs(existing.ToolOutputs, newToolOutputs)...)
	merged.LastUpdated = time.Now().UTC()
	merged.MessageCount = len(merged.Messages)
	if title != "" {
		merged.Title = title
	}

	opts := options.Replace().SetUpsert(true)
	_, err = s.coll.ReplaceOne(ctx, docFilter(userID, sessionID), merged, opts)
	return err
}

// Delete implements convstore.Store.
func (s *Store) Delete(ctx context.Context, userID, sessionID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.coll.DeleteOne(ctx, docFilter(userID, sessionID))
	return err
}

// ListSessions implements convstore.Store.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]convstore.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.coll.Find(ctx, map[string]any{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []convstore.Session
	for cur.Next(ctx) {
		var doc convstore.Session
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, cur.Err()
}

func docFilter(userID, sessionID string) map[string]any {
	return map[string]any{"_id": sessionID, "user_id": userID}
}

// dedupToolOutputs drops any new output whose tool_call_id already exists in
// existing, matching ToolOutput's durable-once-per-step invariant: written
// once per successful or failed step.
func dedupToolOutputs(existing, incoming []convstore.ToolOutput) []convstore.ToolOutput {
	seen := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		seen[o.ToolCallID] = struct{}{}
	}
	var out []convstore.ToolOutput
	for _, o := range incoming {
		if _, ok := seen[o.ToolCallID]; ok {
			continue
		}
		seen[o.ToolCallID] = struct{}{}
		out = append(out, o)
	}
	return out
}
