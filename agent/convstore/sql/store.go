// Package sql wires convstore.Store to a relational backend via gorm,
// demonstrating the same adapter contract against a second real database.
// Messages and ToolOutputs are stored as JSON columns on a single sessions
// row rather
// than normalized child tables: the dedup reducer already guarantees
// uniqueness in-process, so a relational join brings no benefit here and
// would complicate the load-merge-replace cycle Save performs.
package sql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/anushka192001/Sales-dev-assistant/agent/convstore"
	"github.com/anushka192001/Sales-dev-assistant/agent/model"
)

// sessionRow is the gorm model backing one conversation.
type sessionRow struct {
	SessionID    string `gorm:"primaryKey"`
	UserID       string `gorm:"index"`
	MessagesJSON string
	OutputsJSON  string
	Title        string
	Model        string
	LastUpdated  time.Time
	MessageCount int
}

func (sessionRow) TableName() string { return "conversation_sessions" }

// Store implements convstore.Store backed by *gorm.DB.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store and runs AutoMigrate for the sessions table.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("convstore/sql: db is required")
	}
	if err := db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Load implements convstore.Store.
func (s *Store) Load(ctx context.Context, userID, sessionID string) (convstore.Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return convstore.Session{}, convstore.ErrSessionNotFound
	}
	if err != nil {
		return convstore.Session{}, err
	}
	return rowToSession(row)
}

// Save implements convstore.Store via load-merge-replace, matching the
// Mongo adapter's semantics so callers can swap backends transparently.
func (s *Store) Save(ctx context.Context, userID, sessionID string, newMessages []model.Message, newToolOutputs []convstore.ToolOutput, title string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionRow
		err := tx.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&row).Error
		existing := convstore.Session{SessionID: sessionID, UserID: userID}
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first save for this session
		case err != nil:
			return err
		default:
			existing, err = rowToSession(row)
			if err != nil {
				return err
			}
		}

		merged := existing
		merged.Messages = convstore.Merge(existing.Messages, newMessages)
		merged.ToolOutputs = mergeToolOutputsSQL(existing.ToolOutputs, newToolOutputs)
		merged.LastUpdated = time.Now().UTC()
		merged.MessageCount = len(merged.Messages)
		if title != "" {
			merged.Title = title
		}

		newRow, err := sessionToRow(merged)
		if err != nil {
			return err
		}
		return tx.Save(&newRow).Error
	})
}

// Delete implements convstore.Store.
func (s *Store) Delete(ctx context.Context, userID, sessionID string) error {
	return s.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Delete(&sessionRow{}).Error
}

// ListSessions implements convstore.Store.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]convstore.Session, error) {
	var rows []sessionRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]convstore.Session, 0, len(rows))
	for _, row := range rows {
		sess, err := rowToSession(row)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

func rowToSession(row sessionRow) (convstore.Session, error) {
	var messages []model.Message
	var outputs []convstore.ToolOutput
	if row.MessagesJSON != "" {
		if err := json.Unmarshal([]byte(row.MessagesJSON), &messages); err != nil {
			return convstore.Session{}, err
		}
	}
	if row.OutputsJSON != "" {
		if err := json.Unmarshal([]byte(row.OutputsJSON), &outputs); err != nil {
			return convstore.Session{}, err
		}
	}
	return convstore.Session{
		SessionID:    row.SessionID,
		UserID:       row.UserID,
		Messages:     messages,
		ToolOutputs:  outputs,
		Title:        row.Title,
		Model:        row.Model,
		LastUpdated:  row.LastUpdated,
		MessageCount: row.MessageCount,
	}, nil
}

func sessionToRow(sess convstore.Session) (sessionRow, error) {
	msgJSON, err := json.Marshal(sess.Messages)
	if err != nil {
		return sessionRow{}, err
	}
	outJSON, err := json.Marshal(sess.ToolOutputs)
	if err != nil {
		return sessionRow{}, err
	}
	return sessionRow{
		SessionID:    sess.SessionID,
		UserID:       sess.UserID,
		MessagesJSON: string(msgJSON),
		OutputsJSON:  string(outJSON),
		Title:        sess.Title,
		Model:        sess.Model,
		LastUpdated:  sess.LastUpdated,
		MessageCount: sess.MessageCount,
	}, nil
}

func mergeToolOutputsSQL(existing, incoming []convstore.ToolOutput) []convstore.ToolOutput {
	seen := make(map[string]struct{}, len(existing))
	out := append([]convstore.ToolOutput{}, existing...)
	for _, o := range existing {
		seen[o.ToolCallID] = struct{}{}
	}
	for _, o := range incoming {
		if _, ok := seen[o.ToolCallID]; ok {
			continue
		}
		seen[o.ToolCallID] = struct{}{}
		out = append(out, o)
	}
	return out
}
