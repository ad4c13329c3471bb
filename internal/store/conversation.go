package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rcliao/munger/internal/model"
)

const conversationColumns = `id, user_id, title, session_mood, session_context, started_at, ended_at`

const messageColumns = `id, conversation_id, role, content, timestamp, mental_models_used, sources_cited, context_used`

// CreateConversation starts a conversation for c.UserID.
func (s *SQLiteStore) CreateConversation(ctx context.Context, c model.Conversation) (*model.Conversation, error) {
	if c.UserID == "" {
		return nil, fmt.Errorf("conversation needs a user id")
	}
	c.ID = s.newID()
	if c.StartedAt.IsZero() {
		c.StartedAt = now()
	}
	c.Messages = nil

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (`+conversationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, nullString(c.Title), nullString(c.SessionMood), nullString(c.SessionContext),
		formatTime(c.StartedAt), formatTimePtr(c.EndedAt))
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return &c, nil
}

// GetConversation returns the conversation with its messages in order.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if c.Messages, err = s.Messages(ctx, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// LatestConversation returns the user's most recently started conversation.
func (s *SQLiteStore) LatestConversation(ctx context.Context, userID string) (*model.Conversation, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE user_id = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s.GetConversation(ctx, id)
}

// ListConversations returns the user's conversations newest first, without messages.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE user_id = ?
		 ORDER BY started_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// AddMessage appends a message to an existing conversation.
func (s *SQLiteStore) AddMessage(ctx context.Context, m model.Message) (*model.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE id = ?`, m.ConversationID).Scan(&n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("conversation %s: %w", m.ConversationID, ErrNotFound)
	}

	m.ID = s.newID()
	if m.Timestamp.IsZero() {
		m.Timestamp = now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, string(m.Role), m.Content, formatTime(m.Timestamp),
		toJSON(m.MentalModelsUsed), toJSON(m.SourcesCited), toJSON(m.ContextUsed))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Messages returns a conversation's messages in insertion order.
func (s *SQLiteStore) Messages(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? ORDER BY rowid ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var role, ts string
		var models, sources, ctxUsed sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &ts, &models, &sources, &ctxUsed); err != nil {
			return nil, err
		}
		m.Role = model.MessageRole(role)
		m.Timestamp = parseTime(ts)
		fromJSON(models, &m.MentalModelsUsed)
		fromJSON(sources, &m.SourcesCited)
		fromJSON(ctxUsed, &m.ContextUsed)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// EndConversation marks a conversation as finished.
func (s *SQLiteStore) EndConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET ended_at = ? WHERE id = ?`, formatTime(now()), id)
	if err != nil {
		return err
	}
	return affected(res, "conversation", id)
}

func scanConversation(row scanner) (model.Conversation, error) {
	var c model.Conversation
	var title, mood, sessionCtx, endedAt sql.NullString
	var startedAt string

	if err := row.Scan(&c.ID, &c.UserID, &title, &mood, &sessionCtx, &startedAt, &endedAt); err != nil {
		return c, err
	}
	c.Title = title.String
	c.SessionMood = mood.String
	c.SessionContext = sessionCtx.String
	c.StartedAt = parseTime(startedAt)
	c.EndedAt = parseTimePtr(endedAt)
	return c, nil
}
