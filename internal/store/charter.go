package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rcliao/munger/internal/model"
)

const charterColumns = `id, user_id, core_values, non_negotiables, long_term_goals, anti_goals,
	remember_topics, forget_topics, sensitive_topics, created_at, updated_at`

// CreateCharter inserts a charter for c.UserID. A user has at most one charter.
func (s *SQLiteStore) CreateCharter(ctx context.Context, c model.Charter) (*model.Charter, error) {
	if c.UserID == "" {
		return nil, fmt.Errorf("charter needs a user id")
	}
	c.ID = s.newID()
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO charters (`+charterColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID,
		toJSON(c.Values), toJSON(c.NonNegotiables), toJSON(c.LongTermGoals), toJSON(c.AntiGoals),
		toJSON(c.RememberTopics), toJSON(c.ForgetTopics), toJSON(c.SensitiveTopics),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert charter: %w", err)
	}
	return &c, nil
}

// CharterByUser returns the charter owned by userID.
func (s *SQLiteStore) CharterByUser(ctx context.Context, userID string) (*model.Charter, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+charterColumns+` FROM charters WHERE user_id = ?`, userID)
	c, err := scanCharter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("charter for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCharter replaces the lists of the user's existing charter.
func (s *SQLiteStore) UpdateCharter(ctx context.Context, c model.Charter) (*model.Charter, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE charters SET core_values = ?, non_negotiables = ?, long_term_goals = ?, anti_goals = ?,
		        remember_topics = ?, forget_topics = ?, sensitive_topics = ?, updated_at = ?
		 WHERE user_id = ?`,
		toJSON(c.Values), toJSON(c.NonNegotiables), toJSON(c.LongTermGoals), toJSON(c.AntiGoals),
		toJSON(c.RememberTopics), toJSON(c.ForgetTopics), toJSON(c.SensitiveTopics),
		formatTime(now()), c.UserID)
	if err != nil {
		return nil, fmt.Errorf("update charter: %w", err)
	}
	if err := affected(res, "charter for", c.UserID); err != nil {
		return nil, err
	}
	return s.CharterByUser(ctx, c.UserID)
}

// SaveCharter creates the user's charter or updates the existing one.
func (s *SQLiteStore) SaveCharter(ctx context.Context, c model.Charter) (*model.Charter, error) {
	updated, err := s.UpdateCharter(ctx, c)
	if errors.Is(err, ErrNotFound) {
		return s.CreateCharter(ctx, c)
	}
	return updated, err
}

func scanCharter(row scanner) (model.Charter, error) {
	var c model.Charter
	var values, nonNeg, goals, anti, remember, forget, sensitive sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&c.ID, &c.UserID, &values, &nonNeg, &goals, &anti,
		&remember, &forget, &sensitive, &createdAt, &updatedAt)
	if err != nil {
		return c, err
	}
	fromJSON(values, &c.Values)
	fromJSON(nonNeg, &c.NonNegotiables)
	fromJSON(goals, &c.LongTermGoals)
	fromJSON(anti, &c.AntiGoals)
	fromJSON(remember, &c.RememberTopics)
	fromJSON(forget, &c.ForgetTopics)
	fromJSON(sensitive, &c.SensitiveTopics)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}
