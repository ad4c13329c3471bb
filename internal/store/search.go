package store

import (
	"context"
	"fmt"

	"github.com/rcliao/munger/internal/model"
)

// SearchParams holds parameters for searching life events.
type SearchParams struct {
	UserID string
	Query  string
	Limit  int
}

// SearchEvents finds events whose title, description or lessons contain the
// query substring, newest first.
func (s *SQLiteStore) SearchEvents(ctx context.Context, p SearchParams) ([]model.LifeEvent, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	like := "%" + p.Query + "%"

	query := fmt.Sprintf(`SELECT %s FROM life_events
		WHERE (? = '' OR user_id = ?)
		  AND (title LIKE ? OR description LIKE ? OR lessons_learned LIKE ?)
		ORDER BY date DESC, rowid DESC
		LIMIT ?`, eventColumns)

	return s.queryEvents(ctx, query, p.UserID, p.UserID, like, like, like, limit)
}
