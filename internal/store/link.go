package store

import (
	"context"
	"fmt"
)

// LinkParams holds parameters for creating or removing a relation between events.
type LinkParams struct {
	FromID string
	ToID   string
	Rel    string // relates_to | led_to | follows_up | contradicts
	Remove bool
}

// EventLink represents a relation between two life events.
type EventLink struct {
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	Rel       string `json:"rel"`
	CreatedAt string `json:"created_at"`
}

var validRels = map[string]bool{
	"relates_to":  true,
	"led_to":      true,
	"follows_up":  true,
	"contradicts": true,
}

// LinkEvents creates or removes a relation between two events.
func (s *SQLiteStore) LinkEvents(ctx context.Context, p LinkParams) (*EventLink, error) {
	if p.Rel == "" {
		p.Rel = "relates_to"
	}
	if !validRels[p.Rel] {
		return nil, fmt.Errorf("invalid relation %q (valid: relates_to, led_to, follows_up, contradicts)", p.Rel)
	}
	if p.FromID == p.ToID {
		return nil, fmt.Errorf("cannot link event %s to itself", p.FromID)
	}
	for _, id := range []string{p.FromID, p.ToID} {
		if err := s.eventExists(ctx, id); err != nil {
			return nil, err
		}
	}

	if p.Remove {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM event_links WHERE from_id = ? AND to_id = ? AND rel = ?`,
			p.FromID, p.ToID, p.Rel)
		if err != nil {
			return nil, err
		}
		return &EventLink{FromID: p.FromID, ToID: p.ToID, Rel: p.Rel}, nil
	}

	created := formatTime(now())
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO event_links (from_id, to_id, rel, created_at) VALUES (?, ?, ?, ?)`,
		p.FromID, p.ToID, p.Rel, created)
	if err != nil {
		return nil, err
	}
	return &EventLink{FromID: p.FromID, ToID: p.ToID, Rel: p.Rel, CreatedAt: created}, nil
}

// EventLinks returns all links touching an event.
func (s *SQLiteStore) EventLinks(ctx context.Context, eventID string) ([]EventLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, rel, created_at FROM event_links
		 WHERE from_id = ? OR to_id = ? ORDER BY created_at`, eventID, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []EventLink
	for rows.Next() {
		var l EventLink
		if err := rows.Scan(&l.FromID, &l.ToID, &l.Rel, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *SQLiteStore) eventExists(ctx context.Context, id string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM life_events WHERE id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return nil
}
