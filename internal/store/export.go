package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/munger/internal/model"
)

// ExportVersion is bumped when the Export layout changes.
const ExportVersion = 1

// Export is a portable dump of everything stored for one user.
type Export struct {
	Version       int                  `json:"version"`
	ExportedAt    time.Time            `json:"exported_at"`
	Profile       model.Profile        `json:"profile"`
	Charter       *model.Charter       `json:"charter,omitempty"`
	Events        []model.LifeEvent    `json:"events"`
	Conversations []model.Conversation `json:"conversations"`
}

// ExportAll collects the user's profile, charter, events and conversations.
func (s *SQLiteStore) ExportAll(ctx context.Context, userID string) (*Export, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	exp := &Export{Version: ExportVersion, ExportedAt: now(), Profile: *p}

	c, err := s.CharterByUser(ctx, userID)
	switch {
	case err == nil:
		exp.Charter = c
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	events, err := s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM life_events WHERE user_id = ? ORDER BY date, rowid`, userID)
	if err != nil {
		return nil, err
	}
	for i := range events {
		full, err := s.GetEvent(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i] = *full
	}
	exp.Events = events

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM conversations WHERE user_id = ? ORDER BY started_at, rowid`, userID)
	if err != nil {
		return nil, err
	}
	var convIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		convIDs = append(convIDs, id)
	}
	rows.Close()
	for _, id := range convIDs {
		conv, err := s.GetConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		exp.Conversations = append(exp.Conversations, *conv)
	}
	return exp, nil
}

// Import recreates an export under a new profile and returns that profile's
// id and the number of rows written. Ids are reassigned and event links are
// restored as relates_to.
func (s *SQLiteStore) Import(ctx context.Context, exp *Export) (string, int, error) {
	if exp.Version > ExportVersion {
		return "", 0, fmt.Errorf("export version %d is newer than supported %d", exp.Version, ExportVersion)
	}
	p, err := s.CreateProfile(ctx, exp.Profile)
	if err != nil {
		return "", 0, fmt.Errorf("import profile: %w", err)
	}
	imported := 1

	if exp.Charter != nil {
		c := *exp.Charter
		c.UserID = p.ID
		if _, err := s.CreateCharter(ctx, c); err != nil {
			return p.ID, imported, fmt.Errorf("import charter: %w", err)
		}
		imported++
	}

	idMap := make(map[string]string, len(exp.Events))
	for _, e := range exp.Events {
		oldID := e.ID
		e.UserID = p.ID
		created, err := s.CreateEvent(ctx, e)
		if err != nil {
			return p.ID, imported, fmt.Errorf("import event %q: %w", e.Title, err)
		}
		idMap[oldID] = created.ID
		imported++
	}
	for _, e := range exp.Events {
		for _, rel := range e.RelatedEvents {
			from, to := idMap[e.ID], idMap[rel]
			if from == "" || to == "" || from > to {
				// each link appears on both events; keep one direction
				continue
			}
			if _, err := s.LinkEvents(ctx, LinkParams{FromID: from, ToID: to}); err != nil {
				return p.ID, imported, fmt.Errorf("import event link: %w", err)
			}
		}
	}

	for _, conv := range exp.Conversations {
		msgs := conv.Messages
		conv.UserID = p.ID
		created, err := s.CreateConversation(ctx, conv)
		if err != nil {
			return p.ID, imported, fmt.Errorf("import conversation: %w", err)
		}
		imported++
		for _, m := range msgs {
			m.ConversationID = created.ID
			if _, err := s.AddMessage(ctx, m); err != nil {
				return p.ID, imported, fmt.Errorf("import message: %w", err)
			}
			imported++
		}
	}
	return p.ID, imported, nil
}
