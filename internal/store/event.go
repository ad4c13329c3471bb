package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/munger/internal/model"
)

const eventColumns = `id, user_id, date, title, description, category, people_involved, emotions,
	significance, lessons_learned, follow_up_date, created_at, updated_at`

func normalizeEvent(e *model.LifeEvent) error {
	if e.Significance == 0 {
		e.Significance = model.DefaultSignificance
	}
	if e.Category == "" {
		e.Category = model.EventOther
	}
	if e.Date.IsZero() {
		e.Date = now()
	}
	return e.Validate()
}

// CreateEvent inserts a life event. Zero significance and empty category get defaults.
func (s *SQLiteStore) CreateEvent(ctx context.Context, e model.LifeEvent) (*model.LifeEvent, error) {
	if err := normalizeEvent(&e); err != nil {
		return nil, err
	}
	e.ID = s.newID()
	e.CreatedAt = now()
	e.UpdatedAt = e.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO life_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, formatTime(e.Date), e.Title, e.Description, string(e.Category),
		toJSON(e.PeopleInvolved), toJSON(e.Emotions), e.Significance,
		nullString(e.LessonsLearned), formatTimePtr(e.FollowUpDate),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return s.GetEvent(ctx, e.ID)
}

// GetEvent returns one event with the ids of events linked to it.
func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (*model.LifeEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM life_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	links, err := s.EventLinks(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		other := l.ToID
		if other == id {
			other = l.FromID
		}
		e.RelatedEvents = append(e.RelatedEvents, other)
	}
	return &e, nil
}

// ListEvents returns events matching p, newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, p ListEventsParams) ([]model.LifeEvent, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}

	where := []string{"1 = 1"}
	var args []interface{}
	if p.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, p.UserID)
	}
	if p.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(p.Category))
	}
	if p.MinSignificance > 0 {
		where = append(where, "significance >= ?")
		args = append(args, p.MinSignificance)
	}
	if p.Since != nil {
		where = append(where, "date >= ?")
		args = append(args, formatTime(*p.Since))
	}

	query := fmt.Sprintf(`SELECT %s FROM life_events WHERE %s ORDER BY date DESC, rowid DESC LIMIT ?`,
		eventColumns, strings.Join(where, " AND "))
	args = append(args, limit)

	return s.queryEvents(ctx, query, args...)
}

// RecentEvents returns the user's latest events at or above minSignificance.
func (s *SQLiteStore) RecentEvents(ctx context.Context, userID string, minSignificance, limit int) ([]model.LifeEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.ListEvents(ctx, ListEventsParams{UserID: userID, MinSignificance: minSignificance, Limit: limit})
}

// UpdateEvent overwrites the stored event with e.
func (s *SQLiteStore) UpdateEvent(ctx context.Context, e model.LifeEvent) (*model.LifeEvent, error) {
	if err := normalizeEvent(&e); err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE life_events SET date = ?, title = ?, description = ?, category = ?, people_involved = ?,
		        emotions = ?, significance = ?, lessons_learned = ?, follow_up_date = ?, updated_at = ?
		 WHERE id = ?`,
		formatTime(e.Date), e.Title, e.Description, string(e.Category),
		toJSON(e.PeopleInvolved), toJSON(e.Emotions), e.Significance,
		nullString(e.LessonsLearned), formatTimePtr(e.FollowUpDate), formatTime(now()), e.ID)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if err := affected(res, "event", e.ID); err != nil {
		return nil, err
	}
	return s.GetEvent(ctx, e.ID)
}

func (s *SQLiteStore) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM life_events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, "event", id)
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...interface{}) ([]model.LifeEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.LifeEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(row scanner) (model.LifeEvent, error) {
	var e model.LifeEvent
	var people, emotions, lessons, followUp sql.NullString
	var date, category, createdAt, updatedAt string

	err := row.Scan(&e.ID, &e.UserID, &date, &e.Title, &e.Description, &category,
		&people, &emotions, &e.Significance, &lessons, &followUp, &createdAt, &updatedAt)
	if err != nil {
		return e, err
	}
	e.Date = parseTime(date)
	e.Category = model.EventCategory(category)
	fromJSON(people, &e.PeopleInvolved)
	fromJSON(emotions, &e.Emotions)
	e.LessonsLearned = lessons.String
	e.FollowUpDate = parseTimePtr(followUp)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}
