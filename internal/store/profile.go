package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rcliao/munger/internal/model"
)

const profileColumns = `id, name, background, constraints, preferences, bio, created_at, updated_at`

// CreateProfile validates and inserts p, assigning its id and timestamps.
func (s *SQLiteStore) CreateProfile(ctx context.Context, p model.Profile) (*model.Profile, error) {
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.ID = s.newID()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, toJSON(p.Background), toJSON(p.Constraints), toJSON(p.Preferences),
		nullString(p.Bio), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DefaultProfile returns the first profile created. Returns ErrNoProfile if
// there are none.
func (s *SQLiteStore) DefaultProfile(ctx context.Context) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY created_at ASC, rowid ASC LIMIT 1`)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile overwrites every field of the stored profile with p.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, p model.Profile) (*model.Profile, error) {
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.UpdatedAt = now()

	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET name = ?, background = ?, constraints = ?, preferences = ?, bio = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, toJSON(p.Background), toJSON(p.Constraints), toJSON(p.Preferences),
		nullString(p.Bio), formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := affected(res, "profile", p.ID); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, p.ID)
}

// DeleteProfile removes the profile and, through cascading keys, everything
// that belongs to it.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, "profile", id)
}

func scanProfile(row scanner) (model.Profile, error) {
	var p model.Profile
	var background, constraints, preferences, bio sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &background, &constraints, &preferences, &bio, &createdAt, &updatedAt)
	if err != nil {
		return p, err
	}
	fromJSON(background, &p.Background)
	fromJSON(constraints, &p.Constraints)
	fromJSON(preferences, &p.Preferences)
	p.Bio = bio.String
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}
