// Package store persists the advisor's relational data: the user profile,
// the values charter, life events and conversations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/munger/internal/model"
)

var (
	// ErrNotFound is returned when a row looked up by id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoProfile is returned when an operation needs a profile and none has been created.
	ErrNoProfile = errors.New("no profile found; run 'munger init' first")
)

// ListEventsParams holds filters for listing life events.
type ListEventsParams struct {
	UserID          string
	Category        model.EventCategory // optional
	MinSignificance int                 // 0 means no minimum
	Since           *time.Time          // optional
	Limit           int                 // 0 means 50
}

// Store defines the repository operations the advisor depends on.
type Store interface {
	CreateProfile(ctx context.Context, p model.Profile) (*model.Profile, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	// DefaultProfile returns the earliest created profile.
	DefaultProfile(ctx context.Context) (*model.Profile, error)
	UpdateProfile(ctx context.Context, p model.Profile) (*model.Profile, error)
	DeleteProfile(ctx context.Context, id string) error

	CharterByUser(ctx context.Context, userID string) (*model.Charter, error)
	SaveCharter(ctx context.Context, c model.Charter) (*model.Charter, error)

	CreateEvent(ctx context.Context, e model.LifeEvent) (*model.LifeEvent, error)
	GetEvent(ctx context.Context, id string) (*model.LifeEvent, error)
	ListEvents(ctx context.Context, p ListEventsParams) ([]model.LifeEvent, error)
	RecentEvents(ctx context.Context, userID string, minSignificance, limit int) ([]model.LifeEvent, error)
	DeleteEvent(ctx context.Context, id string) error

	CreateConversation(ctx context.Context, c model.Conversation) (*model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	LatestConversation(ctx context.Context, userID string) (*model.Conversation, error)
	AddMessage(ctx context.Context, m model.Message) (*model.Message, error)
	EndConversation(ctx context.Context, id string) error

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
