package model

import (
	"fmt"
	"strings"
	"time"
)

// EventCategory classifies a life event.
type EventCategory string

const (
	EventCareer         EventCategory = "career"
	EventFamily         EventCategory = "family"
	EventHealth         EventCategory = "health"
	EventFinancial      EventCategory = "financial"
	EventRelationship   EventCategory = "relationship"
	EventEducation      EventCategory = "education"
	EventPersonalGrowth EventCategory = "personal_growth"
	EventOther          EventCategory = "other"
)

// ValidEventCategories lists event categories in display order.
var ValidEventCategories = []EventCategory{
	EventCareer, EventFamily, EventHealth, EventFinancial,
	EventRelationship, EventEducation, EventPersonalGrowth, EventOther,
}

// ParseEventCategory returns the category for s (case-insensitive).
func ParseEventCategory(s string) (EventCategory, error) {
	c := EventCategory(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ValidEventCategories {
		if v == c {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown event category %q", s)
}

const (
	MinSignificance     = 1
	MaxSignificance     = 10
	DefaultSignificance = 5
)

// LifeEvent is a significant moment in the user's life.
type LifeEvent struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	Date           time.Time     `json:"date"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Category       EventCategory `json:"category"`
	PeopleInvolved []string      `json:"people_involved,omitempty"`
	Emotions       []string      `json:"emotions,omitempty"`
	Significance   int           `json:"significance"`
	LessonsLearned string        `json:"lessons_learned,omitempty"`
	FollowUpDate   *time.Time    `json:"follow_up_date,omitempty"`
	RelatedEvents  []string      `json:"related_events,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Validate checks required fields and the significance range.
func (e LifeEvent) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("event title is required")
	}
	if _, err := ParseEventCategory(string(e.Category)); err != nil {
		return err
	}
	if e.Significance < MinSignificance || e.Significance > MaxSignificance {
		return fmt.Errorf("significance %d out of range %d-%d", e.Significance, MinSignificance, MaxSignificance)
	}
	return nil
}

// Summary renders the event as one line of context.
func (e LifeEvent) Summary() string {
	felt := ""
	if len(e.Emotions) > 0 {
		felt = " (felt: " + strings.Join(e.Emotions, ", ") + ")"
	}
	return fmt.Sprintf("[%s] %s (%s)%s: %s",
		e.Date.Format("2006-01-02"), e.Title, e.Category, felt, Truncate(e.Description, 200))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
