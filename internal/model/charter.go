package model

import (
	"strings"
	"time"
)

// Charter is the user's statement of what matters. Lists are in priority order.
type Charter struct {
	ID              string    `json:"id" yaml:"-"`
	UserID          string    `json:"user_id" yaml:"-"`
	Values          []string  `json:"values" yaml:"values"`
	NonNegotiables  []string  `json:"non_negotiables" yaml:"non_negotiables"`
	LongTermGoals   []string  `json:"long_term_goals" yaml:"long_term_goals"`
	AntiGoals       []string  `json:"anti_goals" yaml:"anti_goals"`
	RememberTopics  []string  `json:"remember_topics" yaml:"remember_topics"`
	ForgetTopics    []string  `json:"forget_topics" yaml:"forget_topics"`
	SensitiveTopics []string  `json:"sensitive_topics" yaml:"sensitive_topics"`
	CreatedAt       time.Time `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"-"`
}

// Defined reports whether any list has content.
func (c Charter) Defined() bool {
	return len(c.Values)+len(c.NonNegotiables)+len(c.LongTermGoals)+len(c.AntiGoals) > 0
}

// Summary renders the charter for prompt injection.
func (c Charter) Summary() string {
	var parts []string
	if len(c.Values) > 0 {
		parts = append(parts, "Core values: "+joinFirst(c.Values, 5))
	}
	if len(c.NonNegotiables) > 0 {
		parts = append(parts, "Non-negotiables: "+joinFirst(c.NonNegotiables, 3))
	}
	if len(c.LongTermGoals) > 0 {
		parts = append(parts, "Long-term goals: "+joinFirst(c.LongTermGoals, 3))
	}
	if len(c.AntiGoals) > 0 {
		parts = append(parts, "Wants to avoid: "+joinFirst(c.AntiGoals, 3))
	}
	if len(parts) == 0 {
		return "Charter not yet defined"
	}
	return strings.Join(parts, "; ")
}

func joinFirst(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, ", ")
}
