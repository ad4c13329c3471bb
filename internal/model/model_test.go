package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWisdomCategoryRejectsUnknown(t *testing.T) {
	var rec WisdomRecord
	err := json.Unmarshal([]byte(`{"id":"a","category":"gossip"}`), &rec)
	require.Error(t, err)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","category":"speech_excerpt","year":null}`), &rec))
	assert.Equal(t, CategorySpeechExcerpt, rec.Category)
	assert.Nil(t, rec.Year)
}

func TestHasAnyTag(t *testing.T) {
	r := WisdomRecord{Tags: []string{"investing", "patience"}}
	assert.True(t, r.HasAnyTag([]string{"nope", "patience"}))
	assert.False(t, r.HasAnyTag([]string{"career"}))
	assert.False(t, r.HasAnyTag(nil))
}

func TestProfileSummary(t *testing.T) {
	age := 42
	deps := true
	p := NewProfile("Ada")
	p.Background.Age = &age
	p.Background.CareerStage = CareerSenior
	p.Background.Industry = "software"
	p.Constraints.HasDependents = &deps
	p.Bio = "Two kids."

	want := "Name: Ada; Age: 42; Career stage: senior; Industry: software; " +
		"Time horizon: medium; Risk tolerance: medium; Has dependents: Yes; Bio: Two kids."
	assert.Equal(t, want, p.Summary())
}

func TestProfileValidate(t *testing.T) {
	p := NewProfile("Ada")
	require.NoError(t, p.Validate())

	bad := 130
	p.Background.Age = &bad
	assert.Error(t, p.Validate())

	p = NewProfile("Ada")
	p.Preferences.Tone = "snarky"
	assert.Error(t, p.Validate())

	assert.Error(t, NewProfile(" ").Validate())
}

func TestCharterSummary(t *testing.T) {
	assert.Equal(t, "Charter not yet defined", Charter{}.Summary())

	c := Charter{
		Values:    []string{"a", "b", "c", "d", "e", "f"},
		AntiGoals: []string{"x", "y", "z", "w"},
	}
	assert.Equal(t, "Core values: a, b, c, d, e; Wants to avoid: x, y, z", c.Summary())
	assert.True(t, c.Defined())
}

func TestLifeEventSummary(t *testing.T) {
	e := LifeEvent{
		Date:        time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Title:       "New job",
		Category:    EventCareer,
		Emotions:    []string{"proud", "nervous"},
		Description: strings.Repeat("x", 300),
	}
	got := e.Summary()
	assert.True(t, strings.HasPrefix(got, "[2024-03-09] New job (career) (felt: proud, nervous): "))
	assert.Len(t, strings.TrimPrefix(got, "[2024-03-09] New job (career) (felt: proud, nervous): "), 200)
}

func TestLifeEventValidate(t *testing.T) {
	e := LifeEvent{Title: "t", Category: EventFamily, Significance: 5}
	require.NoError(t, e.Validate())

	e.Significance = 11
	assert.Error(t, e.Validate())

	e.Significance = 5
	e.Category = "hobby"
	assert.Error(t, e.Validate())
}

func TestParseEventCategory(t *testing.T) {
	c, err := ParseEventCategory(" Personal_Growth ")
	require.NoError(t, err)
	assert.Equal(t, EventPersonalGrowth, c)

	_, err = ParseEventCategory("hobby")
	assert.Error(t, err)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "芒格", Truncate("芒格智慧", 2))
	assert.Equal(t, "abc", Truncate("abc", 5))
}
