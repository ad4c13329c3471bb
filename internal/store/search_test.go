package store

import (
	"context"
	"testing"

	"github.com/rcliao/munger/internal/model"
)

func TestSearchEvents_Basic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProfile(t, s, "Ada")
	other := newTestProfile(t, s, "Bob")

	s.CreateEvent(ctx, model.LifeEvent{UserID: p.ID, Title: "Bought a house", Description: "mortgage at 6%"})
	s.CreateEvent(ctx, model.LifeEvent{UserID: p.ID, Title: "Sold stock", LessonsLearned: "never sell on a mortgage panic"})
	s.CreateEvent(ctx, model.LifeEvent{UserID: p.ID, Title: "Ran a marathon"})
	s.CreateEvent(ctx, model.LifeEvent{UserID: other.ID, Title: "Paid off mortgage"})

	// Search across description and lessons
	results, err := s.SearchEvents(ctx, SearchParams{UserID: p.ID, Query: "mortgage"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// Without a user filter every profile is searched
	results, err = s.SearchEvents(ctx, SearchParams{Query: "mortgage"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Title match, case-insensitive for ASCII
	results, err = s.SearchEvents(ctx, SearchParams{UserID: p.ID, Query: "MARATHON"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	// No results
	results, err = s.SearchEvents(ctx, SearchParams{UserID: p.ID, Query: "divorce"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}

func TestSearchEvents_Limit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProfile(t, s, "Ada")
	for i := 0; i < 5; i++ {
		s.CreateEvent(ctx, model.LifeEvent{UserID: p.ID, Title: "job change"})
	}
	results, _ := s.SearchEvents(ctx, SearchParams{UserID: p.ID, Query: "job", Limit: 3})
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}
