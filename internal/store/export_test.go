package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rcliao/munger/internal/model"
)

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	p := newTestProfile(t, src, "Ada")

	src.SaveCharter(ctx, model.Charter{UserID: p.ID, Values: []string{"honesty"}})
	a, _ := src.CreateEvent(ctx, model.LifeEvent{UserID: p.ID, Title: "lost job", Category: model.EventCareer})
	b, _ := src.CreateEvent(ctx, model.LifeEvent{UserID: p.ID, Title: "new job", Category: model.EventCareer})
	src.LinkEvents(ctx, LinkParams{FromID: a.ID, ToID: b.ID, Rel: "led_to"})
	conv, _ := src.CreateConversation(ctx, model.Conversation{UserID: p.ID})
	src.AddMessage(ctx, model.Message{ConversationID: conv.ID, Role: model.RoleUser, Content: "hi"})
	src.AddMessage(ctx, model.Message{ConversationID: conv.ID, Role: model.RoleAssistant, Content: "hello"})

	exp, err := src.ExportAll(ctx, p.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exp.Events) != 2 || len(exp.Conversations) != 1 || exp.Charter == nil {
		t.Fatalf("incomplete export: %+v", exp)
	}

	// through JSON, as the CLI does it
	data, err := json.Marshal(exp)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Export
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	dst := newTestStore(t)
	userID, n, err := dst.Import(ctx, &decoded)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	// profile + charter + 2 events + conversation + 2 messages
	if n != 7 {
		t.Errorf("expected 7 rows imported, got %d", n)
	}

	got, err := dst.ExportAll(ctx, userID)
	if err != nil {
		t.Fatalf("re-export: %v", err)
	}
	if got.Profile.Name != "Ada" || got.Charter.Values[0] != "honesty" {
		t.Errorf("profile or charter lost: %+v", got)
	}
	if len(got.Events) != 2 || len(got.Events[0].RelatedEvents) != 1 {
		t.Errorf("events or links lost: %+v", got.Events)
	}
	if len(got.Conversations) != 1 || len(got.Conversations[0].Messages) != 2 ||
		got.Conversations[0].Messages[1].Content != "hello" {
		t.Errorf("conversation lost: %+v", got.Conversations)
	}
}

func TestImport_RejectsNewerVersion(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Import(context.Background(), &Export{Version: ExportVersion + 1, Profile: model.NewProfile("x")})
	if err == nil {
		t.Error("expected error for newer export version")
	}
}
