// Package advisor answers questions in the advisor's voice. It pulls the
// user's profile, charter and recent events from the relational store,
// retrieves related wisdom, picks mental models, and asks the LLM.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/munger/internal/llm"
	"github.com/rcliao/munger/internal/model"
	"github.com/rcliao/munger/internal/persona"
	"github.com/rcliao/munger/internal/store"
	"github.com/rcliao/munger/internal/wisdom"
)

// ErrNoWisdom is returned by DailyWisdom when the wisdom store is empty.
var ErrNoWisdom = errors.New("no wisdom found; run 'munger ingest seed' first")

const (
	recentEventMinSignificance = 5
	recentEventLimit           = 10
	reflectionEventLimit       = 10
	historyMessages            = 10
	historyRunes               = 500
)

// WisdomSource is the part of the wisdom store the advisor reads.
type WisdomSource interface {
	Search(ctx context.Context, p wisdom.SearchParams) ([]model.ScoredRecord, error)
	Random() (model.WisdomRecord, bool)
}

type Config struct {
	TopK     int    // wisdom records retrieved per question; 0 means wisdom.DefaultTopK
	Language string // english or chinese
}

type Advisor struct {
	store    store.Store
	wisdom   WisdomSource
	llm      llm.Provider
	topK     int
	language string
	logger   *zap.Logger
}

// New creates an Advisor. ws may be nil, in which case no wisdom is retrieved.
func New(st store.Store, ws WisdomSource, p llm.Provider, cfg Config, logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = wisdom.DefaultTopK
	}
	if cfg.Language == "" {
		cfg.Language = "english"
	}
	return &Advisor{
		store:    st,
		wisdom:   ws,
		llm:      p,
		topK:     cfg.TopK,
		language: strings.ToLower(cfg.Language),
		logger:   logger,
	}
}

// Answer is the advisor's reply to a question.
type Answer struct {
	Text           string   `json:"text"`
	ModelsUsed     []string `json:"models_used"`
	Sources        []string `json:"sources"`
	ConversationID string   `json:"conversation_id,omitempty"`
}

type AskParams struct {
	Question       string
	UserID         string // empty means the default profile, if any
	SessionContext string
	// OnDelta, when set, streams the reply piece by piece.
	OnDelta func(string)
}

// Ask answers a one-off question. When a profile exists the exchange is
// saved as a closed conversation.
func (a *Advisor) Ask(ctx context.Context, p AskParams) (*Answer, error) {
	if strings.TrimSpace(p.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	uc, err := a.userContext(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	ans, err := a.answer(ctx, uc, p.Question, p.SessionContext, p.OnDelta)
	if err != nil {
		return nil, err
	}
	if uc.profile != nil {
		id, err := a.recordExchange(ctx, uc.profile.ID, p.Question, ans)
		if err != nil {
			return nil, err
		}
		ans.ConversationID = id
	}
	return ans, nil
}

type ChatParams struct {
	ConversationID string // empty starts a new conversation
	UserID         string
	Message        string
	OnDelta        func(string)
}

// Chat continues a conversation, or starts one for the user. The earlier
// turns of the conversation are passed to the model as context.
func (a *Advisor) Chat(ctx context.Context, p ChatParams) (*Answer, error) {
	if strings.TrimSpace(p.Message) == "" {
		return nil, fmt.Errorf("message is required")
	}

	var conv *model.Conversation
	var err error
	if p.ConversationID != "" {
		conv, err = a.store.GetConversation(ctx, p.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("load conversation: %w", err)
		}
	} else {
		profile, err := a.profile(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		conv, err = a.store.CreateConversation(ctx, model.Conversation{UserID: profile.ID})
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
	}

	history := formatHistory(conv.Messages)
	if _, err := a.store.AddMessage(ctx, model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        p.Message,
	}); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	uc, err := a.userContext(ctx, conv.UserID)
	if err != nil {
		return nil, err
	}
	ans, err := a.answer(ctx, uc, p.Message, history, p.OnDelta)
	if err != nil {
		return nil, err
	}
	if _, err := a.store.AddMessage(ctx, model.Message{
		ConversationID:   conv.ID,
		Role:             model.RoleAssistant,
		Content:          ans.Text,
		MentalModelsUsed: ans.ModelsUsed,
		SourcesCited:     ans.Sources,
	}); err != nil {
		return nil, fmt.Errorf("save reply: %w", err)
	}
	ans.ConversationID = conv.ID
	return ans, nil
}

type ReflectParams struct {
	UserID  string
	OnDelta func(string)
}

// Reflect runs a review of the user's recent events. It needs a profile.
func (a *Advisor) Reflect(ctx context.Context, p ReflectParams) (string, error) {
	profile, err := a.profile(ctx, p.UserID)
	if err != nil {
		return "", err
	}
	charter, err := a.charter(ctx, profile.ID)
	if err != nil {
		return "", err
	}
	events, err := a.store.ListEvents(ctx, store.ListEventsParams{UserID: profile.ID, Limit: reflectionEventLimit})
	if err != nil {
		return "", fmt.Errorf("load events: %w", err)
	}
	msgs := persona.ReflectionMessages(profile, charter, events, a.language)
	return a.complete(ctx, msgs, p.OnDelta)
}

// Daily is one piece of wisdom ready for display.
type Daily struct {
	Title      string               `json:"title"`
	Content    string               `json:"content"`
	Source     string               `json:"source"`
	Category   model.WisdomCategory `json:"category"`
	Translated bool                 `json:"translated,omitempty"`
}

// DailyWisdom picks a random record. For chinese its content, title and
// source are translated; a failed translation keeps the original text.
func (a *Advisor) DailyWisdom(ctx context.Context, language string) (*Daily, error) {
	if a.wisdom == nil {
		return nil, ErrNoWisdom
	}
	rec, ok := a.wisdom.Random()
	if !ok {
		return nil, ErrNoWisdom
	}
	d := &Daily{Title: rec.Title, Content: rec.Content, Source: rec.Source, Category: rec.Category}
	if d.Title == "" {
		d.Title = "Munger Wisdom"
	}
	if d.Source == "" {
		d.Source = "Unknown"
	}
	if language == "" {
		language = a.language
	}
	if !strings.EqualFold(language, "chinese") {
		return d, nil
	}

	d.Content = a.translate(ctx, persona.TranslateQuote, d.Content, &d.Translated)
	d.Title = a.translate(ctx, persona.TranslateTitle, d.Title, &d.Translated)
	d.Source = a.translate(ctx, persona.TranslateSource, d.Source, &d.Translated)
	return d, nil
}

func (a *Advisor) translate(ctx context.Context, kind persona.TranslationKind, text string, translated *bool) string {
	out, err := a.llm.Generate(ctx, persona.TranslationMessages(kind, text))
	if err != nil {
		a.logger.Warn("translation failed, keeping original", zap.Error(err))
		return text
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return text
	}
	*translated = true
	return out
}

type userContext struct {
	profile *model.Profile
	charter *model.Charter
	events  []model.LifeEvent
}

// userContext loads what the advisor knows about the user. Without a
// profile the advice is not personalized.
func (a *Advisor) userContext(ctx context.Context, userID string) (userContext, error) {
	var uc userContext
	profile, err := a.profile(ctx, userID)
	if errors.Is(err, store.ErrNoProfile) {
		return uc, nil
	}
	if err != nil {
		return uc, err
	}
	uc.profile = profile

	if uc.charter, err = a.charter(ctx, profile.ID); err != nil {
		return uc, err
	}
	uc.events, err = a.store.RecentEvents(ctx, profile.ID, recentEventMinSignificance, recentEventLimit)
	if err != nil {
		return uc, fmt.Errorf("load recent events: %w", err)
	}
	return uc, nil
}

func (a *Advisor) profile(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return a.store.DefaultProfile(ctx)
	}
	p, err := a.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func (a *Advisor) charter(ctx context.Context, userID string) (*model.Charter, error) {
	c, err := a.store.CharterByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load charter: %w", err)
	}
	return c, nil
}

func (a *Advisor) answer(ctx context.Context, uc userContext, question, session string, onDelta func(string)) (*Answer, error) {
	found := a.retrieve(ctx, question)
	models := persona.RelevantModels(question)

	msgs := persona.AssemblePrompt(persona.PromptParams{
		Question:       question,
		Profile:        uc.profile,
		Charter:        uc.charter,
		Events:         uc.events,
		Wisdom:         found,
		Models:         models,
		SessionContext: session,
		Language:       a.language,
	})
	text, err := a.complete(ctx, msgs, onDelta)
	if err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(found))
	for _, w := range found {
		sources = append(sources, w.Title)
	}
	return &Answer{Text: text, ModelsUsed: persona.ModelNames(models), Sources: sources}, nil
}

// retrieve searches the wisdom store. Failures are logged and treated as
// no results.
func (a *Advisor) retrieve(ctx context.Context, question string) []model.ScoredRecord {
	if a.wisdom == nil {
		return nil
	}
	found, err := a.wisdom.Search(ctx, wisdom.SearchParams{Query: question, TopK: a.topK})
	if err != nil {
		a.logger.Warn("wisdom search failed", zap.Error(err))
		return nil
	}
	a.logger.Debug("retrieved wisdom", zap.Int("count", len(found)))
	return found
}

func (a *Advisor) complete(ctx context.Context, msgs []llm.Message, onDelta func(string)) (string, error) {
	if onDelta == nil {
		text, err := a.llm.Generate(ctx, msgs)
		if err != nil {
			return "", fmt.Errorf("generate: %w", err)
		}
		return text, nil
	}
	ch, err := a.llm.Stream(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("stream: %w", err)
	}
	text, err := llm.Collect(ch, onDelta)
	if err != nil {
		return text, fmt.Errorf("stream: %w", err)
	}
	return text, nil
}

func (a *Advisor) recordExchange(ctx context.Context, userID, question string, ans *Answer) (string, error) {
	conv, err := a.store.CreateConversation(ctx, model.Conversation{UserID: userID})
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	if _, err := a.store.AddMessage(ctx, model.Message{
		ConversationID: conv.ID, Role: model.RoleUser, Content: question,
	}); err != nil {
		return "", fmt.Errorf("save question: %w", err)
	}
	if _, err := a.store.AddMessage(ctx, model.Message{
		ConversationID:   conv.ID,
		Role:             model.RoleAssistant,
		Content:          ans.Text,
		MentalModelsUsed: ans.ModelsUsed,
		SourcesCited:     ans.Sources,
	}); err != nil {
		return "", fmt.Errorf("save answer: %w", err)
	}
	if err := a.store.EndConversation(ctx, conv.ID); err != nil {
		return "", fmt.Errorf("end conversation: %w", err)
	}
	return conv.ID, nil
}

func formatHistory(msgs []model.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	if len(msgs) > historyMessages {
		msgs = msgs[len(msgs)-historyMessages:]
	}
	lines := []string{"Previous conversation:"}
	for _, m := range msgs {
		who := "Munger"
		if m.Role == model.RoleUser {
			who = "You"
		}
		lines = append(lines, who+": "+model.Truncate(m.Content, historyRunes))
	}
	return strings.Join(lines, "\n")
}
