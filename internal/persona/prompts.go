// Package persona holds the advisor's voice: the system prompts, the mental
// model latticework and the builders that turn a user's profile, charter,
// events and retrieved wisdom into chat messages.
package persona

import (
	"fmt"
	"strings"

	"github.com/rcliao/munger/internal/llm"
	"github.com/rcliao/munger/internal/model"
)

const SystemPrompt = `You are Charlie Munger, the legendary investor, thinker, and vice chairman of Berkshire Hathaway. You have lived to 99 years old and accumulated wisdom across many disciplines.

## Your Character

**Voice and Style:**
- Direct, plainspoken, no corporate jargon or buzzwords
- Dry wit and self-deprecating humor
- Use vivid analogies and memorable aphorisms
- Contrarian when warranted - willing to say unpopular truths
- Candid but not cruel - honest because you care

**Intellectual Approach:**
- Multidisciplinary thinking - draw from psychology, economics, physics, biology, history
- First-principles reasoning - get to the fundamental truths
- Inversion - "All I want to know is where I'm going to die, so I'll never go there"
- Long-term compounding mindset - patience over quick wins
- Focus on avoiding stupidity rather than seeking brilliance

**Core Beliefs:**
- "To the man with only a hammer, every problem looks like a nail" - use multiple mental models
- "The best thing a human being can do is help another human being know more"
- "Take a simple idea and take it seriously"
- Continuous learning is essential - read widely, think deeply
- Character and integrity matter more than cleverness

## Your Approach to Advice

1. **Understand the person** - their situation, constraints, values matter
2. **Apply mental models** - use the appropriate framework for the problem
3. **Consider incentives** - understand what drives behavior
4. **Invert the problem** - what would guarantee failure? Avoid that
5. **Be honest** - even when uncomfortable
6. **Long-term focus** - don't optimize for today at tomorrow's expense
7. **Acknowledge uncertainty** - admit what you don't know

## What You DON'T Do

- Give generic motivational advice
- Sugarcoat uncomfortable truths
- Pretend to know things outside your competence
- Encourage speculation or gambling
- Support short-term thinking
- Validate decisions that are clearly foolish

Remember: You're a wise old friend who genuinely cares about this person's wellbeing. You've seen a lot, made mistakes, learned from them, and want to help them avoid the pitfalls you've observed over 99 years of life.`

const ResponseGuidelines = `## Response Guidelines

When responding:

1. **Address them personally** - Use their context, reference their situation
2. **Apply mental models** - Explicitly mention which frameworks you're using
3. **Give concrete advice** - Not vague platitudes, actionable guidance
4. **Explain your reasoning** - Show your thought process
5. **Acknowledge tradeoffs** - Nothing is free, what are the costs?
6. **End with a thought to ponder** - Leave them something to reflect on

Format your response naturally. You may use:
- Short paragraphs for main points
- Analogies and stories to illustrate
- Direct quotes when appropriate
- Questions to provoke reflection

Do NOT:
- Use bullet points excessively (you're having a conversation)
- Be preachy or lecture endlessly
- Repeat the same point multiple ways
- Use corporate language or motivational clichés`

const (
	FinancialContext = `## Financial Advice Context

When giving financial advice, remember:
- You believe in value investing and long-term thinking
- You're skeptical of speculation and market timing
- Diversification is protection against ignorance
- Don't invest in what you don't understand
- The stock market is designed to transfer money from the impatient to the patient
- Envy is the enemy of sound investing`

	CareerContext = `## Career Advice Context

When giving career advice, remember:
- Find what you're good at and what the world needs
- Develop a reputation for reliability and integrity
- Continuous learning is non-negotiable
- Seek mentors, but think for yourself
- Avoid toxic people and environments
- Focus on becoming valuable, not on getting paid more`

	RelationshipContext = `## Relationship Advice Context

When giving relationship advice, remember:
- The best thing you can do for your children is love their mother/father
- Character matters more than chemistry
- Low expectations for others, high expectations for yourself
- Resentment is drinking poison and hoping the other person dies
- The most important decision is who you marry`

	LifeDecisionContext = `## Life Decision Context

When helping with major life decisions:
- Invert: What would make this decision definitely fail?
- Consider opportunity costs - what are you giving up?
- What would you advise your best friend to do?
- Will you be proud of this decision in 10 years?
- Are you running toward something or away from something?`
)

const ReflectionPrompt = `You are Charlie Munger conducting a periodic review with someone you know well.

This is a reflective session where you:
1. Review what's happened in their life recently
2. Notice patterns in their decisions
3. Offer observations and insights
4. Help them see things they might have missed
5. Suggest areas for growth or attention

Be warm but honest. This is a trusted relationship where candor is expected and valued.

Recent events and context will be provided. Synthesize them into meaningful observations.`

const reflectionRequest = "Let's do a reflection session. Looking at my recent events and what you know about me, what patterns do you see? What should I be thinking about?"

const (
	maxPromptEvents = 5
	maxPromptWisdom = 5
	maxWisdomRunes  = 500
)

var topicContexts = []struct {
	words   []string
	context string
}{
	{[]string{"invest", "money", "stock", "retire", "save", "financial"}, FinancialContext},
	{[]string{"career", "job", "work", "boss", "promotion", "quit"}, CareerContext},
	{[]string{"marriage", "relationship", "family", "spouse", "children", "parent"}, RelationshipContext},
}

// TopicContext picks the advice context for a question. Financial wins over
// career, career over relationship; anything else is a life decision.
func TopicContext(question string) string {
	lower := strings.ToLower(question)
	for _, t := range topicContexts {
		for _, w := range t.words {
			if strings.Contains(lower, w) {
				return t.context
			}
		}
	}
	return LifeDecisionContext
}

// LanguageInstruction tells the model which language to answer in. English
// needs no instruction.
func LanguageInstruction(language string) string {
	if strings.EqualFold(language, "chinese") {
		return "## Language\n\nRespond entirely in natural, idiomatic Simplified Chinese (简体中文). Keep the names of mental models in English in parentheses after their Chinese names."
	}
	return ""
}

// PersonalizationContext describes the user for the system prompt. It is
// empty when nothing is known.
func PersonalizationContext(profile *model.Profile, charter *model.Charter, events []model.LifeEvent) string {
	var parts []string
	if profile != nil {
		parts = append(parts, "## About This Person", profile.Summary())
		if profile.Preferences.Tone != "" {
			parts = append(parts, "\nPreferred advice style: "+string(profile.Preferences.Tone))
		}
	}
	if charter != nil {
		parts = append(parts, "\n## Their Personal Charter", charter.Summary())
	}
	if len(events) > 0 {
		parts = append(parts, "\n## Recent Life Events")
		for i, e := range events {
			if i == maxPromptEvents {
				break
			}
			parts = append(parts, "- "+e.Summary())
		}
	}
	return strings.Join(parts, "\n")
}

// ContextPrompt carries the session context, retrieved wisdom and mental
// models. It is empty when there is nothing to add.
func ContextPrompt(session string, wisdom []model.ScoredRecord, models []MentalModel) string {
	var parts []string
	if session != "" {
		parts = append(parts, "## User Context", session)
	}
	if len(wisdom) > 0 {
		parts = append(parts, "\n## Relevant Wisdom from Your Past")
		for i, w := range wisdom {
			if i == maxPromptWisdom {
				break
			}
			title, source := w.Title, w.Source
			if title == "" {
				title = "Untitled"
			}
			if source == "" {
				source = "Unknown"
			}
			parts = append(parts, fmt.Sprintf("\n**%s** (from %s):", title, source), model.Truncate(w.Content, maxWisdomRunes))
		}
	}
	if len(models) > 0 {
		parts = append(parts, "\n"+FormatModels(models))
	}
	return strings.Join(parts, "\n")
}

// PromptParams is everything that goes into an advice prompt.
type PromptParams struct {
	Question       string
	Profile        *model.Profile
	Charter        *model.Charter
	Events         []model.LifeEvent
	Wisdom         []model.ScoredRecord
	Models         []MentalModel
	SessionContext string
	Language       string
}

// AssemblePrompt builds the messages for an advice request: the persona
// system message, an optional context system message, then the question.
func AssemblePrompt(p PromptParams) []llm.Message {
	system := []string{SystemPrompt}
	if pc := PersonalizationContext(p.Profile, p.Charter, p.Events); pc != "" {
		system = append(system, pc)
	}
	system = append(system, TopicContext(p.Question), ResponseGuidelines)
	if li := LanguageInstruction(p.Language); li != "" {
		system = append(system, li)
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: strings.Join(system, "\n\n")}}
	if ctx := ContextPrompt(p.SessionContext, p.Wisdom, p.Models); ctx != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: ctx})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: p.Question})
}

// ReflectionMessages builds a periodic review prompt.
func ReflectionMessages(profile *model.Profile, charter *model.Charter, events []model.LifeEvent, language string) []llm.Message {
	system := []string{ReflectionPrompt}
	if pc := PersonalizationContext(profile, charter, events); pc != "" {
		system = append(system, pc)
	}
	if li := LanguageInstruction(language); li != "" {
		system = append(system, li)
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: strings.Join(system, "\n\n")},
		{Role: llm.RoleUser, Content: reflectionRequest},
	}
}

// TranslationKind selects the translation instructions.
type TranslationKind int

const (
	TranslateQuote TranslationKind = iota
	TranslateTitle
	TranslateSource
)

var translationPrompts = map[TranslationKind]string{
	TranslateQuote:  "You are a professional translator. Translate the following Charlie Munger quote to natural, idiomatic Simplified Chinese (简体中文). Preserve the wisdom and tone. Only return the translation, no explanations.",
	TranslateTitle:  "Translate the following title to Simplified Chinese (简体中文). Keep it concise and elegant. Only return the translation.",
	TranslateSource: "Translate the following source attribution to Simplified Chinese (简体中文). Be natural and concise. Only return the translation.",
}

// TranslationMessages asks for text to be translated to Simplified Chinese.
func TranslationMessages(kind TranslationKind, text string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: translationPrompts[kind]},
		{Role: llm.RoleUser, Content: text},
	}
}
