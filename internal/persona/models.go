package persona

import (
	"fmt"
	"strings"
)

// ModelCategory is the discipline a mental model comes from.
type ModelCategory string

const (
	Psychology  ModelCategory = "psychology"
	Economics   ModelCategory = "economics"
	Mathematics ModelCategory = "mathematics"
	Physics     ModelCategory = "physics"
	Biology     ModelCategory = "biology"
	Engineering ModelCategory = "engineering"
	Philosophy  ModelCategory = "philosophy"
	Business    ModelCategory = "business"
)

// MentalModel is one framework from the latticework.
type MentalModel struct {
	Name        string        `json:"name"`
	Category    ModelCategory `json:"category"`
	Description string        `json:"description"`
	Application string        `json:"application"`
	Quote       string        `json:"quote,omitempty"`
}

// Models is the latticework, grouped by discipline.
var Models = []MentalModel{
	{
		Name:        "Incentives",
		Category:    Psychology,
		Description: "People respond to incentives. Never think about what people should do, think about what they will do given their incentives.",
		Application: "Analyze the incentive structure before judging behavior. 'Show me the incentive and I'll show you the outcome.'",
		Quote:       "Never, ever, think about something else when you should be thinking about the power of incentives.",
	},
	{
		Name:        "Denial",
		Category:    Psychology,
		Description: "The tendency to deny reality when it's too painful or inconvenient to accept.",
		Application: "Watch for situations where you or others might be avoiding uncomfortable truths.",
		Quote:       "The first principle is that you must not fool yourself - and you are the easiest person to fool.",
	},
	{
		Name:        "Social Proof",
		Category:    Psychology,
		Description: "People look to what others are doing to determine correct behavior.",
		Application: "Be skeptical of crowd behavior. What's popular isn't always right.",
		Quote:       "When everybody is buying something, that's often the exact wrong time to buy it.",
	},
	{
		Name:        "Consistency and Commitment",
		Category:    Psychology,
		Description: "Once we make a commitment, we tend to be consistent with that commitment, even when wrong.",
		Application: "Be willing to change your mind when facts change. Avoid escalation of commitment.",
		Quote:       "The human mind is a lot like the human egg, and the human egg has a shut-off device.",
	},
	{
		Name:        "Reciprocity",
		Category:    Psychology,
		Description: "We feel obligated to repay favors, even when unsolicited.",
		Application: "Be aware of reciprocity in negotiations and relationships. Don't let gifts cloud judgment.",
	},
	{
		Name:        "Envy and Jealousy",
		Category:    Psychology,
		Description: "Envy is one of the most destructive emotions, driving irrational behavior.",
		Application: "Don't compare yourself to others. Focus on your own goals and progress.",
		Quote:       "The world is not driven by greed; it's driven by envy.",
	},
	{
		Name:        "Authority Bias",
		Category:    Psychology,
		Description: "The tendency to attribute greater accuracy to the opinion of authority figures.",
		Application: "Evaluate arguments on their merits, not on who's making them.",
	},
	{
		Name:        "Liking/Loving Tendency",
		Category:    Psychology,
		Description: "We distort facts and ignore faults of people we like.",
		Application: "Try to evaluate people and ideas objectively, regardless of personal feelings.",
	},

	{
		Name:        "Opportunity Cost",
		Category:    Economics,
		Description: "The true cost of something is what you give up to get it.",
		Application: "Always consider what you're NOT doing when you choose to do something.",
		Quote:       "Intelligent people make decisions based on opportunity costs.",
	},
	{
		Name:        "Comparative Advantage",
		Category:    Economics,
		Description: "Focus on what you do relatively better, not absolutely better.",
		Application: "Specialize in your strengths. Outsource or delegate areas where others have advantage.",
	},
	{
		Name:        "Supply and Demand",
		Category:    Economics,
		Description: "Prices are determined by the interaction of supply and demand.",
		Application: "Understand market dynamics before making decisions. Scarcity drives value.",
	},
	{
		Name:        "Compound Interest",
		Category:    Economics,
		Description: "Small gains compound into large gains over time.",
		Application: "Start early, be patient. The power is in the time, not the rate.",
		Quote:       "The first rule of compounding: Never interrupt it unnecessarily.",
	},

	{
		Name:        "Inversion",
		Category:    Mathematics,
		Description: "Instead of thinking about how to succeed, think about how to avoid failure.",
		Application: "Invert problems. What would guarantee failure? Avoid those things.",
		Quote:       "Invert, always invert.",
	},
	{
		Name:        "Margin of Safety",
		Category:    Mathematics,
		Description: "Build a buffer against errors and bad luck.",
		Application: "Never bet the farm. Always maintain reserves for unexpected events.",
		Quote:       "Proper preparation for improbable events.",
	},
	{
		Name:        "Base Rates",
		Category:    Mathematics,
		Description: "The general probability of an outcome regardless of specific case details.",
		Application: "Before evaluating specifics, consider how similar situations typically turn out.",
	},
	{
		Name:        "Power Laws (Pareto)",
		Category:    Mathematics,
		Description: "A small number of causes often account for most of the effects.",
		Application: "Focus on the vital few, not the trivial many. 80/20 principle.",
	},

	{
		Name:        "Critical Mass",
		Category:    Physics,
		Description: "Systems need to reach a threshold before effects become visible.",
		Application: "Be patient with investments that haven't yet reached critical mass.",
	},
	{
		Name:        "Momentum",
		Category:    Physics,
		Description: "Objects in motion tend to stay in motion.",
		Application: "Understand that trends often continue longer than expected.",
	},

	{
		Name:        "Evolution",
		Category:    Biology,
		Description: "Adaptation through variation and selection.",
		Application: "What survives isn't always the strongest, but the most adaptable.",
	},
	{
		Name:        "Red Queen Effect",
		Category:    Biology,
		Description: "You must keep running just to stay in place.",
		Application: "In competitive environments, you must continuously improve to maintain position.",
	},

	{
		Name:        "Redundancy",
		Category:    Engineering,
		Description: "Having backup systems prevents complete failure.",
		Application: "Build redundancy into critical systems and plans.",
	},
	{
		Name:        "Feedback Loops",
		Category:    Engineering,
		Description: "Outputs of a system become inputs that affect future outputs.",
		Application: "Identify and leverage positive feedback loops. Break negative ones.",
	},

	{
		Name:        "Circle of Competence",
		Category:    Philosophy,
		Description: "Know what you know and what you don't know.",
		Application: "Stay within your circle. Expand it deliberately over time.",
		Quote:       "Know the edge of your competency. It's not a competency if you don't know the edge of it.",
	},
	{
		Name:        "First Principles",
		Category:    Philosophy,
		Description: "Break down complex problems into basic elements and rebuild from there.",
		Application: "Don't rely on analogies. Understand the fundamental truths.",
	},
	{
		Name:        "Occam's Razor",
		Category:    Philosophy,
		Description: "The simplest explanation is usually the correct one.",
		Application: "Prefer simple solutions over complex ones when equally effective.",
	},

	{
		Name:        "Moats",
		Category:    Business,
		Description: "Sustainable competitive advantages that protect against competition.",
		Application: "Identify and strengthen moats. Avoid businesses without them.",
		Quote:       "We're trying to find a business with a wide and long-lasting moat.",
	},
	{
		Name:        "Scale Economies",
		Category:    Business,
		Description: "Cost advantages from operating at larger scale.",
		Application: "Understand how scale affects your business or investments.",
	},
	{
		Name:        "Network Effects",
		Category:    Business,
		Description: "Value increases as more people use the product.",
		Application: "Seek businesses with strong network effects. They compound.",
	},
}

// ModelByName looks up a model, ignoring case.
func ModelByName(name string) (MentalModel, bool) {
	for _, m := range Models {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return MentalModel{}, false
}

func ModelsByCategory(c ModelCategory) []MentalModel {
	var out []MentalModel
	for _, m := range Models {
		if m.Category == c {
			out = append(out, m)
		}
	}
	return out
}

// keyword triggers, checked in order
var modelKeywords = []struct {
	keyword string
	models  []string
}{
	{"money", []string{"Compound Interest", "Margin of Safety", "Opportunity Cost"}},
	{"invest", []string{"Compound Interest", "Margin of Safety", "Base Rates", "Moats"}},
	{"career", []string{"Opportunity Cost", "Circle of Competence", "Comparative Advantage"}},
	{"decision", []string{"Inversion", "Base Rates", "First Principles"}},
	{"relationship", []string{"Reciprocity", "Incentives", "Liking/Loving Tendency"}},
	{"negotiate", []string{"Incentives", "Reciprocity", "First Principles"}},
	{"mistake", []string{"Inversion", "Denial", "Consistency and Commitment"}},
	{"risk", []string{"Margin of Safety", "Base Rates", "Redundancy"}},
	{"competition", []string{"Moats", "Red Queen Effect", "Comparative Advantage"}},
	{"team", []string{"Incentives", "Social Proof", "Authority Bias"}},
	{"habit", []string{"Consistency and Commitment", "Feedback Loops", "Momentum"}},
}

var coreModels = []string{"Inversion", "Incentives", "Circle of Competence", "Margin of Safety"}

// RelevantModels picks models whose trigger keywords appear in text. Models
// are returned once each, in the order they were first matched. With no
// match the core models are returned.
func RelevantModels(text string) []MentalModel {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	var out []MentalModel
	for _, kw := range modelKeywords {
		if !strings.Contains(lower, kw.keyword) {
			continue
		}
		for _, name := range kw.models {
			if seen[name] {
				continue
			}
			seen[name] = true
			if m, ok := ModelByName(name); ok {
				out = append(out, m)
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, name := range coreModels {
		if m, ok := ModelByName(name); ok {
			out = append(out, m)
		}
	}
	return out
}

// ModelNames returns the names of models.
func ModelNames(models []MentalModel) []string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	return names
}

// FormatModels renders models as a prompt section.
func FormatModels(models []MentalModel) string {
	var sb strings.Builder
	sb.WriteString("Relevant Mental Models to Consider:")
	for _, m := range models {
		fmt.Fprintf(&sb, "\n\n**%s** (%s)", m.Name, m.Category)
		fmt.Fprintf(&sb, "\n  - %s", m.Description)
		fmt.Fprintf(&sb, "\n  - Application: %s", m.Application)
		if m.Quote != "" {
			fmt.Fprintf(&sb, "\n  - Munger: \"%s\"", m.Quote)
		}
	}
	return sb.String()
}
