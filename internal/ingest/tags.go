package ingest

import "strings"

const maxTags = 5

var tagKeywords = []struct {
	tag      string
	keywords []string
}{
	{"investing", []string{"invest", "stock", "market", "portfolio", "dividend"}},
	{"mental_models", []string{"mental model", "framework", "thinking", "latticework"}},
	{"psychology", []string{"psychology", "bias", "behavior", "cognitive"}},
	{"business", []string{"business", "company", "management", "moat"}},
	{"wisdom", []string{"wisdom", "advice", "lesson", "learn"}},
	{"mistakes", []string{"mistake", "error", "failure", "wrong"}},
	{"success", []string{"success", "achievement", "excellence"}},
	{"character", []string{"character", "integrity", "honest", "trust"}},
	{"relationships", []string{"relationship", "partner", "marriage", "friend"}},
	{"career", []string{"career", "job", "work", "profession"}},
}

// ExtractTags tags text by keyword. At most five tags are returned, in a
// fixed topic order.
func ExtractTags(text string) []string {
	lower := strings.ToLower(text)
	tags := []string{}
	for _, tk := range tagKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, tk.tag)
				break
			}
		}
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}
