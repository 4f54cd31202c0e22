package attributes

import "strings"

// keywordFamily is a named set of synonyms. Families are always kept in
// ordered slices because the declaration order decides ties.
type keywordFamily struct {
	name     string
	keywords []string
}

// irrelevantKeywords mark labels that describe surroundings rather than the candle.
var irrelevantKeywords = []string{
	"lampshade",
	"ceramic",
	"tableware",
	"porcelain",
	"dishware",
	"serveware",
	"drinkware",
	"light fixture",
	"furniture",
	"interior design",
	"font",
	"logo",
	"rectangle",
	"flooring",
	"textile",
}

// FilterRelevant drops labels whose description contains an irrelevant keyword.
func FilterRelevant(labels []VisionLabel) []VisionLabel {
	relevant := make([]VisionLabel, 0, len(labels))
	for _, l := range labels {
		desc := strings.ToLower(l.Description)
		irrelevant := false
		for _, kw := range irrelevantKeywords {
			if strings.Contains(desc, kw) {
				irrelevant = true
				break
			}
		}
		if !irrelevant {
			relevant = append(relevant, l)
		}
	}
	return relevant
}

// joinDescriptions lower-cases and space-joins label descriptions.
func joinDescriptions(labels []VisionLabel) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = strings.ToLower(l.Description)
	}
	return strings.Join(parts, " ")
}

// RelevantText is the text surface the classifiers match keywords against.
func RelevantText(labels []VisionLabel) string {
	return joinDescriptions(FilterRelevant(labels))
}

// matchFamilies returns the names of all families with a keyword in text,
// in family declaration order.
func matchFamilies(families []keywordFamily, text string) []string {
	var matched []string
	for _, f := range families {
		if containsAny(text, f.keywords...) {
			matched = append(matched, f.name)
		}
	}
	return matched
}

// containsAny reports whether any of substrings occurs in s. Keywords match
// inside longer words, so "stick" fires on "candlestick" and "red" on "reddish".
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
