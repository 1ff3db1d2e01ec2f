package extract

import "strings"

// Degraded natural-language fallbacks for stages that can live with a
// best-effort answer (the mechanics analyzer, explanation recovery). The rule
// synthesis path never uses these for the rules array itself: an
// unvalidatable rules array is worse than an explicit failure.

// LooseKeywords scans free text for terms of a closed vocabulary. Matching is
// case-insensitive and word-boundary-sloppy; the result is advisory only.
func LooseKeywords(content string, vocabulary []string) []string {
	lower := strings.ToLower(content)
	var found []string
	for _, term := range vocabulary {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			found = append(found, term)
		}
	}
	return found
}

// LooseExplanation derives a best-effort explanation from paragraph
// structure: the first non-empty paragraph that is not an object literal.
func LooseExplanation(content string) string {
	for _, para := range strings.Split(content, "\n\n") {
		p := strings.TrimSpace(para)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "{") || strings.HasPrefix(p, "[") || strings.HasPrefix(p, "```") {
			continue
		}
		return p
	}
	return strings.TrimSpace(content)
}
