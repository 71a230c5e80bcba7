package scoring

import (
	"fmt"
	"strings"
)

// Feedback builds the ordered feedback lines for a graded answer: score band, matched, missing and
// extra keywords, then a closing suggestion. Keyword slices must be distinct and sorted.
func Feedback(score float64, studentKeywords, referenceKeywords []string) []string {
	student := toSet(studentKeywords)
	reference := toSet(referenceKeywords)

	var matched, missing, extra []string
	for _, kw := range referenceKeywords {
		if _, ok := student[kw]; ok {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}
	for _, kw := range studentKeywords {
		if _, ok := reference[kw]; !ok {
			extra = append(extra, kw)
		}
	}

	lines := []string{band(score)}
	if len(matched) > 0 {
		lines = append(lines, "Concepts covered well: "+joinFirst(matched, 5)+".")
	}
	if len(missing) > 0 {
		lines = append(lines, "Missing key concepts: "+joinFirst(missing, 5)+".")
	}
	if len(extra) > 0 {
		lines = append(lines, "Possibly irrelevant terms: "+joinFirst(extra, 3)+".")
	}
	if len(referenceKeywords) > 0 {
		lines = append(lines, fmt.Sprintf("Suggestion: review and focus on %s.", joinFirst(referenceKeywords, 3)))
	} else {
		lines = append(lines, "Suggestion: review the reference material for this question.")
	}
	return lines
}

func band(score float64) string {
	switch {
	case score >= 4.5:
		return "Excellent answer: your response closely matches the expected concepts."
	case score >= 3.0:
		return "Good answer: most of the expected concepts are covered."
	case score > 0:
		return "Partial answer: some expected concepts are covered, but important points are missing."
	default:
		return "The answer does not address the expected concepts."
	}
}

func joinFirst(words []string, n int) string {
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, ", ")
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
