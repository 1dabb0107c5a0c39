package agent

import "strings"

// truncateAtStop cuts text immediately before the earliest occurrence of any
// stop word. It reports false when no stop word occurs.
func truncateAtStop(text string, stopWords []string) (string, bool) {
	cut := -1
	for _, w := range stopWords {
		if i := strings.Index(text, w); i >= 0 && (cut < 0 || i < cut) {
			cut = i
		}
	}
	if cut < 0 {
		return text, false
	}
	return text[:cut], true
}
