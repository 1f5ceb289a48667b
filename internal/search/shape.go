package search

import "strings"

// Shape is an informational annotation of what kind of query this looks
// like, attached to search results so callers can judge relevance —
// it never changes which store is queried, since savecontext has one.
type Shape string

const (
	ShapeDecision    Shape = "decision"
	ShapeEpisode     Shape = "episode"
	ShapeOperational Shape = "operational"
	ShapeUnknown     Shape = "unknown"
)

var decisionPatterns = []string{
	"how do i", "how to", "why did we", "decision for",
	"pattern for", "why is", "rationale",
}

var episodePatterns = []string{
	"what happened", "last session", "previous", "history",
	"what did", "earlier", "before", "last time", "recent",
}

var operationalPatterns = []string{
	"issue", "task", "blocked", "status", "plan", "assigned", "pending",
}

// ClassifyShape guesses the shape of a free-text query from an ordered list
// of keyword patterns, same idiom as a skill-routing classifier, repurposed
// here purely as a result annotation.
func ClassifyShape(query string) Shape {
	q := strings.ToLower(query)
	for _, p := range decisionPatterns {
		if strings.Contains(q, p) {
			return ShapeDecision
		}
	}
	for _, p := range episodePatterns {
		if strings.Contains(q, p) {
			return ShapeEpisode
		}
	}
	for _, p := range operationalPatterns {
		if strings.Contains(q, p) {
			return ShapeOperational
		}
	}
	return ShapeUnknown
}
