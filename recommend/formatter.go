package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/gokul-gopan-k/agent-recommender/graph"
)

// ResponseFormatter renders the ranked candidates into the final user-facing
// payload. It owns the Response slot and is the graph's terminal node.
//
// Formatting is deterministic templating, truncated to topK items. An empty
// ranked list is not an error: the formatter emits an explanatory no-results
// summary and the run completes normally.
type ResponseFormatter struct {
	topK int
}

// NewResponseFormatter creates the formatter stage keeping at most topK
// items.
func NewResponseFormatter(topK int) *ResponseFormatter {
	if topK <= 0 {
		topK = 10
	}
	return &ResponseFormatter{topK: topK}
}

// Run implements graph.Node.
func (f *ResponseFormatter) Run(_ context.Context, state RunState) graph.NodeResult[RunState] {
	return graph.NodeResult[RunState]{
		Delta: RunState{Response: f.format(state)},
		Route: graph.Stop(),
	}
}

func (f *ResponseFormatter) format(state RunState) *FormattedResponse {
	if state.Preferences == nil || len(state.Preferences.ContentTypes) == 0 {
		return &FormattedResponse{
			Summary: "We couldn't tell whether you're after books or movies. Try mentioning what you'd like to read or watch.",
			Items:   []RecommendedItem{},
		}
	}

	if len(state.Ranked) == 0 {
		return &FormattedResponse{
			Summary: "No recommendations matched your preferences." + degradedNote(state.Degraded),
			Items:   []RecommendedItem{},
		}
	}

	ranked := state.Ranked
	if len(ranked) > f.topK {
		ranked = ranked[:f.topK]
	}

	items := make([]RecommendedItem, 0, len(ranked))
	for _, c := range ranked {
		items = append(items, RecommendedItem{
			Title:       c.Title,
			ContentType: c.ContentType,
			Rationale:   rationale(c, state.Preferences.Themes),
		})
	}

	summary := fmt.Sprintf("Here are %d picks based on your preferences.", len(items))
	summary += degradedNote(state.Degraded)

	return &FormattedResponse{Summary: summary, Items: items}
}

// rationale explains why a candidate placed where it did. Every item gets a
// populated rationale, even when no theme matched.
func rationale(c Candidate, themes []string) string {
	matched := matchedThemes(c, themes)
	if len(matched) > 0 {
		return fmt.Sprintf("Matches your interest in %s.", strings.Join(matched, ", "))
	}
	return fmt.Sprintf("A %s pick suggested for your preferences.", c.ContentType)
}

// degradedNote reports content types the generator could not serve.
func degradedNote(degraded []ContentType) string {
	if len(degraded) == 0 {
		return ""
	}
	labels := make([]string, len(degraded))
	for i, ct := range degraded {
		labels[i] = string(ct)
	}
	return fmt.Sprintf(" (%s suggestions were unavailable this time.)", strings.Join(labels, ", "))
}
