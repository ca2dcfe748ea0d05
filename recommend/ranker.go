package recommend

import (
	"context"
	"sort"
	"strings"

	"github.com/gokul-gopan-k/agent-recommender/graph"
)

// Ranker deduplicates, filters, and orders candidates. It owns the Ranked
// slot. The ranking is a pure function of its inputs: no model calls, so it
// is cheaply testable and deterministic.
type Ranker struct{}

// NewRanker creates the ranker stage.
func NewRanker() *Ranker {
	return &Ranker{}
}

// Run implements graph.Node.
func (r *Ranker) Run(_ context.Context, state RunState) graph.NodeResult[RunState] {
	ranked := Rank(state.Candidates, state.Preferences)
	return graph.NodeResult[RunState]{Delta: RunState{Ranked: ranked}}
}

// Rank deduplicates candidates by normalized (title, content type) with
// first-seen wins, scores each survivor by theme overlap with the requester's
// preferences, and sorts descending by score. The sort is stable, so equal
// scores keep generation order.
func Rank(candidates []Candidate, prefs *PreferenceRecord) []Candidate {
	var themes []string
	if prefs != nil {
		themes = prefs.Themes
	}

	seen := make(map[string]bool, len(candidates))
	ranked := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := normalizeTitle(c.Title) + "|" + string(c.ContentType)
		if seen[key] {
			continue
		}
		seen[key] = true

		c.Score = themeOverlap(c, themes)
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}

// themeOverlap counts how many preference themes appear in the candidate's
// title or description, case-insensitively.
func themeOverlap(c Candidate, themes []string) float64 {
	text := strings.ToLower(c.Title + " " + c.Description)
	score := 0.0
	for _, theme := range themes {
		if theme != "" && strings.Contains(text, theme) {
			score++
		}
	}
	return score
}

// normalizeTitle lowercases and collapses whitespace so dedup keys ignore
// casing and spacing differences.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// matchedThemes returns the preference themes present in the candidate's
// text, in preference order. Used by the formatter to build rationales.
func matchedThemes(c Candidate, themes []string) []string {
	text := strings.ToLower(c.Title + " " + c.Description)
	var matched []string
	for _, theme := range themes {
		if theme != "" && strings.Contains(text, theme) {
			matched = append(matched, theme)
		}
	}
	return matched
}
