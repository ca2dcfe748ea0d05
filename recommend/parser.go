package recommend

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gokul-gopan-k/agent-recommender/graph"
	"github.com/gokul-gopan-k/agent-recommender/graph/model"
)

// parserSystemPrompt is the single instruction template used for every parse
// call. Keeping it fixed makes parsing reproducible against a stubbed model.
const parserSystemPrompt = `You extract structured preferences for book and movie recommendations.
Read the user's message and respond ONLY with a JSON object of this exact shape:
{"content_types": ["book" and/or "movie"], "themes": ["keyword", ...]}
Rules:
- content_types contains only "book" and/or "movie", and only those the user actually asked about. Leave it empty if neither can be inferred.
- themes are short lowercase keywords for genres, topics, moods, or constraints the user mentioned.
No markdown, no explanation, just the JSON object.`

// PreferenceParser normalizes raw free-text input into a PreferenceRecord.
// It owns the Preferences slot of RunState.
type PreferenceParser struct {
	model model.ChatModel
}

// NewPreferenceParser creates the parser stage.
func NewPreferenceParser(m model.ChatModel) *PreferenceParser {
	return &PreferenceParser{model: m}
}

// Run implements graph.Node. Failure to reach the model, or output that is
// not the expected JSON, is an upstream-service error; input the model
// legitimately cannot classify yields a record with no content types, which
// the graph routes to the formatter for an explanatory response.
func (p *PreferenceParser) Run(ctx context.Context, state RunState) graph.NodeResult[RunState] {
	out, err := p.model.Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: parserSystemPrompt},
		{Role: model.RoleUser, Content: state.RawText},
	})
	if err != nil {
		return graph.NodeResult[RunState]{Err: upstreamErr(err)}
	}

	var parsed struct {
		ContentTypes []string `json:"content_types"`
		Themes       []string `json:"themes"`
	}
	if err := json.Unmarshal([]byte(stripFences(out.Text)), &parsed); err != nil {
		return graph.NodeResult[RunState]{Err: upstreamErr(err)}
	}

	record := &PreferenceRecord{
		ContentTypes: normalizeContentTypes(parsed.ContentTypes),
		Themes:       normalizeThemes(parsed.Themes),
		RawText:      state.RawText,
	}

	return graph.NodeResult[RunState]{Delta: RunState{Preferences: record}}
}

// stripFences removes the markdown code fences models wrap JSON in despite
// instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// normalizeContentTypes maps labels to known content types, deduplicated,
// preserving first-seen order.
func normalizeContentTypes(labels []string) []ContentType {
	types := make([]ContentType, 0, len(labels))
	seen := make(map[ContentType]bool)
	for _, label := range labels {
		ct, ok := ParseContentType(strings.ToLower(strings.TrimSpace(label)))
		if !ok || seen[ct] {
			continue
		}
		seen[ct] = true
		types = append(types, ct)
	}
	return types
}

// normalizeThemes lowercases and trims keywords, dropping empties and
// duplicates while preserving order.
func normalizeThemes(themes []string) []string {
	out := make([]string, 0, len(themes))
	seen := make(map[string]bool)
	for _, theme := range themes {
		t := strings.ToLower(strings.TrimSpace(theme))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
