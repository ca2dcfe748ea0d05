package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gokul-gopan-k/agent-recommender/graph"
	"github.com/gokul-gopan-k/agent-recommender/graph/model"
)

const generatorSystemPrompt = `You suggest %ss matching a reader's stated preferences.
Respond ONLY with a JSON object of this exact shape:
{"candidates": [{"title": "...", "description": "..."}, ...]}
Rules:
- Suggest up to %d real, well-known %ss.
- Each description is one or two sentences naming the themes the work covers.
No markdown, no explanation, just the JSON object.`

// CandidateGenerator queries the model once per requested content type and
// collects raw candidates. It owns the Candidates and Degraded slots.
//
// Partial failure degrades gracefully: if one content type fails but another
// succeeds, the run continues with what succeeded and the failed types are
// recorded in Degraded. Only total failure is fatal.
type CandidateGenerator struct {
	model   model.ChatModel
	perType int
}

// NewCandidateGenerator creates the generator stage requesting up to perType
// candidates per content type.
func NewCandidateGenerator(m model.ChatModel, perType int) *CandidateGenerator {
	if perType <= 0 {
		perType = 5
	}
	return &CandidateGenerator{model: m, perType: perType}
}

// Run implements graph.Node.
func (g *CandidateGenerator) Run(ctx context.Context, state RunState) graph.NodeResult[RunState] {
	prefs := state.Preferences

	candidates := make([]Candidate, 0, g.perType*len(prefs.ContentTypes))
	degraded := make([]ContentType, 0)
	var lastErr error

	for _, ct := range prefs.ContentTypes {
		generated, err := g.generate(ctx, ct, prefs)
		if err != nil {
			degraded = append(degraded, ct)
			lastErr = err
			continue
		}
		candidates = append(candidates, generated...)
	}

	if len(degraded) == len(prefs.ContentTypes) && lastErr != nil {
		return graph.NodeResult[RunState]{Err: upstreamErr(lastErr)}
	}

	return graph.NodeResult[RunState]{Delta: RunState{Candidates: candidates, Degraded: degraded}}
}

// generate makes one model call for a single content type.
func (g *CandidateGenerator) generate(ctx context.Context, ct ContentType, prefs *PreferenceRecord) ([]Candidate, error) {
	user := fmt.Sprintf("Preferences: %s", prefs.RawText)
	if len(prefs.Themes) > 0 {
		user += fmt.Sprintf("\nThemes: %s", strings.Join(prefs.Themes, ", "))
	}

	out, err := g.model.Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: fmt.Sprintf(generatorSystemPrompt, ct, g.perType, ct)},
		{Role: model.RoleUser, Content: user},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Candidates []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(stripFences(out.Text)), &parsed); err != nil {
		return nil, fmt.Errorf("malformed candidate payload: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed.Candidates))
	for _, c := range parsed.Candidates {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			// Invalid entries are dropped here, never passed downstream.
			continue
		}
		candidates = append(candidates, Candidate{
			Title:       title,
			ContentType: ct,
			Description: strings.TrimSpace(c.Description),
		})
	}
	return candidates, nil
}
