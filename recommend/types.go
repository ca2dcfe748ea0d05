// Package recommend implements the recommendation workflow: the four agent
// stages (preference parsing, candidate generation, ranking, response
// formatting), the run state they share, and the service that executes runs
// and exposes their snapshot history and topology.
package recommend

// ContentType is the kind of item a recommendation refers to.
type ContentType string

// Supported content types.
const (
	ContentBook  ContentType = "book"
	ContentMovie ContentType = "movie"
)

// ParseContentType maps a free-form label to a ContentType. It tolerates the
// plural forms models tend to produce.
func ParseContentType(s string) (ContentType, bool) {
	switch s {
	case "book", "books":
		return ContentBook, true
	case "movie", "movies", "film", "films":
		return ContentMovie, true
	}
	return "", false
}

// PreferenceRecord is the structured form of a user's free-text preferences.
// It is produced once by the preference parser and never modified afterwards.
type PreferenceRecord struct {
	// ContentTypes lists the kinds of items the user asked for, in the
	// order they were inferred, deduplicated. Empty means no content type
	// could be inferred from the input.
	ContentTypes []ContentType `json:"content_types"`

	// Themes are extracted theme keywords, lowercased, in extraction order.
	Themes []string `json:"themes"`

	// RawText is the original user input.
	RawText string `json:"raw_text"`
}

// Candidate is one recommended item before formatting.
type Candidate struct {
	Title       string      `json:"title"`
	ContentType ContentType `json:"content_type"`
	Description string      `json:"description"`

	// Score is assigned by the ranker; zero until then.
	Score float64 `json:"score"`
}

// RecommendedItem is one entry in the final user-facing response.
type RecommendedItem struct {
	Title       string      `json:"title"`
	ContentType ContentType `json:"content_type"`
	Rationale   string      `json:"rationale"`
}

// FormattedResponse is the final recommendation payload. An empty Items list
// with an explanatory Summary is the no-results case, which is a valid
// outcome, not an error.
type FormattedResponse struct {
	Summary string            `json:"summary"`
	Items   []RecommendedItem `json:"items"`
}

// RunState is the single mutable state object threaded through the workflow
// graph. Each node owns exactly one output slot and must not write the
// others; the reducer enforces this by merging only the fields a node's delta
// actually set.
//
// Slot ownership:
//
//	Preferences -> preference parser
//	Candidates, Degraded -> candidate generator
//	Ranked -> ranker
//	Response -> response formatter
type RunState struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id"`

	// RawText is the preferences text the run was created with.
	RawText string `json:"raw_text"`

	// Preferences is set by the parser.
	Preferences *PreferenceRecord `json:"preferences,omitempty"`

	// Candidates is the generator's raw output: unranked, may contain
	// duplicates.
	Candidates []Candidate `json:"candidates,omitempty"`

	// Degraded lists content types whose generation failed while others
	// succeeded. Partial failure degrades gracefully instead of failing the
	// run.
	Degraded []ContentType `json:"degraded,omitempty"`

	// Ranked is the ranker's output: deduplicated, scored, ordered.
	Ranked []Candidate `json:"ranked,omitempty"`

	// Response is the formatter's final payload.
	Response *FormattedResponse `json:"response,omitempty"`
}

// mergeState is the workflow reducer. It copies only the slots a delta set,
// so a node cannot clear or overwrite another node's output. Once a slot is
// set it is never re-cleared within the run.
func mergeState(prev, delta RunState) RunState {
	if delta.Preferences != nil {
		prev.Preferences = delta.Preferences
	}
	if delta.Candidates != nil {
		prev.Candidates = delta.Candidates
	}
	if delta.Degraded != nil {
		prev.Degraded = delta.Degraded
	}
	if delta.Ranked != nil {
		prev.Ranked = delta.Ranked
	}
	if delta.Response != nil {
		prev.Response = delta.Response
	}
	return prev
}
