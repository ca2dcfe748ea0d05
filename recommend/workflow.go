package recommend

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gokul-gopan-k/agent-recommender/graph"
	"github.com/gokul-gopan-k/agent-recommender/graph/emit"
	"github.com/gokul-gopan-k/agent-recommender/graph/model"
	"github.com/gokul-gopan-k/agent-recommender/graph/store"
)

// Node names of the recommendation graph. These form a closed set: routing
// is resolved through the edge list, never by string dispatch elsewhere.
const (
	NodeParsePreferences   = "parse_preferences"
	NodeGenerateCandidates = "generate_candidates"
	NodeRankCandidates     = "rank_candidates"
	NodeFormatResponse     = "format_response"
)

// maxPreferenceLen bounds accepted input length.
const maxPreferenceLen = 2000

// Options tunes the recommendation service. Zero values select defaults.
type Options struct {
	// TopK bounds the formatted response. Default 10.
	TopK int

	// CandidatesPerType is how many candidates each model call requests.
	// Default 5.
	CandidatesPerType int

	// RetryAttempts is total attempts per node, including the first.
	// Default 2: at most one retry of a transient upstream failure.
	RetryAttempts int

	// NodeTimeout bounds every node execution, and with it every
	// external-service call. Default 30s.
	NodeTimeout time.Duration

	// Retention is how long terminal runs stay queryable before eviction.
	// Default 30m; negative disables eviction.
	Retention time.Duration

	// Emitter receives execution events. Nil disables emission.
	Emitter emit.Emitter

	// Metrics receives Prometheus observations. Nil disables them.
	Metrics *graph.Metrics
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = 10
	}
	if o.CandidatesPerType <= 0 {
		o.CandidatesPerType = 5
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 2
	}
	if o.NodeTimeout <= 0 {
		o.NodeTimeout = 30 * time.Second
	}
	if o.Retention == 0 {
		o.Retention = 30 * time.Minute
	}
	return o
}

// Service owns the recommendation workflow: one static graph shared by all
// runs, the run registry, and retention eviction.
type Service struct {
	engine *graph.Engine[RunState]
	store  store.Store[RunState]
	opts   Options

	janitorStop chan struct{}
	janitorDone chan struct{}
}

// NewService assembles the workflow graph and starts the eviction janitor.
//
// The graph mirrors the conditional shape of the original workflow: the
// parser skips straight to the formatter when no content type was inferred,
// and the generator skips the ranker when it produced nothing. Conditional
// shortcuts are registered before the unconditional fallbacks because edge
// evaluation is first-match-wins.
func NewService(chat model.ChatModel, st store.Store[RunState], opts Options) (*Service, error) {
	opts = opts.withDefaults()

	nodes := map[string]graph.Node[RunState]{
		NodeParsePreferences:   NewPreferenceParser(chat),
		NodeGenerateCandidates: NewCandidateGenerator(chat, opts.CandidatesPerType),
		NodeRankCandidates:     NewRanker(),
		NodeFormatResponse:     NewResponseFormatter(opts.TopK),
	}

	engine := graph.New(mergeState, st, opts.Emitter, graph.Options{
		// Retries happen within a step, so the cycle guard needs one step per
		// node plus headroom, independent of the retry setting.
		MaxSteps:    len(nodes) + 1,
		NodeTimeout: opts.NodeTimeout,
		Retry: &graph.RetryPolicy{
			MaxAttempts: opts.RetryAttempts,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    2 * time.Second,
			Retryable:   IsTransient,
		},
	}).WithMetrics(opts.Metrics)
	for id, node := range nodes {
		if err := engine.Add(id, node); err != nil {
			return nil, err
		}
	}
	if err := engine.StartAt(NodeParsePreferences); err != nil {
		return nil, err
	}

	edges := []struct {
		from, to string
		when     graph.Predicate[RunState]
	}{
		{NodeParsePreferences, NodeFormatResponse, func(s RunState) bool {
			return s.Preferences == nil || len(s.Preferences.ContentTypes) == 0
		}},
		{NodeParsePreferences, NodeGenerateCandidates, nil},
		{NodeGenerateCandidates, NodeFormatResponse, func(s RunState) bool {
			return len(s.Candidates) == 0
		}},
		{NodeGenerateCandidates, NodeRankCandidates, nil},
		{NodeRankCandidates, NodeFormatResponse, nil},
	}
	for _, e := range edges {
		if err := engine.Connect(e.from, e.to, e.when); err != nil {
			return nil, err
		}
	}

	s := &Service{engine: engine, store: st, opts: opts}
	if opts.Retention > 0 {
		s.janitorStop = make(chan struct{})
		s.janitorDone = make(chan struct{})
		go s.janitor()
	}
	return s, nil
}

// Execute runs the workflow for one recommendation request.
//
// Empty or oversized input fails validation before any run is created. On
// success the returned state carries the final Response; on failure the run
// (and its snapshots up to the failing node) remains queryable by the
// returned run ID until evicted.
func (s *Service) Execute(ctx context.Context, rawText string) (RunState, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return RunState{}, &ValidationError{Message: "preferences text must not be empty"}
	}
	if len(text) > maxPreferenceLen {
		return RunState{}, &ValidationError{Message: "preferences text exceeds 2000 characters"}
	}

	runID := uuid.NewString()
	final, err := s.engine.Run(ctx, runID, RunState{RunID: runID, RawText: text})
	if err != nil {
		return RunState{RunID: runID}, err
	}
	return final, nil
}

// Ready reports whether the workflow graph is assembled, for health checks.
func (s *Service) Ready() (nodes int, ok bool) {
	topo := s.engine.Topology()
	return len(topo.Nodes), len(topo.Nodes) > 0 && topo.Start != ""
}

// Close stops the eviction janitor.
func (s *Service) Close() {
	if s.janitorStop != nil {
		close(s.janitorStop)
		<-s.janitorDone
	}
}

// janitor evicts terminal runs older than the retention window.
func (s *Service) janitor() {
	defer close(s.janitorDone)

	interval := s.opts.Retention / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.janitorStop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *Service) evictExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	expired, err := s.store.ExpiredRuns(ctx, time.Now().Add(-s.opts.Retention))
	if err != nil {
		return
	}
	for _, runID := range expired {
		_ = s.store.DeleteRun(ctx, runID)
	}
}
