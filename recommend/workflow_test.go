package recommend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokul-gopan-k/agent-recommender/graph/model"
	"github.com/gokul-gopan-k/agent-recommender/graph/store"
)

const parseMovieJSON = `{"content_types": ["movie"], "themes": ["sci-fi", "space"]}`

const generateMovieJSON = `{"candidates": [
	{"title": "Interstellar", "description": "Sci-fi about space travel."},
	{"title": " INTERSTELLAR ", "description": "duplicate entry"},
	{"title": "The Notebook", "description": "A romance."}
]}`

// blockingChatModel never answers: every call blocks until its context is
// done and returns the context error, the shape of a hung provider.
type blockingChatModel struct {
	mu    sync.Mutex
	calls int
}

func (m *blockingChatModel) Chat(ctx context.Context, _ []model.Message) (model.ChatOut, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	<-ctx.Done()
	return model.ChatOut{}, ctx.Err()
}

func (m *blockingChatModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestService(t *testing.T, mock model.ChatModel, opts Options) (*Service, *store.MemStore[RunState]) {
	t.Helper()
	st := store.NewMemStore[RunState]()
	if opts.Retention == 0 {
		// No janitor goroutine unless a test asks for one.
		opts.Retention = -1
	}
	svc, err := NewService(mock, st, opts)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, st
}

func TestService_Execute(t *testing.T) {
	t.Run("full run", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: parseMovieJSON},
			{Text: generateMovieJSON},
		}}
		svc, _ := newTestService(t, mock, Options{})

		final, err := svc.Execute(context.Background(), "I want sci-fi movies about space")
		require.NoError(t, err)
		require.NotEmpty(t, final.RunID)
		require.NotNil(t, final.Response)

		// Deduplicated and ranked by theme overlap.
		require.Len(t, final.Response.Items, 2)
		assert.Equal(t, "Interstellar", final.Response.Items[0].Title)
		assert.Contains(t, final.Response.Items[0].Rationale, "sci-fi")
		assert.Contains(t, final.Response.Summary, "2 picks")

		// One parse call, one generate call for the single content type.
		assert.Equal(t, 2, mock.CallCount())

		// Status is terminal by the time Execute returns.
		states, err := svc.GetStates(context.Background(), final.RunID)
		require.NoError(t, err)
		assert.Equal(t, store.RunCompleted, states.Status)

		// One snapshot per completed node, in execution order.
		require.Len(t, states.Snapshots, 4)
		order := make([]string, 0, 4)
		for _, snap := range states.Snapshots {
			order = append(order, snap.Node)
		}
		assert.Equal(t, []string{
			NodeParsePreferences,
			NodeGenerateCandidates,
			NodeRankCandidates,
			NodeFormatResponse,
		}, order)
	})

	t.Run("each node writes only its own slot", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: parseMovieJSON},
			{Text: generateMovieJSON},
		}}
		svc, _ := newTestService(t, mock, Options{})

		final, err := svc.Execute(context.Background(), "sci-fi movies")
		require.NoError(t, err)

		states, err := svc.GetStates(context.Background(), final.RunID)
		require.NoError(t, err)
		require.Len(t, states.Snapshots, 4)

		afterParse := states.Snapshots[0].State
		assert.NotNil(t, afterParse.Preferences)
		assert.Nil(t, afterParse.Candidates)
		assert.Nil(t, afterParse.Ranked)
		assert.Nil(t, afterParse.Response)

		afterGenerate := states.Snapshots[1].State
		assert.NotNil(t, afterGenerate.Preferences)
		assert.NotEmpty(t, afterGenerate.Candidates)
		assert.Nil(t, afterGenerate.Ranked)

		afterRank := states.Snapshots[2].State
		assert.NotEmpty(t, afterRank.Ranked)
		assert.Nil(t, afterRank.Response)

		afterFormat := states.Snapshots[3].State
		assert.NotNil(t, afterFormat.Response)
		// Earlier slots survive untouched.
		assert.Equal(t, afterGenerate.Candidates, afterFormat.Candidates)
	})

	t.Run("rejects empty input before creating a run", func(t *testing.T) {
		mock := &model.MockChatModel{}
		svc, _ := newTestService(t, mock, Options{})

		_, err := svc.Execute(context.Background(), "   ")

		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, 0, mock.CallCount())
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		mock := &model.MockChatModel{}
		svc, _ := newTestService(t, mock, Options{})

		_, err := svc.Execute(context.Background(), strings.Repeat("x", 2001))

		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("uninferable preferences skip to the formatter", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: `{"content_types": [], "themes": []}`},
		}}
		svc, _ := newTestService(t, mock, Options{})

		final, err := svc.Execute(context.Background(), "hello")
		require.NoError(t, err)
		require.NotNil(t, final.Response)
		assert.Contains(t, final.Response.Summary, "couldn't tell")
		assert.Empty(t, final.Response.Items)

		// Generator and ranker never ran.
		assert.Equal(t, 1, mock.CallCount())
		states, err := svc.GetStates(context.Background(), final.RunID)
		require.NoError(t, err)
		assert.Equal(t, store.RunCompleted, states.Status)
		require.Len(t, states.Snapshots, 2)
		assert.Equal(t, NodeParsePreferences, states.Snapshots[0].Node)
		assert.Equal(t, NodeFormatResponse, states.Snapshots[1].Node)
	})

	t.Run("empty candidate set skips the ranker", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: parseMovieJSON},
			{Text: `{"candidates": []}`},
		}}
		svc, _ := newTestService(t, mock, Options{})

		final, err := svc.Execute(context.Background(), "sci-fi movies")
		require.NoError(t, err)
		require.NotNil(t, final.Response)
		assert.Contains(t, final.Response.Summary, "No recommendations matched")

		states, err := svc.GetStates(context.Background(), final.RunID)
		require.NoError(t, err)
		assert.Equal(t, store.RunCompleted, states.Status)
		require.Len(t, states.Snapshots, 3)
		assert.Equal(t, NodeGenerateCandidates, states.Snapshots[1].Node)
		assert.Equal(t, NodeFormatResponse, states.Snapshots[2].Node)
	})

	t.Run("upstream failure retries once then fails the run", func(t *testing.T) {
		boom := errors.New("model overloaded")
		mock := &model.MockChatModel{
			Responses: []model.ChatOut{{Text: parseMovieJSON}},
			Errs:      []error{nil, boom, boom},
		}
		svc, _ := newTestService(t, mock, Options{})

		final, err := svc.Execute(context.Background(), "sci-fi movies")
		require.Error(t, err)
		require.NotEmpty(t, final.RunID)
		assert.Equal(t, KindUpstream, KindOf(err))

		// Parse once, generate twice (initial attempt plus one retry).
		assert.Equal(t, 3, mock.CallCount())

		states, err := svc.GetStates(context.Background(), final.RunID)
		require.NoError(t, err)
		assert.Equal(t, store.RunFailed, states.Status)
		assert.Equal(t, NodeGenerateCandidates, states.FailedNode)
		assert.NotEmpty(t, states.Cause)

		// Only the parser's snapshot exists; the failing node never snapshots.
		require.Len(t, states.Snapshots, 1)
		assert.Equal(t, NodeParsePreferences, states.Snapshots[0].Node)
	})

	t.Run("model timeout retries once then fails as upstream", func(t *testing.T) {
		blocking := &blockingChatModel{}
		svc, _ := newTestService(t, blocking, Options{NodeTimeout: 20 * time.Millisecond})

		final, err := svc.Execute(context.Background(), "sci-fi movies")
		require.Error(t, err)
		assert.Equal(t, KindUpstream, KindOf(err))

		// The timed-out parse call is attempted twice: initial plus one retry.
		assert.Equal(t, 2, blocking.callCount())

		states, err := svc.GetStates(context.Background(), final.RunID)
		require.NoError(t, err)
		assert.Equal(t, store.RunFailed, states.Status)
		assert.Equal(t, NodeParsePreferences, states.FailedNode)
		assert.Contains(t, states.Cause, "timeout")
		assert.Empty(t, states.Snapshots)
	})

	t.Run("single-attempt policy still completes the full chain", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: parseMovieJSON},
			{Text: generateMovieJSON},
		}}
		svc, _ := newTestService(t, mock, Options{RetryAttempts: 1})

		final, err := svc.Execute(context.Background(), "sci-fi movies")
		require.NoError(t, err)

		states, err := svc.GetStates(context.Background(), final.RunID)
		require.NoError(t, err)
		assert.Equal(t, store.RunCompleted, states.Status)
		assert.Len(t, states.Snapshots, 4)
	})

	t.Run("cancellation fails the run with a recorded cause", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: parseMovieJSON}}}
		svc, _ := newTestService(t, mock, Options{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		final, err := svc.Execute(ctx, "sci-fi movies")
		require.Error(t, err)
		assert.Equal(t, KindCancelled, KindOf(err))

		states, err := svc.GetStates(context.Background(), final.RunID)
		require.NoError(t, err)
		assert.Equal(t, store.RunFailed, states.Status)
		assert.Equal(t, "cancelled", states.Cause)
	})
}

func TestService_GetStates_UnknownRun(t *testing.T) {
	svc, _ := newTestService(t, &model.MockChatModel{}, Options{})

	_, err := svc.GetStates(context.Background(), "no-such-run")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "no-such-run", notFound.RunID)
}

func TestService_Retention(t *testing.T) {
	mock := &model.MockChatModel{Responses: []model.ChatOut{
		{Text: parseMovieJSON},
		{Text: generateMovieJSON},
	}}
	svc, _ := newTestService(t, mock, Options{Retention: time.Millisecond})

	final, err := svc.Execute(context.Background(), "sci-fi movies")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	svc.evictExpired()

	_, err = svc.GetStates(context.Background(), final.RunID)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestService_Ready(t *testing.T) {
	svc, _ := newTestService(t, &model.MockChatModel{}, Options{})

	nodes, ok := svc.Ready()
	assert.True(t, ok)
	assert.Equal(t, 4, nodes)
}

func TestService_Topology(t *testing.T) {
	svc, _ := newTestService(t, &model.MockChatModel{}, Options{})

	topo := svc.Topology()

	assert.Equal(t, NodeParsePreferences, topo.Start)
	assert.Equal(t, []string{
		NodeFormatResponse,
		NodeGenerateCandidates,
		NodeParsePreferences,
		NodeRankCandidates,
	}, topo.Nodes)
	assert.Len(t, topo.Edges, 5)

	assert.True(t, strings.HasPrefix(topo.Mermaid, "graph TD\n"))
	assert.Contains(t, topo.Mermaid, "parse_preferences -.-> format_response")
	assert.Contains(t, topo.Mermaid, "rank_candidates --> format_response")
	assert.Contains(t, topo.Mermaid, "__end__")

	// Identical on every call.
	assert.Equal(t, topo, svc.Topology())
}
