package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokul-gopan-k/agent-recommender/graph/model"
)

func generatorState(types ...ContentType) RunState {
	return RunState{
		RawText: "sci-fi with space travel",
		Preferences: &PreferenceRecord{
			ContentTypes: types,
			Themes:       []string{"sci-fi", "space"},
			RawText:      "sci-fi with space travel",
		},
	}
}

func TestCandidateGenerator_Run(t *testing.T) {
	t.Run("one call per content type", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: `{"candidates": [{"title": "Dune", "description": "Space politics."}]}`},
			{Text: `{"candidates": [{"title": "Interstellar", "description": "Space travel."}]}`},
		}}
		gen := NewCandidateGenerator(mock, 5)

		result := gen.Run(context.Background(), generatorState(ContentBook, ContentMovie))
		require.NoError(t, result.Err)
		assert.Equal(t, 2, mock.CallCount())

		require.Len(t, result.Delta.Candidates, 2)
		assert.Equal(t, "Dune", result.Delta.Candidates[0].Title)
		assert.Equal(t, ContentBook, result.Delta.Candidates[0].ContentType)
		assert.Equal(t, "Interstellar", result.Delta.Candidates[1].Title)
		assert.Equal(t, ContentMovie, result.Delta.Candidates[1].ContentType)
		assert.Empty(t, result.Delta.Degraded)
	})

	t.Run("entries without a title are dropped", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: `{"candidates": [{"title": "  ", "description": "nameless"}, {"title": "Dune", "description": "ok"}]}`},
		}}
		gen := NewCandidateGenerator(mock, 5)

		result := gen.Run(context.Background(), generatorState(ContentBook))
		require.NoError(t, result.Err)
		require.Len(t, result.Delta.Candidates, 1)
		assert.Equal(t, "Dune", result.Delta.Candidates[0].Title)
	})

	t.Run("partial failure degrades instead of failing", func(t *testing.T) {
		mock := &model.MockChatModel{
			Responses: []model.ChatOut{
				{}, // consumed by the failing call
				{Text: `{"candidates": [{"title": "Interstellar", "description": "Space travel."}]}`},
			},
			Errs: []error{errors.New("overloaded")},
		}
		gen := NewCandidateGenerator(mock, 5)

		result := gen.Run(context.Background(), generatorState(ContentBook, ContentMovie))
		require.NoError(t, result.Err)

		assert.Equal(t, []ContentType{ContentBook}, result.Delta.Degraded)
		require.Len(t, result.Delta.Candidates, 1)
		assert.Equal(t, ContentMovie, result.Delta.Candidates[0].ContentType)
	})

	t.Run("malformed payload degrades that content type", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: "not json"},
			{Text: `{"candidates": [{"title": "Interstellar", "description": "Space travel."}]}`},
		}}
		gen := NewCandidateGenerator(mock, 5)

		result := gen.Run(context.Background(), generatorState(ContentBook, ContentMovie))
		require.NoError(t, result.Err)
		assert.Equal(t, []ContentType{ContentBook}, result.Delta.Degraded)
		assert.Len(t, result.Delta.Candidates, 1)
	})

	t.Run("total failure is an upstream error", func(t *testing.T) {
		mock := &model.MockChatModel{Err: errors.New("unreachable")}
		gen := NewCandidateGenerator(mock, 5)

		result := gen.Run(context.Background(), generatorState(ContentBook, ContentMovie))
		require.Error(t, result.Err)

		var upstream *UpstreamServiceError
		assert.ErrorAs(t, result.Err, &upstream)
	})
}
