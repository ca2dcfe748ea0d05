package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank(t *testing.T) {
	prefs := &PreferenceRecord{Themes: []string{"sci-fi", "space"}}

	t.Run("orders by theme overlap descending", func(t *testing.T) {
		ranked := Rank([]Candidate{
			{Title: "The Notebook", ContentType: ContentMovie, Description: "A romance."},
			{Title: "Interstellar", ContentType: ContentMovie, Description: "Sci-fi about space travel."},
			{Title: "Gravity", ContentType: ContentMovie, Description: "Stranded in space."},
		}, prefs)

		require.Len(t, ranked, 3)
		assert.Equal(t, "Interstellar", ranked[0].Title)
		assert.Equal(t, 2.0, ranked[0].Score)
		assert.Equal(t, "Gravity", ranked[1].Title)
		assert.Equal(t, 1.0, ranked[1].Score)
		assert.Equal(t, "The Notebook", ranked[2].Title)
		assert.Equal(t, 0.0, ranked[2].Score)
	})

	t.Run("equal scores keep generation order", func(t *testing.T) {
		ranked := Rank([]Candidate{
			{Title: "First", ContentType: ContentBook, Description: "space"},
			{Title: "Second", ContentType: ContentBook, Description: "space"},
			{Title: "Third", ContentType: ContentBook, Description: "space"},
		}, prefs)

		require.Len(t, ranked, 3)
		assert.Equal(t, []string{"First", "Second", "Third"},
			[]string{ranked[0].Title, ranked[1].Title, ranked[2].Title})
	})

	t.Run("deduplicates by normalized title and content type", func(t *testing.T) {
		ranked := Rank([]Candidate{
			{Title: "Dune", ContentType: ContentBook, Description: "original"},
			{Title: "  DUNE ", ContentType: ContentBook, Description: "duplicate"},
			{Title: "dune", ContentType: ContentMovie, Description: "the adaptation"},
		}, nil)

		require.Len(t, ranked, 2)
		// First seen wins for the book; the movie is a distinct item.
		assert.Equal(t, "original", ranked[0].Description)
		assert.Equal(t, ContentMovie, ranked[1].ContentType)
	})

	t.Run("does not mutate its input", func(t *testing.T) {
		input := []Candidate{
			{Title: "Interstellar", ContentType: ContentMovie, Description: "space"},
		}
		_ = Rank(input, prefs)
		assert.Equal(t, 0.0, input[0].Score)
	})

	t.Run("nil preferences and empty input", func(t *testing.T) {
		assert.Empty(t, Rank(nil, nil))
		ranked := Rank([]Candidate{{Title: "X", ContentType: ContentBook}}, nil)
		require.Len(t, ranked, 1)
		assert.Equal(t, 0.0, ranked[0].Score)
	})
}
