package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerank_LexicalOverlapWins(t *testing.T) {
	// Equal vector scores: the hit mentioning the query terms must rank
	// first.
	hits := []Result{
		{ID: "a", Content: "zone activity summary for the west wing", Score: 0.5},
		{ID: "b", Content: "floor 3 utilization over thirty days", Score: 0.5},
	}

	out := rerank("utilization floor 3", hits)

	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.Greater(t, out[0].Score, out[1].Score)
}

func TestRerank_VectorScoreStillCounts(t *testing.T) {
	// No lexical overlap anywhere: order must follow the vector score.
	hits := []Result{
		{ID: "low", Content: "pantry kitchen coffee corner", Score: 0.3},
		{ID: "high", Content: "quiet focus pods east side", Score: 0.9},
	}

	out := rerank("meeting density numbers", hits)

	require.Len(t, out, 2)
	assert.Equal(t, "high", out[0].ID)
}

func TestRerank_DeterministicTieBreak(t *testing.T) {
	hits := []Result{
		{ID: "z", Content: "same text here", Score: 0.4},
		{ID: "a", Content: "same text here", Score: 0.4},
	}

	for i := 0; i < 20; i++ {
		out := rerank("unrelated words entirely", hits)
		require.Len(t, out, 2)
		assert.Equal(t, "a", out[0].ID, "iteration %d", i)
	}
}

func TestRerank_SmallInputsPassThrough(t *testing.T) {
	assert.Empty(t, rerank("anything", nil))

	one := []Result{{ID: "only", Score: 0.7}}
	out := rerank("anything", one)
	require.Len(t, out, 1)
	assert.Equal(t, "only", out[0].ID)
}

func TestTokenSet_DropsShortAndStopwords(t *testing.T) {
	set := tokenSet("What is the utilization on floor 12?")

	assert.Contains(t, set, "utilization")
	assert.Contains(t, set, "floor")
	assert.NotContains(t, set, "what")
	assert.NotContains(t, set, "the")
	assert.NotContains(t, set, "is")
	assert.NotContains(t, set, "on")
}
