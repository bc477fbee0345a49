package queries

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateWeight(t *testing.T) {
	wrong := answerHistory{Correct: false}
	right := answerHistory{Correct: true}

	assert.Equal(t, 1.5, candidateWeight(answerHistory{}, false, true))
	assert.Equal(t, 3.0, candidateWeight(wrong, true, true))
	assert.Equal(t, 1.5, candidateWeight(wrong, true, false))
	assert.Equal(t, 1.0, candidateWeight(right, true, true))
}

func TestBuildCandidates_RecentExclusionFallsBack(t *testing.T) {
	recent := testNow.Add(-time.Hour)
	old := testNow.Add(-30 * 24 * time.Hour)
	cutoff := testNow.Add(-7 * 24 * time.Hour)
	history := map[int64]answerHistory{
		1: {QuestionID: 1, Correct: true, AnsweredAt: recent},
		2: {QuestionID: 2, Correct: true, AnsweredAt: old},
		3: {QuestionID: 3, Correct: false, AnsweredAt: recent},
	}
	ids := []int64{1, 2, 3, 4}

	got := buildCandidates(ids, history, false, &cutoff, 3)
	require.Len(t, got, 3)
	for _, c := range got {
		assert.NotEqual(t, int64(1), c.ID)
	}

	// asking for more than what is left keeps everything
	got = buildCandidates(ids, history, false, &cutoff, 4)
	assert.Len(t, got, 4)

	got = buildCandidates(ids, history, false, nil, 10)
	assert.Len(t, got, 4)
}

func TestWeightedSample(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	cands := []candidate{{1, 1}, {2, 1}, {3, 1}, {4, 1}, {5, 1}}

	got := weightedSample(r, cands, 3)
	assert.Len(t, got, 3)
	seen := map[int64]bool{}
	for _, id := range got {
		assert.False(t, seen[id], "duplicate %d", id)
		seen[id] = true
	}

	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, weightedSample(r, cands, 10))
}

func TestWeightedSample_FavorsHeavierCandidates(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	cands := []candidate{{1, 3.0}, {2, 1.0}}

	heavyFirst := 0
	const rounds = 4000
	for i := 0; i < rounds; i++ {
		// a sample of one is the winner of the key race
		if weightedSample(r, cands, 1)[0] == 1 {
			heavyFirst++
		}
	}
	// P(heavy wins) = 3/4
	ratio := float64(heavyFirst) / rounds
	assert.InDelta(t, 0.75, ratio, 0.04)
}

func TestWeightedSample_Deterministic(t *testing.T) {
	cands := []candidate{{1, 1.5}, {2, 3}, {3, 1}, {4, 1.5}, {5, 1}, {6, 3}}
	a := weightedSample(rand.New(rand.NewSource(99)), cands, 4)
	b := weightedSample(rand.New(rand.NewSource(99)), cands, 4)
	assert.Equal(t, a, b)
}

func TestCandidatePoolAndHistory(t *testing.T) {
	w := setupWorld(t)

	ids := []int64{w.Articles["ce:1"].ID, w.Articles["ce:2"].ID}
	pool, err := candidatePool(w.DB, ids, "", false)
	require.NoError(t, err)
	assert.Len(t, pool, 6)
	for i := 1; i < len(pool); i++ {
		assert.Less(t, pool[i-1], pool[i])
	}

	pool, err = candidatePool(w.DB, ids, "", true)
	require.NoError(t, err)
	assert.Empty(t, pool)

	empty, err := candidatePool(w.DB, nil, "", false)
	require.NoError(t, err)
	assert.Empty(t, empty)

	hist, err := lastAnswers(w.DB, w.User.ID, pool)
	require.NoError(t, err)
	assert.Empty(t, hist)
}
