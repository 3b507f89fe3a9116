package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPercentileScoreEmptySnapshot(t *testing.T) {
	require.Nil(t, PercentileScore(10, nil))
	require.Nil(t, PercentileScore(10, []float64{}))
}

func TestPercentileScoreStrictMaximumScoresHundred(t *testing.T) {
	// Post-insertion snapshot: the new value ranks against itself too.
	snapshot := []float64{9.5, 10.2, 10.8, 11.1, 11.58}
	score := PercentileScore(11.58, snapshot)
	require.NotNil(t, score)
	require.Equal(t, 100.0, *score)
}

func TestPercentileScoreMinimum(t *testing.T) {
	snapshot := []float64{8.0, 9.0, 10.0, 11.0}
	score := PercentileScore(8.0, snapshot)
	require.NotNil(t, score)
	require.Equal(t, 25.0, *score)
}

func TestPercentileScoreMidRank(t *testing.T) {
	snapshot := []float64{8, 9, 10, 11, 12, 13, 14, 15, 16, 17}
	score := PercentileScore(12.5, snapshot)
	require.NotNil(t, score)
	require.Equal(t, 50.0, *score)
}

func TestPercentileScoreCountsTies(t *testing.T) {
	snapshot := []float64{10, 10, 10, 20}
	score := PercentileScore(10, snapshot)
	require.NotNil(t, score)
	require.Equal(t, 75.0, *score)
}

func TestPercentileScoreIsMonotonic(t *testing.T) {
	snapshot := []float64{5, 7, 9, 11, 13}
	prev := -1.0
	for _, v := range []float64{4, 6, 8, 10, 12, 14} {
		score := PercentileScore(v, snapshot)
		require.NotNil(t, score)
		require.GreaterOrEqual(t, *score, prev)
		prev = *score
	}
}

func TestInversePercentileScore(t *testing.T) {
	require.Nil(t, InversePercentileScore(0.05, nil))

	// Lower drift is better: a fresh strict minimum scores 100.
	snapshot := []float64{0.02, 0.04, 0.06, 0.08}
	score := InversePercentileScore(0.02, snapshot)
	require.NotNil(t, score)
	require.Equal(t, 100.0, *score)

	score = InversePercentileScore(0.08, snapshot)
	require.NotNil(t, score)
	require.Equal(t, 25.0, *score)
}

func TestPercentileScoreSingleSampleStillScores(t *testing.T) {
	// Small samples score; the caller marks them provisional via the tier.
	score := PercentileScore(42, []float64{42})
	require.NotNil(t, score)
	require.Equal(t, 100.0, *score)
}
