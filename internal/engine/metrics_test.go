package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// intervalSession is the reference workout: 6 sets every 3:00 of
// 10 cal echo bike + 8 power snatch @ 95 lb + 10 cal echo bike,
// finished in 18:14 with bout times 90, 88, 89, 89, 96, 94.
func intervalSession() Session {
	return Session{
		ID:        "workout-1",
		SubjectID: "athlete-1",
		Template:  TypeInterval,
		Movements: []MovementEntry{
			{Type: MovementEchoBike, Reps: 1, Calories: f64(10), Position: 0},
			{Type: MovementPowerSnatch, Reps: 8, LoadLb: f64(95), Position: 1},
			{Type: MovementEchoBike, Reps: 1, Calories: f64(10), Position: 2},
		},
		DurationSec: 1094,
		RoundCount:  6,
		SplitsSec:   []float64{90, 88, 89, 89, 96, 94},
		PerformedAt: time.Date(2025, time.June, 1, 17, 30, 0, 0, time.UTC),
	}
}

func TestSessionWorkReferenceWorkout(t *testing.T) {
	cal := DefaultCalibration()

	work, err := SessionWork(intervalSession(), cal)
	require.NoError(t, err)

	require.InDelta(t, 35.2, work.PerRound, 1e-9)
	require.InDelta(t, 211.2, work.Total, 1e-9)
	require.InDelta(t, 120.0, work.ByModality[ModalityMachine], 1e-9)
	require.InDelta(t, 91.2, work.ByModality[ModalityLift], 1e-9)
}

func TestComputeMetricsReferenceWorkout(t *testing.T) {
	cal := DefaultCalibration()
	s := intervalSession()

	work, err := SessionWork(s, cal)
	require.NoError(t, err)
	m, err := ComputeMetrics(s, work)
	require.NoError(t, err)

	require.InDelta(t, 211.2, m.TotalWork, 1e-9)

	require.NotNil(t, m.DensityPerMin)
	require.InDelta(t, 11.58, *m.DensityPerMin, 0.005)

	require.NotNil(t, m.Repeatability)
	// first half (90,88,89) mean 89.0; second half (89,96,94) mean 93.0
	require.InDelta(t, 89.0, m.Repeatability.FirstHalfMean, 1e-9)
	require.InDelta(t, 93.0, m.Repeatability.SecondHalfMean, 1e-9)
	require.InDelta(t, 0.0449, m.Repeatability.Drift, 0.0005)
	require.InDelta(t, 0.088, m.Repeatability.Spread, 0.001)
	require.Equal(t, 88.0, m.Repeatability.BestSec)
	require.Equal(t, 96.0, m.Repeatability.WorstSec)

	require.NotNil(t, m.ActivePower)
	require.Len(t, m.ActivePower.PerRound, 6)
	require.InDelta(t, 35.2/88*60, m.ActivePower.PeakPerMin, 1e-9)
	require.InDelta(t, 35.2/96*60, m.ActivePower.LowestPerMin, 1e-9)

	require.NotNil(t, m.ActiveSec)
	require.Equal(t, 546.0, *m.ActiveSec)
	require.NotNil(t, m.RestSec)
	require.Equal(t, 1094.0-546.0, *m.RestSec)
}

func TestModalitySharesSumToOne(t *testing.T) {
	cal := DefaultCalibration()
	s := intervalSession()

	work, err := SessionWork(s, cal)
	require.NoError(t, err)
	m, err := ComputeMetrics(s, work)
	require.NoError(t, err)

	require.Len(t, m.ShareByModality, 2)
	var total float64
	for _, share := range m.ShareByModality {
		total += share
	}
	require.InDelta(t, 1.0, total, 1e-9)

	// Absent modalities are omitted, not zero-filled.
	_, ok := m.ShareByModality[ModalityGymnastics]
	require.False(t, ok)
}

func TestZeroWorkLeavesRatiosNil(t *testing.T) {
	cal := DefaultCalibration()
	s := Session{
		ID:        "w-zero",
		SubjectID: "athlete-1",
		Movements: []MovementEntry{
			{Type: MovementEchoBike, Reps: 1, Calories: f64(0)},
		},
		DurationSec: 120,
		RoundCount:  1,
		PerformedAt: time.Now().UTC(),
	}

	work, err := SessionWork(s, cal)
	require.NoError(t, err)
	require.Zero(t, work.Total)

	m, err := ComputeMetrics(s, work)
	require.NoError(t, err)
	require.Nil(t, m.ShareByModality)
	require.Nil(t, m.DensityPerMin)
	require.Nil(t, m.ActivePower)
}

func TestSplitCountMismatchFailsFast(t *testing.T) {
	cal := DefaultCalibration()
	s := intervalSession()
	s.SplitsSec = s.SplitsSec[:4]

	work, err := SessionWork(s, cal)
	require.NoError(t, err)
	_, err = ComputeMetrics(s, work)
	require.ErrorIs(t, err, ErrSplitCountMismatch)
}

func TestRepeatabilityStrictHalvesForOddCounts(t *testing.T) {
	cal := DefaultCalibration()
	s := intervalSession()
	s.RoundCount = 5
	s.SplitsSec = []float64{80, 90, 1000, 100, 110}

	work, err := SessionWork(s, cal)
	require.NoError(t, err)
	m, err := ComputeMetrics(s, work)
	require.NoError(t, err)

	// The middle element (1000) belongs to neither half.
	require.NotNil(t, m.Repeatability)
	require.InDelta(t, 85.0, m.Repeatability.FirstHalfMean, 1e-9)
	require.InDelta(t, 105.0, m.Repeatability.SecondHalfMean, 1e-9)
	require.InDelta(t, 20.0/85.0, m.Repeatability.Drift, 1e-9)
}

func TestRepeatabilityTwoRoundsIsValid(t *testing.T) {
	cal := DefaultCalibration()
	s := intervalSession()
	s.RoundCount = 2
	s.SplitsSec = []float64{90, 99}

	work, err := SessionWork(s, cal)
	require.NoError(t, err)
	m, err := ComputeMetrics(s, work)
	require.NoError(t, err)

	require.NotNil(t, m.Repeatability)
	require.InDelta(t, 0.1, m.Repeatability.Drift, 1e-9)
}

func TestRepeatabilityAbsentForSingleRound(t *testing.T) {
	cal := DefaultCalibration()
	s := intervalSession()
	s.RoundCount = 1
	s.SplitsSec = []float64{546}

	work, err := SessionWork(s, cal)
	require.NoError(t, err)
	m, err := ComputeMetrics(s, work)
	require.NoError(t, err)

	require.Nil(t, m.Repeatability)
	require.NotNil(t, m.ActivePower)
}

func TestDriftSignIsNotClamped(t *testing.T) {
	cal := DefaultCalibration()
	s := intervalSession()
	s.SplitsSec = []float64{96, 94, 95, 89, 88, 90}

	work, err := SessionWork(s, cal)
	require.NoError(t, err)
	m, err := ComputeMetrics(s, work)
	require.NoError(t, err)

	// Negative drift means speeding up across the session.
	require.NotNil(t, m.Repeatability)
	require.Negative(t, m.Repeatability.Drift)
}
