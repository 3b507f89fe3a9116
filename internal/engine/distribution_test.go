package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func distKey() DistributionKey {
	return DistributionKey{SubjectID: "athlete-1", SessionType: TypeEndurance, Metric: MetricDensityPerMin}
}

func TestSnapshotIncludesJustInsertedValue(t *testing.T) {
	d := &Distribution{Key: distKey(), WindowDays: 180}
	base := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)

	d.Insert(10.5, "w1", base)
	require.Equal(t, []float64{10.5}, d.Snapshot())

	d.Insert(11.2, "w2", base.AddDate(0, 0, 3))
	require.Equal(t, []float64{10.5, 11.2}, d.Snapshot())
}

func TestInsertEvictsBeyondWindow(t *testing.T) {
	d := &Distribution{Key: distKey(), WindowDays: 180}
	base := time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)

	d.Insert(9.0, "w1", base)
	d.Insert(9.5, "w2", base.AddDate(0, 0, 30))
	// 200 days later: the first value falls outside the trailing window.
	d.Insert(10.0, "w3", base.AddDate(0, 0, 200))

	require.Equal(t, []float64{9.5, 10.0}, d.Snapshot())
	require.Len(t, d.Values, 2)
}

func TestEvictionIsRelativeToNewestValueNotWallClock(t *testing.T) {
	d := &Distribution{Key: distKey(), WindowDays: 180}

	// All timestamps are years in the past; everything stays in-window
	// because the window trails the newest observation in the set.
	base := time.Date(2019, time.May, 1, 8, 0, 0, 0, time.UTC)
	d.Insert(8.0, "w1", base)
	d.Insert(8.5, "w2", base.AddDate(0, 0, 90))

	require.Equal(t, []float64{8.0, 8.5}, d.Snapshot())
}

func TestInsertKeepsTimeOrderForOutOfOrderArrivals(t *testing.T) {
	d := &Distribution{Key: distKey(), WindowDays: 180}
	base := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)

	d.Insert(12.0, "w2", base.AddDate(0, 0, 10))
	d.Insert(11.0, "w1", base)

	require.Equal(t, []float64{11.0, 12.0}, d.Snapshot())
	require.Equal(t, base.AddDate(0, 0, 10), d.UpdatedAt)
}

func TestBackfillOlderThanWindowIsExcluded(t *testing.T) {
	d := &Distribution{Key: distKey(), WindowDays: 180}
	base := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)

	d.Insert(12.0, "w2", base)
	// Backfilled session from a year earlier: inserted, then evicted because
	// it sits outside the window trailing the newest value.
	d.Insert(11.0, "w1", base.AddDate(-1, 0, 0))

	require.Equal(t, []float64{12.0}, d.Snapshot())
}

func TestRestoreClonesCallerState(t *testing.T) {
	set := newDistributionSet(180)
	base := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)

	source := Distribution{
		Key:        distKey(),
		WindowDays: 180,
		Values:     []DistributionValue{{Value: 10, SessionID: "w1", PerformedAt: base}},
	}
	set.restore(source)

	// Mutating the caller's slice must not leak into the set.
	source.Values[0].Value = 99
	require.Equal(t, []float64{10}, set.dists[distKey()].Snapshot())
}
