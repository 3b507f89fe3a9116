package engine

import (
	"sort"
	"time"
)

// MetricName identifies a metric tracked in rolling distributions.
type MetricName string

const (
	MetricLiftEWU       MetricName = "lift_ewu"
	MetricMachineEWU    MetricName = "machine_ewu"
	MetricDensityPerMin MetricName = "density_ewu_per_min"
	MetricSprintDensity MetricName = "sprint_density_ewu_per_min"
	MetricDrift         MetricName = "repeatability_drift"
	MetricSpread        MetricName = "repeatability_spread"
)

// DistributionKey addresses one rolling distribution.
type DistributionKey struct {
	SubjectID   string
	SessionType SessionType
	Metric      MetricName
}

// DistributionValue is one historical observation. The JSON tags define the
// persisted row format.
type DistributionValue struct {
	Value       float64   `json:"value"`
	SessionID   string    `json:"session_id"`
	PerformedAt time.Time `json:"performed_at"`
}

// Distribution holds the time-ordered observations for one key, bounded by a
// trailing retention window. Eviction is measured against the newest
// timestamp in the set, never the wall clock, so replays stay deterministic.
type Distribution struct {
	Key        DistributionKey
	WindowDays int
	Values     []DistributionValue
	UpdatedAt  time.Time
}

func (d *Distribution) window() time.Duration {
	return time.Duration(d.WindowDays) * 24 * time.Hour
}

// Insert appends an observation, keeps the set ordered by time, and evicts
// entries older than the window relative to the newest timestamp present.
func (d *Distribution) Insert(value float64, sessionID string, performedAt time.Time) {
	d.Values = append(d.Values, DistributionValue{
		Value:       value,
		SessionID:   sessionID,
		PerformedAt: performedAt,
	})
	sort.SliceStable(d.Values, func(i, j int) bool {
		return d.Values[i].PerformedAt.Before(d.Values[j].PerformedAt)
	})

	newest := d.Values[len(d.Values)-1].PerformedAt
	cutoff := newest.Add(-d.window())
	firstInWindow := 0
	for firstInWindow < len(d.Values) && d.Values[firstInWindow].PerformedAt.Before(cutoff) {
		firstInWindow++
	}
	d.Values = d.Values[firstInWindow:]
	d.UpdatedAt = newest
}

// Snapshot returns the in-window values. The lazy guard means a snapshot
// never observes expired entries even if no insert has pruned them yet.
func (d *Distribution) Snapshot() []float64 {
	if len(d.Values) == 0 {
		return nil
	}
	newest := d.Values[len(d.Values)-1].PerformedAt
	cutoff := newest.Add(-d.window())

	out := make([]float64, 0, len(d.Values))
	for _, v := range d.Values {
		if v.PerformedAt.Before(cutoff) {
			continue
		}
		out = append(out, v.Value)
	}
	return out
}

func (d *Distribution) clone() *Distribution {
	values := make([]DistributionValue, len(d.Values))
	copy(values, d.Values)
	c := *d
	c.Values = values
	return &c
}

// distributionSet is one subject's collection of distributions, keyed by
// (session type, metric). It is guarded by the owning subject's lock.
type distributionSet struct {
	windowDays int
	dists      map[DistributionKey]*Distribution
}

func newDistributionSet(windowDays int) *distributionSet {
	return &distributionSet{
		windowDays: windowDays,
		dists:      make(map[DistributionKey]*Distribution),
	}
}

func (s *distributionSet) getOrCreate(key DistributionKey) *Distribution {
	if d, ok := s.dists[key]; ok {
		return d
	}
	d := &Distribution{Key: key, WindowDays: s.windowDays}
	s.dists[key] = d
	return d
}

func (s *distributionSet) restore(d Distribution) {
	if d.WindowDays <= 0 {
		d.WindowDays = s.windowDays
	}
	s.dists[d.Key] = d.clone()
}
