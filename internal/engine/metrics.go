package engine

import (
	"fmt"
	"math"
)

// WorkBreakdown is the EWU decomposition of one session.
type WorkBreakdown struct {
	PerRound   float64
	Total      float64
	ByModality map[Modality]float64 // session totals, present modalities only
}

// SessionWork computes the work breakdown for a session. The movement list
// describes one round; totals scale by the round count.
func SessionWork(s Session, cal Calibration) (WorkBreakdown, error) {
	perModality := make(map[Modality]float64)
	var perRound float64

	for _, m := range s.Movements {
		w, err := MovementWork(m, cal)
		if err != nil {
			return WorkBreakdown{}, err
		}
		perRound += w
		perModality[m.Modality()] += w
	}

	rounds := float64(s.Rounds())
	byModality := make(map[Modality]float64, len(perModality))
	for modality, w := range perModality {
		byModality[modality] = w * rounds
	}

	return WorkBreakdown{
		PerRound:   perRound,
		Total:      perRound * rounds,
		ByModality: byModality,
	}, nil
}

// ActivePower describes throughput over active (split) time only.
type ActivePower struct {
	AveragePerMin float64   `json:"average_per_min"`
	PerRound      []float64 `json:"per_round"`
	PeakPerMin    float64   `json:"peak_per_min"`
	LowestPerMin  float64   `json:"lowest_per_min"`
}

// Repeatability describes pacing quality across rounds.
type Repeatability struct {
	Drift          float64 `json:"drift"`          // (second-half mean − first-half mean) / first-half mean; positive = slowing
	Spread         float64 `json:"spread"`         // (max − min) / mean
	Consistency    float64 `json:"consistency"`    // 1 − stdev/mean, clamped at 0
	FirstHalfMean  float64 `json:"first_half_mean"`
	SecondHalfMean float64 `json:"second_half_mean"`
	BestSec        float64 `json:"best_sec"`
	WorstSec       float64 `json:"worst_sec"`
}

// SessionMetrics is the full derived metric set for one session. Pointer
// fields are nil when their preconditions do not hold; a nil ratio is a
// defined outcome, not a failure.
type SessionMetrics struct {
	TotalWork       float64              `json:"total_work_ewu"`
	WorkByModality  map[Modality]float64 `json:"work_by_modality"`
	ShareByModality map[Modality]float64 `json:"share_by_modality,omitempty"` // nil when TotalWork == 0
	DensityPerMin   *float64             `json:"density_per_min,omitempty"`   // EWU per minute over total elapsed time
	ActivePower     *ActivePower         `json:"active_power,omitempty"`      // splits required
	Repeatability   *Repeatability       `json:"repeatability,omitempty"`     // splits and RoundCount > 1 required
	ActiveSec       *float64             `json:"active_sec,omitempty"`
	RestSec         *float64             `json:"rest_sec,omitempty"`
}

// ComputeMetrics derives all session metrics from the work breakdown and the
// session's timing data.
func ComputeMetrics(s Session, work WorkBreakdown) (SessionMetrics, error) {
	if s.HasSplits() && len(s.SplitsSec) != s.Rounds() {
		return SessionMetrics{}, fmt.Errorf("%w: %d splits for %d rounds", ErrSplitCountMismatch, len(s.SplitsSec), s.Rounds())
	}

	m := SessionMetrics{
		TotalWork:      work.Total,
		WorkByModality: work.ByModality,
	}

	if work.Total > 0 {
		shares := make(map[Modality]float64, len(work.ByModality))
		for modality, w := range work.ByModality {
			shares[modality] = w / work.Total
		}
		m.ShareByModality = shares

		density := work.Total / s.DurationSec * 60
		m.DensityPerMin = &density

		if s.HasSplits() {
			m.ActivePower = activePower(work.PerRound, s.SplitsSec)
		}
	}

	if s.HasSplits() {
		active := sum(s.SplitsSec)
		rest := s.DurationSec - active
		m.ActiveSec = &active
		m.RestSec = &rest

		if s.Rounds() > 1 {
			m.Repeatability = repeatability(s.SplitsSec)
		}
	}

	return m, nil
}

func activePower(roundWork float64, splits []float64) *ActivePower {
	perRound := make([]float64, 0, len(splits))
	for _, split := range splits {
		if split <= 0 {
			perRound = append(perRound, 0)
			continue
		}
		perRound = append(perRound, roundWork/split*60)
	}

	ap := &ActivePower{
		AveragePerMin: mean(perRound),
		PerRound:      perRound,
		PeakPerMin:    perRound[0],
		LowestPerMin:  perRound[0],
	}
	for _, p := range perRound[1:] {
		ap.PeakPerMin = math.Max(ap.PeakPerMin, p)
		ap.LowestPerMin = math.Min(ap.LowestPerMin, p)
	}
	return ap
}

// repeatability compares the first and second halves of the ordered splits.
// For odd counts the middle split belongs to neither half.
func repeatability(splits []float64) *Repeatability {
	half := len(splits) / 2
	first := splits[:half]
	second := splits[len(splits)-half:]

	firstMean := mean(first)
	secondMean := mean(second)

	best, worst := splits[0], splits[0]
	for _, t := range splits[1:] {
		best = math.Min(best, t)
		worst = math.Max(worst, t)
	}

	avg := mean(splits)
	r := &Repeatability{
		Drift:          (secondMean - firstMean) / firstMean,
		Spread:         (worst - best) / avg,
		FirstHalfMean:  firstMean,
		SecondHalfMean: secondMean,
		BestSec:        best,
		WorstSec:       worst,
	}
	r.Consistency = math.Max(0, 1-stdev(splits)/avg)
	return r
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) float64 {
	return sum(values) / float64(len(values))
}

// stdev is the sample standard deviation.
func stdev(values []float64) float64 {
	avg := mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - avg) * (v - avg)
	}
	return math.Sqrt(sq / float64(len(values)-1))
}
