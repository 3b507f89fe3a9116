package engine

import (
	"errors"
	"fmt"
	"time"
)

// SessionType labels the structural shape of a session. It is either produced
// by the classifier or declared by the caller as a template fallback.
type SessionType string

const (
	TypeSprint         SessionType = "sprint"
	TypeThreshold      SessionType = "threshold"
	TypeEndurance      SessionType = "endurance"
	TypeInterval       SessionType = "interval"
	TypeChipper        SessionType = "chipper"
	TypeStrength       SessionType = "strength"
	TypeMonostructural SessionType = "monostructural"
	TypeCustom         SessionType = "custom"
)

// Session is the read-only input handed to the engine by the caller. The
// movement list describes one round; for RoundCount > 1 the round repeats
// identically. Validation of field presence and positive durations is the
// caller's job, but the engine still rejects the malformed shapes it would
// otherwise silently mis-score.
type Session struct {
	ID          string
	SubjectID   string
	Template    SessionType
	Movements   []MovementEntry
	DurationSec float64
	RoundCount  int
	SplitsSec   []float64 // per-round active durations; len == RoundCount when present
	PerformedAt time.Time
}

// ErrSplitCountMismatch is returned when splits are supplied but their count
// does not equal the round count.
var ErrSplitCountMismatch = errors.New("split count does not match round count")

// Validate checks the structural invariants the engine depends on.
func (s Session) Validate() error {
	if len(s.Movements) == 0 {
		return errors.New("session requires at least one movement")
	}
	if s.DurationSec <= 0 {
		return errors.New("session duration must be positive")
	}
	if s.RoundCount < 1 {
		return errors.New("round count must be at least 1")
	}
	for _, m := range s.Movements {
		if m.Reps < 1 {
			return fmt.Errorf("movement %s: repetitions must be at least 1", m.Type)
		}
	}
	if len(s.SplitsSec) > 0 && len(s.SplitsSec) != s.RoundCount {
		return fmt.Errorf("%w: %d splits for %d rounds", ErrSplitCountMismatch, len(s.SplitsSec), s.RoundCount)
	}
	return nil
}

// HasSplits reports whether per-round split durations were recorded.
func (s Session) HasSplits() bool {
	return len(s.SplitsSec) > 0
}

// Rounds normalises a zero round count to the single-round default.
func (s Session) Rounds() int {
	if s.RoundCount < 1 {
		return 1
	}
	return s.RoundCount
}

// Calibration carries the tunable constants of the scoring formulas. Values
// are configuration so historical comparisons survive recalibration.
type Calibration struct {
	// LiftDivisor separates lift intensity scales from machine-calorie
	// scales: lift EWU = load_lb * reps / LiftDivisor.
	LiftDivisor float64
	// StrengthLiftShare is the minimum lift share for a strength session.
	StrengthLiftShare float64
	// StrengthMaxRepsPerSet is the average-reps cutoff below which lifting
	// counts as heavy. The exact value is approximate; keep it tunable.
	StrengthMaxRepsPerSet float64
	// ChipperMinMovements is the distinct-movement count above which a
	// single-round session counts as a chipper.
	ChipperMinMovements int
	// SprintMaxSec and ThresholdMaxSec bound the duration bands.
	SprintMaxSec    float64
	ThresholdMaxSec float64
	// WindowDays bounds distribution retention for percentile queries.
	WindowDays int
}

// DefaultCalibration returns the v1 constants.
func DefaultCalibration() Calibration {
	return Calibration{
		LiftDivisor:           50,
		StrengthLiftShare:     0.80,
		StrengthMaxRepsPerSet: 5,
		ChipperMinMovements:   4,
		SprintMaxSec:          300,
		ThresholdMaxSec:       900,
		WindowDays:            180,
	}
}
