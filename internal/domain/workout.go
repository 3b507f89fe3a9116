package domain

import (
	"time"

	"github.com/DGator86/Prodigy---App/internal/engine"
)

// WorkoutState represents the processing status of a workout.
type WorkoutState string

const (
	WorkoutStatePending WorkoutState = "pending"
	WorkoutStateScored  WorkoutState = "scored"
	WorkoutStateFailed  WorkoutState = "failed"
)

// MovementInput is one movement line as submitted by the caller. Reps count a
// single round; LoadLb and Calories are required or forbidden depending on
// the movement's modality.
type MovementInput struct {
	Name     string
	Reps     int
	LoadLb   *float64
	Calories *float64
}

// WorkoutAggregate is the canonical workout record stored in Postgres,
// carrying both the submitted session and the scoring results committed
// alongside it.
type WorkoutAggregate struct {
	ID          string
	TenantID    string
	SubjectID   string
	Template    string
	Movements   []MovementInput
	DurationSec float64
	RoundCount  int
	SplitsSec   []float64
	PerformedAt time.Time
	Source      string
	Version     string
	State       WorkoutState
	SessionType string
	Metrics     *engine.SessionMetrics
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
