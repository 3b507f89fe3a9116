// Package events defines shared cross-service event payloads.
package events

import "time"

// MovementLine mirrors one submitted movement inside event payloads.
type MovementLine struct {
	Name     string   `json:"name"`
	Reps     int      `json:"reps"`
	LoadLb   *float64 `json:"load_lb,omitempty"`
	Calories *float64 `json:"calories,omitempty"`
}

// WorkoutLogged represents the message emitted when a new workout is accepted.
type WorkoutLogged struct {
	WorkoutID   string         `json:"workout_id"`
	TenantID    string         `json:"tenant_id"`
	SubjectID   string         `json:"subject_id"`
	Template    string         `json:"template,omitempty"`
	Movements   []MovementLine `json:"movements"`
	DurationSec float64        `json:"duration_sec"`
	RoundCount  int            `json:"round_count"`
	SplitsSec   []float64      `json:"splits_sec,omitempty"`
	PerformedAt time.Time      `json:"performed_at"`
	Source      string         `json:"source"`
	Version     string         `json:"version"`
}

// DomainScoreSnapshot is one domain's post-update score inside WorkoutScored.
type DomainScoreSnapshot struct {
	Domain      string   `json:"domain"`
	RawValue    *float64 `json:"raw_value"`
	Score       *float64 `json:"score"`
	SampleCount int      `json:"sample_count"`
	Confidence  string   `json:"confidence"`
}

// WorkoutScored represents the message emitted once the scoring pipeline has
// committed metrics and domain updates for a workout.
type WorkoutScored struct {
	WorkoutID     string                `json:"workout_id"`
	TenantID      string                `json:"tenant_id"`
	SubjectID     string                `json:"subject_id"`
	SessionType   string                `json:"session_type"`
	TotalWork     float64               `json:"total_work_ewu"`
	DensityPerMin *float64              `json:"density_ewu_per_min"`
	Drift         *float64              `json:"split_drift"`
	Spread        *float64              `json:"split_spread"`
	DomainScores  []DomainScoreSnapshot `json:"domain_scores"`
	ScoredAt      time.Time             `json:"scored_at"`
	Version       string                `json:"version"`
}
