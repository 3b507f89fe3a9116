// Package engine implements the scoring pipeline: it converts raw workout
// sessions into effective work units (EWU), derives throughput and
// repeatability metrics, classifies the session structure, and folds the
// results into per-athlete rolling distributions and domain scores. The
// package performs no I/O; callers hydrate historical state and persist the
// returned results.
package engine

import (
	"errors"
	"fmt"
)

// Modality groups movements by how their work output is measured.
type Modality string

const (
	ModalityMachine    Modality = "machine"
	ModalityLift       Modality = "lift"
	ModalityGymnastics Modality = "gymnastics"
)

// MovementType identifies a movement in the catalog.
type MovementType string

const (
	// Machine / monostructural
	MovementEchoBike    MovementType = "echo_bike"
	MovementRower       MovementType = "rower"
	MovementSkiErg      MovementType = "ski_erg"
	MovementRun         MovementType = "run"
	MovementAssaultBike MovementType = "assault_bike"

	// Barbell
	MovementPowerSnatch     MovementType = "power_snatch"
	MovementSquatSnatch     MovementType = "squat_snatch"
	MovementPowerClean      MovementType = "power_clean"
	MovementSquatClean      MovementType = "squat_clean"
	MovementCleanAndJerk    MovementType = "clean_and_jerk"
	MovementDeadlift        MovementType = "deadlift"
	MovementBackSquat       MovementType = "back_squat"
	MovementFrontSquat      MovementType = "front_squat"
	MovementOverheadSquat   MovementType = "overhead_squat"
	MovementStrictPress     MovementType = "strict_press"
	MovementPushPress       MovementType = "push_press"
	MovementPushJerk        MovementType = "push_jerk"
	MovementSplitJerk       MovementType = "split_jerk"
	MovementThruster        MovementType = "thruster"
	MovementHangPowerSnatch MovementType = "hang_power_snatch"
	MovementHangPowerClean  MovementType = "hang_power_clean"
	MovementHangSquatSnatch MovementType = "hang_squat_snatch"
	MovementHangSquatClean  MovementType = "hang_squat_clean"
	MovementSumoDeadlift    MovementType = "sumo_deadlift"
	MovementRomanianDL      MovementType = "romanian_deadlift"

	// Gymnastics movements are catalogued but not yet calibrated for EWU.
	MovementPullUp            MovementType = "pull_up"
	MovementChestToBar        MovementType = "chest_to_bar"
	MovementMuscleUp          MovementType = "muscle_up"
	MovementBarMuscleUp       MovementType = "bar_muscle_up"
	MovementToesToBar         MovementType = "toes_to_bar"
	MovementHandstandPushUp   MovementType = "handstand_push_up"
	MovementBoxJump           MovementType = "box_jump"
	MovementBoxJumpOver       MovementType = "box_jump_over"
	MovementBurpee            MovementType = "burpee"
	MovementBurpeeBoxJumpOver MovementType = "burpee_box_jump_over"
	MovementDoubleUnder       MovementType = "double_under"
	MovementWallBall          MovementType = "wall_ball"
	MovementKettlebellSwing   MovementType = "kettlebell_swing"
	MovementDumbbellSnatch    MovementType = "dumbbell_snatch"
	MovementDumbbellClean     MovementType = "dumbbell_clean"
)

var movementModality = map[MovementType]Modality{
	MovementEchoBike:    ModalityMachine,
	MovementRower:       ModalityMachine,
	MovementSkiErg:      ModalityMachine,
	MovementRun:         ModalityMachine,
	MovementAssaultBike: ModalityMachine,

	MovementPowerSnatch:     ModalityLift,
	MovementSquatSnatch:     ModalityLift,
	MovementPowerClean:      ModalityLift,
	MovementSquatClean:      ModalityLift,
	MovementCleanAndJerk:    ModalityLift,
	MovementDeadlift:        ModalityLift,
	MovementBackSquat:       ModalityLift,
	MovementFrontSquat:      ModalityLift,
	MovementOverheadSquat:   ModalityLift,
	MovementStrictPress:     ModalityLift,
	MovementPushPress:       ModalityLift,
	MovementPushJerk:        ModalityLift,
	MovementSplitJerk:       ModalityLift,
	MovementThruster:        ModalityLift,
	MovementHangPowerSnatch: ModalityLift,
	MovementHangPowerClean:  ModalityLift,
	MovementHangSquatSnatch: ModalityLift,
	MovementHangSquatClean:  ModalityLift,
	MovementSumoDeadlift:    ModalityLift,
	MovementRomanianDL:      ModalityLift,

	MovementPullUp:            ModalityGymnastics,
	MovementChestToBar:        ModalityGymnastics,
	MovementMuscleUp:          ModalityGymnastics,
	MovementBarMuscleUp:       ModalityGymnastics,
	MovementToesToBar:         ModalityGymnastics,
	MovementHandstandPushUp:   ModalityGymnastics,
	MovementBoxJump:           ModalityGymnastics,
	MovementBoxJumpOver:       ModalityGymnastics,
	MovementBurpee:            ModalityGymnastics,
	MovementBurpeeBoxJumpOver: ModalityGymnastics,
	MovementDoubleUnder:       ModalityGymnastics,
	MovementWallBall:          ModalityGymnastics,
	MovementKettlebellSwing:   ModalityGymnastics,
	MovementDumbbellSnatch:    ModalityGymnastics,
	MovementDumbbellClean:     ModalityGymnastics,
}

// ModalityOf resolves the modality for a movement type. Unknown movements
// resolve to gymnastics, the uncalibrated bucket.
func ModalityOf(mt MovementType) Modality {
	if m, ok := movementModality[mt]; ok {
		return m
	}
	return ModalityGymnastics
}

// MovementEntry is one movement line within a session. Exactly one of
// Load (lift) or Calories (machine) is meaningful, depending on modality.
type MovementEntry struct {
	Type     MovementType
	Reps     int
	LoadLb   *float64 // barbell movements only
	Calories *float64 // machine movements only
	Position int      // order within the round
}

// Modality reports the entry's modality, derived from its type.
func (m MovementEntry) Modality() Modality {
	return ModalityOf(m.Type)
}

var (
	// ErrMissingLoad is returned for a barbell entry without external load.
	ErrMissingLoad = errors.New("lift movement requires external load")
	// ErrMissingCalories is returned for a machine entry without calories.
	ErrMissingCalories = errors.New("machine movement requires calories")
	// ErrUncalibratedModality is returned when a work unit is requested for a
	// modality that has no calibrated EWU formula yet. Surfaced distinctly so
	// callers can detect the incomplete data path instead of seeing zero.
	ErrUncalibratedModality = errors.New("modality has no calibrated work-unit formula")
)

// MovementWork converts one movement entry into its effective work units.
//
// Machine: EWU = calories. Lift: EWU = load_lb * reps / LiftDivisor.
// Gymnastics is not calibrated and always fails with ErrUncalibratedModality.
func MovementWork(m MovementEntry, cal Calibration) (float64, error) {
	switch m.Modality() {
	case ModalityMachine:
		if m.Calories == nil {
			return 0, fmt.Errorf("%w: %s", ErrMissingCalories, m.Type)
		}
		return *m.Calories, nil
	case ModalityLift:
		if m.LoadLb == nil {
			return 0, fmt.Errorf("%w: %s", ErrMissingLoad, m.Type)
		}
		return *m.LoadLb * float64(m.Reps) / cal.LiftDivisor, nil
	default:
		return 0, fmt.Errorf("%w: %s (%s)", ErrUncalibratedModality, m.Type, m.Modality())
	}
}
