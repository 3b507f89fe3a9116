package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestMovementWorkLiftFormula(t *testing.T) {
	cal := DefaultCalibration()

	cases := []struct {
		name string
		mt   MovementType
		reps int
		load float64
		want float64
	}{
		{name: "power snatch 8x95", mt: MovementPowerSnatch, reps: 8, load: 95, want: 15.2},
		{name: "deadlift 5x225", mt: MovementDeadlift, reps: 5, load: 225, want: 22.5},
		{name: "thruster 1x135", mt: MovementThruster, reps: 1, load: 135, want: 2.7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MovementWork(MovementEntry{Type: tc.mt, Reps: tc.reps, LoadLb: f64(tc.load)}, cal)
			require.NoError(t, err)
			require.InEpsilon(t, tc.want, got, 1e-12)
		})
	}
}

func TestMovementWorkMachineIdentity(t *testing.T) {
	cal := DefaultCalibration()

	got, err := MovementWork(MovementEntry{Type: MovementEchoBike, Reps: 1, Calories: f64(10)}, cal)
	require.NoError(t, err)
	require.Equal(t, 10.0, got)

	got, err = MovementWork(MovementEntry{Type: MovementRower, Reps: 1, Calories: f64(27)}, cal)
	require.NoError(t, err)
	require.Equal(t, 27.0, got)
}

func TestMovementWorkLiftDivisorIsConfigurable(t *testing.T) {
	cal := DefaultCalibration()
	cal.LiftDivisor = 100

	got, err := MovementWork(MovementEntry{Type: MovementBackSquat, Reps: 10, LoadLb: f64(200)}, cal)
	require.NoError(t, err)
	require.Equal(t, 20.0, got)
}

func TestMovementWorkMissingFields(t *testing.T) {
	cal := DefaultCalibration()

	_, err := MovementWork(MovementEntry{Type: MovementPowerClean, Reps: 3}, cal)
	require.ErrorIs(t, err, ErrMissingLoad)

	_, err = MovementWork(MovementEntry{Type: MovementSkiErg, Reps: 1}, cal)
	require.ErrorIs(t, err, ErrMissingCalories)
}

func TestMovementWorkGymnasticsUncalibrated(t *testing.T) {
	cal := DefaultCalibration()

	_, err := MovementWork(MovementEntry{Type: MovementPullUp, Reps: 10}, cal)
	require.ErrorIs(t, err, ErrUncalibratedModality)

	// Unknown movements land in the uncalibrated bucket rather than scoring zero.
	_, err = MovementWork(MovementEntry{Type: MovementType("handstand_walk"), Reps: 5}, cal)
	require.ErrorIs(t, err, ErrUncalibratedModality)
}

func TestModalityOf(t *testing.T) {
	require.Equal(t, ModalityMachine, ModalityOf(MovementAssaultBike))
	require.Equal(t, ModalityLift, ModalityOf(MovementHangSquatClean))
	require.Equal(t, ModalityGymnastics, ModalityOf(MovementWallBall))
	require.Equal(t, ModalityGymnastics, ModalityOf(MovementType("unknown_thing")))
}
