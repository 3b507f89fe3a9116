package domain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DGator86/Prodigy---App/internal/engine"
)

type stubRepo struct {
	mu          sync.Mutex
	existing    *WorkoutAggregate
	findErr     error
	failCreates int
	loadCalls   int
	created     []engine.Result
}

func (r *stubRepo) FindByIdempotency(ctx context.Context, tenantID, subjectID, idempotencyKey string) (*WorkoutAggregate, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if idempotencyKey == "" {
		return nil, nil
	}
	return r.existing, nil
}

func (r *stubRepo) CreateScored(ctx context.Context, aggregate WorkoutAggregate, result engine.Result, idempotencyKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreates > 0 {
		r.failCreates--
		return errors.New("postgres unavailable")
	}
	r.created = append(r.created, result)
	return nil
}

func (r *stubRepo) Get(ctx context.Context, tenantID, workoutID string) (*WorkoutAggregate, error) {
	return nil, nil
}

func (r *stubRepo) ListBySubject(ctx context.Context, tenantID, subjectID string, cursor *Cursor, limit int) ([]WorkoutAggregate, *Cursor, error) {
	return nil, nil, nil
}

func (r *stubRepo) LoadSubjectState(ctx context.Context, tenantID, subjectID string) ([]engine.Distribution, []engine.DomainScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadCalls++
	return nil, nil, nil
}

func (r *stubRepo) DomainScores(ctx context.Context, tenantID, subjectID string) ([]engine.DomainScore, error) {
	return nil, nil
}

func bikeInput(n int) LogWorkoutInput {
	cals := float64(20 + n)
	return LogWorkoutInput{
		TenantID:  "tenant-1",
		SubjectID: "athlete-1",
		Movements: []MovementInput{
			{Name: "echo_bike", Reps: 1, Calories: &cals},
		},
		DurationSec: 120,
		RoundCount:  1,
		PerformedAt: time.Date(2025, time.June, 2, 7, 0, 0, 0, time.UTC).AddDate(0, 0, n),
		Source:      "test",
	}
}

func mixedSampleCount(t *testing.T, res engine.Result) int {
	t.Helper()
	for _, sc := range res.DomainScores {
		if sc.Domain == engine.DomainMixedModalCapacity {
			return sc.SampleCount
		}
	}
	t.Fatal("mixed-modal score missing from result")
	return 0
}

func TestLogWorkoutPersistFailureDropsEngineState(t *testing.T) {
	repo := &stubRepo{failCreates: 1}
	svc := NewService(repo, engine.New(engine.DefaultCalibration()))
	ctx := context.Background()

	_, _, err := svc.LogWorkout(ctx, bikeInput(0))
	require.Error(t, err)
	require.Empty(t, repo.created)

	// The failed session must not survive in engine memory: the next workout
	// scores against the store's view, where nothing was recorded.
	agg, replay, err := svc.LogWorkout(ctx, bikeInput(1))
	require.NoError(t, err)
	require.False(t, replay)
	require.NotNil(t, agg)
	require.Len(t, repo.created, 1)
	require.Equal(t, 1, mixedSampleCount(t, repo.created[0]))
}

func TestLogWorkoutSurfacesIdempotencyLookupError(t *testing.T) {
	repo := &stubRepo{findErr: errors.New("connection refused")}
	svc := NewService(repo, engine.New(engine.DefaultCalibration()))

	_, _, err := svc.LogWorkout(context.Background(), bikeInput(0))
	require.Error(t, err)
	require.ErrorContains(t, err, "idempotency lookup")
	require.Empty(t, repo.created)
}

func TestLogWorkoutHydratesOncePerSubject(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, engine.New(engine.DefaultCalibration()))
	ctx := context.Background()

	for n := 0; n < 3; n++ {
		_, _, err := svc.LogWorkout(ctx, bikeInput(n))
		require.NoError(t, err)
	}
	require.Equal(t, 1, repo.loadCalls)
}

func TestConcurrentFirstContactLosesNoUpdates(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, engine.New(engine.DefaultCalibration()))
	ctx := context.Background()

	const workouts = 12
	var wg sync.WaitGroup
	for n := 0; n < workouts; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _, err := svc.LogWorkout(ctx, bikeInput(n))
			require.NoError(t, err)
		}(n)
	}
	wg.Wait()

	// Serialized per-subject: every commit lands, so the sample counts form
	// an unbroken run up to the workout total.
	require.Len(t, repo.created, workouts)
	seen := make(map[int]bool, workouts)
	for _, res := range repo.created {
		seen[mixedSampleCount(t, res)] = true
	}
	for n := 1; n <= workouts; n++ {
		require.True(t, seen[n], "missing sample count %d", n)
	}
}
