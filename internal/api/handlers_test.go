package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DGator86/Prodigy---App/internal/auth"
	"github.com/DGator86/Prodigy---App/internal/domain"
	"github.com/DGator86/Prodigy---App/internal/engine"
)

func authedRequest(method, target string, body []byte, scopes ...string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	scopeSet := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		scopeSet[s] = struct{}{}
	}
	claims := &auth.Claims{
		Subject:   "tester",
		TenantID:  "tenant-1",
		Scopes:    scopeSet,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func newHandler(repo *mockRepo) *Handler {
	eng := engine.New(engine.DefaultCalibration())
	return NewHandler(domain.NewService(repo, eng))
}

func sprintPayload() []byte {
	body, _ := json.Marshal(LogWorkoutRequest{
		SubjectID: "athlete-1",
		Movements: []MovementPayload{
			{Name: "echo_bike", Reps: 1, Calories: ptr(15)},
			{Name: "power_snatch", Reps: 15, LoadLb: ptr(95)},
		},
		DurationSec: 180,
		RoundCount:  1,
		PerformedAt: time.Date(2025, time.June, 2, 7, 0, 0, 0, time.UTC),
		Source:      "api",
	})
	return body
}

func ptr(v float64) *float64 { return &v }

func TestLogWorkoutScoresAndPersists(t *testing.T) {
	repo := &mockRepo{}
	handler := newHandler(repo)

	req := authedRequest(http.MethodPost, "/v1/workouts", sprintPayload(), auth.ScopeWorkoutsWrite)
	rr := httptest.NewRecorder()
	handler.logWorkout(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp LogWorkoutResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionType != "sprint" {
		t.Fatalf("expected session_type sprint got %s", resp.SessionType)
	}
	if resp.Status != string(domain.WorkoutStateScored) {
		t.Fatalf("expected scored status got %s", resp.Status)
	}
	if repo.created == nil {
		t.Fatal("expected the workout to be persisted")
	}
	if repo.createdResult == nil || len(repo.createdResult.DomainScores) == 0 {
		t.Fatal("expected the scoring result to be persisted alongside the workout")
	}
}

func TestLogWorkoutIdempotentReplay(t *testing.T) {
	existing := domain.WorkoutAggregate{
		ID:          "w-1",
		TenantID:    "tenant-1",
		SubjectID:   "athlete-1",
		State:       domain.WorkoutStateScored,
		SessionType: "sprint",
	}
	repo := &mockRepo{existing: &existing}
	handler := newHandler(repo)

	req := authedRequest(http.MethodPost, "/v1/workouts", sprintPayload(), auth.ScopeWorkoutsWrite)
	req.Header.Set("Idempotency-Key", "key-1")
	rr := httptest.NewRecorder()
	handler.logWorkout(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp LogWorkoutResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Replay {
		t.Fatal("expected idempotent_replay true")
	}
	if resp.WorkoutID != "w-1" {
		t.Fatalf("expected existing workout id got %s", resp.WorkoutID)
	}
	if repo.created != nil {
		t.Fatal("replay must not persist a second workout")
	}
}

func TestLogWorkoutUncalibratedMovementIsUnprocessable(t *testing.T) {
	repo := &mockRepo{}
	handler := newHandler(repo)

	body, _ := json.Marshal(LogWorkoutRequest{
		SubjectID: "athlete-1",
		Movements: []MovementPayload{
			{Name: "pull_up", Reps: 10},
		},
		DurationSec: 300,
		RoundCount:  1,
		PerformedAt: time.Date(2025, time.June, 2, 7, 0, 0, 0, time.UTC),
		Source:      "api",
	})
	req := authedRequest(http.MethodPost, "/v1/workouts", body, auth.ScopeWorkoutsWrite)
	rr := httptest.NewRecorder()
	handler.logWorkout(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d: %s", rr.Code, rr.Body.String())
	}
	if repo.created != nil {
		t.Fatal("unscorable workout must not be persisted")
	}
}

func TestLogWorkoutRequiresWriteScope(t *testing.T) {
	handler := newHandler(&mockRepo{})

	req := authedRequest(http.MethodPost, "/v1/workouts", sprintPayload(), auth.ScopeWorkoutsRead)
	rr := httptest.NewRecorder()
	handler.logWorkout(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestLogWorkoutValidation(t *testing.T) {
	handler := newHandler(&mockRepo{})

	body, _ := json.Marshal(LogWorkoutRequest{
		SubjectID:   "athlete-1",
		DurationSec: 180,
		RoundCount:  1,
		PerformedAt: time.Now(),
		Source:      "api",
	})
	req := authedRequest(http.MethodPost, "/v1/workouts", body, auth.ScopeWorkoutsWrite)
	rr := httptest.NewRecorder()
	handler.logWorkout(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestGetWorkoutNotFound(t *testing.T) {
	handler := newHandler(&mockRepo{})

	req := authedRequest(http.MethodGet, "/v1/workouts/missing", nil, auth.ScopeWorkoutsRead)
	rr := httptest.NewRecorder()
	handler.getWorkout(rr, req, "missing")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestListWorkoutsRequiresSubjectID(t *testing.T) {
	handler := newHandler(&mockRepo{})

	req := authedRequest(http.MethodGet, "/v1/workouts", nil, auth.ScopeWorkoutsRead)
	rr := httptest.NewRecorder()
	handler.listWorkouts(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestDomainScoresRendersAllFiveAxes(t *testing.T) {
	raw, score := 25.0, 100.0
	repo := &mockRepo{
		scores: []engine.DomainScore{
			{
				SubjectID:   "athlete-1",
				Domain:      engine.DomainSprintPowerCapacity,
				RawValue:    &raw,
				Score:       &score,
				SampleCount: 6,
				Confidence:  engine.ConfidenceMedium,
				UpdatedAt:   time.Date(2025, time.June, 2, 7, 0, 0, 0, time.UTC),
			},
		},
	}
	handler := newHandler(repo)

	req := authedRequest(http.MethodGet, "/v1/domains?subject_id=athlete-1", nil, auth.ScopeWorkoutsRead)
	rr := httptest.NewRecorder()
	handler.domainScores(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp DomainScoresResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Domains) != 5 {
		t.Fatalf("expected 5 domains got %d", len(resp.Domains))
	}

	for _, d := range resp.Domains {
		switch d.Domain {
		case string(engine.DomainSprintPowerCapacity):
			if d.Score == nil || *d.Score != 100.0 {
				t.Fatalf("expected sprint power score 100 got %v", d.Score)
			}
			if d.Confidence != "medium" {
				t.Fatalf("expected medium confidence got %s", d.Confidence)
			}
		default:
			if d.Score != nil {
				t.Fatalf("expected null score for %s", d.Domain)
			}
			if d.Confidence != "low" {
				t.Fatalf("expected low confidence placeholder got %s", d.Confidence)
			}
		}
	}
}

type mockRepo struct {
	existing      *domain.WorkoutAggregate
	created       *domain.WorkoutAggregate
	createdResult *engine.Result
	workouts      []domain.WorkoutAggregate
	scores        []engine.DomainScore
}

func (m *mockRepo) FindByIdempotency(ctx context.Context, tenantID, subjectID, idempotencyKey string) (*domain.WorkoutAggregate, error) {
	if idempotencyKey == "" {
		return nil, nil
	}
	return m.existing, nil
}

func (m *mockRepo) CreateScored(ctx context.Context, aggregate domain.WorkoutAggregate, result engine.Result, idempotencyKey string) error {
	m.created = &aggregate
	m.createdResult = &result
	return nil
}

func (m *mockRepo) Get(ctx context.Context, tenantID, workoutID string) (*domain.WorkoutAggregate, error) {
	for i := range m.workouts {
		if m.workouts[i].ID == workoutID {
			return &m.workouts[i], nil
		}
	}
	return nil, nil
}

func (m *mockRepo) ListBySubject(ctx context.Context, tenantID, subjectID string, cursor *domain.Cursor, limit int) ([]domain.WorkoutAggregate, *domain.Cursor, error) {
	if limit <= 0 || limit > len(m.workouts) {
		limit = len(m.workouts)
	}
	out := make([]domain.WorkoutAggregate, limit)
	copy(out, m.workouts[:limit])
	return out, nil, nil
}

func (m *mockRepo) LoadSubjectState(ctx context.Context, tenantID, subjectID string) ([]engine.Distribution, []engine.DomainScore, error) {
	return nil, nil, nil
}

func (m *mockRepo) DomainScores(ctx context.Context, tenantID, subjectID string) ([]engine.DomainScore, error) {
	return m.scores, nil
}
