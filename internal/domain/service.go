// Package domain defines the business logic for the scoring service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DGator86/Prodigy---App/internal/engine"
	"github.com/DGator86/Prodigy---App/internal/observability"
)

var (
	// ErrIdempotentReplay indicates an existing workout was found for the provided idempotency key.
	ErrIdempotentReplay = errors.New("workout already exists for idempotency key")
	// ErrWorkoutNotFound is returned when a workout cannot be located.
	ErrWorkoutNotFound = errors.New("workout not found")
)

// WorkoutRepository captures persistence operations.
type WorkoutRepository interface {
	FindByIdempotency(ctx context.Context, tenantID, subjectID, idempotencyKey string) (*WorkoutAggregate, error)
	CreateScored(ctx context.Context, aggregate WorkoutAggregate, result engine.Result, idempotencyKey string) error
	Get(ctx context.Context, tenantID, workoutID string) (*WorkoutAggregate, error)
	ListBySubject(ctx context.Context, tenantID, subjectID string, cursor *Cursor, limit int) ([]WorkoutAggregate, *Cursor, error)
	LoadSubjectState(ctx context.Context, tenantID, subjectID string) ([]engine.Distribution, []engine.DomainScore, error)
	DomainScores(ctx context.Context, tenantID, subjectID string) ([]engine.DomainScore, error)
}

// Service orchestrates workout workflows: it hydrates subject history into
// the engine, runs the pipeline, and persists the committed result.
type Service struct {
	repo   WorkoutRepository
	engine *engine.Engine

	mu       sync.Mutex
	subjects map[string]*subjectGuard
}

// subjectGuard serializes hydrate, score, and persist for one subject. Two
// concurrent first contacts would otherwise both load state, and the slower
// Restore would overwrite whatever the faster request had already committed.
type subjectGuard struct {
	mu       sync.Mutex
	hydrated bool
}

// NewService constructs a Service.
func NewService(repo WorkoutRepository, eng *engine.Engine) *Service {
	return &Service{
		repo:     repo,
		engine:   eng,
		subjects: make(map[string]*subjectGuard),
	}
}

// LogWorkoutInput captures the payload from the API layer.
type LogWorkoutInput struct {
	TenantID       string
	SubjectID      string
	Template       string
	Movements      []MovementInput
	DurationSec    float64
	RoundCount     int
	SplitsSec      []float64
	PerformedAt    time.Time
	Source         string
	IdempotencyKey string
}

// Cursor models the pagination token.
type Cursor struct {
	PerformedAt time.Time
	ID          string
}

// subjectKey namespaces engine state by tenant so subject IDs from different
// tenants never share a distribution.
func subjectKey(tenantID, subjectID string) string {
	return tenantID + ":" + subjectID
}

func (s *Service) guard(key string) *subjectGuard {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.subjects[key]
	if !ok {
		g = &subjectGuard{}
		s.subjects[key] = g
	}
	return g
}

// hydrateLocked loads a subject's persisted distributions and domain scores
// into the engine the first time this process sees the subject. The caller
// holds the subject guard.
func (s *Service) hydrateLocked(ctx context.Context, g *subjectGuard, tenantID, subjectID string) error {
	if g.hydrated {
		return nil
	}

	key := subjectKey(tenantID, subjectID)
	dists, scores, err := s.repo.LoadSubjectState(ctx, tenantID, subjectID)
	if err != nil {
		return fmt.Errorf("load subject state: %w", err)
	}
	for i := range dists {
		dists[i].Key.SubjectID = key
	}
	for i := range scores {
		scores[i].SubjectID = key
	}
	s.engine.Restore(key, dists, scores)
	g.hydrated = true
	return nil
}

// LogWorkout handles idempotent create semantics, scoring, and outbox
// recording. The bool result reports an idempotent replay.
func (s *Service) LogWorkout(ctx context.Context, input LogWorkoutInput) (*WorkoutAggregate, bool, error) {
	existing, err := s.repo.FindByIdempotency(ctx, input.TenantID, input.SubjectID, input.IdempotencyKey)
	if err != nil {
		return nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	if existing != nil {
		return existing, true, nil
	}

	key := subjectKey(input.TenantID, input.SubjectID)
	g := s.guard(key)
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := s.hydrateLocked(ctx, g, input.TenantID, input.SubjectID); err != nil {
		return nil, false, err
	}

	id := uuid.NewString()
	session := engine.Session{
		ID:          id,
		SubjectID:   key,
		Template:    engine.SessionType(input.Template),
		Movements:   toEngineMovements(input.Movements),
		DurationSec: input.DurationSec,
		RoundCount:  input.RoundCount,
		SplitsSec:   input.SplitsSec,
		PerformedAt: input.PerformedAt.UTC(),
	}

	start := time.Now()
	result, err := s.engine.Process(session)
	if err != nil {
		return nil, false, err
	}
	observability.RecordWorkoutScored(string(result.Type), time.Since(start))

	now := time.Now().UTC()
	aggregate := WorkoutAggregate{
		ID:          id,
		TenantID:    input.TenantID,
		SubjectID:   input.SubjectID,
		Template:    input.Template,
		Movements:   input.Movements,
		DurationSec: input.DurationSec,
		RoundCount:  input.RoundCount,
		SplitsSec:   input.SplitsSec,
		PerformedAt: input.PerformedAt.UTC(),
		Source:      input.Source,
		Version:     "v1",
		State:       WorkoutStateScored,
		SessionType: string(result.Type),
		Metrics:     &result.Metrics,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateScored(ctx, aggregate, *result, input.IdempotencyKey); err != nil {
		// The engine already committed this session in memory; the database
		// did not. Drop the subject so the next request rebuilds it from the
		// store instead of scoring against history that was never persisted.
		s.engine.Forget(key)
		g.hydrated = false
		return nil, false, err
	}
	for _, sc := range result.DomainScores {
		observability.RecordDomainScore(string(sc.Domain), string(sc.Confidence), sc.Score)
	}

	return &aggregate, false, nil
}

// GetWorkout fetches by ID.
func (s *Service) GetWorkout(ctx context.Context, tenantID, workoutID string) (*WorkoutAggregate, error) {
	agg, err := s.repo.Get(ctx, tenantID, workoutID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, ErrWorkoutNotFound
	}
	return agg, nil
}

// ListWorkoutsBySubject fetches workouts with cursor pagination.
func (s *Service) ListWorkoutsBySubject(ctx context.Context, tenantID, subjectID string, cursor *Cursor, limit int) ([]WorkoutAggregate, *Cursor, error) {
	return s.repo.ListBySubject(ctx, tenantID, subjectID, cursor, limit)
}

// DomainScores returns the subject's persisted domain scores in presentation
// order. Domains without history are absent; the API layer fills them in.
func (s *Service) DomainScores(ctx context.Context, tenantID, subjectID string) ([]engine.DomainScore, error) {
	return s.repo.DomainScores(ctx, tenantID, subjectID)
}

func toEngineMovements(in []MovementInput) []engine.MovementEntry {
	out := make([]engine.MovementEntry, len(in))
	for i, m := range in {
		out[i] = engine.MovementEntry{
			Type:     engine.MovementType(m.Name),
			Reps:     m.Reps,
			LoadLb:   m.LoadLb,
			Calories: m.Calories,
			Position: i,
		}
	}
	return out
}
