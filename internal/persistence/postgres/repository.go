package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DGator86/Prodigy---App/internal/domain"
	"github.com/DGator86/Prodigy---App/internal/engine"
	"github.com/DGator86/Prodigy---App/internal/events"
	"github.com/DGator86/Prodigy---App/internal/observability"
)

// Repository provides Postgres-backed persistence for workouts, scoring
// state, and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const workoutColumns = `workout_id, tenant_id, subject_id, template, movements, duration_sec, round_count, splits_sec, performed_at, source, version, processing_state, session_type, metrics, created_at, updated_at`

// FindByIdempotency checks if a workout already exists for the supplied idempotency key.
func (r *Repository) FindByIdempotency(ctx context.Context, tenantID, subjectID, idempotencyKey string) (*domain.WorkoutAggregate, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	query := `SELECT ` + workoutColumns + `
        FROM workouts WHERE tenant_id=$1 AND subject_id=$2 AND idempotency_key=$3`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	agg, err := scanWorkout(tx.QueryRow(ctx, query, tenantID, subjectID, idempotencyKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tx.Commit(ctx)
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return agg, nil
}

// CreateScored persists the workout, the distribution and domain-score
// updates from its scoring result, and the outbox events, all inside a single
// transaction. Either the workout lands fully scored or not at all.
func (r *Repository) CreateScored(ctx context.Context, aggregate domain.WorkoutAggregate, result engine.Result, idempotencyKey string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", aggregate.TenantID); err != nil {
		return err
	}

	movements, err := json.Marshal(aggregate.Movements)
	if err != nil {
		return err
	}
	metrics, err := json.Marshal(aggregate.Metrics)
	if err != nil {
		return err
	}

	insertWorkout := `INSERT INTO workouts (workout_id, tenant_id, subject_id, template, movements, duration_sec, round_count, splits_sec, performed_at, source, idempotency_key, version, processing_state, session_type, metrics, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	_, err = tx.Exec(ctx, insertWorkout,
		aggregate.ID,
		aggregate.TenantID,
		aggregate.SubjectID,
		nullIfEmpty(aggregate.Template),
		movements,
		aggregate.DurationSec,
		aggregate.RoundCount,
		aggregate.SplitsSec,
		aggregate.PerformedAt,
		aggregate.Source,
		nullIfEmpty(idempotencyKey),
		aggregate.Version,
		aggregate.State,
		aggregate.SessionType,
		metrics,
		aggregate.CreatedAt,
		aggregate.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err = r.upsertDistributions(ctx, tx, aggregate, result.Distributions); err != nil {
		return err
	}
	if err = r.upsertDomainScores(ctx, tx, aggregate, result.DomainScores); err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, aggregate, "workout.logged", loggedEvent(aggregate)); err != nil {
		return err
	}
	if err = r.insertOutbox(ctx, tx, aggregate, "workout.scored", scoredEvent(aggregate, result)); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordWorkoutPersisted(aggregate.UpdatedAt)
	return nil
}

func (r *Repository) upsertDistributions(ctx context.Context, tx pgx.Tx, aggregate domain.WorkoutAggregate, dists []engine.Distribution) error {
	const stmt = `INSERT INTO distributions (tenant_id, subject_id, session_type, metric, window_days, samples, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (tenant_id, subject_id, session_type, metric)
        DO UPDATE SET window_days=EXCLUDED.window_days, samples=EXCLUDED.samples, updated_at=EXCLUDED.updated_at`

	for _, d := range dists {
		values, err := json.Marshal(d.Values)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, stmt,
			aggregate.TenantID,
			aggregate.SubjectID,
			string(d.Key.SessionType),
			string(d.Key.Metric),
			d.WindowDays,
			values,
			d.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) upsertDomainScores(ctx context.Context, tx pgx.Tx, aggregate domain.WorkoutAggregate, scores []engine.DomainScore) error {
	const stmt = `INSERT INTO domain_scores (tenant_id, subject_id, domain, raw_value, score, sample_count, confidence, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (tenant_id, subject_id, domain)
        DO UPDATE SET raw_value=EXCLUDED.raw_value, score=EXCLUDED.score, sample_count=EXCLUDED.sample_count, confidence=EXCLUDED.confidence, updated_at=EXCLUDED.updated_at`

	for _, sc := range scores {
		if _, err := tx.Exec(ctx, stmt,
			aggregate.TenantID,
			aggregate.SubjectID,
			string(sc.Domain),
			sc.RawValue,
			sc.Score,
			sc.SampleCount,
			string(sc.Confidence),
			sc.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, aggregate domain.WorkoutAggregate, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[eventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	partitionKey := meta.PartitionKeyFn(aggregate)
	dedupeKey := fmt.Sprintf("%s:%s", aggregate.ID, eventType)

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		aggregate.TenantID,
		"workout",
		aggregate.ID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

// Get retrieves a workout by ID.
func (r *Repository) Get(ctx context.Context, tenantID, workoutID string) (*domain.WorkoutAggregate, error) {
	query := `SELECT ` + workoutColumns + `
        FROM workouts WHERE tenant_id=$1 AND workout_id=$2`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	agg, err := scanWorkout(tx.QueryRow(ctx, query, tenantID, workoutID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if err := tx.Commit(ctx); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return agg, nil
}

// ListBySubject returns workouts for a subject ordered by time.
func (r *Repository) ListBySubject(ctx context.Context, tenantID, subjectID string, cursor *domain.Cursor, limit int) ([]domain.WorkoutAggregate, *domain.Cursor, error) {
	args := []interface{}{tenantID, subjectID, limit}
	query := `SELECT ` + workoutColumns + `
        FROM workouts WHERE tenant_id=$1 AND subject_id=$2`

	if cursor != nil {
		query += ` AND (performed_at, workout_id) < ($4, $5)`
		args = append(args, cursor.PerformedAt, cursor.ID)
	}

	query += ` ORDER BY performed_at DESC, workout_id DESC LIMIT $3`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, nil, err
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.WorkoutAggregate, 0, limit)
	for rows.Next() {
		agg, err := scanWorkout(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, *agg)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{PerformedAt: last.PerformedAt, ID: last.ID}
	}

	return results, nextCursor, nil
}

// LoadSubjectState reads the subject's persisted distributions and domain
// scores for engine hydration.
func (r *Repository) LoadSubjectState(ctx context.Context, tenantID, subjectID string) ([]engine.Distribution, []engine.DomainScore, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, nil, err
	}

	const distQuery = `SELECT session_type, metric, window_days, samples, updated_at
        FROM distributions WHERE tenant_id=$1 AND subject_id=$2`

	rows, err := tx.Query(ctx, distQuery, tenantID, subjectID)
	if err != nil {
		return nil, nil, err
	}

	var dists []engine.Distribution
	for rows.Next() {
		var (
			sessionType, metric string
			raw                 []byte
			d                   engine.Distribution
		)
		if err := rows.Scan(&sessionType, &metric, &d.WindowDays, &raw, &d.UpdatedAt); err != nil {
			rows.Close()
			return nil, nil, err
		}
		if err := json.Unmarshal(raw, &d.Values); err != nil {
			rows.Close()
			return nil, nil, err
		}
		d.Key = engine.DistributionKey{
			SubjectID:   subjectID,
			SessionType: engine.SessionType(sessionType),
			Metric:      engine.MetricName(metric),
		}
		dists = append(dists, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	scores, err := queryDomainScores(ctx, tx, tenantID, subjectID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return dists, scores, nil
}

// DomainScores returns the subject's persisted domain scores.
func (r *Repository) DomainScores(ctx context.Context, tenantID, subjectID string) ([]engine.DomainScore, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	scores, err := queryDomainScores(ctx, tx, tenantID, subjectID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return scores, nil
}

func queryDomainScores(ctx context.Context, tx pgx.Tx, tenantID, subjectID string) ([]engine.DomainScore, error) {
	const query = `SELECT domain, raw_value, score, sample_count, confidence, updated_at
        FROM domain_scores WHERE tenant_id=$1 AND subject_id=$2`

	rows, err := tx.Query(ctx, query, tenantID, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []engine.DomainScore
	for rows.Next() {
		var (
			d, confidence string
			sc            engine.DomainScore
		)
		if err := rows.Scan(&d, &sc.RawValue, &sc.Score, &sc.SampleCount, &confidence, &sc.UpdatedAt); err != nil {
			return nil, err
		}
		sc.SubjectID = subjectID
		sc.Domain = engine.Domain(d)
		sc.Confidence = engine.ConfidenceTier(confidence)
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkout(row rowScanner) (*domain.WorkoutAggregate, error) {
	var (
		agg       domain.WorkoutAggregate
		template  *string
		movements []byte
		metrics   []byte
	)
	if err := row.Scan(&agg.ID, &agg.TenantID, &agg.SubjectID, &template, &movements, &agg.DurationSec, &agg.RoundCount, &agg.SplitsSec, &agg.PerformedAt, &agg.Source, &agg.Version, &agg.State, &agg.SessionType, &metrics, &agg.CreatedAt, &agg.UpdatedAt); err != nil {
		return nil, err
	}
	if template != nil {
		agg.Template = *template
	}
	if err := json.Unmarshal(movements, &agg.Movements); err != nil {
		return nil, err
	}
	if len(metrics) > 0 {
		agg.Metrics = &engine.SessionMetrics{}
		if err := json.Unmarshal(metrics, agg.Metrics); err != nil {
			return nil, err
		}
	}
	return &agg, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func loggedEvent(aggregate domain.WorkoutAggregate) events.WorkoutLogged {
	lines := make([]events.MovementLine, len(aggregate.Movements))
	for i, m := range aggregate.Movements {
		lines[i] = events.MovementLine{Name: m.Name, Reps: m.Reps, LoadLb: m.LoadLb, Calories: m.Calories}
	}
	return events.WorkoutLogged{
		WorkoutID:   aggregate.ID,
		TenantID:    aggregate.TenantID,
		SubjectID:   aggregate.SubjectID,
		Template:    aggregate.Template,
		Movements:   lines,
		DurationSec: aggregate.DurationSec,
		RoundCount:  aggregate.RoundCount,
		SplitsSec:   aggregate.SplitsSec,
		PerformedAt: aggregate.PerformedAt,
		Source:      aggregate.Source,
		Version:     aggregate.Version,
	}
}

func scoredEvent(aggregate domain.WorkoutAggregate, result engine.Result) events.WorkoutScored {
	evt := events.WorkoutScored{
		WorkoutID:   aggregate.ID,
		TenantID:    aggregate.TenantID,
		SubjectID:   aggregate.SubjectID,
		SessionType: string(result.Type),
		TotalWork:   result.Metrics.TotalWork,
		ScoredAt:    aggregate.UpdatedAt,
		Version:     aggregate.Version,
	}
	evt.DensityPerMin = result.Metrics.DensityPerMin
	if rep := result.Metrics.Repeatability; rep != nil {
		drift, spread := rep.Drift, rep.Spread
		evt.Drift = &drift
		evt.Spread = &spread
	}
	for _, sc := range result.DomainScores {
		evt.DomainScores = append(evt.DomainScores, events.DomainScoreSnapshot{
			Domain:      string(sc.Domain),
			RawValue:    sc.RawValue,
			Score:       sc.Score,
			SampleCount: sc.SampleCount,
			Confidence:  string(sc.Confidence),
		})
	}
	return evt
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.WorkoutAggregate) string
}

var eventCatalog = map[string]EventMetadata{
	"workout.logged": {
		Topic:         "workout_events",
		SchemaSubject: "workout_events-value",
		PartitionKeyFn: func(w domain.WorkoutAggregate) string {
			return fmt.Sprintf("%s:%s", w.TenantID, w.SubjectID)
		},
	},
	"workout.scored": {
		Topic:         "workout_scored",
		SchemaSubject: "workout_scored-value",
		PartitionKeyFn: func(w domain.WorkoutAggregate) string {
			return fmt.Sprintf("%s:%s", w.TenantID, w.SubjectID)
		},
	},
}
