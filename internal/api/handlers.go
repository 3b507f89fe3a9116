// Package api exposes HTTP handlers for the scoring service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DGator86/Prodigy---App/internal/auth"
	"github.com/DGator86/Prodigy---App/internal/domain"
	"github.com/DGator86/Prodigy---App/internal/engine"
	"github.com/DGator86/Prodigy---App/internal/persistence"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/workouts/", h.workoutByID)
	mux.HandleFunc("/v1/domains", h.domainScores)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.logWorkout(w, r)
	case http.MethodGet:
		h.listWorkouts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/workouts/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getWorkout(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) logWorkout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeWorkoutsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:write required")
		return
	}

	var req LogWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	aggregate, replay, err := h.service.LogWorkout(r.Context(), domain.LogWorkoutInput{
		TenantID:       claims.TenantID,
		SubjectID:      req.SubjectID,
		Template:       req.Template,
		Movements:      toDomainMovements(req.Movements),
		DurationSec:    req.DurationSec,
		RoundCount:     req.RoundCount,
		SplitsSec:      req.SplitsSec,
		PerformedAt:    req.PerformedAt,
		Source:         req.Source,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		if isScoringRejection(err) {
			writeError(w, http.StatusUnprocessableEntity, "unscorable", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := LogWorkoutResponse{
		WorkoutID:   aggregate.ID,
		Status:      string(aggregate.State),
		SessionType: aggregate.SessionType,
		Replay:      replay,
	}

	status := http.StatusAccepted
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// isScoringRejection distinguishes deterministic pipeline rejections from
// infrastructure failures so the client learns the workout itself is at fault.
func isScoringRejection(err error) bool {
	return errors.Is(err, engine.ErrUncalibratedModality) ||
		errors.Is(err, engine.ErrMissingLoad) ||
		errors.Is(err, engine.ErrMissingCalories) ||
		errors.Is(err, engine.ErrSplitCountMismatch)
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeWorkoutsRead) && !claims.HasScope(auth.ScopeWorkoutsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:read required")
		return
	}

	aggregate, err := h.service.GetWorkout(r.Context(), claims.TenantID, id)
	if err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toWorkoutView(*aggregate))
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeWorkoutsRead) && !claims.HasScope(auth.ScopeWorkoutsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:read required")
		return
	}

	subjectID := r.URL.Query().Get("subject_id")
	if subjectID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing subject_id parameter")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursorToken := r.URL.Query().Get("cursor")
	cursor, err := persistence.DecodeCursor(cursorToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	aggregates, next, err := h.service.ListWorkoutsBySubject(r.Context(), claims.TenantID, subjectID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]WorkoutView, 0, len(aggregates))
	for _, agg := range aggregates {
		items = append(items, toWorkoutView(agg))
	}

	resp := ListWorkoutsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) domainScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeWorkoutsRead) && !claims.HasScope(auth.ScopeWorkoutsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:read required")
		return
	}

	subjectID := r.URL.Query().Get("subject_id")
	if strings.TrimSpace(subjectID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing subject_id parameter")
		return
	}

	scores, err := h.service.DomainScores(r.Context(), claims.TenantID, subjectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	byDomain := make(map[engine.Domain]engine.DomainScore, len(scores))
	for _, sc := range scores {
		byDomain[sc.Domain] = sc
	}

	// The radar always renders all five axes; domains without history come
	// back with null scores rather than being omitted.
	resp := DomainScoresResponse{
		SubjectID: subjectID,
		Domains:   make([]DomainScoreView, 0, len(engine.Domains())),
	}
	for _, d := range engine.Domains() {
		view := DomainScoreView{Domain: string(d), Confidence: string(engine.ConfidenceLow)}
		if sc, ok := byDomain[d]; ok {
			view.RawValue = sc.RawValue
			view.Score = sc.Score
			view.SampleCount = sc.SampleCount
			view.Confidence = string(sc.Confidence)
			if !sc.UpdatedAt.IsZero() {
				updated := sc.UpdatedAt
				view.UpdatedAt = &updated
			}
		}
		resp.Domains = append(resp.Domains, view)
	}

	writeJSON(w, http.StatusOK, resp)
}

// MovementPayload is one movement line inside LogWorkoutRequest.
type MovementPayload struct {
	Name     string   `json:"name"`
	Reps     int      `json:"reps"`
	LoadLb   *float64 `json:"load_lb,omitempty"`
	Calories *float64 `json:"calories,omitempty"`
}

// LogWorkoutRequest is the payload for POST /v1/workouts.
type LogWorkoutRequest struct {
	SubjectID   string            `json:"subject_id"`
	Template    string            `json:"template,omitempty"`
	Movements   []MovementPayload `json:"movements"`
	DurationSec float64           `json:"duration_sec"`
	RoundCount  int               `json:"round_count"`
	SplitsSec   []float64         `json:"splits_sec,omitempty"`
	PerformedAt time.Time         `json:"performed_at"`
	Source      string            `json:"source"`
}

// Validate ensures request correctness.
func (r LogWorkoutRequest) Validate() error {
	if strings.TrimSpace(r.SubjectID) == "" {
		return errors.New("subject_id is required")
	}
	if len(r.Movements) == 0 {
		return errors.New("movements is required")
	}
	for i, m := range r.Movements {
		if strings.TrimSpace(m.Name) == "" {
			return errors.New("movements[" + strconv.Itoa(i) + "].name is required")
		}
		if m.Reps <= 0 {
			return errors.New("movements[" + strconv.Itoa(i) + "].reps must be > 0")
		}
	}
	if r.DurationSec <= 0 {
		return errors.New("duration_sec must be > 0")
	}
	if r.RoundCount <= 0 {
		return errors.New("round_count must be > 0")
	}
	if r.PerformedAt.IsZero() {
		return errors.New("performed_at is required")
	}
	if strings.TrimSpace(r.Source) == "" {
		return errors.New("source is required")
	}
	return nil
}

// LogWorkoutResponse describes the response body for create.
type LogWorkoutResponse struct {
	WorkoutID   string `json:"workout_id"`
	Status      string `json:"status"`
	SessionType string `json:"session_type"`
	Replay      bool   `json:"idempotent_replay"`
}

// MetricsView exposes the computed session metrics of a scored workout.
type MetricsView struct {
	TotalWorkEWU    float64            `json:"total_work_ewu"`
	WorkByModality  map[string]float64 `json:"work_by_modality"`
	ShareByModality map[string]float64 `json:"share_by_modality,omitempty"`
	DensityPerMin   *float64           `json:"density_ewu_per_min,omitempty"`
	ActivePowerMin  *float64           `json:"active_power_ewu_per_min,omitempty"`
	Drift           *float64           `json:"split_drift,omitempty"`
	Spread          *float64           `json:"split_spread,omitempty"`
	Consistency     *float64           `json:"split_consistency,omitempty"`
}

// WorkoutView exposes full details about a workout.
type WorkoutView struct {
	WorkoutID   string            `json:"workout_id"`
	TenantID    string            `json:"tenant_id"`
	SubjectID   string            `json:"subject_id"`
	Template    string            `json:"template,omitempty"`
	Movements   []MovementPayload `json:"movements"`
	DurationSec float64           `json:"duration_sec"`
	RoundCount  int               `json:"round_count"`
	SplitsSec   []float64         `json:"splits_sec,omitempty"`
	PerformedAt time.Time         `json:"performed_at"`
	Source      string            `json:"source"`
	Version     string            `json:"version"`
	Status      string            `json:"status"`
	SessionType string            `json:"session_type,omitempty"`
	Metrics     *MetricsView      `json:"metrics,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ListWorkoutsResponse packages list results.
type ListWorkoutsResponse struct {
	Items      []WorkoutView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// DomainScoreView is one radar axis.
type DomainScoreView struct {
	Domain      string     `json:"domain"`
	RawValue    *float64   `json:"raw_value"`
	Score       *float64   `json:"score"`
	SampleCount int        `json:"sample_count"`
	Confidence  string     `json:"confidence"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// DomainScoresResponse renders the five-axis profile for a subject.
type DomainScoresResponse struct {
	SubjectID string            `json:"subject_id"`
	Domains   []DomainScoreView `json:"domains"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toDomainMovements(in []MovementPayload) []domain.MovementInput {
	out := make([]domain.MovementInput, len(in))
	for i, m := range in {
		out[i] = domain.MovementInput{Name: m.Name, Reps: m.Reps, LoadLb: m.LoadLb, Calories: m.Calories}
	}
	return out
}

func toMovementPayloads(in []domain.MovementInput) []MovementPayload {
	out := make([]MovementPayload, len(in))
	for i, m := range in {
		out[i] = MovementPayload{Name: m.Name, Reps: m.Reps, LoadLb: m.LoadLb, Calories: m.Calories}
	}
	return out
}

func toWorkoutView(agg domain.WorkoutAggregate) WorkoutView {
	view := WorkoutView{
		WorkoutID:   agg.ID,
		TenantID:    agg.TenantID,
		SubjectID:   agg.SubjectID,
		Template:    agg.Template,
		Movements:   toMovementPayloads(agg.Movements),
		DurationSec: agg.DurationSec,
		RoundCount:  agg.RoundCount,
		SplitsSec:   agg.SplitsSec,
		PerformedAt: agg.PerformedAt,
		Source:      agg.Source,
		Version:     agg.Version,
		Status:      string(agg.State),
		SessionType: agg.SessionType,
		CreatedAt:   agg.CreatedAt,
		UpdatedAt:   agg.UpdatedAt,
	}
	if agg.Metrics != nil {
		view.Metrics = toMetricsView(*agg.Metrics)
	}
	return view
}

func toMetricsView(m engine.SessionMetrics) *MetricsView {
	view := &MetricsView{
		TotalWorkEWU:   m.TotalWork,
		WorkByModality: modalityMap(m.WorkByModality),
		DensityPerMin:  m.DensityPerMin,
	}
	if m.ShareByModality != nil {
		view.ShareByModality = modalityMap(m.ShareByModality)
	}
	if m.ActivePower != nil {
		avg := m.ActivePower.AveragePerMin
		view.ActivePowerMin = &avg
	}
	if m.Repeatability != nil {
		drift, spread, cons := m.Repeatability.Drift, m.Repeatability.Spread, m.Repeatability.Consistency
		view.Drift = &drift
		view.Spread = &spread
		view.Consistency = &cons
	}
	return view
}

func modalityMap(in map[engine.Modality]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}
