package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsScored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scoring_service",
		Subsystem: "pipeline",
		Name:      "workouts_scored_total",
		Help:      "Workouts scored, labelled by classified session type.",
	}, []string{"session_type"})
	pipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scoring_service",
		Subsystem: "pipeline",
		Name:      "duration_seconds",
		Help:      "Wall time of one scoring pipeline run.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
	domainScoreGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "scoring_service",
		Subsystem: "domains",
		Name:      "latest_score",
		Help:      "Most recent normalized score per domain and confidence tier.",
	}, []string{"domain", "confidence"})
	workoutPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scoring_service",
		Subsystem: "persistence",
		Name:      "last_workout_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout persisted to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(workoutsScored, pipelineDuration, domainScoreGauge, workoutPersistGauge)
}

// RecordWorkoutScored counts a pipeline run and observes its duration.
func RecordWorkoutScored(sessionType string, elapsed time.Duration) {
	workoutsScored.WithLabelValues(sessionType).Inc()
	pipelineDuration.Observe(elapsed.Seconds())
}

// RecordDomainScore publishes the newest normalized score for a domain.
// Scores are nil only when a domain has no history yet.
func RecordDomainScore(domain, confidence string, score *float64) {
	if score == nil {
		return
	}
	domainScoreGauge.WithLabelValues(domain, confidence).Set(*score)
}

// RecordWorkoutPersisted updates the persistence watermark gauge.
func RecordWorkoutPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	workoutPersistGauge.Set(float64(ts.Unix()))
}
