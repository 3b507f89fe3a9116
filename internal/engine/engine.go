package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Result is the committed outcome of one pipeline invocation. Distributions
// and DomainScores are copies of every record the session touched, handed
// back for the caller to persist.
type Result struct {
	SessionID     string
	SubjectID     string
	Type          SessionType
	Metrics       SessionMetrics
	Distributions []Distribution
	DomainScores  []DomainScore
}

// subjectState is one athlete's independently lockable state bundle. Keeping
// the lock per subject preserves full cross-subject parallelism.
type subjectState struct {
	mu     sync.Mutex
	dists  *distributionSet
	scores map[Domain]*DomainScore
}

// Engine runs the scoring pipeline. It is safe for concurrent use; pipeline
// executions for the same subject are serialized, different subjects proceed
// in parallel. The engine performs no I/O.
type Engine struct {
	cal   Calibration
	rules []Rule

	mu       sync.RWMutex
	subjects map[string]*subjectState
}

// Option configures optional behaviour for the Engine.
type Option func(*Engine)

// WithRules overrides the default classification rule table.
func WithRules(rules []Rule) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// New constructs an Engine with the provided calibration.
func New(cal Calibration, opts ...Option) *Engine {
	e := &Engine{
		cal:      cal,
		rules:    DefaultRules(cal),
		subjects: make(map[string]*subjectState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) subject(subjectID string) *subjectState {
	e.mu.RLock()
	st, ok := e.subjects[subjectID]
	e.mu.RUnlock()
	if ok {
		return st
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok = e.subjects[subjectID]; ok {
		return st
	}
	st = &subjectState{
		dists:  newDistributionSet(e.cal.WindowDays),
		scores: make(map[Domain]*DomainScore),
	}
	e.subjects[subjectID] = st
	return st
}

// Restore hydrates a subject's persisted state before processing. Existing
// in-memory state for the same keys is replaced.
func (e *Engine) Restore(subjectID string, dists []Distribution, scores []DomainScore) {
	st := e.subject(subjectID)
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, d := range dists {
		st.dists.restore(d)
	}
	for _, s := range scores {
		sc := s
		st.scores[s.Domain] = &sc
	}
}

// Process runs the full pipeline for one session: work units, session
// metrics, classification, distribution inserts, normalization, and domain
// score updates. Any failure aborts before state is touched; the commit of
// distribution and domain updates happens atomically under the subject lock.
func (e *Engine) Process(s Session) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("session %s: %w", s.ID, err)
	}

	work, err := SessionWork(s, e.cal)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", s.ID, err)
	}

	metrics, err := ComputeMetrics(s, work)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", s.ID, err)
	}

	classified := Classify(FeaturesOf(s, metrics), e.rules, s.Template)
	contributions := domainContributions(classified, s, metrics, e.cal)

	st := e.subject(s.SubjectID)
	st.mu.Lock()
	defer st.mu.Unlock()

	// Stage every insert and score on copies, then swap the copies in. The
	// pipeline is pure past this point, but staging keeps the commit a single
	// indivisible step should a panic ever interrupt it.
	staged := make(map[DistributionKey]*Distribution)
	updatedScores := make([]DomainScore, 0, len(contributions))

	for _, c := range contributions {
		var scoreSum float64
		for _, input := range c.Inputs {
			key := DistributionKey{SubjectID: s.SubjectID, SessionType: classified, Metric: input.Metric}
			dist, ok := staged[key]
			if !ok {
				dist = st.dists.getOrCreate(key).clone()
				staged[key] = dist
			}
			dist.Insert(input.Value, s.ID, s.PerformedAt)

			var pct *float64
			if input.LowerIsBetter {
				pct = InversePercentileScore(input.Value, dist.Snapshot())
			} else {
				pct = PercentileScore(input.Value, dist.Snapshot())
			}
			scoreSum += *pct
		}
		combined := scoreSum / float64(len(c.Inputs))

		prev, ok := st.scores[c.Domain]
		next := DomainScore{SubjectID: s.SubjectID, Domain: c.Domain}
		if ok {
			next = *prev
		}
		raw := c.Inputs[0].Value
		if len(c.Inputs) > 1 {
			raw = combined
		}
		next.RawValue = &raw
		next.Score = &combined
		next.SampleCount++
		next.Confidence = ConfidenceFor(next.SampleCount)
		next.UpdatedAt = s.PerformedAt
		updatedScores = append(updatedScores, next)
	}

	// Commit.
	updatedDists := make([]Distribution, 0, len(staged))
	for key, dist := range staged {
		st.dists.dists[key] = dist
		updatedDists = append(updatedDists, *dist.clone())
	}
	sort.Slice(updatedDists, func(i, j int) bool {
		if updatedDists[i].Key.SessionType != updatedDists[j].Key.SessionType {
			return updatedDists[i].Key.SessionType < updatedDists[j].Key.SessionType
		}
		return updatedDists[i].Key.Metric < updatedDists[j].Key.Metric
	})
	for i := range updatedScores {
		sc := updatedScores[i]
		st.scores[sc.Domain] = &sc
	}

	return &Result{
		SessionID:     s.ID,
		SubjectID:     s.SubjectID,
		Type:          classified,
		Metrics:       metrics,
		Distributions: updatedDists,
		DomainScores:  updatedScores,
	}, nil
}

// Forget drops a subject's in-memory state. Callers use it when the engine
// and the backing store can no longer be assumed to agree, typically after a
// persistence failure; the next Restore rebuilds the subject from storage.
func (e *Engine) Forget(subjectID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subjects, subjectID)
}

// DomainScores returns copies of the subject's existing domain scores in
// presentation order. Domains without contributions are absent.
func (e *Engine) DomainScores(subjectID string) []DomainScore {
	st := e.subject(subjectID)
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]DomainScore, 0, len(st.scores))
	for _, domain := range Domains() {
		if sc, ok := st.scores[domain]; ok {
			out = append(out, *sc)
		}
	}
	return out
}

// Snapshot exposes the in-window values for one distribution key, mainly for
// callers rendering history detail.
func (e *Engine) Snapshot(key DistributionKey) []float64 {
	st := e.subject(key.SubjectID)
	st.mu.Lock()
	defer st.mu.Unlock()

	dist, ok := st.dists.dists[key]
	if !ok {
		return nil
	}
	return dist.Snapshot()
}
