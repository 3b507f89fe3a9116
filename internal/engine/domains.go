package engine

import "time"

// Domain is one of the five longitudinal performance categories.
type Domain string

const (
	DomainStrengthOutput       Domain = "strength_output"
	DomainMonostructuralOutput Domain = "monostructural_output"
	DomainMixedModalCapacity   Domain = "mixed_modal_capacity"
	DomainSprintPowerCapacity  Domain = "sprint_power_capacity"
	DomainRepeatability        Domain = "repeatability"
)

// Domains lists all five domains in presentation order.
func Domains() []Domain {
	return []Domain{
		DomainStrengthOutput,
		DomainMonostructuralOutput,
		DomainMixedModalCapacity,
		DomainSprintPowerCapacity,
		DomainRepeatability,
	}
}

// ConfidenceTier is a coarse reliability label derived solely from how many
// sessions have contributed to a domain.
type ConfidenceTier string

const (
	ConfidenceLow    ConfidenceTier = "low"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceHigh   ConfidenceTier = "high"
)

// ConfidenceFor maps a sample count to its tier: 0–4 low, 5–14 medium,
// 15+ high. Total over all non-negative counts.
func ConfidenceFor(sampleCount int) ConfidenceTier {
	switch {
	case sampleCount >= 15:
		return ConfidenceHigh
	case sampleCount >= 5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// DomainScore is the longitudinal score for one (subject, domain) pair.
// Created lazily on the first contribution and never deleted afterwards.
type DomainScore struct {
	SubjectID   string
	Domain      Domain
	// RawValue is the most recent contributing value. Its unit follows the
	// domain: EWU or EWU/min for the output and capacity domains, but the
	// combined 0-100 score for repeatability, whose drift and spread inputs
	// share no common unit.
	RawValue    *float64
	Score       *float64 // 0-100, latest normalized output
	SampleCount int
	Confidence  ConfidenceTier
	UpdatedAt   time.Time
}

// metricInput is one raw observation a domain contribution feeds into the
// distribution store. LowerIsBetter inverts the percentile score for metrics
// such as drift and spread where smaller values indicate better performance.
type metricInput struct {
	Metric        MetricName
	Value         float64
	LowerIsBetter bool
}

// contribution is one domain update derived from a session.
type contribution struct {
	Domain Domain
	Inputs []metricInput
}

// domainContributions maps a classified session to the domains it feeds.
// A session that matches no feeding condition contributes nothing; that is a
// defined outcome, not an error.
func domainContributions(classified SessionType, s Session, m SessionMetrics, cal Calibration) []contribution {
	var out []contribution

	if classified == TypeStrength {
		if lift := m.WorkByModality[ModalityLift]; lift > 0 {
			out = append(out, contribution{
				Domain: DomainStrengthOutput,
				Inputs: []metricInput{{Metric: MetricLiftEWU, Value: lift}},
			})
		}
	}

	if classified == TypeMonostructural {
		if machine := m.WorkByModality[ModalityMachine]; machine > 0 {
			out = append(out, contribution{
				Domain: DomainMonostructuralOutput,
				Inputs: []metricInput{{Metric: MetricMachineEWU, Value: machine}},
			})
		}
	}

	if m.DensityPerMin != nil {
		out = append(out, contribution{
			Domain: DomainMixedModalCapacity,
			Inputs: []metricInput{{Metric: MetricDensityPerMin, Value: *m.DensityPerMin}},
		})

		// Sprint power tracks its own metric name so sub-5-minute efforts do
		// not double-insert into the mixed-modal density distribution.
		if s.DurationSec < cal.SprintMaxSec {
			out = append(out, contribution{
				Domain: DomainSprintPowerCapacity,
				Inputs: []metricInput{{Metric: MetricSprintDensity, Value: *m.DensityPerMin}},
			})
		}
	}

	if m.Repeatability != nil {
		out = append(out, contribution{
			Domain: DomainRepeatability,
			Inputs: []metricInput{
				{Metric: MetricDrift, Value: m.Repeatability.Drift, LowerIsBetter: true},
				{Metric: MetricSpread, Value: m.Repeatability.Spread, LowerIsBetter: true},
			},
		})
	}

	return out
}
