package engine

// Features is the classification signal extracted from a session and its
// computed metrics.
type Features struct {
	DurationSec       float64
	RoundCount        int
	HasSplits         bool
	DistinctMovements int
	LiftShare         float64
	MachineShare      float64
	AvgLiftReps       float64
}

// FeaturesOf derives the classification features. Shares default to zero when
// the session produced no work.
func FeaturesOf(s Session, m SessionMetrics) Features {
	distinct := make(map[MovementType]struct{}, len(s.Movements))
	var liftReps, liftMovements int
	for _, entry := range s.Movements {
		distinct[entry.Type] = struct{}{}
		if entry.Modality() == ModalityLift {
			liftReps += entry.Reps
			liftMovements++
		}
	}

	f := Features{
		DurationSec:       s.DurationSec,
		RoundCount:        s.Rounds(),
		HasSplits:         s.HasSplits(),
		DistinctMovements: len(distinct),
	}
	if m.ShareByModality != nil {
		f.LiftShare = m.ShareByModality[ModalityLift]
		f.MachineShare = m.ShareByModality[ModalityMachine]
	}
	if liftMovements > 0 {
		f.AvgLiftReps = float64(liftReps) / float64(liftMovements)
	}
	return f
}

// Rule pairs a predicate with the session type it assigns. Rules are
// evaluated in order and the first match wins, which keeps the tie-break
// order auditable and lets each predicate be tested in isolation.
type Rule struct {
	Name    string
	Type    SessionType
	Matches func(Features) bool
}

// DefaultRules returns the production rule order: composition and structure
// first, from most to least specific, with the duration bands as the fallback
// for sessions that are none of those. A pure-machine piece stays
// monostructural and a heavy low-rep session stays strength no matter how
// long either took. Deployments may supply a reordered table; classification
// is deterministic for a given table.
func DefaultRules(cal Calibration) []Rule {
	return []Rule{
		{
			Name: "monostructural-purity",
			Type: TypeMonostructural,
			Matches: func(f Features) bool {
				return f.MachineShare == 1.0
			},
		},
		{
			Name: "strength-dominance",
			Type: TypeStrength,
			Matches: func(f Features) bool {
				return f.LiftShare > cal.StrengthLiftShare &&
					f.AvgLiftReps > 0 &&
					f.AvgLiftReps <= cal.StrengthMaxRepsPerSet
			},
		},
		{
			Name: "interval-structure",
			Type: TypeInterval,
			Matches: func(f Features) bool {
				return f.RoundCount > 1 && f.HasSplits
			},
		},
		{
			Name: "chipper-structure",
			Type: TypeChipper,
			Matches: func(f Features) bool {
				return f.DistinctMovements > cal.ChipperMinMovements && f.RoundCount == 1
			},
		},
		{
			Name: "sprint-duration",
			Type: TypeSprint,
			Matches: func(f Features) bool {
				return f.DurationSec < cal.SprintMaxSec
			},
		},
		{
			Name: "threshold-duration",
			Type: TypeThreshold,
			Matches: func(f Features) bool {
				return f.DurationSec >= cal.SprintMaxSec && f.DurationSec < cal.ThresholdMaxSec
			},
		},
		{
			Name: "endurance-duration",
			Type: TypeEndurance,
			Matches: func(f Features) bool {
				return f.DurationSec >= cal.ThresholdMaxSec
			},
		},
	}
}

// Classify walks the rule table in order and returns the first matching type.
// When no rule matches, the caller-declared template decides; an empty
// template falls back to custom.
func Classify(f Features, rules []Rule, template SessionType) SessionType {
	for _, rule := range rules {
		if rule.Matches(f) {
			return rule.Type
		}
	}
	if template != "" {
		return template
	}
	return TypeCustom
}
