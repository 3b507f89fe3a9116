package engine

// PercentileScore scores a value against a distribution snapshot as the
// fraction of snapshot values less than or equal to it, scaled to 0–100.
// The contract expects a post-insertion snapshot, so the value ranks against
// a set that includes itself and a fresh strict maximum scores 100. An empty
// snapshot yields nil; small samples still score and the caller marks them
// provisional through the confidence tier.
func PercentileScore(value float64, snapshot []float64) *float64 {
	if len(snapshot) == 0 {
		return nil
	}

	var atOrBelow int
	for _, v := range snapshot {
		if v <= value {
			atOrBelow++
		}
	}

	score := 100 * float64(atOrBelow) / float64(len(snapshot))
	return &score
}

// InversePercentileScore scores metrics where lower is better (drift,
// spread): the fraction of snapshot values greater than or equal to the new
// value, scaled to 0–100. A fresh strict minimum scores 100, mirroring
// PercentileScore for maxima.
func InversePercentileScore(value float64, snapshot []float64) *float64 {
	if len(snapshot) == 0 {
		return nil
	}

	var atOrAbove int
	for _, v := range snapshot {
		if v >= value {
			atOrAbove++
		}
	}

	score := 100 * float64(atOrAbove) / float64(len(snapshot))
	return &score
}
