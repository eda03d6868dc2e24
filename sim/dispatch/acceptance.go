package dispatch

// acceptCriterion decides whether a candidate solution replaces the current
// one. it/total is search progress in [0,1).
type acceptCriterion func(candidate, current float64, it, total int) bool

// improvingOnly is strict hill climbing.
func improvingOnly(candidate, current float64, it, total int) bool {
	return candidate < current
}

// decayingThreshold accepts candidates up to a slack above current cost; the
// slack shrinks linearly to zero so the search converges to hill climbing.
func decayingThreshold(initial float64) acceptCriterion {
	return func(candidate, current float64, it, total int) bool {
		progress := float64(it) / float64(total)
		slack := initial * (1 - progress)
		return candidate <= current*(1+slack)
	}
}
