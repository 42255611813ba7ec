package wages

import "sort"

// DefaultApproveThreshold is the robust z-score cutoff, in integer hundredths,
// below which a candidate wage is auto-approved. 200 corresponds to two robust
// standard deviations from the reference median.
const DefaultApproveThreshold = 200

// robustScale100000 approximates the 0.6745 consistency constant that relates
// MAD to the standard deviation of a normal distribution, scaled by 1e5 so the
// whole computation stays in integer arithmetic.
const robustScale100000 int64 = 67450

// ScoreResult carries the outcome of scoring a candidate wage against its
// reference population.
type ScoreResult struct {
	SanityScore int
	Status      Status
}

// Score computes a signed plausibility score for a candidate normalized hourly
// wage against a reference population of approved wages, and the approval
// decision it implies.
//
// An empty population is the cold-start case: nothing to compare against, so
// the candidate is admitted with the neutral score a median-equal wage would
// receive. Otherwise the candidate's distance from the population median is
// scaled by the median absolute deviation and mapped through approveThreshold
// (hundredths of a robust z unit): wages within the threshold score >= 0 and
// approve, wages beyond it score increasingly negative and park in pending for
// review. The computation is deterministic and independent of population order.
func Score(candidateHourlyCents int64, population []int64, approveThreshold int) ScoreResult {
	if approveThreshold <= 0 {
		approveThreshold = DefaultApproveThreshold
	}
	if len(population) == 0 {
		return ScoreResult{SanityScore: approveThreshold, Status: StatusApproved}
	}

	sorted := make([]int64, len(population))
	copy(sorted, population)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	med := medianOfSorted(sorted)
	mad := medianAbsoluteDeviation(sorted, med)
	if mad == 0 {
		// Degenerate population with zero spread: estimate spread as a tenth
		// of the median so identical wages still approve and a wage several
		// multiples away still flags, without dividing by zero.
		mad = med / 10
		if mad < 1 {
			mad = 1
		}
	}

	deviation := candidateHourlyCents - med
	if deviation < 0 {
		deviation = -deviation
	}

	z100 := (robustScale100000 * deviation) / (1000 * mad)
	sanity := approveThreshold - int(z100)

	status := StatusApproved
	if sanity < 0 {
		status = StatusPending
	}
	return ScoreResult{SanityScore: sanity, Status: status}
}

// medianOfSorted returns the integer median of an ascending slice, truncating
// the midpoint average for even sizes.
func medianOfSorted(sorted []int64) int64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func medianAbsoluteDeviation(sorted []int64, med int64) int64 {
	deviations := make([]int64, len(sorted))
	for i, value := range sorted {
		d := value - med
		if d < 0 {
			d = -d
		}
		deviations[i] = d
	}
	sort.Slice(deviations, func(i, j int) bool { return deviations[i] < deviations[j] })
	return medianOfSorted(deviations)
}
