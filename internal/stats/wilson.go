package stats

import "math"

// WilsonInterval calculates the Wilson score confidence interval for a
// binomial proportion at the given confidence level (percentage). It's more
// accurate for small samples than the normal approximation.
func WilsonInterval(successes, trials int, confidenceLevel float64) (lower, upper float64) {
	if trials == 0 {
		return 0, 0
	}

	z := CriticalZ(confidenceLevel)
	p := float64(successes) / float64(trials)
	n := float64(trials)

	denominator := 1 + z*z/n
	center := (p + z*z/(2*n)) / denominator
	spread := (z / denominator) * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))

	lower = center - spread
	upper = center + spread

	// Clamp to [0, 1]
	if lower < 0 {
		lower = 0
	}
	if upper > 1 {
		upper = 1
	}

	return lower, upper
}
