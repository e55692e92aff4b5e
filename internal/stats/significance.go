package stats

import (
	"math"

	"github.com/priceforge/priceforge/internal/experiment"
)

// CriticalZ maps a confidence level (as a percentage) to its two-tailed
// z critical value. Levels other than 99, 95, and 90 fall back to the 95%
// threshold; that fallback is deliberate, not an error.
func CriticalZ(confidenceLevel float64) float64 {
	switch {
	case confidenceLevel >= 99:
		return 2.576
	case confidenceLevel >= 95:
		return 1.96
	case confidenceLevel >= 90:
		return 1.645
	default:
		return 1.96
	}
}

// IsSignificant runs a pooled two-proportion z-test between the control and
// a challenger. It returns false when either arm is below minSampleSize or
// when the pooled variance is zero; both are defined outcomes, not errors.
func IsSignificant(control, challenger experiment.VariantResult, minSampleSize int, confidenceLevel float64) bool {
	n1 := control.Exposures
	n2 := challenger.Exposures
	if n1 < minSampleSize || n2 < minSampleSize {
		return false
	}

	z, ok := zStatistic(control, challenger)
	if !ok {
		return false
	}
	return z > CriticalZ(confidenceLevel)
}

// Confidence reports P(challenger beats control) as a probability in [0, 1],
// for display alongside the binary significance verdict.
func Confidence(control, challenger experiment.VariantResult) float64 {
	if control.Exposures == 0 || challenger.Exposures == 0 {
		return 0.5
	}

	p1 := control.ConversionRate / 100
	p2 := challenger.ConversionRate / 100
	se := standardError(p1, p2, control.Exposures, challenger.Exposures)
	if se == 0 {
		switch {
		case p2 > p1:
			return 1.0
		case p2 < p1:
			return 0.0
		default:
			return 0.5
		}
	}
	return normalCDF((p2 - p1) / se)
}

func zStatistic(control, challenger experiment.VariantResult) (float64, bool) {
	p1 := control.ConversionRate / 100
	p2 := challenger.ConversionRate / 100

	se := standardError(p1, p2, control.Exposures, challenger.Exposures)
	if se == 0 {
		return 0, false
	}
	return math.Abs(p2-p1) / se, true
}

func standardError(p1, p2 float64, n1, n2 int) float64 {
	fn1 := float64(n1)
	fn2 := float64(n2)
	pooled := (p1*fn1 + p2*fn2) / (fn1 + fn2)
	return math.Sqrt(pooled * (1 - pooled) * (1/fn1 + 1/fn2))
}

// normalCDF approximates the standard normal CDF using the Abramowitz and
// Stegun formula 7.1.26.
func normalCDF(x float64) float64 {
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt(2)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}
