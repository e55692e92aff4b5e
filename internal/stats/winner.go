package stats

import "github.com/priceforge/priceforge/internal/experiment"

// DetermineWinner aggregates the ledger and picks the verdict: the control
// unless a challenger both out-earns it and clears significance. The second
// return is false when no control stats exist to compare against.
//
// The function is idempotent and side-effect-free; the caller decides when
// to persist the verdict and complete the experiment.
func DetermineWinner(e *experiment.Experiment, rows []experiment.Exposure) (string, bool) {
	results := Aggregate(e, rows)
	winner, ok := WinnerFromResults(e, results)
	return winner, ok
}

// WinnerFromResults applies the verdict rule to an existing results
// snapshot. Challengers are considered in variant declaration order so the
// outcome is deterministic.
func WinnerFromResults(e *experiment.Experiment, results map[string]experiment.VariantResult) (string, bool) {
	control, ok := results[experiment.ControlName]
	if !ok {
		return "", false
	}

	best := experiment.ControlName
	bestRevenue := control.TotalRevenue

	for _, v := range e.Variants {
		if v.Name == experiment.ControlName {
			continue
		}
		candidate, ok := results[v.Name]
		if !ok {
			continue
		}
		if candidate.TotalRevenue.GreaterThan(bestRevenue) &&
			IsSignificant(control, candidate, e.MinSampleSize, e.ConfidenceLevel) {
			best = v.Name
			bestRevenue = candidate.TotalRevenue
		}
	}
	return best, true
}
