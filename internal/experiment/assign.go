package experiment

import "hash/fnv"

// Visitor bucketing is pinned to FNV-1a 64-bit. Swapping the hash would
// silently reassign every visitor to a different variant, so any change
// here is a breaking one.

// Assignment is the outcome of Assign. InExperiment is false for visitors
// outside the sampled traffic; such visitors get no variant and callers
// must not record an exposure for them.
type Assignment struct {
	InExperiment bool
	Variant      Variant
}

// Assign deterministically maps a visitor to a variant. The same visitor
// always receives the same variant for the same experiment, across
// processes and restarts.
//
// The traffic gate and the variant bucket use independently salted hashes
// so that sampling a fraction of traffic does not skew the variant split.
// A bucket past the cumulative weight range falls back to the first
// variant; Validate warns about the weight configurations that cause it.
func Assign(visitorID string, e *Experiment) Assignment {
	if !inTraffic(visitorID, e) {
		return Assignment{}
	}

	b := float64(bucket(visitorID + e.ID.String()))
	cumulative := 0.0
	for _, v := range e.Variants {
		cumulative += v.Weight
		if b < cumulative {
			return Assignment{InExperiment: true, Variant: v}
		}
	}
	return Assignment{InExperiment: true, Variant: e.Variants[0]}
}

func inTraffic(visitorID string, e *Experiment) bool {
	if e.TrafficPercentage >= 100 {
		return true
	}
	return float64(bucket(visitorID+e.ID.String()+":traffic")) < e.TrafficPercentage
}

// bucket reduces the pinned hash to [0, 100).
func bucket(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64() % 100
}
