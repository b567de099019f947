package validation

import "github.com/hydrosense/potability-cli/internal/model"

// RiskTier grades a sample from counts of severely out-of-range and
// moderately non-compliant measurements. The cascade is a strict priority
// order, not a set of independent conditions:
//
//	>= 3 severe                  VERY HIGH
//	>= 1 severe or >= 4 moderate HIGH
//	>= 2 moderate                MODERATE
//	otherwise                    LOW
func (e *Engine) RiskTier(input model.WaterQualityInput) model.RiskLevel {
	severe, moderate := 0, 0
	for key, v := range input.Values() {
		p, ok := e.reg.Lookup(key)
		if !ok {
			continue
		}
		switch {
		case p.Severe(v):
			severe++
		case !p.Optimal(v):
			moderate++
		}
	}

	switch {
	case severe >= 3:
		return model.RiskVeryHigh
	case severe >= 1 || moderate >= 4:
		return model.RiskHigh
	case moderate >= 2:
		return model.RiskModerate
	default:
		return model.RiskLow
	}
}
