// Package enhance decides the final potability verdict by blending the
// remote classifier's output with local regulatory compliance. The remote
// model is weakly calibrated on borderline inputs, so regulatory compliance
// is treated as the stronger prior.
package enhance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hydrosense/potability-cli/internal/model"
	"github.com/hydrosense/potability-cli/internal/validation"
	"github.com/hydrosense/potability-cli/pkg/potability"
)

// Policy holds the blended-trust constants. The defaults are contract
// values: results assert on them, so deployments changing them change the
// product behavior, not a tuning knob.
type Policy struct {
	// OverrideThreshold is the compliance ratio at or above which the remote
	// verdict is overridden (inclusive boundary).
	OverrideThreshold float64
	// LowRiskThreshold is the ratio at or above which the overridden verdict
	// is graded LOW instead of MODERATE.
	LowRiskThreshold float64
	// Overridden score = ScoreBase + ratio*ScoreSpan, clamped to
	// [ScoreBase, ScoreBase+ScoreSpan]. Confidence likewise.
	ScoreBase      float64
	ScoreSpan      float64
	ConfidenceBase float64
	ConfidenceSpan float64
	// LocalScore and LocalConfidence are the fixed constants of the
	// synthesized verdict for fully compliant input.
	LocalScore      float64
	LocalConfidence float64
}

// DefaultPolicy returns the asserted contract constants.
func DefaultPolicy() Policy {
	return Policy{
		OverrideThreshold: 0.7,
		LowRiskThreshold:  0.9,
		ScoreBase:         0.6,
		ScoreSpan:         0.4,
		ConfidenceBase:    0.8,
		ConfidenceSpan:    0.2,
		LocalScore:        0.95,
		LocalConfidence:   0.95,
	}
}

// Enhancer produces the final PredictionResponse for a validated input.
type Enhancer struct {
	policy Policy
	engine *validation.Engine
	client potability.Client
}

// New creates an Enhancer. The client is injected so tests can substitute a
// double and assert it is never called on the local-verdict path.
func New(policy Policy, engine *validation.Engine, client potability.Client) *Enhancer {
	return &Enhancer{policy: policy, engine: engine, client: client}
}

// Enhance decides the verdict for the input:
//
//  1. Fully compliant input gets a synthesized high-confidence local verdict
//     without any remote call.
//  2. Otherwise the remote service is invoked; its failures are returned
//     unmodified.
//  3. A remote success is overridden when the compliance ratio reaches the
//     policy threshold, and passed through untouched below it.
func (e *Enhancer) Enhance(ctx context.Context, input model.WaterQualityInput) *model.PredictionResponse {
	if e.engine.IsFullyCompliant(input) {
		zap.L().Debug("input fully compliant, skipping remote call")
		return e.localVerdict()
	}

	remote := e.client.Predict(ctx, input)
	if !remote.Success {
		return remote
	}

	ratio := e.engine.ComplianceRatio(input)
	return e.policy.Apply(remote, ratio)
}

// localVerdict synthesizes the fixed POTABLE result for fully compliant
// input.
func (e *Enhancer) localVerdict() *model.PredictionResponse {
	return &model.PredictionResponse{
		Success: true,
		Prediction: &model.PredictionResult{
			PotabilityScore: e.policy.LocalScore,
			IsPotable:       true,
			Confidence:      e.policy.LocalConfidence,
			RiskLevel:       model.RiskLow,
			Status:          model.StatusPotable,
		},
		Recommendation: "All measured parameters meet regulatory-optimal ranges; the water is considered potable.",
		Warnings:       []string{},
		ModelInfo: &model.ModelInfo{
			ModelType:           "regulatory_rules",
			StandardizationUsed: false,
		},
		Timestamp: model.Now(),
		Source:    model.SourceLocal,
	}
}

// Apply blends a successful remote response with the compliance ratio.
// Below the override threshold the response is returned unmodified; at or
// above it the verdict is recomputed while warnings and model metadata are
// preserved.
func (p Policy) Apply(remote *model.PredictionResponse, ratio float64) *model.PredictionResponse {
	if !remote.Success || remote.Prediction == nil || ratio < p.OverrideThreshold {
		return remote
	}

	risk := model.RiskModerate
	if ratio >= p.LowRiskThreshold {
		risk = model.RiskLow
	}

	compliant := int(ratio*float64(len(model.ParameterKeys)) + 0.5)
	blended := *remote
	blended.Prediction = &model.PredictionResult{
		PotabilityScore: clamp(p.ScoreBase+ratio*p.ScoreSpan, p.ScoreBase, p.ScoreBase+p.ScoreSpan),
		IsPotable:       true,
		Confidence:      clamp(p.ConfidenceBase+ratio*p.ConfidenceSpan, p.ConfidenceBase, p.ConfidenceBase+p.ConfidenceSpan),
		RiskLevel:       risk,
		Status:          model.StatusPotable,
	}
	blended.Recommendation = fmt.Sprintf(
		"%d of %d parameters meet regulatory-optimal ranges; the water is considered potable.",
		compliant, len(model.ParameterKeys),
	)
	blended.Source = model.SourceBlended
	return &blended
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
