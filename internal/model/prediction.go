package model

import "time"

// RiskLevel grades how hazardous a sample's parameter profile is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY HIGH"
)

// Status labels for a prediction verdict.
const (
	StatusPotable    = "POTABLE"
	StatusNotPotable = "NOT POTABLE"
)

// PredictionResult is a fully populated potability verdict, produced either
// by the remote service or synthesized locally.
type PredictionResult struct {
	PotabilityScore float64   `json:"potability_score"`
	IsPotable       bool      `json:"is_potable"`
	Confidence      float64   `json:"confidence"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Status          string    `json:"status"`
}

// ModelInfo describes whichever model produced a PredictionResult. It is
// passed through unmodified from its source.
type ModelInfo struct {
	ModelType           string `json:"model_type"`
	StandardizationUsed bool   `json:"standardization_used"`
	ScalerAvailable     *bool  `json:"scaler_available,omitempty"`
}

// PredictionResponse is the single output type of a prediction attempt.
// Exactly one of the success payload (Prediction, Recommendation, Warnings,
// ModelInfo) and the error payload (Error, Details) is populated.
type PredictionResponse struct {
	Success        bool              `json:"success"`
	Prediction     *PredictionResult `json:"prediction,omitempty"`
	Recommendation string            `json:"recommendation,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	ModelInfo      *ModelInfo        `json:"model_info,omitempty"`
	Error          string            `json:"error,omitempty"`
	Details        []string          `json:"details,omitempty"`
	Timestamp      string            `json:"timestamp"`

	// Kind classifies failures for callers; it is not part of the wire shape.
	Kind ErrorKind `json:"-"`
	// Source records which path produced the verdict (local, remote, blended);
	// it is not part of the wire shape.
	Source string `json:"-"`
}

// Verdict sources.
const (
	SourceLocal   = "local"
	SourceRemote  = "remote"
	SourceBlended = "blended"
)

// Now returns the response timestamp format used across the system.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NewFailure builds a failure PredictionResponse.
func NewFailure(kind ErrorKind, msg string, details ...string) *PredictionResponse {
	return &PredictionResponse{
		Success:   false,
		Error:     msg,
		Details:   details,
		Timestamp: Now(),
		Kind:      kind,
	}
}
