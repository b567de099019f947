// Package validation converts raw text input into validated water-chemistry
// values, attaches advisory warnings for values outside regulatory-optimal
// ranges, and grades the overall risk of a sample.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hydrosense/potability-cli/internal/model"
	"github.com/hydrosense/potability-cli/internal/registry"
)

// numberPattern accepts an optional leading minus, digits, and at most one
// decimal point. Scientific notation is deliberately rejected.
var numberPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// Result is the outcome of validating a single field. Either Err is empty
// and Value holds the parsed measurement (possibly with a non-fatal
// Warning), or Err carries the rejection message.
type Result struct {
	Value   float64
	Warning string
	Err     string
	Kind    model.ErrorKind
}

// Valid reports whether the field passed validation. Warnings never make a
// result invalid.
func (r Result) Valid() bool {
	return r.Err == ""
}

// Engine validates raw input against the parameter registry.
type Engine struct {
	reg *registry.Registry
}

// New creates a validation engine over the given registry.
func New(reg *registry.Registry) *Engine {
	return &Engine{reg: reg}
}

// ValidateField validates the raw text for one parameter. It never panics;
// every outcome is a structured Result.
func (e *Engine) ValidateField(key, raw string) Result {
	p, ok := e.reg.Lookup(key)
	if !ok {
		return Result{Err: fmt.Sprintf("unknown parameter %q", key), Kind: model.ErrUnknown}
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{Err: "required", Kind: model.ErrRequiredFieldMissing}
	}
	if !numberPattern.MatchString(trimmed) {
		return Result{Err: "not a number", Kind: model.ErrNotANumber}
	}

	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return Result{Err: "not a number", Kind: model.ErrNotANumber}
	}

	if !p.InBounds(v) {
		return Result{
			Err:  fmt.Sprintf("out of range: %g-%g %s", p.Min, p.Max, p.Unit),
			Kind: model.ErrOutOfRange,
		}
	}

	res := Result{Value: v}
	if !p.Optimal(v) {
		res.Warning = fmt.Sprintf("%s %g %s is outside the recommended range %g-%g %s",
			p.Label, v, p.Unit, p.OptimalMin, p.OptimalMax, p.Unit)
	}
	return res
}

// ValidateAll validates every entry of the raw input independently, with no
// short-circuiting, so callers can surface all errors at once.
func (e *Engine) ValidateAll(raw map[string]string) map[string]Result {
	out := make(map[string]Result, len(raw))
	for key, text := range raw {
		out[key] = e.ValidateField(key, text)
	}
	return out
}

// IsFullyCompliant reports whether every one of the nine measurements falls
// inside its regulatory-optimal sub-range. This is stricter than validity.
func (e *Engine) IsFullyCompliant(input model.WaterQualityInput) bool {
	for key, v := range input.Values() {
		p, ok := e.reg.Lookup(key)
		if !ok || !p.Optimal(v) {
			return false
		}
	}
	return true
}

// ComplianceRatio returns the fraction of the nine measurements that are
// regulatory-optimal-compliant.
func (e *Engine) ComplianceRatio(input model.WaterQualityInput) float64 {
	values := input.Values()
	if len(values) == 0 {
		return 0
	}
	compliant := 0
	for key, v := range values {
		if p, ok := e.reg.Lookup(key); ok && p.Optimal(v) {
			compliant++
		}
	}
	return float64(compliant) / float64(len(values))
}
