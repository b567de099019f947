// Package registry holds the static metadata for the nine water-chemistry
// parameters: physical bounds, regulatory-optimal sub-ranges, severe-risk
// thresholds, units, and wire keys.
package registry

import (
	"github.com/hydrosense/potability-cli/internal/model"
)

// Parameter describes one water-chemistry measurement. Bounds are inclusive.
// A value inside [Min, Max] is valid; a valid value outside
// [OptimalMin, OptimalMax] draws a warning; a value outside
// [SevereMin, SevereMax] counts as severe for risk grading.
type Parameter struct {
	Key         string // wire key, e.g. "organic_carbon"
	Label       string // display name, e.g. "Organic Carbon"
	Unit        string
	Min         float64
	Max         float64
	OptimalMin  float64
	OptimalMax  float64
	SevereMin   float64
	SevereMax   float64
	OptimalNote string // human-readable regulatory guidance
}

// InBounds reports whether v lies inside the physical bound (inclusive).
func (p Parameter) InBounds(v float64) bool {
	return v >= p.Min && v <= p.Max
}

// Optimal reports whether v lies inside the regulatory-optimal sub-range.
func (p Parameter) Optimal(v float64) bool {
	return v >= p.OptimalMin && v <= p.OptimalMax
}

// Severe reports whether v lies outside the severe-risk thresholds.
func (p Parameter) Severe(v float64) bool {
	return v < p.SevereMin || v > p.SevereMax
}

// Registry is an indexed, ordered collection of parameters. It is built once
// at startup and never mutated afterwards.
type Registry struct {
	params []Parameter
	byKey  map[string]*Parameter
}

// New creates a Registry with indexed lookups over the given parameters.
func New(params []Parameter) *Registry {
	r := &Registry{
		params: params,
		byKey:  make(map[string]*Parameter, len(params)),
	}
	for i := range r.params {
		r.byKey[r.params[i].Key] = &r.params[i]
	}
	return r
}

// Default returns the registry with WHO/EPA-derived guideline values.
func Default() *Registry {
	return New([]Parameter{
		{
			Key: model.KeyPH, Label: "pH", Unit: "pH",
			Min: 0, Max: 14,
			OptimalMin: 6.5, OptimalMax: 8.5,
			SevereMin: 4, SevereMax: 10,
			OptimalNote: "WHO recommends 6.5-8.5 for drinking water",
		},
		{
			Key: model.KeyHardness, Label: "Hardness", Unit: "mg/L",
			Min: 0, Max: 500,
			OptimalMin: 60, OptimalMax: 180,
			SevereMin: 0, SevereMax: 400,
			OptimalNote: "60-180 mg/L is considered moderately hard",
		},
		{
			Key: model.KeySolids, Label: "Total Dissolved Solids", Unit: "ppm",
			Min: 0, Max: 50000,
			OptimalMin: 50, OptimalMax: 1000,
			SevereMin: 0, SevereMax: 30000,
			OptimalNote: "WHO desirable limit is 1000 ppm",
		},
		{
			Key: model.KeyChloramines, Label: "Chloramines", Unit: "ppm",
			Min: 0, Max: 15,
			OptimalMin: 0.5, OptimalMax: 4,
			SevereMin: 0, SevereMax: 10,
			OptimalNote: "EPA allows up to 4 ppm in drinking water",
		},
		{
			Key: model.KeySulfate, Label: "Sulfate", Unit: "mg/L",
			Min: 0, Max: 500,
			OptimalMin: 3, OptimalMax: 250,
			SevereMin: 0, SevereMax: 400,
			OptimalNote: "EPA secondary standard is 250 mg/L",
		},
		{
			Key: model.KeyConductivity, Label: "Conductivity", Unit: "μS/cm",
			Min: 0, Max: 2000,
			OptimalMin: 50, OptimalMax: 500,
			SevereMin: 0, SevereMax: 1500,
			OptimalNote: "WHO recommends no more than 500 μS/cm",
		},
		{
			Key: model.KeyOrganicCarbon, Label: "Organic Carbon", Unit: "ppm",
			Min: 0, Max: 30,
			OptimalMin: 0, OptimalMax: 2,
			SevereMin: 0, SevereMax: 20,
			OptimalNote: "EPA treatment target is under 2 ppm",
		},
		{
			Key: model.KeyTrihalomethanes, Label: "Trihalomethanes", Unit: "μg/L",
			Min: 0, Max: 200,
			OptimalMin: 0, OptimalMax: 80,
			SevereMin: 0, SevereMax: 150,
			OptimalNote: "EPA limit is 80 μg/L",
		},
		{
			Key: model.KeyTurbidity, Label: "Turbidity", Unit: "NTU",
			Min: 0, Max: 10,
			OptimalMin: 0, OptimalMax: 1,
			SevereMin: 0, SevereMax: 8,
			OptimalNote: "WHO recommends below 1 NTU",
		},
	})
}

// Lookup returns the parameter for the given wire key.
func (r *Registry) Lookup(key string) (*Parameter, bool) {
	p, ok := r.byKey[key]
	return p, ok
}

// All returns the parameters in measurement order. The order drives stepwise
// input flows (three pages of three fields each).
func (r *Registry) All() []Parameter {
	out := make([]Parameter, len(r.params))
	copy(out, r.params)
	return out
}

// Pages groups the ordered parameters into pages of the given size for
// stepwise entry.
func (r *Registry) Pages(size int) [][]Parameter {
	if size <= 0 {
		size = 3
	}
	all := r.All()
	var pages [][]Parameter
	for start := 0; start < len(all); start += size {
		end := start + size
		if end > len(all) {
			end = len(all)
		}
		pages = append(pages, all[start:end])
	}
	return pages
}
