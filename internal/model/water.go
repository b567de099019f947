package model

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Wire keys for the nine water-chemistry parameters. These are the JSON
// field names used both for the prediction request body and for the
// persisted last-input document.
const (
	KeyPH              = "ph"
	KeyHardness        = "hardness"
	KeySolids          = "solids"
	KeyChloramines     = "chloramines"
	KeySulfate         = "sulfate"
	KeyConductivity    = "conductivity"
	KeyOrganicCarbon   = "organic_carbon"
	KeyTrihalomethanes = "trihalomethanes"
	KeyTurbidity       = "turbidity"
)

// ParameterKeys lists the nine wire keys in measurement order.
var ParameterKeys = []string{
	KeyPH,
	KeyHardness,
	KeySolids,
	KeyChloramines,
	KeySulfate,
	KeyConductivity,
	KeyOrganicCarbon,
	KeyTrihalomethanes,
	KeyTurbidity,
}

// WaterQualityInput is a validated set of the nine water-chemistry
// measurements. It is constructed only after every field has passed its
// registry range check, and is immutable once built.
type WaterQualityInput struct {
	PH              float64 `json:"ph"`
	Hardness        float64 `json:"hardness"`
	Solids          float64 `json:"solids"`
	Chloramines     float64 `json:"chloramines"`
	Sulfate         float64 `json:"sulfate"`
	Conductivity    float64 `json:"conductivity"`
	OrganicCarbon   float64 `json:"organic_carbon"`
	Trihalomethanes float64 `json:"trihalomethanes"`
	Turbidity       float64 `json:"turbidity"`
}

// Values returns the input as a wire-key → value map.
func (w WaterQualityInput) Values() map[string]float64 {
	return map[string]float64{
		KeyPH:              w.PH,
		KeyHardness:        w.Hardness,
		KeySolids:          w.Solids,
		KeyChloramines:     w.Chloramines,
		KeySulfate:         w.Sulfate,
		KeyConductivity:    w.Conductivity,
		KeyOrganicCarbon:   w.OrganicCarbon,
		KeyTrihalomethanes: w.Trihalomethanes,
		KeyTurbidity:       w.Turbidity,
	}
}

// InputFromValues builds a WaterQualityInput from a wire-key → value map.
// All nine keys must be present; unknown keys are rejected.
func InputFromValues(values map[string]float64) (WaterQualityInput, error) {
	var w WaterQualityInput

	fields := map[string]*float64{
		KeyPH:              &w.PH,
		KeyHardness:        &w.Hardness,
		KeySolids:          &w.Solids,
		KeyChloramines:     &w.Chloramines,
		KeySulfate:         &w.Sulfate,
		KeyConductivity:    &w.Conductivity,
		KeyOrganicCarbon:   &w.OrganicCarbon,
		KeyTrihalomethanes: &w.Trihalomethanes,
		KeyTurbidity:       &w.Turbidity,
	}

	var unknown []string
	for key, v := range values {
		dst, ok := fields[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		*dst = v
		delete(fields, key)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return WaterQualityInput{}, eris.Errorf("model: unknown parameter %q", unknown[0])
	}
	if len(fields) > 0 {
		missing := make([]string, 0, len(fields))
		for key := range fields {
			missing = append(missing, key)
		}
		sort.Strings(missing)
		return WaterQualityInput{}, eris.Errorf("model: missing parameter %q", missing[0])
	}

	return w, nil
}
