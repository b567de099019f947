package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Override adjusts bounds or ranges for a single parameter. Nil fields keep
// the built-in value.
type Override struct {
	Key        string   `yaml:"key"`
	Min        *float64 `yaml:"min"`
	Max        *float64 `yaml:"max"`
	OptimalMin *float64 `yaml:"optimal_min"`
	OptimalMax *float64 `yaml:"optimal_max"`
	SevereMin  *float64 `yaml:"severe_min"`
	SevereMax  *float64 `yaml:"severe_max"`
}

type overrideFile struct {
	Parameters []Override `yaml:"parameters"`
}

// LoadOverrides reads a YAML override file. A missing path is not an error;
// it returns an empty list so deployments without a file work unchanged.
func LoadOverrides(path string) ([]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "registry: read overrides %s", path)
	}

	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "registry: parse overrides %s", path)
	}
	return f.Parameters, nil
}

// ApplyOverrides mutates the registry's parameters in place. Unknown keys
// are rejected so typos fail loudly at startup rather than silently keeping
// defaults.
func (r *Registry) ApplyOverrides(overrides []Override) error {
	for _, ov := range overrides {
		p, ok := r.byKey[ov.Key]
		if !ok {
			return eris.Errorf("registry: unknown parameter %q in overrides", ov.Key)
		}
		if ov.Min != nil {
			p.Min = *ov.Min
		}
		if ov.Max != nil {
			p.Max = *ov.Max
		}
		if ov.OptimalMin != nil {
			p.OptimalMin = *ov.OptimalMin
		}
		if ov.OptimalMax != nil {
			p.OptimalMax = *ov.OptimalMax
		}
		if ov.SevereMin != nil {
			p.SevereMin = *ov.SevereMin
		}
		if ov.SevereMax != nil {
			p.SevereMax = *ov.SevereMax
		}
		if p.Min > p.Max {
			return eris.Errorf("registry: override for %q leaves min above max", ov.Key)
		}
	}
	return nil
}
