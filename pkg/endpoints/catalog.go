package endpoints

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentstation/sevexport/pkg/errors"
)

// Catalog is a validated, ordered set of Descriptors.
// Every dependency points at a model declared before the dependent one,
// so iterating in order always has the base records available.
type Catalog struct {
	descriptors []Descriptor
	index       map[string]int
}

// New validates the descriptors and returns a Catalog preserving their order.
func New(descriptors ...Descriptor) (*Catalog, error) {
	c := &Catalog{
		descriptors: make([]Descriptor, 0, len(descriptors)),
		index:       make(map[string]int, len(descriptors)),
	}

	for i, d := range descriptors {
		if err := c.add(i, d); err != nil {
			return nil, err
		}
	}

	if err := c.validateOrder(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Catalog) add(position int, d Descriptor) error {
	d.ModelName = strings.TrimSpace(d.ModelName)
	if d.ModelName == "" {
		return errors.NewConfigError("endpoints", fmt.Sprintf("descriptor #%d has no model name", position+1), nil)
	}
	if strings.TrimSpace(d.RelativeURL) == "" {
		return errors.NewConfigError("endpoints", fmt.Sprintf("model %s has no relative URL", d.ModelName), nil)
	}
	if _, exists := c.index[d.ModelName]; exists {
		return errors.NewConfigError("endpoints", fmt.Sprintf("duplicate model name %s", d.ModelName), nil)
	}

	if dep := d.PathReplacement; dep != nil {
		switch {
		case dep.BaseModel == "":
			return errors.NewConfigError("endpoints", fmt.Sprintf("model %s: dependency has no base model", d.ModelName), nil)
		case dep.URLParameterName == "":
			return errors.NewConfigError("endpoints", fmt.Sprintf("model %s: dependency has no URL parameter", d.ModelName), nil)
		case dep.ObjectProperty == "":
			return errors.NewConfigError("endpoints", fmt.Sprintf("model %s: dependency has no source field", d.ModelName), nil)
		case !d.HasPlaceholder():
			return errors.NewConfigError("endpoints",
				fmt.Sprintf("model %s: relative URL %q does not contain %s", d.ModelName, d.RelativeURL, dep.Placeholder()), nil)
		}
	}

	c.index[d.ModelName] = len(c.descriptors)
	c.descriptors = append(c.descriptors, d)
	return nil
}

// validateOrder checks that the dependency graph only points backwards.
// A base model that is unknown, the model itself, or declared later is rejected.
func (c *Catalog) validateOrder() error {
	for i, d := range c.descriptors {
		base, ok := d.DependsOn()
		if !ok {
			continue
		}
		j, known := c.index[base]
		switch {
		case !known:
			return errors.NewConfigError("endpoints",
				fmt.Sprintf("model %s depends on unknown model %s", d.ModelName, base), nil)
		case j == i:
			return errors.NewConfigError("endpoints",
				fmt.Sprintf("model %s depends on itself", d.ModelName), nil)
		case j > i:
			return errors.NewConfigError("endpoints",
				fmt.Sprintf("model %s depends on %s, which must be declared before it", d.ModelName, base), nil)
		}
	}
	return nil
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int {
	return len(c.descriptors)
}

// Descriptors returns a copy of the descriptors in declaration order.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Get returns the descriptor for a model.
func (c *Catalog) Get(model string) (Descriptor, bool) {
	i, ok := c.index[model]
	if !ok {
		return Descriptor{}, false
	}
	return c.descriptors[i], true
}

// Models returns the model names in declaration order.
func (c *Catalog) Models() []string {
	names := make([]string, len(c.descriptors))
	for i, d := range c.descriptors {
		names[i] = d.ModelName
	}
	return names
}

// Dependents returns the models whose URLs are expanded from model.
func (c *Catalog) Dependents(model string) []string {
	var out []string
	for _, d := range c.descriptors {
		if base, ok := d.DependsOn(); ok && base == model {
			out = append(out, d.ModelName)
		}
	}
	return out
}

// Filter returns a catalog restricted to the given models plus everything they depend on.
// Unknown names are reported as a ConfigError.
func (c *Catalog) Filter(models ...string) (*Catalog, error) {
	if len(models) == 0 {
		return c, nil
	}

	keep := make(map[string]bool, len(models))
	for _, m := range models {
		if _, ok := c.index[m]; !ok {
			return nil, errors.NewConfigError("endpoints", fmt.Sprintf("unknown model %s", m), nil)
		}
		for name := m; name != ""; {
			keep[name] = true
			d := c.descriptors[c.index[name]]
			name, _ = d.DependsOn()
		}
	}

	var selected []Descriptor
	for _, d := range c.descriptors {
		if keep[d.ModelName] {
			selected = append(selected, d)
		}
	}
	return New(selected...)
}

// MarshalJSON writes the catalog as the plain descriptor array.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.descriptors)
}

// MarshalYAML writes the catalog as the plain descriptor array.
func (c *Catalog) MarshalYAML() (any, error) {
	return c.descriptors, nil
}
