// Package endpoints describes which sevDesk models an export fetches and how
// their URLs are built. A Catalog is an ordered list of Descriptors; order
// matters because a Descriptor may expand its URL from the records of a
// model declared earlier.
package endpoints

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Dependency ties a Descriptor's URL placeholder to a field of an earlier model.
// For every record of BaseModel one URL is produced, with {URLParameterName}
// replaced by the record's ObjectProperty value.
type Dependency struct {
	BaseModel        string `json:"BaseModel" yaml:"base_model"`
	URLParameterName string `json:"UrlParameterName" yaml:"url_parameter"`
	ObjectProperty   string `json:"ObjectProperty" yaml:"source_field"`
}

// Placeholder returns the literal token replaced in the relative URL.
func (d Dependency) Placeholder() string {
	return "{" + d.URLParameterName + "}"
}

// Descriptor declares one model to export.
type Descriptor struct {
	ModelName            string            `json:"ModelName" yaml:"model_name"`
	RelativeURL          string            `json:"RelativeUrl" yaml:"relative_url"`
	AdditionalParameters map[string]string `json:"AdditionalParameters,omitempty" yaml:"params,omitempty"`
	PathReplacement      *Dependency       `json:"PathReplacement,omitempty" yaml:"depends_on,omitempty"`
}

// DependsOn reports the model this descriptor needs, if any.
func (d Descriptor) DependsOn() (string, bool) {
	if d.PathReplacement == nil {
		return "", false
	}
	return d.PathReplacement.BaseModel, true
}

// ParameterKeys returns the additional parameter names in sorted order.
func (d Descriptor) ParameterKeys() []string {
	keys := make([]string, 0, len(d.AdditionalParameters))
	for k := range d.AdditionalParameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParametersString renders the additional parameters as k=v pairs for display.
func (d Descriptor) ParametersString() string {
	pairs := make([]string, 0, len(d.AdditionalParameters))
	for _, k := range d.ParameterKeys() {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, d.AdditionalParameters[k]))
	}
	return strings.Join(pairs, ", ")
}

// HasPlaceholder reports whether the relative URL contains the dependency
// placeholder, ignoring case.
func (d Descriptor) HasPlaceholder() bool {
	if d.PathReplacement == nil {
		return false
	}
	return placeholderPattern(d.PathReplacement.Placeholder()).MatchString(d.RelativeURL)
}

// ReplacePlaceholder substitutes every occurrence of placeholder in s,
// matching it case-insensitively.
func ReplacePlaceholder(s, placeholder, value string) string {
	return placeholderPattern(placeholder).ReplaceAllLiteralString(s, value)
}

func placeholderPattern(placeholder string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(placeholder))
}
