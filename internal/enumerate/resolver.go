package enumerate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/agentstation/sevexport/pkg/endpoints"
	"github.com/agentstation/sevexport/pkg/entities"
	"github.com/agentstation/sevexport/pkg/errors"
)

// ResourceURL joins the API base with a descriptor's relative URL and its
// additional parameters, sorted by name.
func ResourceURL(base string, d endpoints.Descriptor) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteByte('/')
	b.WriteString(strings.TrimLeft(d.RelativeURL, "/"))

	sep := "?"
	if strings.Contains(d.RelativeURL, "?") {
		sep = "&"
	}
	for _, k := range d.ParameterKeys() {
		b.WriteString(sep)
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(d.AdditionalParameters[k]))
		sep = "&"
	}
	return b.String()
}

// Expand returns the concrete URLs to fetch for a descriptor. Without a
// dependency that is a single URL; with one, there is one URL per record of
// the base model, in the base model's order.
func Expand(base string, d endpoints.Descriptor, store *entities.Store) ([]string, error) {
	resource := ResourceURL(base, d)

	dep := d.PathReplacement
	if dep == nil {
		return []string{resource}, nil
	}

	parents, ok := store.Set(dep.BaseModel)
	if !ok {
		return nil, errors.NewMissingDependencyError(d.ModelName, dep.BaseModel, "")
	}

	urls := make([]string, 0, parents.Len())
	for _, parent := range parents.Items() {
		value, ok := parent.Lookup(dep.ObjectProperty)
		if !ok || value == nil {
			return nil, errors.NewMissingDependencyError(d.ModelName, dep.BaseModel,
				fmt.Sprintf("record %s has no field %s", parent.ID(), dep.ObjectProperty))
		}
		replacement := url.PathEscape(entities.Stringify(value))
		urls = append(urls, endpoints.ReplacePlaceholder(resource, dep.Placeholder(), replacement))
	}
	return urls, nil
}
