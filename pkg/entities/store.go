package entities

import (
	"fmt"

	"github.com/agentstation/sevexport/pkg/errors"
)

// Store maps model names to their fetched Sets for the duration of one run.
type Store struct {
	order []string
	sets  map[string]*Set
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{sets: make(map[string]*Set)}
}

// Put records a finished model. A model is fetched at most once per run.
func (st *Store) Put(set *Set) error {
	if set == nil {
		return errors.NewValidationError("set", nil, "set cannot be nil")
	}
	if _, exists := st.sets[set.Model()]; exists {
		return errors.NewValidationError("model", set.Model(), fmt.Sprintf("model %s was already fetched", set.Model()))
	}
	st.order = append(st.order, set.Model())
	st.sets[set.Model()] = set
	return nil
}

// Set returns the records of a model.
func (st *Store) Set(model string) (*Set, bool) {
	set, ok := st.sets[model]
	return set, ok
}

// SetOrEmpty returns the records of a model, or an empty Set when it was not fetched.
func (st *Store) SetOrEmpty(model string) *Set {
	if set, ok := st.sets[model]; ok {
		return set
	}
	return NewSet(model)
}

// Has reports whether model has been fetched.
func (st *Store) Has(model string) bool {
	_, ok := st.sets[model]
	return ok
}

// Models returns the fetched model names in fetch order.
func (st *Store) Models() []string {
	out := make([]string, len(st.order))
	copy(out, st.order)
	return out
}

// Len returns the number of models.
func (st *Store) Len() int {
	return len(st.order)
}
