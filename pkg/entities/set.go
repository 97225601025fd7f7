package entities

import (
	"encoding/json"

	"github.com/agentstation/sevexport/pkg/constants"
)

// Set is the ordered collection of a model's records, indexed by id.
// Adding an id that is already present is a no-op.
type Set struct {
	model string
	items []Entity
	index map[string]int
}

// NewSet creates an empty Set for model.
func NewSet(model string) *Set {
	return &Set{
		model: model,
		index: make(map[string]int),
	}
}

// Model returns the model name.
func (s *Set) Model() string {
	return s.model
}

// Add appends e unless its id is already present and reports whether it was added.
func (s *Set) Add(e Entity) bool {
	if _, exists := s.index[e.ID()]; exists {
		return false
	}
	s.index[e.ID()] = len(s.items)
	s.items = append(s.items, e)
	return true
}

// AddAll adds every entity and returns how many were new.
func (s *Set) AddAll(es []Entity) int {
	added := 0
	for _, e := range es {
		if s.Add(e) {
			added++
		}
	}
	return added
}

// Contains reports whether id is present.
func (s *Set) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Get returns the record with the given id.
func (s *Set) Get(id string) (Entity, bool) {
	i, ok := s.index[id]
	if !ok {
		return Entity{}, false
	}
	return s.items[i], true
}

// Len returns the number of records.
func (s *Set) Len() int {
	return len(s.items)
}

// Items returns the records in insertion order.
func (s *Set) Items() []Entity {
	out := make([]Entity, len(s.items))
	copy(out, s.items)
	return out
}

// IndexBy maps the value at path to the first record carrying it.
// Records where the path is missing or null are left out.
func (s *Set) IndexBy(path ...string) map[string]Entity {
	idx := make(map[string]Entity, len(s.items))
	for _, e := range s.items {
		key := e.String(path...)
		if key == "" {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = e
		}
	}
	return idx
}

// MarshalJSON writes the model file layout: {"objects": [...]}.
func (s *Set) MarshalJSON() ([]byte, error) {
	items := s.items
	if items == nil {
		items = []Entity{}
	}
	return json.Marshal(map[string][]Entity{constants.ObjectsKey: items})
}
