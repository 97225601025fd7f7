// Package entities holds the records fetched during an export run.
//
// Records are opaque: the raw JSON returned by the API is kept verbatim for
// the per-model dump, while a decoded view answers the handful of field
// lookups that correlation needs. Every record must carry an id.
package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/agentstation/sevexport/pkg/errors"
)

// IDField is the mandatory identifier of every record.
const IDField = "id"

// Entity is one immutable record of a model.
type Entity struct {
	id     string
	raw    json.RawMessage
	fields map[string]any
}

// Decode parses one JSON object. Numbers are kept as json.Number so that
// ids and amounts survive without float rounding.
func Decode(raw []byte) (Entity, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return Entity{}, errors.WrapParse("json", "", err)
	}
	if fields == nil {
		return Entity{}, errors.NewParseError("json", "", "record is not an object", nil)
	}

	id := stringify(fields[IDField])
	if id == "" {
		return Entity{}, errors.NewParseError("json", "", "record has no id", nil)
	}

	return Entity{
		id:     id,
		raw:    append(json.RawMessage(nil), raw...),
		fields: fields,
	}, nil
}

// FromMap builds an Entity from decoded fields.
func FromMap(fields map[string]any) (Entity, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return Entity{}, errors.WrapParse("json", "", err)
	}
	return Decode(raw)
}

// ID returns the record id, normalized to a string.
func (e Entity) ID() string {
	return e.id
}

// Raw returns the record exactly as the API delivered it.
func (e Entity) Raw() json.RawMessage {
	return e.raw
}

// MarshalJSON writes the raw record.
func (e Entity) MarshalJSON() ([]byte, error) {
	if e.raw == nil {
		return []byte("null"), nil
	}
	return e.raw, nil
}

// Value walks a path of nested objects. The second result is false when any
// segment is missing; a present JSON null yields (nil, true).
func (e Entity) Value(path ...string) (any, bool) {
	var cur any = e.fields
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Lookup returns a top-level field, trying the exact name first and then a
// case-insensitive match.
func (e Entity) Lookup(field string) (any, bool) {
	if v, ok := e.fields[field]; ok {
		return v, true
	}
	for k, v := range e.fields {
		if strings.EqualFold(k, field) {
			return v, true
		}
	}
	return nil, false
}

// IsNull reports whether the path is missing or JSON null.
func (e Entity) IsNull(path ...string) bool {
	v, ok := e.Value(path...)
	return !ok || v == nil
}

// String returns the scalar at path as text, or "" when it is missing or null.
func (e Entity) String(path ...string) string {
	v, _ := e.Value(path...)
	return stringify(v)
}

// Stringify renders a scalar field value as text.
func Stringify(v any) string {
	return stringify(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
