// Package schema holds the static field layouts for family, adult and child
// records. Field order is declaration order, which is also the positional
// layout of the quarterly extract.
package schema

import (
	"errors"
	"fmt"
	"slices"
)

// Kind describes how a field value is checked and canonicalized.
type Kind int

const (
	// Numeric values are digit strings zero-padded to the field width.
	Numeric Kind = iota
	// Date values are numeric YYYYMMDD strings that must name a real day.
	// 00000000 and 99999999 are accepted as "missing" and "unknown".
	Date
)

// Field is one fixed-width column of a record.
type Field struct {
	Name  string
	Width int
	Kind  Kind
	// Optional fields may be stored blank.
	Optional bool
	// Default replaces a blank value before normalization.
	Default string
}

// Values maps field names to their stored string form.
type Values map[string]string

// Get returns the stored value for name, or "" when unset.
func (v Values) Get(name string) string {
	return v[name]
}

// Clone returns a shallow copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Schema is an ordered, immutable list of fields for one entity type.
type Schema struct {
	entity string
	fields []Field
	index  map[string]int
	derive func(Values) error
}

func newSchema(entity string, fields []Field, derive func(Values) error) *Schema {
	s := &Schema{
		entity: entity,
		fields: fields,
		index:  make(map[string]int, len(fields)),
		derive: derive,
	}
	for i, f := range fields {
		if f.Width <= 0 {
			panic(fmt.Sprintf("schema %s: field %s has no width", entity, f.Name))
		}
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("schema %s: duplicate field %s", entity, f.Name))
		}
		if f.Kind == Date && f.Width != 8 {
			panic(fmt.Sprintf("schema %s: date field %s must be 8 wide", entity, f.Name))
		}
		s.index[f.Name] = i
	}
	return s
}

// Entity names the record type this schema describes.
func (s *Schema) Entity() string {
	return s.entity
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	return slices.Clone(s.fields)
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether name is a declared field.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// RecordWidth is the length of a serialized record with no blank fields.
func (s *Schema) RecordWidth() int {
	n := 0
	for _, f := range s.fields {
		n += f.Width
	}
	return n
}

// Normalize canonicalizes every declared field of in and returns a new Values.
// Unknown fields are rejected. All field failures are reported together,
// each as a *FormatError, joined with errors.Join.
func (s *Schema) Normalize(in Values) (Values, error) {
	var unknown []string
	for name := range in {
		if !s.Has(name) {
			unknown = append(unknown, name)
		}
	}
	slices.Sort(unknown)

	var errs []error
	for _, name := range unknown {
		errs = append(errs, &FormatError{Entity: s.entity, Field: name, Value: in[name], Reason: "unknown field"})
	}

	out := make(Values, len(s.fields))
	for _, f := range s.fields {
		v, err := f.Normalize(in[f.Name])
		if err != nil {
			var fe *FormatError
			if errors.As(err, &fe) {
				fe.Entity = s.entity
			}
			errs = append(errs, err)
			continue
		}
		out[f.Name] = v
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if s.derive != nil {
		if err := s.derive(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
