package validation

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"tdrs/internal/schema"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Condition is a predicate over one record's stored values. Exactly one form
// is set:
//
//	field + in      value is one of In
//	field + not_in  value is none of NotIn
//	field + gt      value parses as an integer greater than GT
//	blank           named field is empty
//	present         named field is not empty
//	all / any / not boolean composition
type Condition struct {
	Field   string      `yaml:"field,omitempty"`
	In      []string    `yaml:"in,omitempty"`
	NotIn   []string    `yaml:"not_in,omitempty"`
	GT      *int        `yaml:"gt,omitempty"`
	Blank   string      `yaml:"blank,omitempty"`
	Present string      `yaml:"present,omitempty"`
	All     []Condition `yaml:"all,omitempty"`
	Any     []Condition `yaml:"any,omitempty"`
	Not     *Condition  `yaml:"not,omitempty"`
}

// Holds reports whether c is true for v. Comparisons use the stored,
// zero-padded strings; only gt parses numbers.
func (c Condition) Holds(v schema.Values) bool {
	switch {
	case c.In != nil:
		return slices.Contains(c.In, v.Get(c.Field))
	case c.NotIn != nil:
		return !slices.Contains(c.NotIn, v.Get(c.Field))
	case c.GT != nil:
		n, err := strconv.Atoi(v.Get(c.Field))
		return err == nil && n > *c.GT
	case c.Blank != "":
		return v.Get(c.Blank) == ""
	case c.Present != "":
		return v.Get(c.Present) != ""
	case c.All != nil:
		for _, sub := range c.All {
			if !sub.Holds(v) {
				return false
			}
		}
		return true
	case c.Any != nil:
		for _, sub := range c.Any {
			if sub.Holds(v) {
				return true
			}
		}
		return false
	case c.Not != nil:
		return !c.Not.Holds(v)
	}
	return false
}

// fields appends the field names c reads, in first-use order.
func (c Condition) fields(out []string) []string {
	add := func(name string) {
		if name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	add(c.Field)
	add(c.Blank)
	add(c.Present)
	for _, sub := range c.All {
		out = sub.fields(out)
	}
	for _, sub := range c.Any {
		out = sub.fields(out)
	}
	if c.Not != nil {
		out = c.Not.fields(out)
	}
	return out
}

func (c Condition) check(s *schema.Schema) error {
	forms := 0
	for _, set := range []bool{
		c.In != nil, c.NotIn != nil, c.GT != nil, c.Blank != "",
		c.Present != "", c.All != nil, c.Any != nil, c.Not != nil,
	} {
		if set {
			forms++
		}
	}
	if forms != 1 {
		return fmt.Errorf("condition must have exactly one form, has %d", forms)
	}
	needsField := c.In != nil || c.NotIn != nil || c.GT != nil
	if needsField != (c.Field != "") {
		return errors.New("field is only used with in, not_in or gt")
	}
	for _, name := range c.fields(nil) {
		if !s.Has(name) {
			return fmt.Errorf("unknown %s field %q", s.Entity(), name)
		}
	}
	for _, sub := range slices.Concat(c.All, c.Any) {
		if err := sub.check(s); err != nil {
			return err
		}
	}
	if c.Not != nil {
		return c.Not.check(s)
	}
	return nil
}

// Rule is one edit check. A record violates the rule when When holds (or is
// absent) and Require does not.
type Rule struct {
	Code     string     `yaml:"code"`
	Item     string     `yaml:"item"`
	Entity   string     `yaml:"entity"`
	Subject  string     `yaml:"subject"`
	Message  string     `yaml:"message"`
	Severity Severity   `yaml:"severity,omitempty"`
	When     *Condition `yaml:"when,omitempty"`
	Require  Condition  `yaml:"require"`
}

// Violated reports whether v breaks the rule.
func (r Rule) Violated(v schema.Values) bool {
	if r.When != nil && !r.When.Holds(v) {
		return false
	}
	return !r.Require.Holds(v)
}

// Fields lists the fields the rule reads, condition first.
func (r Rule) Fields() []string {
	var out []string
	if r.When != nil {
		out = r.When.fields(out)
	}
	return r.Require.fields(out)
}

// Catalog is an immutable, ordered rule table.
type Catalog struct {
	rules []Rule
}

// Rules returns a copy of the catalog in evaluation order.
func (c *Catalog) Rules() []Rule {
	return slices.Clone(c.rules)
}

// Len is the number of rules.
func (c *Catalog) Len() int { return len(c.rules) }

// EmbeddedCatalog decodes the catalog compiled into the binary.
func EmbeddedCatalog() (*Catalog, error) {
	return LoadCatalog(catalogYAML)
}

// LoadCatalog decodes and checks a YAML rule list. Codes must be unique,
// every referenced field must exist in the rule's entity schema and item
// numbers must not decrease.
func LoadCatalog(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var rules []Rule
	if err := dec.Decode(&rules); err != nil {
		return nil, fmt.Errorf("decode rule catalog: %w", err)
	}
	if len(rules) == 0 {
		return nil, errors.New("rule catalog is empty")
	}

	seen := make(map[string]bool, len(rules))
	lastItem := 0
	for i := range rules {
		r := &rules[i]
		if r.Severity == "" {
			r.Severity = SeverityFatal
		}
		if err := r.check(); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Code, err)
		}
		if seen[r.Code] {
			return nil, fmt.Errorf("rule %d: duplicate edit code %s", i, r.Code)
		}
		seen[r.Code] = true

		item, _ := strconv.Atoi(r.Item)
		if item < lastItem {
			return nil, fmt.Errorf("rule %s: item %s is out of order", r.Code, r.Item)
		}
		lastItem = item
	}
	return &Catalog{rules: rules}, nil
}

func (r Rule) check() error {
	if r.Code == "" || r.Code == NoErrorCode {
		return fmt.Errorf("invalid edit code %q", r.Code)
	}
	if _, err := strconv.Atoi(r.Item); err != nil {
		return fmt.Errorf("item %q is not numeric", r.Item)
	}
	if r.Message == "" || r.Subject == "" {
		return errors.New("subject and message are required")
	}
	if r.Severity != SeverityFatal && r.Severity != SeverityWarning {
		return fmt.Errorf("severity %q is not allowed for a rule", r.Severity)
	}
	s, ok := schema.For(r.Entity)
	if !ok {
		return fmt.Errorf("unknown entity %q", r.Entity)
	}
	if r.When != nil {
		if err := r.When.check(s); err != nil {
			return fmt.Errorf("when: %w", err)
		}
	}
	if err := r.Require.check(s); err != nil {
		return fmt.Errorf("require: %w", err)
	}
	return nil
}
