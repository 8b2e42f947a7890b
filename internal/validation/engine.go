package validation

import (
	"strings"

	"tdrs/internal/casefile"
	"tdrs/internal/schema"
)

// Evaluate applies every catalog rule to the snapshot. Findings come out in
// catalog order, and within a rule in the snapshot's record order. It does no
// I/O; version and audit fields are left for the caller.
func Evaluate(c *Catalog, snap casefile.Snapshot) []Finding {
	var out []Finding
	for _, r := range c.rules {
		switch r.Entity {
		case schema.Family.Entity():
			for _, f := range snap.Families {
				if r.Violated(f.Fields) {
					out = append(out, newFinding(r, f.Fields, ptr(f.ID), nil, nil))
				}
			}
		case schema.Adult.Entity():
			for _, a := range snap.Adults {
				if r.Violated(a.Fields) {
					out = append(out, newFinding(r, a.Fields, ptr(a.FamilyID), ptr(a.ID), nil))
				}
			}
		case schema.Child.Entity():
			for _, ch := range snap.Children {
				if r.Violated(ch.Fields) {
					out = append(out, newFinding(r, ch.Fields, ptr(ch.FamilyID), nil, ptr(ch.ID)))
				}
			}
		}
	}
	return out
}

func newFinding(r Rule, v schema.Values, familyID, adultID, childID *int64) Finding {
	return Finding{
		Severity:    r.Severity,
		EditCode:    r.Code,
		ItemNumber:  r.Item,
		Description: r.Subject,
		EditValues:  editValues(r, v),
		FamilyID:    familyID,
		AdultID:     adultID,
		ChildID:     childID,
	}
}

// editValues renders the rule message followed by the values it inspected,
// e.g. "ITEM 9 MUST = 1-2 [disposition=9]".
func editValues(r Rule, v schema.Values) string {
	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(" [")
	for i, name := range r.Fields() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(v.Get(name))
	}
	b.WriteByte(']')
	return b.String()
}

func ptr(id int64) *int64 { return &id }
