package extract

import (
	"bytes"
	"fmt"

	"tdrs/internal/casefile"
	"tdrs/internal/schema"
)

// FamilyRecords is one family with its members in insertion order.
type FamilyRecords struct {
	Family   casefile.Family
	Adults   []casefile.Adult
	Children []casefile.Child
}

// MonthRecords is one reporting month of a quarter.
type MonthRecords struct {
	Month    casefile.Month
	Families []FamilyRecords
}

// Assembled is the rendered extract body.
type Assembled struct {
	Content     []byte
	RecordCount int
}

// Assemble renders the extract for a quarter:
//
//	header
//	T1 month family            per family
//	T2 month case adult        per adult
//	T3 month case child child  per pair of children
//	trailer
//
// An odd child count leaves the last T3 line with a single child.
func Assemble(quarter casefile.Quarter, months []MonthRecords) Assembled {
	var (
		buf   bytes.Buffer
		count int
	)
	fmt.Fprintf(&buf, "Header: Processing records for Quarter %s\n", quarter.Label)
	for _, m := range months {
		label := m.Month.Label
		for _, fr := range m.Families {
			caseNumber := fr.Family.CaseNumber()

			buf.WriteString(PrefixFamily + label + Serialize(schema.Family, fr.Family.Fields) + "\n")
			count++

			for _, a := range fr.Adults {
				buf.WriteString(PrefixAdult + label + caseNumber + Serialize(schema.Adult, a.Fields) + "\n")
				count++
			}

			for i := 0; i < len(fr.Children); i += 2 {
				line := PrefixChildren + label + caseNumber + Serialize(schema.Child, fr.Children[i].Fields)
				if i+1 < len(fr.Children) {
					line += Serialize(schema.Child, fr.Children[i+1].Fields)
				}
				buf.WriteString(line + "\n")
				count++
			}
		}
	}
	fmt.Fprintf(&buf, "Trailer: Total Records Processed %d\n", count)
	return Assembled{Content: buf.Bytes(), RecordCount: count}
}
