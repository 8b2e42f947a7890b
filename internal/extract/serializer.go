package extract

import (
	"strings"

	"tdrs/internal/schema"
)

// Serialize concatenates v's fields in schema declaration order with no
// separators. Blank values are written as empty strings.
func Serialize(s *schema.Schema, v schema.Values) string {
	var b strings.Builder
	b.Grow(s.RecordWidth())
	for _, f := range s.Fields() {
		b.WriteString(v.Get(f.Name))
	}
	return b.String()
}
