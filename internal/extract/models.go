package extract

import "time"

// GeneratedFile is one stored quarterly extract.
type GeneratedFile struct {
	ID          int64
	QuarterID   int64
	Name        string
	Content     []byte
	Checksum    string
	RecordCount int
	CreatedBy   string
	CreatedAt   time.Time
}

// Record type prefixes of the extract layout.
const (
	PrefixFamily   = "T1"
	PrefixAdult    = "T2"
	PrefixChildren = "T3"
)
