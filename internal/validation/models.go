package validation

import "time"

// Severity classifies a finding.
type Severity string

const (
	SeverityFatal   Severity = "FATAL"
	SeverityWarning Severity = "WARNING"
	SeverityNoError Severity = "NOERROR"
)

// rank orders severities for the default report sort.
func (s Severity) rank() int {
	switch s {
	case SeverityFatal:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Closeout sentinel written when a run produces no findings.
const (
	NoErrorCode        = "T-000"
	NoErrorItem        = "000"
	NoErrorDescription = "NO ERRORS"
)

// Finding is one row of the validation ledger. Findings are never updated
// after they are appended; entity references may later be nulled when the
// referenced record is deleted.
type Finding struct {
	ID          int64
	ReportMonth string
	Version     int
	Severity    Severity
	EditCode    string
	ItemNumber  string
	Description string
	EditValues  string
	FamilyID    *int64
	AdultID     *int64
	ChildID     *int64
	CreatedBy   string
	CreatedAt   time.Time
}

// RunResult summarizes one validation run.
type RunResult struct {
	ReportMonth string
	Version     int
	Findings    []Finding
	Clean       bool
}

// MonthStats describes the latest run for a report month.
type MonthStats struct {
	ReportMonth string    `json:"report_month"`
	Version     int       `json:"version"`
	Fatal       int       `json:"fatal"`
	NoError     int       `json:"noerror"`
	LastRunAt   time.Time `json:"last_run_at"`
}

// Sort names accepted by ListFindings.
const (
	SortDefault    = ""
	SortEditCode   = "edit_code"
	SortItemNumber = "item_number"
)
