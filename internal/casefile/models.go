package casefile

import (
	"time"

	"tdrs/internal/schema"
)

// Quarter groups three reporting months, labelled like "2024Q1".
type Quarter struct {
	ID        int64
	Label     string
	StartDate time.Time
	EndDate   time.Time
}

// Month is one reporting period, labelled YYYYMM.
type Month struct {
	ID        int64
	QuarterID int64
	Label     string
	StartDate time.Time
	EndDate   time.Time
}

// Audit records who created and last updated a record.
type Audit struct {
	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

func newAudit(user string, now time.Time) Audit {
	return Audit{CreatedBy: user, CreatedAt: now, UpdatedBy: user, UpdatedAt: now}
}

// Family is a Section 1 family record. Fields hold the normalized values
// keyed by schema.Family field names.
type Family struct {
	ID      int64
	MonthID int64
	Fields  schema.Values
	Audit
}

func (f Family) CaseNumber() string { return f.Fields.Get("case_number") }

// Adult is a Section 1 adult record belonging to one Family.
type Adult struct {
	ID       int64
	FamilyID int64
	Fields   schema.Values
	Audit
}

func (a Adult) SSN() string { return a.Fields.Get("ssn") }

// Child is a Section 1 child record belonging to one Family.
type Child struct {
	ID       int64
	FamilyID int64
	Fields   schema.Values
	Audit
}

func (c Child) SSN() string { return c.Fields.Get("ssn") }

// Snapshot is every record of one reporting month, each slice in insertion
// order. Adults and children are only those whose family is in the month.
type Snapshot struct {
	Month    Month
	Families []Family
	Adults   []Adult
	Children []Child
}

// FamilyByID indexes the snapshot's families.
func (s Snapshot) FamilyByID() map[int64]Family {
	out := make(map[int64]Family, len(s.Families))
	for _, f := range s.Families {
		out[f.ID] = f
	}
	return out
}
