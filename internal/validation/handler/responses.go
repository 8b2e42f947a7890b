package handler

import (
	"time"

	"tdrs/internal/validation"
)

// FindingResponse is one ledger row as returned by the report endpoints.
type FindingResponse struct {
	ID          int64     `json:"id"`
	ReportMonth string    `json:"report_month"`
	Version     int       `json:"version"`
	Severity    string    `json:"severity"`
	EditCode    string    `json:"edit_code"`
	ItemNumber  string    `json:"item_number"`
	Description string    `json:"description"`
	EditValues  string    `json:"edit_values"`
	FamilyID    *int64    `json:"family_id,omitempty"`
	AdultID     *int64    `json:"adult_id,omitempty"`
	ChildID     *int64    `json:"child_id,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunResponse is returned by POST /validation-runs.
type RunResponse struct {
	ReportMonth string            `json:"report_month"`
	Version     int               `json:"version"`
	Clean       bool              `json:"clean"`
	Findings    []FindingResponse `json:"findings"`
}

func fromFinding(f validation.Finding) FindingResponse {
	return FindingResponse{
		ID:          f.ID,
		ReportMonth: f.ReportMonth,
		Version:     f.Version,
		Severity:    string(f.Severity),
		EditCode:    f.EditCode,
		ItemNumber:  f.ItemNumber,
		Description: f.Description,
		EditValues:  f.EditValues,
		FamilyID:    f.FamilyID,
		AdultID:     f.AdultID,
		ChildID:     f.ChildID,
		CreatedBy:   f.CreatedBy,
		CreatedAt:   f.CreatedAt,
	}
}

func fromFindings(findings []validation.Finding) []FindingResponse {
	out := make([]FindingResponse, 0, len(findings))
	for _, f := range findings {
		out = append(out, fromFinding(f))
	}
	return out
}

func fromRun(r *validation.RunResult) RunResponse {
	return RunResponse{
		ReportMonth: r.ReportMonth,
		Version:     r.Version,
		Clean:       r.Clean,
		Findings:    fromFindings(r.Findings),
	}
}
