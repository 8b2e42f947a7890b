package handler

import (
	"regexp"
	"strings"

	dErrors "tdrs/pkg/domain-errors"
)

var reportMonthPattern = regexp.MustCompile(`^\d{4}(0[1-9]|1[0-2])$`)

// RunRequest is the body of POST /validation-runs.
type RunRequest struct {
	ReportMonth string `json:"report_month"`
}

// Validate implements httputil.Validatable.
func (r *RunRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ReportMonth = strings.TrimSpace(r.ReportMonth)
	if r.ReportMonth == "" {
		return dErrors.New(dErrors.CodeValidation, "report_month is required")
	}
	if !reportMonthPattern.MatchString(r.ReportMonth) {
		return dErrors.New(dErrors.CodeValidation, "report_month must be YYYYMM")
	}
	return nil
}
