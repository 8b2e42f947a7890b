package handler

import (
	"strings"

	dErrors "tdrs/pkg/domain-errors"
)

// GenerateRequest is the body of POST /quarters/{quarterID}/extracts.
type GenerateRequest struct {
	Name string `json:"name"`
}

func (r *GenerateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if len(r.Name) > 255 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 255 characters")
	}
	return nil
}
