package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	dateMissing = "00000000"
	dateUnknown = "99999999"
)

// FormatError reports a value that breaks its field's fixed-width invariant.
type FormatError struct {
	Entity string
	Field  string
	Width  int
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Width > 0 {
		return fmt.Sprintf("%s.%s: %s (width %d, got %q)", e.Entity, e.Field, e.Reason, e.Width, e.Value)
	}
	return fmt.Sprintf("%s.%s: %s (got %q)", e.Entity, e.Field, e.Reason, e.Value)
}

// Normalize zero-pads value to width when it is a non-negative integer that
// fits. Anything else fails with a *FormatError.
func Normalize(field, value string, width int) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" || !isDigits(v) {
		return "", &FormatError{Field: field, Width: width, Value: value, Reason: "not a non-negative integer"}
	}
	for len(v) > width && v[0] == '0' {
		v = v[1:]
	}
	if len(v) > width {
		return "", &FormatError{Field: field, Width: width, Value: value, Reason: "exceeds width"}
	}
	return strings.Repeat("0", width-len(v)) + v, nil
}

// Normalize applies the field's kind, default and optionality to value.
func (f Field) Normalize(value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		v = f.Default
	}
	if v == "" {
		if f.Optional {
			return "", nil
		}
		return "", &FormatError{Field: f.Name, Width: f.Width, Value: value, Reason: "value required"}
	}

	out, err := Normalize(f.Name, v, f.Width)
	if err != nil {
		return "", err
	}
	if f.Kind == Date {
		if err := checkDate(out); err != nil {
			return "", &FormatError{Field: f.Name, Width: f.Width, Value: value, Reason: err.Error()}
		}
	}
	return out, nil
}

func checkDate(v string) error {
	if v == dateMissing || v == dateUnknown {
		return nil
	}
	if _, err := time.Parse("20060102", v); err != nil {
		return errors.New("not a valid YYYYMMDD date")
	}
	return nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FieldErrors extracts every *FormatError joined into err.
func FieldErrors(err error) []*FormatError {
	if err == nil {
		return nil
	}
	var out []*FormatError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, FieldErrors(e)...)
		}
		return out
	}
	if fe, ok := err.(*FormatError); ok {
		return append(out, fe)
	}
	return FieldErrors(errors.Unwrap(err))
}

// Describe renders every field failure in err on one line, for messages
// stored alongside rejected rows.
func Describe(err error) string {
	fields := FieldErrors(err)
	if len(fields) == 0 {
		return err.Error()
	}
	parts := make([]string, len(fields))
	for i, fe := range fields {
		parts[i] = fe.Error()
	}
	return strings.Join(parts, "; ")
}
