// Package validation checks a selected file against a slot's constraints.
// Checks are metadata only; file contents are never opened.
package validation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/comp-report/intake/internal/models"
)

// Code classifies a failed validation.
type Code string

const (
	CodeUnsupportedType Code = "unsupported_type"
	CodeTooLarge        Code = "too_large"
)

// bytesPerMB is the divisor used when reporting size limits. Limits are
// labelled "MB" but computed in mebibytes.
const bytesPerMB = 1024 * 1024

// Result is the outcome of Validate. A zero Result means the file passed.
type Result struct {
	Code    Code   `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK reports whether validation passed.
func (r Result) OK() bool {
	return r.Code == ""
}

// Extension returns the lowercase extension of name including the leading
// dot. A name without a dot yields ".".
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return "."
	}
	return "." + strings.ToLower(name[i+1:])
}

// Validate checks file against the accepted extensions and size ceiling.
// The type check runs before the size check.
func Validate(file models.FileInfo, accepted []string, maxSizeBytes int64) Result {
	if !slices.Contains(accepted, Extension(file.Name)) {
		return Result{
			Code:    CodeUnsupportedType,
			Message: "Invalid file type. Accepted types: " + strings.Join(accepted, ", "),
		}
	}

	if file.Size > maxSizeBytes {
		return Result{
			Code:    CodeTooLarge,
			Message: fmt.Sprintf("File size exceeds %sMB limit", FormatMB(maxSizeBytes)),
		}
	}

	return Result{}
}

// FormatMB renders a byte count in MB with at most one decimal place.
func FormatMB(n int64) string {
	s := strconv.FormatFloat(float64(n)/bytesPerMB, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}
