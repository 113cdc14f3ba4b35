// Package errors provides structured error handling for the converter.
// Every mapper failure is reported as a ConversionError carrying a stable
// code, so the generation pass can decide whether to abort or skip a node.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a unique error code in the converter
type ErrorCode string

// ErrorCategory represents the category of a conversion error
type ErrorCategory string

const (
	// CategoryMapping represents operator mapping errors (CNV100-199)
	CategoryMapping ErrorCategory = "mapping"
	// CategoryCodeGen represents template generation errors (GEN600-699)
	CategoryCodeGen ErrorCategory = "codegen"
)

// ErrorSeverity indicates the severity level of an error
type ErrorSeverity string

const (
	// SeverityError indicates an error that prevents conversion of a node
	SeverityError ErrorSeverity = "error"
	// SeverityWarning indicates output that needs manual review
	SeverityWarning ErrorSeverity = "warning"
)

// ConversionError represents a structured conversion failure for one node
type ConversionError struct {
	// Code is the unique error code (e.g., "CNV100")
	Code ErrorCode `json:"code"`
	// Type is a machine-readable error type identifier
	Type string `json:"type"`
	// Category is the error category
	Category ErrorCategory `json:"category"`
	// Severity is the error severity level
	Severity ErrorSeverity `json:"severity"`
	// Message is the primary error message
	Message string `json:"message"`
	// Node is the name of the offending graph node (optional)
	Node string `json:"node,omitempty"`
	// OpType is the source operator kind (optional)
	OpType string `json:"op_type,omitempty"`
	// Suggestion provides a hint for fixing the error (optional)
	Suggestion string `json:"suggestion,omitempty"`
	// Documentation is a URL to detailed error documentation
	Documentation string `json:"documentation,omitempty"`
}

// Error implements the error interface
func (e *ConversionError) Error() string {
	return FormatCompact(e)
}

// Is reports whether target is a ConversionError with the same code
func (e *ConversionError) Is(target error) bool {
	t, ok := target.(*ConversionError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Format returns a human-readable error message for terminal output
func (e *ConversionError) Format() string {
	return FormatError(e)
}

// ToJSON returns the error as a JSON string
func (e *ConversionError) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// WithNode attaches the offending node to the error
func (e *ConversionError) WithNode(name, opType string) *ConversionError {
	e.Node = name
	e.OpType = opType
	return e
}

// WithSuggestion sets a suggestion for fixing the error
func (e *ConversionError) WithSuggestion(suggestion string) *ConversionError {
	e.Suggestion = suggestion
	return e
}

// ErrorList is a collection of conversion errors
type ErrorList []*ConversionError

// Error implements the error interface
func (el ErrorList) Error() string {
	if len(el) == 0 {
		return "no errors"
	}
	return FormatErrorList(el)
}

// HasErrors returns true if the list contains any errors (excludes warnings)
func (el ErrorList) HasErrors() bool {
	for _, err := range el {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ToJSON returns all errors as a JSON array
func (el ErrorList) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(el, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ErrorCount returns the number of errors by severity
func (el ErrorList) ErrorCount() (errors, warnings int) {
	for _, err := range el {
		switch err.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	return
}

// documentationURL returns the documentation URL for an error code
func documentationURL(code ErrorCode) string {
	return fmt.Sprintf("https://docs.conduit-lang.org/opconvert/errors/%s", code)
}

// newError creates a new ConversionError with the given parameters
func newError(
	code ErrorCode,
	typ string,
	category ErrorCategory,
	severity ErrorSeverity,
	message string,
) *ConversionError {
	return &ConversionError{
		Code:          code,
		Type:          typ,
		Category:      category,
		Severity:      severity,
		Message:       message,
		Documentation: documentationURL(code),
	}
}
