package errors

import (
	"fmt"
	"strings"
)

// Code generation error codes (GEN600-699)
const (
	// ErrCodeUnresolvedPlaceholder indicates a template token without a value
	ErrCodeUnresolvedPlaceholder ErrorCode = "GEN600"
	// ErrCodeUnsupportedDType indicates a weight whose dtype was marked UNSUPPORTED
	ErrCodeUnsupportedDType ErrorCode = "GEN601"
)

// NewUnresolvedPlaceholder creates a GEN600 error
func NewUnresolvedPlaceholder(slot string, names []string) *ConversionError {
	return newError(
		ErrCodeUnresolvedPlaceholder,
		"unresolved_placeholder",
		CategoryCodeGen,
		SeverityError,
		fmt.Sprintf("Template for %s has unresolved placeholders: %s", slot, strings.Join(names, ", ")),
	).WithSuggestion("This is likely a converter bug - please report it")
}

// NewUnsupportedDType creates a GEN601 warning
func NewUnsupportedDType(param string) *ConversionError {
	return newError(
		ErrCodeUnsupportedDType,
		"unsupported_dtype",
		CategoryCodeGen,
		SeverityWarning,
		fmt.Sprintf("Parameter '%s' was converted to an UNSUPPORTED type marker", param),
	).WithSuggestion("Replace the marker in the generated code with a supported MindSpore type")
}
