package errors

import "fmt"

// Mapping error codes (CNV100-199)
const (
	// ErrCodeUnsupportedOperator indicates no target equivalent exists
	ErrCodeUnsupportedOperator ErrorCode = "CNV100"
	// ErrCodeMissingTargetOperator indicates a mapper resolved an empty target name
	ErrCodeMissingTargetOperator ErrorCode = "CNV101"
	// ErrCodeMalformedWeight indicates required weight data is absent or inconsistent
	ErrCodeMalformedWeight ErrorCode = "CNV102"
	// ErrCodeUnsupportedParameterValue indicates a value outside a closed conversion table
	ErrCodeUnsupportedParameterValue ErrorCode = "CNV103"
)

// Sentinels for errors.Is matching by code
var (
	ErrUnsupportedOperator       = &ConversionError{Code: ErrCodeUnsupportedOperator}
	ErrMissingTargetOperator     = &ConversionError{Code: ErrCodeMissingTargetOperator}
	ErrMalformedWeight           = &ConversionError{Code: ErrCodeMalformedWeight}
	ErrUnsupportedParameterValue = &ConversionError{Code: ErrCodeUnsupportedParameterValue}
	ErrUnresolvedPlaceholder     = &ConversionError{Code: ErrCodeUnresolvedPlaceholder}
)

// NewUnsupportedOperator creates a CNV100 error
func NewUnsupportedOperator(opType string) *ConversionError {
	return newError(
		ErrCodeUnsupportedOperator,
		"unsupported_operator",
		CategoryMapping,
		SeverityError,
		fmt.Sprintf("Operator '%s' has no MindSpore equivalent", opType),
	).WithSuggestion("Rewrite the node by hand or register a mapper for this operator")
}

// NewMissingTargetOperator creates a CNV101 error
func NewMissingTargetOperator(opType string) *ConversionError {
	return newError(
		ErrCodeMissingTargetOperator,
		"missing_target_operator",
		CategoryMapping,
		SeverityError,
		fmt.Sprintf("Can not get MindSpore operation name for '%s'", opType),
	).WithSuggestion("This is likely a converter bug - please report it")
}

// NewMalformedWeight creates a CNV102 error
func NewMalformedWeight(opType, reason string) *ConversionError {
	return newError(
		ErrCodeMalformedWeight,
		"malformed_weight",
		CategoryMapping,
		SeverityError,
		fmt.Sprintf("Cannot get required weights from %s: %s", opType, reason),
	).WithSuggestion("Check that the front end exported the operator's constant inputs")
}

// NewUnsupportedParameterValue creates a CNV103 error
func NewUnsupportedParameterValue(param string, value interface{}) *ConversionError {
	return newError(
		ErrCodeUnsupportedParameterValue,
		"unsupported_parameter_value",
		CategoryMapping,
		SeverityError,
		fmt.Sprintf("Parameter '%s' has unsupported value %v", param, value),
	)
}
