package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal      ErrorCode = "COMMON_001"
	ErrCodeBadRequest    ErrorCode = "COMMON_002"
	ErrCodeNotFound      ErrorCode = "COMMON_003"
	ErrCodeValidation    ErrorCode = "COMMON_004"
	ErrCodeConfiguration ErrorCode = "COMMON_005"
	ErrCodeSerialization ErrorCode = "COMMON_006"
)

// DVH Module Error Codes
const (
	ErrCodeCurveInvalid       ErrorCode = "DVH_001"
	ErrCodeCurveEmpty         ErrorCode = "DVH_002"
	ErrCodeStructureNotFound  ErrorCode = "DVH_003"
	ErrCodeRoleUnknown        ErrorCode = "DVH_004"
	ErrCodeFileParseFailed    ErrorCode = "DVH_005"
	ErrCodeUnitsUnsupported   ErrorCode = "DVH_006"
	ErrCodeFileNotFound       ErrorCode = "DVH_007"
	ErrCodeTransformMismatch  ErrorCode = "DVH_008"
	ErrCodeVolumeSumViolation ErrorCode = "DVH_009"
)

// Radiobiological Model Error Codes
const (
	ErrCodeModelParameterMissing ErrorCode = "MOD_001"
	ErrCodeModelParameterInvalid ErrorCode = "MOD_002"
	ErrCodeModelDomain           ErrorCode = "MOD_003"
)

// Pipeline / Export Error Codes
const (
	ErrCodePipelineNoInput     ErrorCode = "PIPE_001"
	ErrCodeExportFailed        ErrorCode = "PIPE_002"
	ErrCodePipelineAllFailed   ErrorCode = "PIPE_003"
	ErrCodePipelineInterrupted ErrorCode = "PIPE_004"
)

// Aliases kept so call sites read naturally against the three error kinds
// of the analysis core.
const (
	CodeInternal      = ErrCodeInternal
	CodeInvalidParam  = ErrCodeBadRequest
	CodeNotFound      = ErrCodeNotFound
	CodeValidation    = ErrCodeValidation
	CodeConfiguration = ErrCodeConfiguration
	CodeOK            = ErrorCode("OK")
	CodeUnknown       = ErrorCode("UNKNOWN")
)

// validationCodes enumerates every code classified as a validation failure:
// malformed numeric input that must fail fast and never be coerced.
var validationCodes = map[ErrorCode]struct{}{
	ErrCodeValidation:            {},
	ErrCodeCurveInvalid:          {},
	ErrCodeCurveEmpty:            {},
	ErrCodeTransformMismatch:     {},
	ErrCodeVolumeSumViolation:    {},
	ErrCodeModelParameterInvalid: {},
	ErrCodeModelDomain:           {},
	ErrCodeFileParseFailed:       {},
	ErrCodeUnitsUnsupported:      {},
}

// notFoundCodes enumerates every code classified as a not-found failure:
// a requested unit of data is absent. Recoverable by the caller.
var notFoundCodes = map[ErrorCode]struct{}{
	ErrCodeNotFound:          {},
	ErrCodeStructureNotFound: {},
	ErrCodeFileNotFound:      {},
}

// configurationCodes enumerates every code classified as a configuration
// failure: a setup defect, always fatal.
var configurationCodes = map[ErrorCode]struct{}{
	ErrCodeConfiguration:         {},
	ErrCodeRoleUnknown:           {},
	ErrCodeModelParameterMissing: {},
}

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes for the web layer.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeValidation:    http.StatusUnprocessableEntity,
	ErrCodeConfiguration: http.StatusInternalServerError,
	ErrCodeSerialization: http.StatusInternalServerError,

	ErrCodeCurveInvalid:       http.StatusUnprocessableEntity,
	ErrCodeCurveEmpty:         http.StatusUnprocessableEntity,
	ErrCodeStructureNotFound:  http.StatusNotFound,
	ErrCodeRoleUnknown:        http.StatusInternalServerError,
	ErrCodeFileParseFailed:    http.StatusUnprocessableEntity,
	ErrCodeUnitsUnsupported:   http.StatusUnprocessableEntity,
	ErrCodeFileNotFound:       http.StatusNotFound,
	ErrCodeTransformMismatch:  http.StatusUnprocessableEntity,
	ErrCodeVolumeSumViolation: http.StatusUnprocessableEntity,

	ErrCodeModelParameterMissing: http.StatusInternalServerError,
	ErrCodeModelParameterInvalid: http.StatusUnprocessableEntity,
	ErrCodeModelDomain:           http.StatusUnprocessableEntity,

	ErrCodePipelineNoInput:     http.StatusBadRequest,
	ErrCodeExportFailed:        http.StatusInternalServerError,
	ErrCodePipelineAllFailed:   http.StatusUnprocessableEntity,
	ErrCodePipelineInterrupted: http.StatusServiceUnavailable,
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
