package core

import (
	"errors"
	"fmt"
)

// Error codes for every failure class the engine can produce. The code is
// part of the run result and of the persisted error record, so values are
// stable identifiers, not display strings.
const (
	CodeInvalidWorkflow          = "INVALID_WORKFLOW"
	CodeVariableValidation       = "VARIABLE_VALIDATION"
	CodeInvalidStepConfiguration = "INVALID_STEP_CONFIGURATION"
	CodeToolNotFound             = "TOOL_NOT_FOUND"
	CodeTemplateNotFound         = "TEMPLATE_NOT_FOUND"
	CodeFileNotFound             = "FILE_NOT_FOUND"
	CodeMissingToken             = "MISSING_TOKEN"
	CodeUnresolvedBinding        = "UNRESOLVED_BINDING"
	CodeInvalidLLMResponse       = "INVALID_LLM_RESPONSE"
	CodeStepExecution            = "STEP_EXECUTION"
)

// Error is the structured error record carried in run results and persisted
// alongside a failed workflow. It wraps the underlying cause so callers can
// still use errors.Is/As on it.
type Error struct {
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`

	cause error
}

func NewError(cause error, code string, details map[string]any) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Message: msg, Code: code, Details: details, cause: cause}
}

func Errorf(code string, format string, args ...any) *Error {
	return NewError(fmt.Errorf(format, args...), code, nil)
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// AsError extracts the structured error from err's chain, wrapping plain
// errors into a code-less Error so the run result always carries a record.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return &Error{Message: err.Error(), cause: err}
}

// IsCode reports whether err's chain contains an Error with the given code.
func IsCode(err error, code string) bool {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Code == code
	}
	return false
}
