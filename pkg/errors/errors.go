package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"
	CodeEmptyInput    ErrorCode = "empty_input"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Reconciliation errors
	CodeMatchingFailed   ErrorCode = "matching_failed"
	CodeBudgetExceeded   ErrorCode = "budget_exceeded"
	CodeDataInconsistent ErrorCode = "data_inconsistent"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether the error aborts a reconciliation run.
// Schema and empty-input failures are fatal; per-record conditions are not.
func (e *ReconcilerError) IsFatal() bool {
	switch e.Code {
	case CodeInvalidData, CodeBudgetExceeded:
		return false
	default:
		return true
	}
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// SchemaError reports a required field or column missing from an input feed.
// This is fatal: the run aborts before any matching is attempted.
func SchemaError(feed, field string) *ReconcilerError {
	return New(CategoryValidation, CodeMissingField,
		fmt.Sprintf("feed '%s' lacks required field '%s'", feed, field)).
		WithSuggestion("ensure both feeds provide date and amount for every record").
		WithContext("feed", feed).
		WithContext("field", field)
}

// EmptyInputError reports an input feed with zero records. Fatal.
func EmptyInputError(feed string) *ReconcilerError {
	return New(CategoryValidation, CodeEmptyInput,
		fmt.Sprintf("feed '%s' contains no records", feed)).
		WithSuggestion("verify the input file was parsed correctly and is not empty").
		WithContext("feed", feed)
}

// MalformedValueWarning reports an unparseable date or amount on a single
// record. The record is excluded from matching; the run continues.
func MalformedValueWarning(feed string, line int, field, value string, err error) *ReconcilerError {
	message := fmt.Sprintf("malformed %s '%s' in feed '%s' at record %d", field, value, feed, line)

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryParse, CodeInvalidData, message)
	} else {
		result = New(CategoryParse, CodeInvalidData, message)
	}

	return result.
		WithSuggestion("correct the value or remove the record; it is excluded from matching").
		WithContext("feed", feed).
		WithContext("line", line).
		WithContext("field", field).
		WithContext("value", value)
}

// BudgetExceededWarning reports that the combination search node budget was
// exhausted for one bank record. The record stays unmatched; the run continues.
func BudgetExceededWarning(recordSeq int, budget int) *ReconcilerError {
	return New(CategoryReconciliation, CodeBudgetExceeded,
		fmt.Sprintf("combination search budget (%d nodes) exhausted for bank record %d", budget, recordSeq)).
		WithSuggestion("raise max_brute_force_iterations or narrow the candidate window").
		WithContext("record_seq", recordSeq).
		WithContext("budget", budget)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReconciliationError creates a reconciliation-related error
func ReconciliationError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeMatchingFailed:
		message = fmt.Sprintf("matching failed during %s", operation)
		suggestion = "try adjusting matching tolerances or check data quality"
	case CodeDataInconsistent:
		message = fmt.Sprintf("data inconsistency detected during %s", operation)
		suggestion = "verify data integrity and resolve inconsistencies"
	default:
		message = fmt.Sprintf("reconciliation error during %s", operation)
		suggestion = "review the data and configuration"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryReconciliation, code, message)
	} else {
		result = New(CategoryReconciliation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// WarningList aggregates the non-fatal conditions collected during a run
type WarningList struct {
	Warnings []*ReconcilerError `json:"warnings"`
}

// Add appends a warning; nil warnings are ignored
func (wl *WarningList) Add(w *ReconcilerError) {
	if w == nil {
		return
	}
	wl.Warnings = append(wl.Warnings, w)
}

// CountByCode returns how many collected warnings carry the given code
func (wl *WarningList) CountByCode(code ErrorCode) int {
	n := 0
	for _, w := range wl.Warnings {
		if w.Code == code {
			n++
		}
	}
	return n
}

// Len returns the number of collected warnings
func (wl *WarningList) Len() int {
	return len(wl.Warnings)
}

// Error returns a formatted message describing the collected warnings
func (wl *WarningList) Error() string {
	if len(wl.Warnings) == 0 {
		return "no warnings"
	}

	if len(wl.Warnings) == 1 {
		return wl.Warnings[0].Error()
	}

	byCode := make(map[ErrorCode]int)
	for _, w := range wl.Warnings {
		byCode[w.Code]++
	}

	var parts []string
	for code, count := range byCode {
		parts = append(parts, fmt.Sprintf("%s: %d", code, count))
	}

	return fmt.Sprintf("%d warnings occurred (%s)", len(wl.Warnings), strings.Join(parts, ", "))
}

// Utility functions

// IsReconcilerError checks if an error is a ReconcilerError
func IsReconcilerError(err error) bool {
	_, ok := err.(*ReconcilerError)
	return ok
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}
