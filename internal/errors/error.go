package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryPrecondition Category = "precondition"
	CategoryDependency   Category = "dependency"
	CategoryCompile      Category = "compile"
	CategoryPackaging    Category = "packaging"
	CategoryConfig       Category = "config"
	CategoryCLI          Category = "cli"
)

// PipelineError is a structured error with a stable code, a category from
// the pipeline failure taxonomy, and optional diagnostics.
type PipelineError struct {
	// Code is a unique error identifier (e.g., "W201").
	Code string

	// Category is the error type (precondition, dependency, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation, usually the invoked tool's output.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *PipelineError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *PipelineError) WithDetail(d string) *PipelineError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *PipelineError) WithSuggestion(s string) *PipelineError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *PipelineError) Wrap(err error) *PipelineError {
	e.Wrapped = err
	return e
}

// New creates a PipelineError from a registered error code.
func New(code string) *PipelineError {
	template, ok := registry[code]
	if !ok {
		return &PipelineError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &PipelineError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new PipelineError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *PipelineError {
	return &PipelineError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a PipelineError.
func FromError(err error, code string) *PipelineError {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*PipelineError); ok {
		return pe
	}
	return New(code).Wrap(err)
}
