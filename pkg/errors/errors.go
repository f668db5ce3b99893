// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling with rich context for Valet.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies Valet errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeRoutingError indicates intent classification failed.
	CodeRoutingError ErrorCode = "ROUTING_ERROR"

	// CodeCapabilityError indicates a capability module execution failed.
	CodeCapabilityError ErrorCode = "CAPABILITY_ERROR"

	// CodeToolValidation indicates tool arguments were rejected before execution.
	CodeToolValidation ErrorCode = "TOOL_VALIDATION"

	// CodeToolFailure indicates a tool execution failed.
	CodeToolFailure ErrorCode = "TOOL_FAILURE"

	// CodeExhausted indicates the tool loop reached its iteration budget.
	CodeExhausted ErrorCode = "ITERATIONS_EXHAUSTED"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeStorageError indicates a storage collaborator error.
	CodeStorageError ErrorCode = "STORAGE_ERROR"

	// CodeMemoryError indicates a memory system error.
	CodeMemoryError ErrorCode = "MEMORY_ERROR"

	// CodeLLMError indicates an LLM provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"
)

// ValetError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type ValetError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Attributes  map[string]string
	Recoverable bool
}

// Error implements the error interface.
func (e *ValetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *ValetError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *ValetError) MarshalJSON() ([]byte, error) {
	type Alias ValetError
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new ValetError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *ValetError {
	return &ValetError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		Attributes: make(map[string]string),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *ValetError) WithContext(key string, value interface{}) *ValetError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *ValetError) WithAttribute(key, value string) *ValetError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *ValetError) WithRecoverable(recoverable bool) *ValetError {
	e.Recoverable = recoverable
	return e
}

// AsValetError attempts to convert an error to a ValetError.
// Returns the error as ValetError if it is one, or wraps it otherwise.
func AsValetError(err error) *ValetError {
	if err == nil {
		return nil
	}
	if ve, ok := err.(*ValetError); ok {
		return ve
	}
	return New(CodeInternal, "wrapped error", err)
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *ValetError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}
