package core

import (
	"errors"
	"fmt"
	"net/http"
)

// JSON-RPC error codes surfaced to MCP callers.
const (
	RPCParseError     = -32700
	RPCMethodNotFound = -32601
	RPCInvalidParams  = -32602
	RPCInternalError  = -32603
)

// CodedError is implemented by domain errors that carry a machine-readable code.
type CodedError interface {
	error
	ErrorCode() string
}

// ValidationError reports bad or missing input: arguments, provider, mode or credentials.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string     { return e.Message }
func (e *ValidationError) ErrorCode() string { return "invalid_params" }

// Invalid builds a ValidationError with a formatted message.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UpstreamError reports a failed call to an external API. Message is what the caller sees;
// Body is kept for logs only.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Message    string
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s HTTP %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *UpstreamError) ErrorCode() string { return "upstream_error" }

// InternalError hides an unexpected failure behind a generic message.
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *InternalError) ErrorCode() string { return "internal_error" }
func (e *InternalError) Unwrap() error     { return e.Cause }

// PolicyError is returned when a tool is blocked by the active mode's allow-list.
type PolicyError struct {
	Tool    string
	Message string
}

func (e *PolicyError) Error() string     { return e.Message }
func (e *PolicyError) ErrorCode() string { return "tool_not_allowed" }

// Classify returns err unchanged when it already carries a code and wraps anything else
// as an InternalError with the given public message.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	var coded CodedError
	if errors.As(err, &coded) {
		return err
	}
	return &InternalError{Message: message, Cause: err}
}

type ErrorInfo struct {
	Code       string
	RPCCode    int
	Message    string
	HTTPStatus int
}

// MapError converts an error into the caller-visible code, message and HTTP status.
// Only the public part of classified errors is exposed.
func MapError(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: "internal_error", RPCCode: RPCInternalError, Message: "internal error", HTTPStatus: http.StatusInternalServerError}
	}

	var coded CodedError
	if !errors.As(err, &coded) {
		return ErrorInfo{Code: "internal_error", RPCCode: RPCInternalError, Message: "internal error", HTTPStatus: http.StatusInternalServerError}
	}

	switch e := coded.(type) {
	case *ValidationError:
		return ErrorInfo{Code: e.ErrorCode(), RPCCode: RPCInvalidParams, Message: e.Message, HTTPStatus: http.StatusBadRequest}
	case *UpstreamError:
		return ErrorInfo{Code: e.ErrorCode(), RPCCode: RPCInternalError, Message: e.Message, HTTPStatus: http.StatusBadGateway}
	case *InternalError:
		return ErrorInfo{Code: e.ErrorCode(), RPCCode: RPCInternalError, Message: e.Message, HTTPStatus: http.StatusInternalServerError}
	case *PolicyError:
		return ErrorInfo{Code: e.ErrorCode(), RPCCode: RPCInternalError, Message: e.Message, HTTPStatus: http.StatusForbidden}
	default:
		return ErrorInfo{Code: coded.ErrorCode(), RPCCode: RPCInternalError, Message: coded.Error(), HTTPStatus: http.StatusInternalServerError}
	}
}
