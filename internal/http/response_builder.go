// Package http provides the JSON API over the ledger.
//
// This file implements a small builder for JSON responses and the mapping
// from the core error taxonomy to status codes and error bodies.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finledger/internal/core"
	"finledger/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes no content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string            `json:"error"`
	Type      string            `json:"type"`
	Fields    map[string]string `json:"fields,omitempty"`
	Available string            `json:"available,omitempty"`
	Requested string            `json:"requested,omitempty"`
}

// ErrorResponse creates an error response of the given status and type.
func ErrorResponse(statusCode int, errorType, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message, Type: errorType})
}

// BadRequestError creates a 400 response for bodies that cannot be decoded.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, log.ErrorTypeValidation, message)
}

// NotFoundResponse creates a 404 response.
func NotFoundResponse(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, log.ErrorTypeNotFound, message)
}

// InternalServerError creates a 500 response. The message never carries driver detail.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, log.ErrorTypeInternal, "internal server error")
}

// FromError maps err onto a response: an undecodable body is 400,
// ValidationError is 422 with fields, NotFound is 404,
// CapacityExceeded is 409 with available and requested, anything else is 500.
func FromError(err error) *JSONResponseBuilder {
	var (
		verr *core.ValidationError
		nerr *core.NotFoundError
		cerr *core.CapacityExceededError
		rerr *requestError
	)
	switch {
	case errors.As(err, &rerr):
		return BadRequestError(rerr.Error())
	case errors.As(err, &verr):
		return NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Body(ErrorBody{Error: "validation failed", Type: log.ErrorTypeValidation, Fields: verr.Fields})
	case errors.As(err, &nerr):
		return NotFoundResponse(nerr.Error())
	case errors.As(err, &cerr):
		return NewJSONResponse().
			Status(http.StatusConflict).
			Body(ErrorBody{
				Error:     cerr.Error(),
				Type:      log.ErrorTypeCapacity,
				Available: cerr.Available.StringFixed(core.MoneyPlaces),
				Requested: cerr.Requested.StringFixed(core.MoneyPlaces),
			})
	default:
		return InternalServerError()
	}
}

// errorType classifies err for log records.
func errorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.Is(err, core.ErrCapacityExceeded):
		return log.ErrorTypeCapacity
	case errors.Is(err, core.ErrStorage):
		return log.ErrorTypeDatabase
	default:
		return log.ErrorTypeInternal
	}
}
