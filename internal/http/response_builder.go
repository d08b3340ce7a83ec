// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing API responses.
// It provides a fluent API for JSON bodies, file downloads and consistent
// error formatting.

package http

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
)

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
	err        error
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the response body. An encoding failure turns the
// response into a 500 when written.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		b.err = err
		return b
	}
	b.headers["Content-Type"] = "application/json; charset=utf-8"
	b.body = buf.Bytes()
	return b
}

// Attachment sets content as a file download named filename.
func (b *ResponseBuilder) Attachment(filename, contentType string, content []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.headers["Content-Disposition"] = mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	b.headers["Content-Length"] = strconv.Itoa(len(content))
	b.body = content
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		http.Error(w, "response encoding failed", http.StatusInternalServerError)
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		JSON(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnauthorizedError creates a 401 Unauthorized error response.
func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// BadGatewayError creates a 502 response for failures of an outside service
// such as the SMTP relay.
func BadGatewayError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadGateway, message)
}

// ServiceUnavailableError creates a 503 response for features that are not
// configured.
func ServiceUnavailableError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}
