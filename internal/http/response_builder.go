// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses.
// Every body is an envelope with the payload under "data" and an optional
// "notification" the client shows as a toast.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/importer"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Notification is a dismissable message for the user.
type Notification struct {
	Type    NotificationType `json:"type"`
	Message string           `json:"message"`
}

// Envelope is the body of every API response.
type Envelope struct {
	Data         any           `json:"data,omitempty"`
	Error        string        `json:"error,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	envelope   Envelope
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Data(data any) *JSONResponseBuilder {
	b.envelope.Data = data
	return b
}

// Notify attaches a notification of the given type.
func (b *JSONResponseBuilder) Notify(notifType NotificationType, message string) *JSONResponseBuilder {
	b.envelope.Notification = &Notification{Type: notifType, Message: message}
	return b
}

func (b *JSONResponseBuilder) Success(message string) *JSONResponseBuilder {
	return b.Notify(NotificationSuccess, message)
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.envelope)
}

// ErrorResponse creates an error response whose notification repeats the
// message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	b := NewJSONResponse().Status(statusCode).Notify(NotificationError, message)
	b.envelope.Error = message
	return b
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// errorStatuses maps domain errors to HTTP statuses. The first match wins.
var errorStatuses = []struct {
	err    error
	status int
}{
	{services.ErrUnknownProfile, http.StatusNotFound},
	{core.ErrRecordNotFound, http.StatusNotFound},
	{core.ErrDuplicateName, http.StatusConflict},
	{services.ErrLastProfile, http.StatusConflict},
	{services.ErrReservedName, http.StatusConflict},
	{core.ErrProtectedMember, http.StatusConflict},
	{services.ErrStaleScan, http.StatusConflict},
	{services.ErrOCRFailed, http.StatusBadGateway},
	{importer.ErrMalformedCSV, http.StatusBadRequest},
	{importer.ErrNoTransactions, http.StatusUnprocessableEntity},
	{core.ErrInvalidBackup, http.StatusUnprocessableEntity},
	{services.ErrInvalidProfile, http.StatusUnprocessableEntity},
	{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
	{core.ErrEmptyTitle, http.StatusUnprocessableEntity},
	{core.ErrEmptyType, http.StatusUnprocessableEntity},
	{core.ErrEmptyCategory, http.StatusUnprocessableEntity},
	{core.ErrEmptyName, http.StatusUnprocessableEntity},
	{core.ErrInvalidMonth, http.StatusUnprocessableEntity},
	{core.ErrInvalidDate, http.StatusUnprocessableEntity},
	{core.ErrInvalidLimit, http.StatusUnprocessableEntity},
	{core.ErrInvalidFrequency, http.StatusUnprocessableEntity},
	{core.ErrInvalidPlanAmount, http.StatusUnprocessableEntity},
}

// StatusFor returns the HTTP status for err, 500 for unknown errors.
func StatusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError maps err to a response. Unknown errors are logged and reported
// without their details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		InternalServerError("Something went wrong, please try again").Write(w)
		return
	}
	ErrorResponse(status, err.Error()).Write(w)
}
