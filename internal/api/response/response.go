// Package response writes the JSON envelopes shared by every handler and maps
// tagged errors onto HTTP status codes.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hsm-gustavo/todo-go/internal/db"
	"github.com/rs/zerolog"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindNotFound
	KindConflict
	KindImmutable
	KindUnavailable
	KindMisconfigured
)

// Error is the tagged result a pipeline stage or handler short-circuits with.
// Err is the diagnostic cause; it is logged and never sent to the client.
type Error struct {
	Kind    Kind
	Message string
	Allowed []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Message: "Invalid or missing authentication token"}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Immutable(message string) *Error {
	return &Error{Kind: KindImmutable, Message: message}
}

func Unavailable(err error) *Error {
	return &Error{Kind: KindUnavailable, Message: "Could not connect to database", Err: err}
}

func Misconfigured(err error) *Error {
	return &Error{Kind: KindMisconfigured, Message: "Authentication service misconfigured", Err: err}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

type ErrorResponse struct {
	Error   string   `json:"error" example:"validation_failed"`
	Message string   `json:"message,omitempty" example:"title is required"`
	Allowed []string `json:"allowed,omitempty" example:"pending,in_progress"`
}

type kindInfo struct {
	status int
	code   string
}

var kinds = map[Kind]kindInfo{
	KindInternal:        {http.StatusInternalServerError, "server_error"},
	KindValidation:      {http.StatusBadRequest, "validation_failed"},
	KindUnauthenticated: {http.StatusUnauthorized, "unauthorized"},
	KindNotFound:        {http.StatusNotFound, "not_found"},
	KindConflict:        {http.StatusConflict, "conflict"},
	KindImmutable:       {http.StatusBadRequest, "immutable_field"},
	KindUnavailable:     {http.StatusServiceUnavailable, "service_unavailable"},
	KindMisconfigured:   {http.StatusInternalServerError, "misconfigured"},
}

// StatusOf returns the HTTP status for err as WriteError would send it.
func StatusOf(err error) int {
	return kinds[classify(err).Kind].status
}

func classify(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, db.ErrUnavailable) {
		return Unavailable(err)
	}
	return Internal("Internal server error", err)
}

// WriteError sends the envelope for err. Server-side kinds are logged with
// their cause through the request logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := classify(err)
	info := kinds[apiErr.Kind]

	log := zerolog.Ctx(r.Context())
	switch apiErr.Kind {
	case KindInternal, KindMisconfigured:
		log.Error().Err(apiErr.Err).Str("code", info.code).Msg(apiErr.Message)
	case KindUnavailable:
		log.Warn().Err(apiErr.Err).Str("code", info.code).Msg(apiErr.Message)
	}

	JSON(w, info.status, ErrorResponse{
		Error:   info.code,
		Message: apiErr.Message,
		Allowed: apiErr.Allowed,
	})
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
