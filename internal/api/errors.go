package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"eventservices/internal/dispatch"
	"eventservices/internal/ledger"
	"eventservices/internal/status"
	"eventservices/internal/validate"
)

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, APIError{Code: code, Message: message})
}

func writeEnvelope(w http.ResponseWriter, status int, e APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorEnvelope{Error: e})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDomainError maps typed errors from the core packages onto the error envelope.
// Anything unrecognised becomes a 500 with fallback as the message.
func WriteDomainError(w http.ResponseWriter, err error, fallback string) {
	var (
		ve  validate.ValidationError
		ite *status.InvalidTransitionError
		ge  *status.GateError
		ce  *ledger.ConflictError
		nf  NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		code := ve.Code
		if code == "" {
			code = "VALIDATION_FAILED"
		}
		writeEnvelope(w, http.StatusBadRequest, APIError{Code: code, Message: ve.Message, Field: ve.Field})
	case errors.As(err, &ite):
		WriteError(w, http.StatusConflict, "INVALID_STATE_TRANSITION", ite.Error())
	case errors.As(err, &ge):
		WriteError(w, http.StatusConflict, ge.Code, ge.Message)
	case errors.As(err, &nf):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", nf.Error())
	case errors.As(err, &ce):
		WriteError(w, http.StatusConflict, "CONFLICT", ce.Error())
	case errors.Is(err, ledger.ErrResourceRequired):
		writeEnvelope(w, http.StatusBadRequest, APIError{Code: "VALIDATION_FAILED", Message: err.Error(), Field: "resourceId"})
	case errors.Is(err, ledger.ErrLockTimeout):
		WriteError(w, http.StatusServiceUnavailable, "RESOURCE_BUSY", "resource is busy, retry")
	case errors.Is(err, dispatch.ErrQueueClosed):
		WriteError(w, http.StatusServiceUnavailable, "SHUTTING_DOWN", "server is shutting down")
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", fallback)
	}
}

// NotFoundError names the missing entity, e.g. NotFoundError("event").
type NotFoundError string

func (e NotFoundError) Error() string {
	return string(e) + " not found"
}

// Validatable request bodies check themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeJSON decodes the request body into v (unknown fields rejected) and runs v.Validate when present.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return validate.ValidationError{Code: "VALIDATION_FAILED", Message: "invalid json body"}
	}
	if vv, ok := v.(Validatable); ok {
		return vv.Validate()
	}
	return nil
}
