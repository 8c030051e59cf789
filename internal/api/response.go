package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"labreserve/internal/domain"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

const (
	msgInvalidAction    = "Invalid action"
	msgMethodNotAllowed = "Method not allowed"
	msgNotFound         = "Not found"
	msgMissingParams    = "Missing required parameters: laboratory_id, date, start_time, end_time"
	msgInvalidJSON      = "Invalid JSON data"
	msgOverlap          = "Laboratory is not available for the selected time range"
	msgBookingNotFound  = "Booking not found or already cancelled"
	msgLabNotFound      = "Laboratory not found"
	msgTooManyRequests  = "Too many requests"
	msgInternal         = "Internal server error"
)

// envelope is the body of every JSON response.
type envelope struct {
	Status    string `json:"status"`
	Available *bool  `json:"available,omitempty"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, envelope{Status: statusError, Message: message})
}

// statusForError maps a service error to its HTTP status and public message.
func statusForError(err error) (int, string) {
	if verr, ok := domain.AsValidation(err); ok {
		return http.StatusBadRequest, verr.Message
	}
	switch {
	case errors.Is(err, domain.ErrOverlap):
		return http.StatusConflict, msgOverlap
	case errors.Is(err, domain.ErrBookingNotFound):
		return http.StatusNotFound, msgBookingNotFound
	case errors.Is(err, domain.ErrLaboratoryNotFound):
		return http.StatusNotFound, msgLabNotFound
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
