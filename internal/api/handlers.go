package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"labreserve/internal/booking"
	"labreserve/internal/domain"
	"labreserve/internal/logging"
)

// maxBodyBytes bounds request bodies of book and cancel.
const maxBodyBytes = 1 << 16

// flexString accepts a JSON string or number and keeps its textual form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Booleans, arrays and objects keep their raw text and fail validation later.
		*f = flexString(data)
		return nil
	}
	*f = flexString(n.String())
	return nil
}

type bookRequest struct {
	LaboratoryID flexString `json:"laboratory_id"`
	Date         flexString `json:"date"`
	StartTime    flexString `json:"start_time"`
	EndTime      flexString `json:"end_time"`
}

type cancelRequest struct {
	BookingID flexString `json:"booking_id"`
}

type bookingCreated struct {
	BookingID    int64  `json:"booking_id"`
	LaboratoryID int64  `json:"laboratory_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
}

func (s *HTTPServer) handleOptions(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *HTTPServer) handleInvalidAction(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusBadRequest, msgInvalidAction)
}

func (s *HTTPServer) handleLaboratories(w http.ResponseWriter, r *http.Request) {
	labs, err := s.svc.ListLaboratories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, "", labs)
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.ListBookings(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, "", views)
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := booking.Request{
		LaboratoryID: q.Get("laboratory_id"),
		Date:         q.Get("date"),
		StartTime:    q.Get("start_time"),
		EndTime:      q.Get("end_time"),
	}
	if strings.TrimSpace(req.LaboratoryID) == "" || strings.TrimSpace(req.Date) == "" ||
		strings.TrimSpace(req.StartTime) == "" || strings.TrimSpace(req.EndTime) == "" {
		writeError(w, http.StatusBadRequest, msgMissingParams)
		return
	}

	available, err := s.svc.CheckAvailability(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	msg := "Available"
	if !available {
		msg = "Not available"
	}
	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Available: &available, Message: msg})
}

func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	var body *bookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil || body == nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	created, err := s.svc.CreateBooking(r.Context(), booking.Request{
		LaboratoryID: string(body.LaboratoryID),
		Date:         string(body.Date),
		StartTime:    string(body.StartTime),
		EndTime:      string(body.EndTime),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeSuccess(w, "Booking created successfully", bookingCreated{
		BookingID:    created.ID,
		LaboratoryID: created.LaboratoryID,
		Date:         created.Date,
		StartTime:    created.StartTime,
		EndTime:      created.EndTime,
	})
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	var body cancelRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		body = cancelRequest{}
	}

	if _, err := s.svc.CancelBooking(r.Context(), string(body.BookingID)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, "Booking cancelled successfully", nil)
}

// fail renders err and logs store failures with the request id.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusForError(err)
	if code == http.StatusInternalServerError {
		s.logger.Error().
			Err(err).
			Str("request_id", logging.RequestID(r.Context())).
			Str("action", r.URL.Query().Get("action")).
			Msg("request failed")
	} else if _, ok := domain.AsValidation(err); !ok {
		s.logger.Debug().Err(err).Str("request_id", logging.RequestID(r.Context())).Msg("request rejected")
	}
	writeError(w, code, msg)
}
