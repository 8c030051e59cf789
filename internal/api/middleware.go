package api

import (
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"labreserve/internal/config"
	"labreserve/internal/logging"
	"labreserve/internal/metrics"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

var knownActions = map[string]struct{}{
	"laboratories": {},
	"bookings":     {},
	"availability": {},
	"book":         {},
	"cancel":       {},
}

// recoverMiddleware answers 500 for a panicking handler unless the response
// has already started.
func (s *HTTPServer) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().
					Interface("panic", rec).
					Str("request_id", logging.RequestID(r.Context())).
					Bytes("stack", debug.Stack()).
					Bool("response_started", recorder.wrote).
					Msg("panic in http handler")
				if !recorder.wrote {
					writeError(recorder, http.StatusInternalServerError, msgInternal)
				}
			}
		}()
		next.ServeHTTP(recorder, r)
	})
}

// requestIDMiddleware reuses a client supplied X-Request-ID or issues a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func corsMiddleware(cfg config.APICORSConfig, next http.Handler) http.Handler {
	origin := cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		action := actionLabel(r)
		metrics.ObserveHTTP(action, recorder.status, dur)

		event := s.logger.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = s.logger.Warn()
		}
		event.
			Str("request_id", logging.RequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("action", action).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

// rateLimitMiddleware answers 429 once a client IP exceeds its budget.
// Limiter errors let the request through.
func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := s.limiter.Allow(r.Context(), clientKey(r))
		if err != nil {
			s.logger.Warn().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			writeError(w, http.StatusTooManyRequests, msgTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// actionLabel keeps metric cardinality bounded to the known actions.
func actionLabel(r *http.Request) string {
	if r.Method == http.MethodOptions {
		return "options"
	}
	action := r.URL.Query().Get("action")
	if action == "" {
		return ""
	}
	if _, ok := knownActions[action]; ok {
		return action
	}
	return "invalid"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.wrote {
		return
	}
	r.status = status
	r.wrote = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}
