package api

import (
	"context"
	"fmt"
	"net/http"

	"labreserve/internal/config"
	"labreserve/internal/domain"
	"labreserve/internal/logging"
	"labreserve/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// HTTPServer serves the booking API.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     *service.BookingService
	limiter domain.RateLimiter
	server  *http.Server
	logger  *zerolog.Logger
}

// NewHTTPServer wires the router and middleware. A nil limiter disables rate limiting.
func NewHTTPServer(cfg config.APIConfig, svc *service.BookingService, limiter domain.RateLimiter, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		limiter: limiter,
		logger:  logging.Component(logger, "http"),
	}

	handler := srv.recoverMiddleware(
		requestIDMiddleware(
			corsMiddleware(cfg.CORS,
				srv.loggingMiddleware(
					srv.rateLimitMiddleware(srv.routes())))))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	return srv
}

func (s *HTTPServer) routes() *mux.Router {
	r := mux.NewRouter()

	paths := []string{"/"}
	if s.cfg.HTTP.Path != "" && s.cfg.HTTP.Path != "/" {
		paths = append(paths, s.cfg.HTTP.Path)
	}

	for _, path := range paths {
		r.Path(path).Methods(http.MethodOptions).HandlerFunc(s.handleOptions)
		r.Path(path).Methods(http.MethodGet).Queries("action", "laboratories").HandlerFunc(s.handleLaboratories)
		r.Path(path).Methods(http.MethodGet).Queries("action", "bookings").HandlerFunc(s.handleBookings)
		r.Path(path).Methods(http.MethodGet).Queries("action", "availability").HandlerFunc(s.handleAvailability)
		r.Path(path).Methods(http.MethodPost).Queries("action", "book").HandlerFunc(s.handleBook)
		r.Path(path).Methods(http.MethodDelete).Queries("action", "cancel").HandlerFunc(s.handleCancel)
		r.Path(path).Methods(http.MethodGet, http.MethodPost, http.MethodDelete).HandlerFunc(s.handleInvalidAction)
	}

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, msgNotFound)
	})

	return r
}

// Handler exposes the full middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
