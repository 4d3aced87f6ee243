// Package server exposes a sync client over a small JSON API for the
// timer front end.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/harrisonrobin/sheetsync/pkg/model"
	"github.com/harrisonrobin/sheetsync/pkg/table"
)

// SyncService is the part of *syncer.Client the API needs.
type SyncService interface {
	Records(ctx context.Context, user string) []model.TimerRecord
	Write(ctx context.Context, rec model.TimerRecord) model.DeliveryResult
	Calendar(ctx context.Context) model.FetchResult
}

// Server is the HTTP API.
type Server struct {
	svc    SyncService
	router *chi.Mux
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Server. A nil logger uses slog.Default().
func New(svc SyncService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		router: chi.NewRouter(),
		logger: logger,
		now:    time.Now,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/records", s.handleListRecords)
		r.Post("/records", s.handleWriteRecord)

		r.Get("/calendar", s.handleCalendar)
		r.Get("/calendar/rows/{row}/week", s.handleWeek)
		r.Get("/calendar/rows/{row}/dates", s.handleDates)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	writeJSON(w, http.StatusOK, s.svc.Records(r.Context(), user))
}

func (s *Server) handleWriteRecord(w http.ResponseWriter, r *http.Request) {
	var rec model.TimerRecord
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(rec.User) == "" {
		s.respondError(w, r, errors.New("user is required"), http.StatusBadRequest)
		return
	}
	if rec.TotalSeconds < 0 {
		s.respondError(w, r, errors.New("totalSeconds must not be negative"), http.StatusBadRequest)
		return
	}
	if rec.Timestamp == "" {
		stamped := model.NewTimerRecord(rec.User, rec.TotalSeconds, s.now())
		rec.Timestamp = stamped.Timestamp
		if rec.LastUpdated == "" {
			rec.LastUpdated = stamped.LastUpdated
		}
	}

	writeJSON(w, http.StatusOK, s.svc.Write(r.Context(), rec))
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	res := s.svc.Calendar(r.Context())
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	row, ok := s.rowParam(w, r)
	if !ok {
		return
	}
	week, found := table.WeekData(s.svc.Calendar(r.Context()), row)
	if !found {
		s.respondError(w, r, errors.New("row not found"), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	row, ok := s.rowParam(w, r)
	if !ok {
		return
	}
	res := s.svc.Calendar(r.Context())

	if date := r.URL.Query().Get("date"); date != "" {
		notes, found := table.NotesForDate(res, row, date)
		if !found {
			s.respondError(w, r, errors.New("date not found"), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, notes)
		return
	}

	dates := table.AllDatesWithNotes(res, row)
	if dates == nil {
		dates = []table.DateNotes{}
	}
	writeJSON(w, http.StatusOK, dates)
}

func (s *Server) rowParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil || row < 0 {
		s.respondError(w, r, errors.New("row must be a non-negative integer"), http.StatusBadRequest)
		return 0, false
	}
	return row, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	s.logger.Warn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
