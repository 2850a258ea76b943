package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kiybot/internal/config"
	"kiybot/internal/domain"
	"kiybot/internal/metrics"
	"kiybot/internal/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer exposes a read-only HTTP API for the reservation data.
type HTTPServer struct {
	cfg    config.APIConfig
	repo   domain.Repository
	calc   *schedule.Calculator
	server *http.Server
	auth   *HTTPAuth
	logger *zerolog.Logger

	// now подменяется в тестах
	now func() time.Time
}

func NewHTTPServer(cfg config.APIConfig, repo domain.Repository, calc *schedule.Calculator, logger *zerolog.Logger) *HTTPServer {
	metrics.Register()

	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:    cfg,
		repo:   repo,
		calc:   calc,
		logger: logger,
		now:    time.Now,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/slots", srv.handleSlots)
	mux.HandleFunc("/api/v1/reservations", srv.handleReservations)
	mux.HandleFunc("/api/v1/tables", srv.handleTables)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
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

// Handler возвращает корневой обработчик (для httptest).
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

type slotInfo struct {
	Start      string  `json:"start"`
	FreeTables []int64 `json:"free_tables"`
}

// handleSlots перечисляет допустимые времена начала на дату и столы,
// свободные хотя бы на минимальную длительность с этого времени.
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date, ok := s.parseDate(w, r)
	if !ok {
		return
	}

	tables, err := s.repo.GetActiveTables(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	now := s.now()
	starts := s.calc.Slots(date, now)
	minDur := time.Duration(s.calc.MinHours()) * time.Hour

	slots := make([]slotInfo, 0, len(starts))
	for _, start := range starts {
		info := slotInfo{Start: start.Format(time.RFC3339), FreeTables: []int64{}}
		for _, t := range tables {
			tableID := t.ID
			free, err := s.repo.CheckAvailability(r.Context(), &tableID, start, start.Add(minDur), nil)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "storage error")
				return
			}
			if free {
				info.FreeTables = append(info.FreeTables, tableID)
			}
		}
		slots = append(slots, info)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date.Format("2006-01-02"),
		"slots": slots,
	})
}

func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date, ok := s.parseDate(w, r)
	if !ok {
		return
	}

	reservations, err := s.repo.GetReservationsByDate(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	out := make([]map[string]any, 0, len(reservations))
	for _, res := range reservations {
		out = append(out, map[string]any{
			"id":       res.ID,
			"table_id": res.TableID,
			"start":    res.StartTime.Format(time.RFC3339),
			"end":      res.EndTime.Format(time.RFC3339),
			"username": res.Username,
			"status":   res.Status,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":         date.Format("2006-01-02"),
		"reservations": out,
	})
}

func (s *HTTPServer) handleTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	tables, err := s.repo.GetActiveTables(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (s *HTTPServer) parseDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return time.Time{}, false
	}

	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		metrics.IncHTTP(r.URL.Path)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
