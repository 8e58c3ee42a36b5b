package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"recycling-tracker/internal/analytics"
	"recycling-tracker/internal/constants"
	"recycling-tracker/internal/domain"
	"recycling-tracker/internal/repository"
	"recycling-tracker/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type StatsProvider interface {
	Home(ctx context.Context) (*service.HomeView, error)
	Dashboard(ctx context.Context, userID string) (*service.DashboardView, error)
	Statistics(ctx context.Context, r analytics.MonthRange) (*service.StatisticsView, error)
}

type ReportStatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, status domain.ReportStatus) (*domain.Report, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type StatsServer struct {
	stats   StatsProvider
	reports ReportStatusUpdater
	db      Pinger
	logger  zerolog.Logger
	now     func() time.Time
}

func NewStatsServer(stats StatsProvider, reports ReportStatusUpdater, db Pinger, logger zerolog.Logger) *StatsServer {
	return &StatsServer{
		stats:   stats,
		reports: reports,
		db:      db,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *StatsServer) Routes(r *mux.Router) {
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/stats/home", s.home).Methods(http.MethodGet)
	api.HandleFunc("/stats/dashboard/{userID}", s.dashboard).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.statistics).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}/status", s.updateReportStatus).Methods(http.MethodPatch)
}

func (s *StatsServer) home(w http.ResponseWriter, r *http.Request) {
	view, err := s.stats.Home(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *StatsServer) dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.stats.Dashboard(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// statistics serves ?from=YYYY-MM&to=YYYY-MM. A missing to is the current
// month and a missing from covers the 12 months ending at to.
func (s *StatsServer) statistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := analytics.RangeEndingAt(q.Get("from"), q.Get("to"),
		analytics.MonthOf(s.now().UTC()), constants.DefaultStatisticsMonths)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	view, err := s.stats.Statistics(r.Context(), rng)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type statusRequest struct {
	Status domain.ReportStatus `json:"status"`
}

func (s *StatsServer) updateReportStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := s.reports.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *StatsServer) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *StatsServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	logger := zerolog.Ctx(r.Context())
	if logger.GetLevel() == zerolog.Disabled {
		logger = &s.logger
	}

	if code >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, code, "internal server error")
		return
	}
	logger.Debug().Err(err).Int("status", code).Str("path", r.URL.Path).Msg("request rejected")
	writeError(w, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, analytics.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analytics.ErrValidation),
		errors.Is(err, analytics.ErrInvalidMonth),
		errors.Is(err, analytics.ErrInvalidRange),
		errors.Is(err, repository.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
