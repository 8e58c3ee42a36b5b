package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recycling-tracker/internal/analytics"
	"recycling-tracker/internal/domain"
	"recycling-tracker/internal/repository"
	"recycling-tracker/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	home      *service.HomeView
	dashboard map[string]*service.DashboardView
	err       error
	lastRange analytics.MonthRange
}

func (f *fakeStats) Home(context.Context) (*service.HomeView, error) {
	return f.home, f.err
}

func (f *fakeStats) Dashboard(_ context.Context, userID string) (*service.DashboardView, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.dashboard[userID]
	if !ok {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, repository.ErrNotFound)
	}
	return v, nil
}

func (f *fakeStats) Statistics(_ context.Context, r analytics.MonthRange) (*service.StatisticsView, error) {
	f.lastRange = r
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &service.StatisticsView{Range: r}, f.err
}

type fakeReports struct {
	gotID     string
	gotStatus domain.ReportStatus
	err       error
}

func (f *fakeReports) UpdateStatus(_ context.Context, id string, status domain.ReportStatus) (*domain.Report, error) {
	f.gotID, f.gotStatus = id, status
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Report{ID: id, Status: status}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func newTestServer(stats *fakeStats, reports *fakeReports, db Pinger) *mux.Router {
	s := NewStatsServer(stats, reports, db, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	r := mux.NewRouter()
	s.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHome(t *testing.T) {
	stats := &fakeStats{home: &service.HomeView{TotalReports: 7, TotalUsers: 3}}
	h := newTestServer(stats, &fakeReports{}, fakePinger{})

	rec := do(t, h, http.MethodGet, "/api/v1/stats/home", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(7), got["total_reports"])
	assert.Equal(t, float64(3), got["total_users"])
}

func TestHome_InternalErrorHidesDetails(t *testing.T) {
	stats := &fakeStats{err: errors.New("disk on fire")}
	h := newTestServer(stats, &fakeReports{}, fakePinger{})

	rec := do(t, h, http.MethodGet, "/api/v1/stats/home", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestDashboard(t *testing.T) {
	stats := &fakeStats{dashboard: map[string]*service.DashboardView{
		"u1": {User: service.UserSummary{ID: "u1", Name: "Ana"}},
	}}
	h := newTestServer(stats, &fakeReports{}, fakePinger{})

	rec := do(t, h, http.MethodGet, "/api/v1/stats/dashboard/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Ana"`)

	rec = do(t, h, http.MethodGet, "/api/v1/stats/dashboard/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestStatistics_Range(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantRange string
	}{
		{name: "defaults to trailing year", query: "", wantCode: http.StatusOK, wantRange: "2023-04..2024-03"},
		{name: "explicit bounds", query: "?from=2023-01&to=2023-06", wantCode: http.StatusOK, wantRange: "2023-01..2023-06"},
		{name: "only to", query: "?to=2023-12", wantCode: http.StatusOK, wantRange: "2023-01..2023-12"},
		{name: "only from", query: "?from=2024-01", wantCode: http.StatusOK, wantRange: "2024-01..2024-03"},
		{name: "malformed month", query: "?from=2024-13", wantCode: http.StatusBadRequest},
		{name: "reversed", query: "?from=2024-05&to=2024-01", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := &fakeStats{}
			h := newTestServer(stats, &fakeReports{}, fakePinger{})

			rec := do(t, h, http.MethodGet, "/api/v1/stats"+tt.query, "")
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantRange != "" {
				assert.Equal(t, tt.wantRange, stats.lastRange.String())
			}
		})
	}
}

func TestUpdateReportStatus(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		reports := &fakeReports{}
		h := newTestServer(&fakeStats{}, reports, fakePinger{})

		rec := do(t, h, http.MethodPatch, "/api/v1/reports/r1/status", `{"status":"verified"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "r1", reports.gotID)
		assert.Equal(t, domain.StatusVerified, reports.gotStatus)
		assert.Contains(t, rec.Body.String(), `"status":"verified"`)
	})

	t.Run("bad body", func(t *testing.T) {
		h := newTestServer(&fakeStats{}, &fakeReports{}, fakePinger{})
		rec := do(t, h, http.MethodPatch, "/api/v1/reports/r1/status", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid transition", func(t *testing.T) {
		reports := &fakeReports{err: fmt.Errorf("%w: report r1 is already verified", repository.ErrInvalidInput)}
		h := newTestServer(&fakeStats{}, reports, fakePinger{})
		rec := do(t, h, http.MethodPatch, "/api/v1/reports/r1/status", `{"status":"rejected"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "already verified")
	})

	t.Run("wrong method", func(t *testing.T) {
		h := newTestServer(&fakeStats{}, &fakeReports{}, fakePinger{})
		rec := do(t, h, http.MethodGet, "/api/v1/reports/r1/status", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeStats{}, &fakeReports{}, fakePinger{})
	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	h = newTestServer(&fakeStats{}, &fakeReports{}, fakePinger{err: errors.New("closed")})
	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", repository.ErrNotFound), http.StatusNotFound},
		{analytics.ErrNotFound, http.StatusNotFound},
		{&analytics.ValidationError{Field: "quantity_kg"}, http.StatusBadRequest},
		{analytics.ErrInvalidMonth, http.StatusBadRequest},
		{analytics.ErrInvalidRange, http.StatusBadRequest},
		{repository.ErrInvalidInput, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
