package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"recycling-tracker/internal/constants"
	"recycling-tracker/internal/database"
	"recycling-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zerolog.Nop()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newRepos(t *testing.T) (*ReportRepository, *UserRepository) {
	db := newTestDB(t)
	reports := NewReportRepository(db, zerolog.Nop())
	users := NewUserRepository(db, zerolog.Nop())
	reports.now = func() time.Time { return fixedNow }
	users.now = func() time.Time { return fixedNow }
	return reports, users
}

func seedUsers(t *testing.T, users *UserRepository, ids ...string) {
	t.Helper()
	batch := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, domain.User{ID: id, Name: "user " + id})
	}
	require.NoError(t, users.UpsertBatch(context.Background(), batch))
}

func newReport(user string, material domain.MaterialType, qty string, status domain.ReportStatus, at time.Time) domain.Report {
	return domain.Report{
		UserID:       user,
		MaterialType: material,
		QuantityKg:   decimal.RequireFromString(qty),
		Location:     "Central Park",
		Status:       status,
		ReportedAt:   at,
	}
}

func TestReportRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	reports, users := newRepos(t)
	seedUsers(t, users, "u1")

	plus2 := time.FixedZone("UTC+2", 2*60*60)
	rep := newReport("u1", domain.MaterialPlastic, "2.75", "", time.Date(2024, time.March, 1, 9, 0, 0, 123, plus2))
	require.NoError(t, reports.Create(ctx, &rep))
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, domain.StatusPending, rep.Status)

	got, err := reports.Get(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, domain.MaterialPlastic, got.MaterialType)
	assert.Equal(t, "2.75", got.QuantityKg.String())
	assert.Equal(t, "Central Park", got.Location)
	assert.Equal(t, time.Date(2024, time.March, 1, 7, 0, 0, 0, time.UTC), got.ReportedAt)
	assert.Equal(t, time.UTC, got.ReportedAt.Location())
	assert.Equal(t, fixedNow, got.CreatedAt)
}

func TestReportRepository_GetNotFound(t *testing.T) {
	reports, _ := newRepos(t)
	_, err := reports.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportRepository_CreateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	reports, users := newRepos(t)
	seedUsers(t, users, "u1")

	tests := []struct {
		name   string
		report domain.Report
	}{
		{name: "negative quantity", report: newReport("u1", domain.MaterialGlass, "-1", "", fixedNow)},
		{name: "unknown material", report: newReport("u1", "wood", "1", "", fixedNow)},
		{name: "unknown status", report: newReport("u1", domain.MaterialGlass, "1", "lost", fixedNow)},
		{name: "no user", report: newReport("", domain.MaterialGlass, "1", "", fixedNow)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := tt.report
			assert.ErrorIs(t, reports.Create(ctx, &rep), ErrInvalidInput)
		})
	}

	t.Run("unknown user violates foreign key", func(t *testing.T) {
		rep := newReport("ghost", domain.MaterialGlass, "1", "", fixedNow)
		assert.Error(t, reports.Create(ctx, &rep))
	})
}

func TestReportRepository_List(t *testing.T) {
	ctx := context.Background()
	reports, users := newRepos(t)
	seedUsers(t, users, "u1", "u2")

	jan := time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC)
	feb := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC)

	batch := []domain.Report{
		newReport("u1", domain.MaterialPaper, "1", domain.StatusVerified, feb),
		newReport("u1", domain.MaterialPaper, "2", domain.StatusVerified, jan),
		newReport("u2", domain.MaterialMetal, "3", domain.StatusPending, mar),
		newReport("u2", domain.MaterialMetal, "4", domain.StatusRejected, feb),
	}
	// equal reported_at is ordered by id, not by insertion
	for i, id := range []string{"r4", "r2", "r3", "r1"} {
		batch[i].ID = id
	}
	require.NoError(t, reports.CreateBatch(ctx, batch))

	tests := []struct {
		name     string
		filter   ReportFilter
		wantQtys []string
	}{
		{name: "all in time order", filter: ReportFilter{}, wantQtys: []string{"2", "4", "1", "3"}},
		{
			name:     "half open range",
			filter:   ReportFilter{From: feb, To: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
			wantQtys: []string{"4", "1"},
		},
		{name: "by user", filter: ReportFilter{UserID: "u2"}, wantQtys: []string{"4", "3"}},
		{
			name:     "verified only",
			filter:   ReportFilter{Statuses: []domain.ReportStatus{domain.StatusVerified}},
			wantQtys: []string{"2", "1"},
		},
		{
			name: "combined",
			filter: ReportFilter{
				From:     feb,
				UserID:   "u2",
				Statuses: []domain.ReportStatus{domain.StatusPending, domain.StatusVerified},
			},
			wantQtys: []string{"3"},
		},
		{name: "nothing matches", filter: ReportFilter{UserID: "nobody"}, wantQtys: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reports.List(ctx, tt.filter)
			require.NoError(t, err)
			require.NotNil(t, got)
			qtys := make([]string, 0, len(got))
			for _, r := range got {
				qtys = append(qtys, r.QuantityKg.String())
			}
			assert.Equal(t, tt.wantQtys, qtys)
		})
	}
}

func TestReportRepository_CreateBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	reports, users := newRepos(t)
	seedUsers(t, users, "u1")

	batch := make([]domain.Report, 0, constants.DBBatchSize+5)
	for i := 0; i < constants.DBBatchSize+4; i++ {
		batch = append(batch, newReport("u1", domain.MaterialOrganic, "0.5", domain.StatusVerified, fixedNow))
	}
	batch = append(batch, newReport("ghost", domain.MaterialOrganic, "0.5", domain.StatusVerified, fixedNow))

	require.Error(t, reports.CreateBatch(ctx, batch))

	got, err := reports.List(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, reports.CreateBatch(ctx, batch[:len(batch)-1]))
	got, err = reports.List(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, got, constants.DBBatchSize+4)
}

func TestReportRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	reports, users := newRepos(t)
	seedUsers(t, users, "u1")

	rep := newReport("u1", domain.MaterialGlass, "5", "", fixedNow)
	require.NoError(t, reports.Create(ctx, &rep))

	updated, err := reports.UpdateStatus(ctx, rep.ID, domain.StatusVerified)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, updated.Status)
	assert.Equal(t, "5", updated.QuantityKg.String())

	u, err := users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(constants.PointsPerVerifiedReport), u.Points)

	_, err = reports.UpdateStatus(ctx, rep.ID, domain.StatusRejected)
	assert.ErrorIs(t, err, ErrInvalidInput, "only pending reports change status")

	_, err = reports.UpdateStatus(ctx, rep.ID, domain.StatusPending)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = reports.UpdateStatus(ctx, "missing", domain.StatusRejected)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_UpsertKeepsPointsMonotonic(t *testing.T) {
	ctx := context.Background()
	_, users := newRepos(t)

	u := domain.User{ID: "u1", Name: "Ada", Points: 40, StreakDays: 3}
	require.NoError(t, users.Upsert(ctx, &u))

	stale := domain.User{ID: "u1", Name: "Ada L.", Points: 10, StreakDays: 0}
	require.NoError(t, users.Upsert(ctx, &stale))

	got, err := users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.Name)
	assert.Equal(t, int64(40), got.Points)
	assert.Equal(t, 0, got.StreakDays)
}

func TestUserRepository_AddPoints(t *testing.T) {
	ctx := context.Background()
	_, users := newRepos(t)
	seedUsers(t, users, "u1")

	require.NoError(t, users.AddPoints(ctx, "u1", 15))
	require.NoError(t, users.AddPoints(ctx, "u1", 0))
	assert.ErrorIs(t, users.AddPoints(ctx, "u1", -1), ErrInvalidInput)
	assert.ErrorIs(t, users.AddPoints(ctx, "ghost", 5), ErrNotFound)

	got, err := users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), got.Points)
}

func TestUserRepository_ListAndValidation(t *testing.T) {
	ctx := context.Background()
	_, users := newRepos(t)

	empty, err := users.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	seedUsers(t, users, "b", "a")
	got, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)

	anon := domain.User{Name: "generated id"}
	require.NoError(t, users.Upsert(ctx, &anon))
	assert.NotEmpty(t, anon.ID)

	assert.ErrorIs(t, users.Upsert(ctx, &domain.User{ID: "x"}), ErrInvalidInput)
	assert.ErrorIs(t, users.Upsert(ctx, &domain.User{ID: "x", Name: "x", Points: -1}), ErrInvalidInput)

	_, err = users.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
