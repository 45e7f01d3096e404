package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocops/bloc-planning-api/internal/models"
	appErrors "github.com/blocops/bloc-planning-api/pkg/errors"
)

func newPlanningRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPlanningRepositoryListBySiteAndRange(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewPlanningRepository(db)

	from := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "site_id", "date", "status", "created_at", "updated_at"}).
		AddRow("plan-1", "site-1", from, string(models.PlanningStatusDraft), time.Now(), time.Now()).
		AddRow("plan-2", "site-1", from.AddDate(0, 0, 1), string(models.PlanningStatusLocked), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, site_id, date, status, created_at, updated_at")).
		WithArgs("site-1", from, to).
		WillReturnRows(rows)

	plannings, err := repo.ListBySiteAndRange(context.Background(), "site-1", from, to)
	require.NoError(t, err)
	assert.Len(t, plannings, 2)
	assert.Equal(t, models.PlanningStatusLocked, plannings[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanningRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewPlanningRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM day_plannings WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "site_id", "date", "status", "created_at", "updated_at"}))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanningRepositoryBulkCreateInsideTx(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewPlanningRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO day_plannings")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	now := time.Now()
	plannings := []models.DayPlanning{
		{ID: "plan-1", SiteID: "site-1", Date: now, Status: models.PlanningStatusDraft, CreatedAt: now, UpdatedAt: now},
		{ID: "plan-2", SiteID: "site-1", Date: now.AddDate(0, 0, 1), Status: models.PlanningStatusDraft, CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, repo.BulkCreate(context.Background(), tx, plannings))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanningRepositoryBulkCreateEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewPlanningRepository(db)

	require.NoError(t, repo.BulkCreate(context.Background(), db, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
