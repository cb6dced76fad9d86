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

	"github.com/noah-isme/edu-portal-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStatusRecordRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStatusRecordRepository(db)

	history := []byte(`{"FREEZE":[{"date":"2025-01-01T00:00:00Z","added_by":{"actor_id":"admin-1","at":"2025-01-01T00:00:00Z"}}]}`)
	rows := sqlmock.NewRows([]string{"entity_type", "entity_id", "current_status", "history", "version", "updated_at"}).
		AddRow(models.EntityStudent, "stu-1", models.StatusFreeze, history, 3, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT entity_type, entity_id, current_status, history, version, updated_at")).
		WithArgs(models.EntityStudent, "stu-1").
		WillReturnRows(rows)

	rec, err := repo.Get(context.Background(), models.EntityStudent, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFreeze, rec.CurrentStatus)
	assert.Equal(t, 3, rec.Version)
	require.Len(t, rec.History[models.StatusFreeze], 1)
	assert.Equal(t, "admin-1", rec.History[models.StatusFreeze][0].AddedBy.ActorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRecordRepositoryUpdateBumpsVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStatusRecordRepository(db)

	rec := models.NewStatusRecord(models.EntityClient, "cli-1", models.StatusRegular)
	rec.Version = 2

	mock.ExpectExec("UPDATE status_records").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), rec))
	assert.Equal(t, 3, rec.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRecordRepositoryUpdateVersionConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStatusRecordRepository(db)

	rec := models.NewStatusRecord(models.EntityClient, "cli-1", models.StatusRegular)
	rec.Version = 2

	mock.ExpectExec("UPDATE status_records").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), rec)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 2, rec.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRecordRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStatusRecordRepository(db)

	rec := models.NewStatusRecord(models.EntityStaff, "stf-1", models.StatusTrial)

	mock.ExpectExec("INSERT INTO status_records").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Insert(context.Background(), rec))
	assert.Equal(t, 1, rec.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}
