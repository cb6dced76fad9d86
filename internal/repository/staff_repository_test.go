package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-portal-api/internal/models"
)

func TestStaffRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	rows := sqlmock.NewRows([]string{"id", "nip", "full_name", "email", "phone", "position", "active", "created_at", "updated_at", "current_status"}).
		AddRow("stf-1", "19800101", "Siti Aminah", "siti@example.com", "0811", "counselor", true, time.Now(), time.Now(), models.StatusRegular)
	mock.ExpectQuery("SELECT .+ FROM staff st").
		WithArgs("stf-1", models.EntityStaff).
		WillReturnRows(rows)

	detail, err := repo.FindByID(context.Background(), "stf-1")
	require.NoError(t, err)
	assert.Equal(t, "Siti Aminah", detail.FullName)
	require.NotNil(t, detail.CurrentStatus)
	assert.Equal(t, models.StatusRegular, *detail.CurrentStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryExistsByNIPExcludesID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	rows := sqlmock.NewRows([]string{"?column?"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM staff WHERE nip = $1 AND id <> $2 LIMIT 1")).
		WithArgs("19800101", "stf-1").
		WillReturnRows(rows)

	exists, err := repo.ExistsByNIP(context.Background(), "19800101", "stf-1")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectExec("INSERT INTO staff").
		WillReturnResult(sqlmock.NewResult(1, 1))

	staff := &models.Staff{NIP: "19800101", FullName: "Siti Aminah", Active: true}
	require.NoError(t, repo.Create(context.Background(), staff))
	assert.NotEmpty(t, staff.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
