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

func TestClientRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClientRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "phone", "address", "active", "created_at", "updated_at", "current_status"}).
		AddRow("cli-1", "Jane Roe", "jane@example.com", "0800", "Addr", true, time.Now(), time.Now(), models.StatusRegular)
	mock.ExpectQuery("SELECT .+ FROM clients c").
		WithArgs("cli-1", models.EntityClient).
		WillReturnRows(rows)

	detail, err := repo.FindByID(context.Background(), "cli-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", detail.FullName)
	require.NotNil(t, detail.CurrentStatus)
	assert.Equal(t, models.StatusRegular, *detail.CurrentStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClientRepository(db)

	rows := sqlmock.NewRows([]string{"?column?"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM clients WHERE LOWER(email) = LOWER($1)")).
		WithArgs("jane@example.com").
		WillReturnRows(rows)

	exists, err := repo.ExistsByEmail(context.Background(), "jane@example.com", "")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClientRepository(db)

	mock.ExpectExec("INSERT INTO clients").
		WillReturnResult(sqlmock.NewResult(1, 1))

	client := &models.Client{FullName: "Jane Roe", Email: "jane@example.com", Active: true}
	require.NoError(t, repo.Create(context.Background(), client))
	assert.NotEmpty(t, client.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
