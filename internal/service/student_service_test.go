package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-portal-api/internal/models"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]*models.StudentDetail
	nisTaken bool
	created  []*models.Student
	updated  []*models.Student
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var out []models.StudentDetail
	for _, s := range m.students {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByNIS(ctx context.Context, nis string, excludeID string) (bool, error) {
	return m.nisTaken, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	m.created = append(m.created, student)
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.updated = append(m.updated, student)
	return nil
}

func (m *mockStudentRepo) Deactivate(ctx context.Context, id string) error {
	if s, ok := m.students[id]; ok {
		s.Active = false
	}
	return nil
}

type mockClientLookup struct {
	clients map[string]*models.ClientDetail
}

func (m *mockClientLookup) FindByID(ctx context.Context, id string) (*models.ClientDetail, error) {
	if c, ok := m.clients[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func studentCreatePayload() CreateStudentRequest {
	return CreateStudentRequest{
		NIS:       "2024001",
		FullName:  "Budi Santoso",
		Gender:    "M",
		BirthDate: time.Date(2010, 3, 14, 0, 0, 0, 0, time.UTC),
		ClientID:  "c1",
	}
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.StudentDetail{}}
	clients := &mockClientLookup{clients: map[string]*models.ClientDetail{
		"c1": {Client: models.Client{ID: "c1", Active: true}},
	}}
	svc := NewStudentService(repo, clients, nil, nil)

	student, err := svc.Create(context.Background(), studentCreatePayload())
	require.NoError(t, err)
	assert.True(t, student.Active)
	assert.Equal(t, "c1", student.ClientID)
	require.Len(t, repo.created, 1)
}

func TestStudentServiceCreateInactiveClient(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.StudentDetail{}}
	clients := &mockClientLookup{clients: map[string]*models.ClientDetail{
		"c1": {Client: models.Client{ID: "c1", Active: false}},
	}}
	svc := NewStudentService(repo, clients, nil, nil)

	_, err := svc.Create(context.Background(), studentCreatePayload())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateUnknownClient(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.StudentDetail{}}
	svc := NewStudentService(repo, &mockClientLookup{}, nil, nil)

	_, err := svc.Create(context.Background(), studentCreatePayload())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateDuplicateNIS(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.StudentDetail{}, nisTaken: true}
	clients := &mockClientLookup{clients: map[string]*models.ClientDetail{
		"c1": {Client: models.Client{ID: "c1", Active: true}},
	}}
	svc := NewStudentService(repo, clients, nil, nil)

	_, err := svc.Create(context.Background(), studentCreatePayload())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateKeepsClientWithoutRevalidation(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.StudentDetail{
		"s1": {Student: models.Student{ID: "s1", NIS: "2024001", ClientID: "c1", Active: true}},
	}}
	// No clients registered: update must not consult the client reader
	// when the client assignment is unchanged.
	svc := NewStudentService(repo, &mockClientLookup{}, nil, nil)

	student, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{
		NIS:       "2024001",
		FullName:  "Budi Santoso",
		Gender:    "M",
		BirthDate: time.Date(2010, 3, 14, 0, 0, 0, 0, time.UTC),
		ClientID:  "c1",
		Active:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", student.FullName)
	require.Len(t, repo.updated, 1)
}

func TestStudentServiceDeactivate(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.StudentDetail{
		"s1": {Student: models.Student{ID: "s1", Active: true}},
	}}
	svc := NewStudentService(repo, &mockClientLookup{}, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "s1"))
	assert.False(t, repo.students["s1"].Active)
}
