package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-portal-api/internal/models"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

type mockSubjectRepo struct {
	subjects    map[string]models.Subject
	codes       map[string]string
	assignments map[string]models.SubjectAssignment
	assignCount map[string]int
	pairs       map[string]bool
	created     *models.SubjectAssignment
}

func (m *mockSubjectRepo) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	var list []models.Subject
	for _, s := range m.subjects {
		list = append(list, s)
	}
	return list, len(list), nil
}

func (m *mockSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	id, ok := m.codes[code]
	if !ok {
		return false, nil
	}
	return id != excludeID, nil
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	if m.subjects == nil {
		m.subjects = make(map[string]models.Subject)
	}
	if subject.ID == "" {
		subject.ID = "new-subject"
	}
	m.subjects[subject.ID] = *subject
	return nil
}

func (m *mockSubjectRepo) Update(ctx context.Context, subject *models.Subject) error {
	m.subjects[subject.ID] = *subject
	return nil
}

func (m *mockSubjectRepo) Delete(ctx context.Context, id string) error {
	delete(m.subjects, id)
	return nil
}

func (m *mockSubjectRepo) CountAssignments(ctx context.Context, id string) (int, error) {
	return m.assignCount[id], nil
}

func (m *mockSubjectRepo) ListAssignments(ctx context.Context, filter models.SubjectAssignmentFilter) ([]models.SubjectAssignmentDetail, int, error) {
	var list []models.SubjectAssignmentDetail
	for _, a := range m.assignments {
		list = append(list, models.SubjectAssignmentDetail{SubjectAssignment: a})
	}
	return list, len(list), nil
}

func (m *mockSubjectRepo) FindAssignmentByID(ctx context.Context, id string) (*models.SubjectAssignment, error) {
	if a, ok := m.assignments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) ExistsAssignment(ctx context.Context, studentID, subjectID string) (bool, error) {
	return m.pairs[studentID+":"+subjectID], nil
}

func (m *mockSubjectRepo) CreateAssignment(ctx context.Context, assignment *models.SubjectAssignment) error {
	if m.assignments == nil {
		m.assignments = make(map[string]models.SubjectAssignment)
	}
	if assignment.ID == "" {
		assignment.ID = "new-assignment"
	}
	m.assignments[assignment.ID] = *assignment
	m.created = assignment
	return nil
}

type mockStudentChecker struct {
	students map[string]*models.StudentDetail
}

func (m *mockStudentChecker) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockStaffChecker struct{}

func (m *mockStaffChecker) FindByID(ctx context.Context, id string) (*models.StaffDetail, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.StaffDetail{Staff: models.Staff{ID: id, Active: true}}, nil
}

func newSubjectService(repo *mockSubjectRepo) *SubjectService {
	students := &mockStudentChecker{students: map[string]*models.StudentDetail{
		"s1": {Student: models.Student{ID: "s1", Active: true}},
	}}
	return NewSubjectService(repo, students, &mockStaffChecker{}, validator.New(), zap.NewNop())
}

func TestSubjectServiceCreateNormalizesCode(t *testing.T) {
	repo := &mockSubjectRepo{}
	svc := newSubjectService(repo)

	subject, err := svc.Create(context.Background(), CreateSubjectRequest{Code: " mat ", Name: "Mathematics", Track: "SCIENCE"})
	require.NoError(t, err)
	assert.Equal(t, "MAT", subject.Code)
}

func TestSubjectServiceCreateDuplicateCode(t *testing.T) {
	repo := &mockSubjectRepo{codes: map[string]string{"MAT": "sub1"}}
	svc := newSubjectService(repo)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{Code: "MAT", Name: "Mathematics", Track: "SCIENCE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceDeleteWithAssignments(t *testing.T) {
	repo := &mockSubjectRepo{
		subjects:    map[string]models.Subject{"sub1": {ID: "sub1", Code: "MAT"}},
		assignCount: map[string]int{"sub1": 2},
	}
	svc := newSubjectService(repo)

	err := svc.Delete(context.Background(), "sub1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceAssign(t *testing.T) {
	repo := &mockSubjectRepo{subjects: map[string]models.Subject{"sub1": {ID: "sub1", Code: "MAT"}}}
	svc := newSubjectService(repo)

	assignment, err := svc.Assign(context.Background(), AssignSubjectRequest{StudentID: "s1", SubjectID: "sub1", TeacherID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", assignment.StudentID)
	assert.NotNil(t, repo.created)
	assert.False(t, assignment.AssignedAt.IsZero())
}

func TestSubjectServiceAssignDuplicate(t *testing.T) {
	repo := &mockSubjectRepo{
		subjects: map[string]models.Subject{"sub1": {ID: "sub1", Code: "MAT"}},
		pairs:    map[string]bool{"s1:sub1": true},
	}
	svc := newSubjectService(repo)

	_, err := svc.Assign(context.Background(), AssignSubjectRequest{StudentID: "s1", SubjectID: "sub1", TeacherID: "t1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceAssignInactiveStudent(t *testing.T) {
	repo := &mockSubjectRepo{subjects: map[string]models.Subject{"sub1": {ID: "sub1"}}}
	students := &mockStudentChecker{students: map[string]*models.StudentDetail{
		"s1": {Student: models.Student{ID: "s1", Active: false}},
	}}
	svc := NewSubjectService(repo, students, &mockStaffChecker{}, validator.New(), zap.NewNop())

	_, err := svc.Assign(context.Background(), AssignSubjectRequest{StudentID: "s1", SubjectID: "sub1", TeacherID: "t1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
