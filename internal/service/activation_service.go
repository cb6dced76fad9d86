package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-portal-api/internal/ledger"
	"github.com/noah-isme/edu-portal-api/internal/models"
	"github.com/noah-isme/edu-portal-api/internal/repository"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

type activationRepository interface {
	Get(ctx context.Context, studentID, assignmentID string) (*models.ActivationRecord, error)
	Insert(ctx context.Context, rec *models.ActivationRecord) error
	Update(ctx context.Context, rec *models.ActivationRecord) error
	ListByStudent(ctx context.Context, studentID string) ([]models.ActivationRecord, error)
}

type assignmentReader interface {
	FindAssignmentByID(ctx context.Context, id string) (*models.SubjectAssignment, error)
}

// ToggleActivationRequest describes an activation flip payload.
type ToggleActivationRequest struct {
	Active *bool  `json:"active" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

// ActivationService flips subject assignments between active and
// inactive. Records are created lazily: an assignment with no record is
// active, so the first persisted record is born from the first
// deactivation.
type ActivationService struct {
	repo        activationRepository
	assignments assignmentReader
	metrics     *MetricsService
	audit       *AuditTrailService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time

	locks sync.Map
}

// NewActivationService constructs ActivationService.
func NewActivationService(repo activationRepository, assignments assignmentReader, metrics *MetricsService, audit *AuditTrailService, validate *validator.Validate, logger *zap.Logger) *ActivationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivationService{
		repo:        repo,
		assignments: assignments,
		metrics:     metrics,
		audit:       audit,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *ActivationService) WithClock(now func() time.Time) *ActivationService {
	s.now = now
	return s
}

func (s *ActivationService) lockFor(studentID, assignmentID string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(studentID+":"+assignmentID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Toggle flips the activation state of a student's subject assignment.
// A request for the state the pair is already in is rejected as a no-op
// before anything is persisted.
func (s *ActivationService) Toggle(ctx context.Context, studentID, assignmentID, actorID string, req ToggleActivationRequest) (*models.ActivationRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activation payload")
	}
	desired := *req.Active

	assignment, err := s.assignments.FindAssignmentByID(ctx, assignmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject assignment")
	}
	if assignment.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject assignment not found for student")
	}

	lock := s.lockFor(studentID, assignmentID)
	lock.Lock()
	defer lock.Unlock()

	for attempt := 0; ; attempt++ {
		rec, created, err := s.loadOrInit(ctx, studentID, assignmentID)
		if err != nil {
			return nil, err
		}
		if err := ledger.Toggle(rec, desired, actorID, req.Reason, s.now()); err != nil {
			return nil, err
		}
		if created {
			err = s.repo.Insert(ctx, rec)
		} else {
			err = s.repo.Update(ctx, rec)
		}
		if err == nil {
			s.metrics.RecordActivationToggle(desired)
			s.recordAudit(actorID, rec, desired, req.Reason)
			return rec, nil
		}
		if errors.Is(err, repository.ErrVersionConflict) && attempt == 0 {
			s.metrics.RecordLedgerConflict()
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist activation record")
	}
}

// Status reports whether the pair is active, synthesizing the default
// record for pairs that were never toggled.
func (s *ActivationService) Status(ctx context.Context, studentID, assignmentID string) (*models.ActivationRecord, error) {
	rec, err := s.repo.Get(ctx, studentID, assignmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.NewActivationRecord(studentID, assignmentID), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activation record")
	}
	return rec, nil
}

// ListByStudent returns all persisted activation records for a student.
// Assignments never toggled have no record and are implicitly active.
func (s *ActivationService) ListByStudent(ctx context.Context, studentID string) ([]models.ActivationRecord, error) {
	records, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activation records")
	}
	return records, nil
}

func (s *ActivationService) loadOrInit(ctx context.Context, studentID, assignmentID string) (*models.ActivationRecord, bool, error) {
	rec, err := s.repo.Get(ctx, studentID, assignmentID)
	if err == nil {
		return rec, false, nil
	}
	if err == sql.ErrNoRows {
		return models.NewActivationRecord(studentID, assignmentID), true, nil
	}
	return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activation record")
}

func (s *ActivationService) recordAudit(actorID string, rec *models.ActivationRecord, active bool, reason string) {
	if s.audit == nil {
		return
	}
	payload := map[string]interface{}{
		"student_id":            rec.StudentID,
		"subject_assignment_id": rec.SubjectAssignmentID,
		"active":                active,
	}
	if reason != "" {
		payload["reason"] = reason
	}
	s.audit.Record(&actorID, models.AuditActionActivationToggle, "activation", &rec.ID, payload)
}
