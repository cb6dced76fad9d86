package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-portal-api/internal/models"
	"github.com/noah-isme/edu-portal-api/pkg/jobs"
)

type auditLogWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditTrailService persists audit entries asynchronously so ledger
// writes never wait on the audit table.
type AuditTrailService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditTrailService builds the service and its backing queue. Call
// Start before recording and Stop on shutdown.
func NewAuditTrailService(repo auditLogWriter, cfg jobs.QueueConfig, logger *zap.Logger) *AuditTrailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		entry, ok := job.Payload.(*models.AuditLog)
		if !ok {
			logger.Warn("audit job carried unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		return repo.CreateAuditLog(ctx, entry)
	}
	return &AuditTrailService{
		queue:  jobs.NewQueue("audit", handler, cfg),
		logger: logger,
	}
}

// Start spins up the queue workers.
func (s *AuditTrailService) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *AuditTrailService) Stop() {
	if s == nil {
		return
	}
	s.queue.Stop()
}

// Record enqueues an audit entry. payload is marshalled into the
// new_values column; marshal failures are logged and dropped rather
// than failing the caller.
func (s *AuditTrailService) Record(actorID *string, action, resource string, resourceID *string, payload interface{}) {
	if s == nil {
		return
	}
	var values []byte
	if payload != nil {
		var err error
		values, err = json.Marshal(payload)
		if err != nil {
			s.logger.Warn("failed to marshal audit payload", zap.String("action", action), zap.Error(err))
			values = nil
		}
	}
	s.RecordLog(&models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		NewValues:  values,
	})
}

// RecordLog enqueues a fully built audit entry.
func (s *AuditTrailService) RecordLog(entry *models.AuditLog) {
	if s == nil || entry == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: entry.Action, Payload: entry}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}
