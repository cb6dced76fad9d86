package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-portal-api/internal/ledger"
	"github.com/noah-isme/edu-portal-api/internal/models"
	"github.com/noah-isme/edu-portal-api/internal/repository"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

type statusRecordRepository interface {
	Get(ctx context.Context, entityType models.EntityType, entityID string) (*models.StatusRecord, error)
	Insert(ctx context.Context, rec *models.StatusRecord) error
	Update(ctx context.Context, rec *models.StatusRecord) error
}

// referralStates names, per entity type, the target states whose
// transitions carry referral fields.
var referralStates = map[models.EntityType]map[models.StatusState]bool{
	models.EntityClient: {models.StatusDrop: true},
}

// StatusService applies status transitions to entity ledgers and serves
// timeline reads. Writes to the same entity are serialized through a
// per-entity mutex; concurrent writers from other instances are caught
// by the record version check and retried once.
type StatusService struct {
	repo      statusRecordRepository
	cache     *CacheService
	metrics   *MetricsService
	audit     *AuditTrailService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	locks sync.Map
}

// NewStatusService constructs StatusService.
func NewStatusService(repo statusRecordRepository, cache *CacheService, metrics *MetricsService, audit *AuditTrailService, validate *validator.Validate, logger *zap.Logger) *StatusService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *StatusService) WithClock(now func() time.Time) *StatusService {
	s.now = now
	return s
}

func (s *StatusService) lockFor(entityType models.EntityType, entityID string) *sync.Mutex {
	key := string(entityType) + ":" + entityID
	v, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func timelineCacheKey(entityType models.EntityType, entityID string) string {
	return fmt.Sprintf("status:%s:%s:timeline", entityType, entityID)
}

// ChangeStatus validates and applies a status transition for an entity,
// closing whatever period is currently in progress before opening the
// new one. The returned overview reflects the persisted record.
func (s *StatusService) ChangeStatus(ctx context.Context, entityType models.EntityType, entityID, actorID string, req ledger.ChangeStatusRequest) (*models.StatusOverview, error) {
	if !entityType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown entity type "+string(entityType))
	}
	if entityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entity id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if err := ledger.ValidateTransition(req, referralStates[entityType]); err != nil {
		return nil, err
	}

	lock := s.lockFor(entityType, entityID)
	lock.Lock()
	defer lock.Unlock()

	var rec *models.StatusRecord
	var prev models.StatusState
	for attempt := 0; ; attempt++ {
		var created bool
		var err error
		rec, created, err = s.loadOrInit(ctx, entityType, entityID, req.Status)
		if err != nil {
			return nil, err
		}
		prev = rec.CurrentStatus
		if err := s.applyTransition(rec, req, actorID); err != nil {
			return nil, err
		}
		if created {
			err = s.repo.Insert(ctx, rec)
		} else {
			err = s.repo.Update(ctx, rec)
		}
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrVersionConflict) && attempt == 0 {
			s.metrics.RecordLedgerConflict()
			s.logger.Debug("status record version conflict, retrying",
				zap.String("entity_type", string(entityType)),
				zap.String("entity_id", entityID))
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist status record")
	}

	s.metrics.RecordStatusTransition(entityType, req.Status)
	s.invalidateTimeline(ctx, entityType, entityID)
	s.recordAudit(actorID, entityType, entityID, prev, req)

	overview := s.overviewOf(rec)
	return &overview, nil
}

func (s *StatusService) loadOrInit(ctx context.Context, entityType models.EntityType, entityID string, status models.StatusState) (*models.StatusRecord, bool, error) {
	rec, err := s.repo.Get(ctx, entityType, entityID)
	if err == nil {
		return rec, false, nil
	}
	if err == sql.ErrNoRows {
		return models.NewStatusRecord(entityType, entityID, status), true, nil
	}
	return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status record")
}

// applyTransition mutates rec in memory. The open period of the current
// status, freeze included, is closed at the transition date; re-selecting
// the same status therefore closes the running period and opens a fresh
// one.
func (s *StatusService) applyTransition(rec *models.StatusRecord, req ledger.ChangeStatusRequest, actorID string) error {
	now := s.now()
	date := req.EffectiveDate(now)

	if prev := rec.CurrentStatus; prev.Valid() {
		if open := ledger.CurrentOpen(rec, prev); open != nil {
			var err error
			if prev == models.StatusFreeze {
				_, err = ledger.EndFreeze(rec, &date, actorID, now)
			} else {
				_, err = ledger.Close(rec, prev, date, actorID, now)
			}
			if err != nil {
				return err
			}
		}
	}

	if req.Status == models.StatusFreeze {
		if _, err := ledger.BeginFreeze(rec, date, req.EndDate, actorID, now); err != nil {
			return err
		}
		return nil
	}

	if _, err := ledger.Open(rec, req.Status, date, actorID, now); err != nil {
		return err
	}
	rec.CurrentStatus = req.Status
	return nil
}

// Timeline returns the full status record, served from cache when a
// write has not invalidated it. Freeze phase is never part of this
// payload; derive it through Overview.
func (s *StatusService) Timeline(ctx context.Context, entityType models.EntityType, entityID string) (*models.StatusRecord, error) {
	if !entityType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown entity type "+string(entityType))
	}
	key := timelineCacheKey(entityType, entityID)
	if s.cache != nil && s.cache.Enabled() {
		var cached models.StatusRecord
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}
	rec, err := s.repo.Get(ctx, entityType, entityID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "status record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status record")
	}
	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, rec, 0); err != nil {
			s.logger.Debug("failed to cache status timeline", zap.Error(err))
		}
	}
	return rec, nil
}

// Overview derives the freeze phase and human-readable span against the
// current clock. The derivation is always computed fresh; only the
// underlying record may come from cache.
func (s *StatusService) Overview(ctx context.Context, entityType models.EntityType, entityID string) (*models.StatusOverview, error) {
	rec, err := s.Timeline(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	overview := s.overviewOf(rec)
	return &overview, nil
}

func (s *StatusService) overviewOf(rec *models.StatusRecord) models.StatusOverview {
	now := s.now()
	overview := models.StatusOverview{
		EntityType:    rec.EntityType,
		EntityID:      rec.EntityID,
		CurrentStatus: rec.CurrentStatus,
		FreezePhase:   ledger.DerivePhase(rec, now),
		UpdatedAt:     rec.UpdatedAt,
	}
	if entry := ledger.LatestFreeze(rec); entry != nil {
		overview.FreezeEntry = entry
		overview.FreezeSpan = ledger.FormatSpan(*entry, now)
	}
	return overview
}

func (s *StatusService) invalidateTimeline(ctx context.Context, entityType models.EntityType, entityID string) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, timelineCacheKey(entityType, entityID)); err != nil {
		s.logger.Warn("failed to invalidate status timeline cache",
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

func (s *StatusService) recordAudit(actorID string, entityType models.EntityType, entityID string, prev models.StatusState, req ledger.ChangeStatusRequest) {
	if s.audit == nil {
		return
	}
	action := models.AuditActionStatusChange
	switch {
	case req.Status == models.StatusFreeze:
		action = models.AuditActionFreezeBegin
	case prev == models.StatusFreeze:
		action = models.AuditActionFreezeEnd
	}
	payload := map[string]interface{}{
		"entity_type": entityType,
		"status":      req.Status,
	}
	if req.Date != nil {
		payload["date"] = req.Date
	}
	if req.EndDate != nil {
		payload["end_date"] = req.EndDate
	}
	if req.ReferralHandler != "" {
		payload["referral_handler"] = req.ReferralHandler
		payload["referral_date"] = req.ReferralDate
	}
	s.audit.Record(&actorID, action, string(entityType), &entityID, payload)
}
