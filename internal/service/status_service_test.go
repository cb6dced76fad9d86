package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-portal-api/internal/ledger"
	"github.com/noah-isme/edu-portal-api/internal/models"
	"github.com/noah-isme/edu-portal-api/internal/repository"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

type mockStatusRecordRepo struct {
	records   map[string]*models.StatusRecord
	inserted  int
	updated   int
	conflicts int
}

func statusKey(entityType models.EntityType, entityID string) string {
	return string(entityType) + ":" + entityID
}

func (m *mockStatusRecordRepo) Get(ctx context.Context, entityType models.EntityType, entityID string) (*models.StatusRecord, error) {
	if rec, ok := m.records[statusKey(entityType, entityID)]; ok {
		clone := *rec
		clone.History = models.StatusHistory{}
		for state, entries := range rec.History {
			clone.History[state] = append([]models.StatusEntry(nil), entries...)
		}
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStatusRecordRepo) Insert(ctx context.Context, rec *models.StatusRecord) error {
	if m.records == nil {
		m.records = make(map[string]*models.StatusRecord)
	}
	rec.Version = 1
	m.records[statusKey(rec.EntityType, rec.EntityID)] = rec
	m.inserted++
	return nil
}

func (m *mockStatusRecordRepo) Update(ctx context.Context, rec *models.StatusRecord) error {
	if m.conflicts > 0 {
		m.conflicts--
		return repository.ErrVersionConflict
	}
	rec.Version++
	m.records[statusKey(rec.EntityType, rec.EntityID)] = rec
	m.updated++
	return nil
}

func newStatusService(repo *mockStatusRecordRepo, now time.Time) *StatusService {
	svc := NewStatusService(repo, nil, nil, nil, validator.New(), zap.NewNop())
	return svc.WithClock(func() time.Time { return now })
}

func TestStatusServiceChangeStatusCreatesRecord(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &mockStatusRecordRepo{}
	svc := newStatusService(repo, now)

	overview, err := svc.ChangeStatus(context.Background(), models.EntityStudent, "s1", "admin", ledger.ChangeStatusRequest{Status: models.StatusTrial})
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrial, overview.CurrentStatus)
	assert.Equal(t, models.FreezePhaseNone, overview.FreezePhase)
	assert.Equal(t, 1, repo.inserted)

	rec := repo.records["STUDENT:s1"]
	require.NotNil(t, rec)
	require.Len(t, rec.History[models.StatusTrial], 1)
	assert.Nil(t, rec.History[models.StatusTrial][0].EndDate)
	assert.Equal(t, "admin", rec.History[models.StatusTrial][0].AddedBy.ActorID)
}

func TestStatusServiceChangeStatusClosesPrevious(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &mockStatusRecordRepo{}
	svc := newStatusService(repo, now)
	ctx := context.Background()

	_, err := svc.ChangeStatus(ctx, models.EntityStudent, "s1", "admin", ledger.ChangeStatusRequest{Status: models.StatusTrial})
	require.NoError(t, err)

	later := now.Add(48 * time.Hour)
	_, err = svc.ChangeStatus(ctx, models.EntityStudent, "s1", "admin", ledger.ChangeStatusRequest{Status: models.StatusRegular, Date: &later})
	require.NoError(t, err)

	rec := repo.records["STUDENT:s1"]
	require.Len(t, rec.History[models.StatusTrial], 1)
	require.NotNil(t, rec.History[models.StatusTrial][0].EndDate)
	assert.Equal(t, later, *rec.History[models.StatusTrial][0].EndDate)
	require.Len(t, rec.History[models.StatusRegular], 1)
	assert.Nil(t, rec.History[models.StatusRegular][0].EndDate)
	assert.Equal(t, models.StatusRegular, rec.CurrentStatus)
}

func TestStatusServiceReselectOpensFreshEntry(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &mockStatusRecordRepo{}
	svc := newStatusService(repo, now)
	ctx := context.Background()

	_, err := svc.ChangeStatus(ctx, models.EntityClient, "c1", "admin", ledger.ChangeStatusRequest{Status: models.StatusRegular})
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, models.EntityClient, "c1", "admin", ledger.ChangeStatusRequest{Status: models.StatusRegular})
	require.NoError(t, err)

	entries := repo.records["CLIENT:c1"].History[models.StatusRegular]
	require.Len(t, entries, 2)
	assert.NotNil(t, entries[0].EndDate)
	assert.Nil(t, entries[1].EndDate)
}

func TestStatusServiceBoundedFreezeOverview(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockStatusRecordRepo{}
	svc := newStatusService(repo, now)
	ctx := context.Background()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	overview, err := svc.ChangeStatus(ctx, models.EntityStudent, "s1", "admin", ledger.ChangeStatusRequest{Status: models.StatusFreeze, Date: &start, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFreeze, overview.CurrentStatus)
	assert.Equal(t, models.FreezePhaseScheduled, overview.FreezePhase)

	// After the end passes the phase completes; the stored scalar stays
	// FREEZE until someone applies the next transition.
	svc = newStatusService(repo, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC))
	overview, err = svc.Overview(ctx, models.EntityStudent, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.FreezePhaseCompleted, overview.FreezePhase)
	assert.Equal(t, models.StatusFreeze, overview.CurrentStatus)
}

func TestStatusServiceFreezeRequiresDate(t *testing.T) {
	repo := &mockStatusRecordRepo{}
	svc := newStatusService(repo, time.Now().UTC())

	_, err := svc.ChangeStatus(context.Background(), models.EntityStudent, "s1", "admin", ledger.ChangeStatusRequest{Status: models.StatusFreeze})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, repo.inserted)
}

func TestStatusServiceReferralPairing(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockStatusRecordRepo{}
	svc := newStatusService(repo, now)

	_, err := svc.ChangeStatus(context.Background(), models.EntityClient, "c1", "admin", ledger.ChangeStatusRequest{Status: models.StatusDrop, ReferralHandler: "partner"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// Students have no referral rule; the lone handler field passes.
	_, err = svc.ChangeStatus(context.Background(), models.EntityStudent, "s1", "admin", ledger.ChangeStatusRequest{Status: models.StatusDrop, ReferralHandler: "partner"})
	require.NoError(t, err)
}

func TestStatusServiceRetriesVersionConflict(t *testing.T) {
	now := time.Now().UTC()
	rec := models.NewStatusRecord(models.EntityStudent, "s1", models.StatusTrial)
	rec.Version = 3
	rec.History = models.StatusHistory{
		models.StatusTrial: {{Date: now.Add(-time.Hour), AddedBy: models.AuditStamp{ActorID: "admin", At: now.Add(-time.Hour)}}},
	}
	repo := &mockStatusRecordRepo{
		records:   map[string]*models.StatusRecord{"STUDENT:s1": rec},
		conflicts: 1,
	}
	svc := newStatusService(repo, now)

	overview, err := svc.ChangeStatus(context.Background(), models.EntityStudent, "s1", "admin", ledger.ChangeStatusRequest{Status: models.StatusRegular})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegular, overview.CurrentStatus)
	assert.Equal(t, 1, repo.updated)
}

func TestStatusServicePersistentConflictFails(t *testing.T) {
	now := time.Now().UTC()
	rec := models.NewStatusRecord(models.EntityStudent, "s1", models.StatusTrial)
	rec.History = models.StatusHistory{
		models.StatusTrial: {{Date: now.Add(-time.Hour), AddedBy: models.AuditStamp{ActorID: "admin", At: now.Add(-time.Hour)}}},
	}
	repo := &mockStatusRecordRepo{
		records:   map[string]*models.StatusRecord{"STUDENT:s1": rec},
		conflicts: 2,
	}
	svc := newStatusService(repo, now)

	_, err := svc.ChangeStatus(context.Background(), models.EntityStudent, "s1", "admin", ledger.ChangeStatusRequest{Status: models.StatusRegular})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestStatusServiceTimelineNotFound(t *testing.T) {
	repo := &mockStatusRecordRepo{}
	svc := newStatusService(repo, time.Now().UTC())

	_, err := svc.Timeline(context.Background(), models.EntityStaff, "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStatusServiceUnknownEntityType(t *testing.T) {
	repo := &mockStatusRecordRepo{}
	svc := newStatusService(repo, time.Now().UTC())

	_, err := svc.ChangeStatus(context.Background(), models.EntityType("PET"), "p1", "admin", ledger.ChangeStatusRequest{Status: models.StatusTrial})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
