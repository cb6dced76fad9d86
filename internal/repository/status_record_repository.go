package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edu-portal-api/internal/models"
)

// ErrVersionConflict signals that an optimistic write lost the race:
// the row's version moved between read and write.
var ErrVersionConflict = errors.New("status record version conflict")

// StatusRecordRepository persists per-entity status ledgers. History is
// stored as a JSONB document next to the authoritative scalar; writes
// are guarded by an optimistic version check.
type StatusRecordRepository struct {
	db *sqlx.DB
}

// NewStatusRecordRepository constructs the repository.
func NewStatusRecordRepository(db *sqlx.DB) *StatusRecordRepository {
	return &StatusRecordRepository{db: db}
}

// Get returns the status record for an entity.
func (r *StatusRecordRepository) Get(ctx context.Context, entityType models.EntityType, entityID string) (*models.StatusRecord, error) {
	const query = `SELECT entity_type, entity_id, current_status, history, version, updated_at
        FROM status_records WHERE entity_type = $1 AND entity_id = $2`
	var rec models.StatusRecord
	if err := r.db.GetContext(ctx, &rec, query, entityType, entityID); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert stores a freshly initialised status record at version 1.
func (r *StatusRecordRepository) Insert(ctx context.Context, rec *models.StatusRecord) error {
	rec.Version = 1
	rec.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO status_records (entity_type, entity_id, current_status, history, version, updated_at)
        VALUES (:entity_type, :entity_id, :current_status, :history, :version, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("insert status record: %w", err)
	}
	return nil
}

// Update writes the mutated record back, succeeding only when the
// stored version matches the one the record was read at. On success the
// record's version is bumped; ErrVersionConflict otherwise.
func (r *StatusRecordRepository) Update(ctx context.Context, rec *models.StatusRecord) error {
	updatedAt := time.Now().UTC()
	const query = `UPDATE status_records
        SET current_status = $3, history = $4, version = version + 1, updated_at = $5
        WHERE entity_type = $1 AND entity_id = $2 AND version = $6`
	res, err := r.db.ExecContext(ctx, query, rec.EntityType, rec.EntityID, rec.CurrentStatus, rec.History, updatedAt, rec.Version)
	if err != nil {
		return fmt.Errorf("update status record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status record: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	rec.Version++
	rec.UpdatedAt = updatedAt
	return nil
}

// ListByStatus returns entity IDs currently recorded in the given state.
func (r *StatusRecordRepository) ListByStatus(ctx context.Context, entityType models.EntityType, status models.StatusState) ([]string, error) {
	const query = `SELECT entity_id FROM status_records WHERE entity_type = $1 AND current_status = $2 ORDER BY updated_at DESC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, entityType, status); err != nil {
		return nil, fmt.Errorf("list status records: %w", err)
	}
	return ids, nil
}
