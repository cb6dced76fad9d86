package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edu-portal-api/internal/models"
)

// ActivationRepository persists per-pair activation ledgers. Records
// are created lazily on the first toggle and never deleted.
type ActivationRepository struct {
	db *sqlx.DB
}

// NewActivationRepository constructs the repository.
func NewActivationRepository(db *sqlx.DB) *ActivationRepository {
	return &ActivationRepository{db: db}
}

const activationColumns = `id, student_id, subject_assignment_id, is_active,
        activation_history, deactivation_history, last_activated_at, last_deactivated_at,
        version, created_at, updated_at`

// Get returns the activation record for a pair, or sql.ErrNoRows for a
// never-toggled pair.
func (r *ActivationRepository) Get(ctx context.Context, studentID, assignmentID string) (*models.ActivationRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM activation_records WHERE student_id = $1 AND subject_assignment_id = $2`, activationColumns)
	var rec models.ActivationRecord
	if err := r.db.GetContext(ctx, &rec, query, studentID, assignmentID); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert stores the first activation record for a pair at version 1.
func (r *ActivationRepository) Insert(ctx context.Context, rec *models.ActivationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now
	const query = `INSERT INTO activation_records (id, student_id, subject_assignment_id, is_active,
        activation_history, deactivation_history, last_activated_at, last_deactivated_at, version, created_at, updated_at)
        VALUES (:id, :student_id, :subject_assignment_id, :is_active,
        :activation_history, :deactivation_history, :last_activated_at, :last_deactivated_at, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("insert activation record: %w", err)
	}
	return nil
}

// Update writes a toggled record back under an optimistic version
// check, returning ErrVersionConflict when a concurrent toggle won.
func (r *ActivationRepository) Update(ctx context.Context, rec *models.ActivationRecord) error {
	updatedAt := time.Now().UTC()
	const query = `UPDATE activation_records
        SET is_active = $2, activation_history = $3, deactivation_history = $4,
            last_activated_at = $5, last_deactivated_at = $6, version = version + 1, updated_at = $7
        WHERE id = $1 AND version = $8`
	res, err := r.db.ExecContext(ctx, query, rec.ID, rec.IsActive, rec.ActivationHistory, rec.DeactivationHistory,
		rec.LastActivatedAt, rec.LastDeactivatedAt, updatedAt, rec.Version)
	if err != nil {
		return fmt.Errorf("update activation record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update activation record: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	rec.Version++
	rec.UpdatedAt = updatedAt
	return nil
}

// ListByStudent returns all activation records for a student.
func (r *ActivationRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ActivationRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM activation_records WHERE student_id = $1 ORDER BY created_at`, activationColumns)
	var records []models.ActivationRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list activation records: %w", err)
	}
	return records, nil
}
