package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edu-portal-api/internal/models"
)

// StaffRepository manages persistence for staff records.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs a StaffRepository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// List returns staff matching the provided filters.
func (r *StaffRepository) List(ctx context.Context, filter models.StaffFilter) ([]models.StaffDetail, int, error) {
	base := "FROM staff st LEFT JOIN status_records sr ON sr.entity_type = $1 AND sr.entity_id = st.id"
	args := []interface{}{models.EntityStaff}
	conditions := []string{"1=1"}

	if filter.Position != "" {
		conditions = append(conditions, fmt.Sprintf("st.position = $%d", len(args)+1))
		args = append(args, filter.Position)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("st.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(st.full_name) LIKE $%d OR LOWER(st.nip) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":  "st.full_name",
		"nip":        "st.nip",
		"created_at": "st.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "st.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT st.id, st.nip, st.full_name, st.email, st.phone, st.position, st.active, st.created_at, st.updated_at, sr.current_status
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var staff []models.StaffDetail
	if err := r.db.SelectContext(ctx, &staff, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list staff: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count staff: %w", err)
	}
	return staff, total, nil
}

// FindByID fetches a staff detail by ID.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.StaffDetail, error) {
	const query = `SELECT st.id, st.nip, st.full_name, st.email, st.phone, st.position, st.active, st.created_at, st.updated_at, sr.current_status
        FROM staff st
        LEFT JOIN status_records sr ON sr.entity_type = $2 AND sr.entity_id = st.id
        WHERE st.id = $1`
	var detail models.StaffDetail
	if err := r.db.GetContext(ctx, &detail, query, id, models.EntityStaff); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByNIP checks if a staff member with the NIP exists, optionally excluding an ID.
func (r *StaffRepository) ExistsByNIP(ctx context.Context, nip, excludeID string) (bool, error) {
	query := "SELECT 1 FROM staff WHERE nip = $1"
	args := []interface{}{nip}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check nip: %w", err)
	}
	return true, nil
}

// Create inserts a new staff record.
func (r *StaffRepository) Create(ctx context.Context, staff *models.Staff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if staff.CreatedAt.IsZero() {
		staff.CreatedAt = now
	}
	staff.UpdatedAt = now
	const query = `INSERT INTO staff (id, nip, full_name, email, phone, position, active, created_at, updated_at)
        VALUES (:id, :nip, :full_name, :email, :phone, :position, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, staff); err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

// Update modifies an existing staff record.
func (r *StaffRepository) Update(ctx context.Context, staff *models.Staff) error {
	staff.UpdatedAt = time.Now().UTC()
	const query = `UPDATE staff SET nip = :nip, full_name = :full_name, email = :email, phone = :phone, position = :position, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, staff); err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	return nil
}

// Deactivate marks a staff member as inactive.
func (r *StaffRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE staff SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate staff: %w", err)
	}
	return nil
}
