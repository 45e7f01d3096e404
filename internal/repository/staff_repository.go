package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/blocops/bloc-planning-api/internal/models"
)

// StaffRepository provides read access to staff members.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository creates a new staff repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// ListByIDs returns the staff members with the given ids.
func (r *StaffRepository) ListByIDs(ctx context.Context, ids []string) ([]models.StaffMember, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, first_name, last_name, role, is_active, preferences, created_at
		FROM staff_members
		WHERE id = ANY($1)
		ORDER BY last_name, first_name`
	var staff []models.StaffMember
	if err := r.db.SelectContext(ctx, &staff, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list staff by ids: %w", err)
	}
	return staff, nil
}
