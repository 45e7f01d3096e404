package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/blocops/bloc-planning-api/internal/models"
)

// AbsenceRepository provides read access to approved absences.
type AbsenceRepository struct {
	db *sqlx.DB
}

// NewAbsenceRepository creates a new absence repository.
func NewAbsenceRepository(db *sqlx.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// ListApprovedInRange returns all approved absences overlapping [from, to]
// for the given staff and surgeon id sets in a single query. Empty id sets
// yield an empty result without touching the database.
func (r *AbsenceRepository) ListApprovedInRange(ctx context.Context, staffIDs, surgeonIDs []string, from, to time.Time) ([]models.Absence, error) {
	if len(staffIDs) == 0 && len(surgeonIDs) == 0 {
		return nil, nil
	}

	const query = `SELECT id, staff_id, surgeon_id, start_date, end_date, status, created_at
		FROM absences
		WHERE status = $1
		  AND start_date <= $2 AND end_date >= $3
		  AND (staff_id = ANY($4) OR surgeon_id = ANY($5))
		ORDER BY start_date ASC`

	var absences []models.Absence
	if err := r.db.SelectContext(ctx, &absences, query,
		models.AbsenceStatusApproved, to, from, pq.Array(staffIDs), pq.Array(surgeonIDs)); err != nil {
		return nil, fmt.Errorf("list approved absences: %w", err)
	}
	return absences, nil
}
