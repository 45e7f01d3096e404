package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/jmoiron/sqlx"

	"github.com/blocops/bloc-planning-api/internal/models"
)

// TemplateRepository provides read access to weekly planning templates.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// ListActive returns active templates for a site with their slots attached,
// ordered by descending priority. When ids is non-empty the result is
// restricted to those templates.
func (r *TemplateRepository) ListActive(ctx context.Context, siteID string, ids []string) ([]models.PlanningTemplate, error) {
	var templates []models.PlanningTemplate
	if len(ids) > 0 {
		const query = `SELECT id, site_id, name, priority, is_active, effective_from, effective_to, created_at, updated_at
			FROM planning_templates
			WHERE site_id = $1 AND is_active = TRUE AND id = ANY($2)
			ORDER BY priority DESC, id ASC`
		if err := r.db.SelectContext(ctx, &templates, query, siteID, pq.Array(ids)); err != nil {
			return nil, fmt.Errorf("list templates by ids: %w", err)
		}
	} else {
		const query = `SELECT id, site_id, name, priority, is_active, effective_from, effective_to, created_at, updated_at
			FROM planning_templates
			WHERE site_id = $1 AND is_active = TRUE
			ORDER BY priority DESC, id ASC`
		if err := r.db.SelectContext(ctx, &templates, query, siteID); err != nil {
			return nil, fmt.Errorf("list active templates: %w", err)
		}
	}
	if len(templates) == 0 {
		return templates, nil
	}

	templateIDs := make([]string, 0, len(templates))
	for _, t := range templates {
		templateIDs = append(templateIDs, t.ID)
	}

	const slotQuery = `SELECT id, template_id, day_of_week, week_parity, period, activity, room_id, surgeon_id, staff_id, staff_role, expected_specialty, is_active
		FROM template_slots
		WHERE template_id = ANY($1) AND is_active = TRUE
		ORDER BY template_id, day_of_week, period`
	var slots []models.TemplateSlot
	if err := r.db.SelectContext(ctx, &slots, slotQuery, pq.Array(templateIDs)); err != nil {
		return nil, fmt.Errorf("list template slots: %w", err)
	}

	byTemplate := make(map[string][]models.TemplateSlot, len(templates))
	for _, slot := range slots {
		byTemplate[slot.TemplateID] = append(byTemplate[slot.TemplateID], slot)
	}
	for i := range templates {
		templates[i].Slots = byTemplate[templates[i].ID]
	}
	return templates, nil
}
