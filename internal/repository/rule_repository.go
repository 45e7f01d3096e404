package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/blocops/bloc-planning-api/internal/models"
)

// RuleRepository provides read access to externally defined scheduling rules.
type RuleRepository struct {
	db *sqlx.DB
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListActiveByTypes returns active rules of the given types ordered by
// descending priority.
func (r *RuleRepository) ListActiveByTypes(ctx context.Context, types []models.RuleType) ([]models.Rule, error) {
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}
	const query = `SELECT id, name, type, priority, is_active, created_at
		FROM rules
		WHERE is_active = TRUE AND type = ANY($1)
		ORDER BY priority DESC, id ASC`
	var rules []models.Rule
	if err := r.db.SelectContext(ctx, &rules, query, pq.Array(typeNames)); err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	return rules, nil
}

// ListByIDs returns the rules with the given ids, active or not, ordered by
// descending priority.
func (r *RuleRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Rule, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, name, type, priority, is_active, created_at
		FROM rules
		WHERE id = ANY($1)
		ORDER BY priority DESC, id ASC`
	var rules []models.Rule
	if err := r.db.SelectContext(ctx, &rules, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list rules by ids: %w", err)
	}
	return rules, nil
}
