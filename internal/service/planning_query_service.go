package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/blocops/bloc-planning-api/internal/dto"
	"github.com/blocops/bloc-planning-api/internal/models"
	appErrors "github.com/blocops/bloc-planning-api/pkg/errors"
)

type planningReader interface {
	ListDetailed(ctx context.Context, siteID string, from, to time.Time) ([]models.DayPlanning, error)
	GetByID(ctx context.Context, id string) (*models.DayPlanning, error)
}

// PlanningQueryService serves planning reads through the cache.
type PlanningQueryService struct {
	plannings planningReader
	cache     *CacheService
	logger    *zap.Logger
}

// NewPlanningQueryService wires read dependencies.
func NewPlanningQueryService(plannings planningReader, cache *CacheService, logger *zap.Logger) *PlanningQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanningQueryService{plannings: plannings, cache: cache, logger: logger}
}

// List returns detailed plannings for a site over an inclusive range,
// served from cache when possible.
func (s *PlanningQueryService) List(ctx context.Context, query dto.PlanningRangeQuery) ([]models.DayPlanning, error) {
	if query.SiteID == "" || query.From == "" || query.To == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "siteId, from and to are required")
	}
	from, to, err := parseDateRange(query.From, query.To)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("plannings:%s:%s:%s", query.SiteID, models.DateKey(from), models.DateKey(to))
	var cached []models.DayPlanning
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	plannings, err := s.plannings.ListDetailed(ctx, query.SiteID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list plannings")
	}
	if err := s.cache.Set(ctx, key, plannings, 0); err != nil {
		s.logger.Debug("planning list cache write failed", zap.String("key", key), zap.Error(err))
	}
	return plannings, nil
}

// Get returns one planning with children, served from cache when possible.
func (s *PlanningQueryService) Get(ctx context.Context, id string) (*models.DayPlanning, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "planning id is required")
	}

	key := fmt.Sprintf("plannings:id:%s", id)
	var cached models.DayPlanning
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	planning, err := s.plannings.GetByID(ctx, id)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrNotFound.Code {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "planning not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load planning")
	}
	if err := s.cache.Set(ctx, key, planning, 0); err != nil {
		s.logger.Debug("planning cache write failed", zap.String("key", key), zap.Error(err))
	}
	return planning, nil
}
