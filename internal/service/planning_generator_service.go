package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/blocops/bloc-planning-api/internal/dto"
	"github.com/blocops/bloc-planning-api/internal/models"
	appErrors "github.com/blocops/bloc-planning-api/pkg/errors"
	"github.com/blocops/bloc-planning-api/pkg/events"
)

const maxGenerationRangeDays = 92

type templateSource interface {
	ListActive(ctx context.Context, siteID string, ids []string) ([]models.PlanningTemplate, error)
}

type absenceSource interface {
	ListApprovedInRange(ctx context.Context, staffIDs, surgeonIDs []string, from, to time.Time) ([]models.Absence, error)
}

type planningStore interface {
	ListBySiteAndRange(ctx context.Context, siteID string, from, to time.Time) ([]models.DayPlanning, error)
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, plannings []models.DayPlanning) error
	TouchRegenerated(ctx context.Context, exec sqlx.ExtContext, ids []string) error
}

type roomAssignmentStore interface {
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, assignments []models.RoomAssignment) error
	DeleteByPlanningIDs(ctx context.Context, exec sqlx.ExtContext, planningIDs []string) error
}

type staffAssignmentStore interface {
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, assignments []models.StaffAssignment) error
	DeleteByPlanningIDs(ctx context.Context, exec sqlx.ExtContext, planningIDs []string) error
}

type conflictStore interface {
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, conflicts []models.PlanningConflict) error
	DeleteByPlanningIDs(ctx context.Context, exec sqlx.ExtContext, planningIDs []string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type eventPublisher interface {
	Publish(name string, payload map[string]interface{})
}

// PlanningGeneratorService expands weekly templates into dated day plannings.
type PlanningGeneratorService struct {
	templates templateSource
	absences  absenceSource
	plannings planningStore
	rooms     roomAssignmentStore
	staff     staffAssignmentStore
	conflicts conflictStore
	detector  ConflictDetector
	tx        txProvider
	cache     *CacheService
	events    eventPublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPlanningGeneratorService wires generator dependencies.
func NewPlanningGeneratorService(
	templates templateSource,
	absences absenceSource,
	plannings planningStore,
	rooms roomAssignmentStore,
	staff staffAssignmentStore,
	conflicts conflictStore,
	detector ConflictDetector,
	tx txProvider,
	cache *CacheService,
	bus eventPublisher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *PlanningGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if detector == nil {
		detector = NewConflictDetector()
	}
	return &PlanningGeneratorService{
		templates: templates,
		absences:  absences,
		plannings: plannings,
		rooms:     rooms,
		staff:     staff,
		conflicts: conflicts,
		detector:  detector,
		tx:        tx,
		cache:     cache,
		events:    bus,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// dayDraft accumulates the entities for one date before persistence.
type dayDraft struct {
	planning    models.DayPlanning
	isNew       bool
	assignments []models.RoomAssignment
	conflicts   []models.PlanningConflict
}

// Generate expands the site's active templates over the inclusive date range,
// filters out absent people, detects conflicts and persists everything in a
// single transaction. Plannings that left DRAFT are never touched.
func (s *PlanningGeneratorService) Generate(ctx context.Context, req dto.GeneratePlanningRequest) (*dto.GeneratePlanningResponse, error) {
	started := time.Now()
	resp, err := s.generate(ctx, req)
	if err != nil {
		s.metrics.RecordGeneration("error", 0, time.Since(started))
		return nil, err
	}
	written := resp.Summary.PlanningsCreated + resp.Summary.PlanningsRegenerated
	s.metrics.RecordGeneration("success", written, time.Since(started))
	return resp, nil
}

func (s *PlanningGeneratorService) generate(ctx context.Context, req dto.GeneratePlanningRequest) (*dto.GeneratePlanningResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	from, to, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	templates, err := s.templates.ListActive(ctx, req.SiteID, req.TemplateIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load templates")
	}
	if len(templates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active templates for this site")
	}

	existing, err := s.plannings.ListBySiteAndRange(ctx, req.SiteID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing plannings")
	}
	existingByDate := make(map[string]models.DayPlanning, len(existing))
	for _, p := range existing {
		existingByDate[models.DateKey(p.Date)] = p
	}

	// Resolve which template slot wins each (room, period) cell per date
	// before touching absences, so one bulk read covers the whole range.
	type daySelection struct {
		date  time.Time
		slots []models.TemplateSlot
	}
	var selections []daySelection
	staffIDs := make(map[string]struct{})
	surgeonIDs := make(map[string]struct{})
	summary := dto.GenerationSummary{}

	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		if prev, ok := existingByDate[models.DateKey(date)]; ok && !prev.Status.Regenerable() {
			summary.PlanningsSkipped++
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("planning for %s is %s, skipped", models.DateKey(date), prev.Status))
			continue
		}
		slots := selectSlots(templates, date)
		if len(slots) == 0 {
			continue
		}
		selections = append(selections, daySelection{date: date, slots: slots})
		for _, slot := range slots {
			if slot.StaffID != nil {
				staffIDs[*slot.StaffID] = struct{}{}
			}
			if slot.SurgeonID != nil {
				surgeonIDs[*slot.SurgeonID] = struct{}{}
			}
		}
	}

	absences, err := s.absences.ListApprovedInRange(ctx, keys(staffIDs), keys(surgeonIDs), from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absences")
	}
	index := NewAbsenceIndex(absences)

	now := time.Now().UTC()
	var drafts []dayDraft
	var regenerateIDs []string

	for _, sel := range selections {
		draft := dayDraft{isNew: true}
		if prev, ok := existingByDate[models.DateKey(sel.date)]; ok {
			draft.planning = prev
			draft.planning.UpdatedAt = now
			draft.isNew = false
			regenerateIDs = append(regenerateIDs, prev.ID)
			summary.PlanningsRegenerated++
		} else {
			draft.planning = models.DayPlanning{
				ID:        uuid.NewString(),
				SiteID:    req.SiteID,
				Date:      sel.date,
				Status:    models.PlanningStatusDraft,
				CreatedAt: now,
				UpdatedAt: now,
			}
			summary.PlanningsCreated++
		}

		for _, slot := range sel.slots {
			slot := slot
			room := models.RoomAssignment{
				ID:                uuid.NewString(),
				DayPlanningID:     draft.planning.ID,
				RoomID:            *slot.RoomID,
				Period:            slot.Period,
				ExpectedSpecialty: slot.ExpectedSpecialty,
				SourceSlotID:      &slot.ID,
				CreatedAt:         now,
			}

			if slot.SurgeonID != nil {
				if index.SurgeonAbsent(*slot.SurgeonID, sel.date) {
					draft.conflicts = append(draft.conflicts, absenceConflict(draft.planning.ID,
						fmt.Sprintf("surgeon %s is absent on %s, room %s left without surgeon",
							*slot.SurgeonID, models.DateKey(sel.date), room.RoomID), now))
				} else {
					room.SurgeonID = slot.SurgeonID
				}
			}

			if slot.StaffID != nil {
				if index.StaffAbsent(*slot.StaffID, sel.date) {
					draft.conflicts = append(draft.conflicts, absenceConflict(draft.planning.ID,
						fmt.Sprintf("staff %s is absent on %s, room %s left unstaffed",
							*slot.StaffID, models.DateKey(sel.date), room.RoomID), now))
				} else {
					room.StaffAssignments = append(room.StaffAssignments, models.StaffAssignment{
						ID:                   uuid.NewString(),
						RoomAssignmentID:     room.ID,
						StaffID:              *slot.StaffID,
						Role:                 slot.StaffRole,
						IsPrimaryAnesthetist: slot.StaffRole == models.StaffRoleAnesthetist,
						CreatedAt:            now,
					})
				}
			}

			draft.assignments = append(draft.assignments, room)
		}

		draft.conflicts = append(draft.conflicts,
			s.detector.Detect(sel.date, draft.planning.ID, draft.assignments)...)
		drafts = append(drafts, draft)
	}

	if err := s.persist(ctx, drafts, regenerateIDs, &summary); err != nil {
		return nil, err
	}

	if s.cache != nil {
		for _, pattern := range []string{planningCachePattern(req.SiteID), "plannings:id:*"} {
			if err := s.cache.Invalidate(ctx, pattern); err != nil {
				s.logger.Warn("planning cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
			}
		}
	}

	if s.events != nil {
		s.events.Publish(events.PlanningGenerated, map[string]interface{}{
			"site_id":      req.SiteID,
			"start_date":   req.StartDate,
			"end_date":     req.EndDate,
			"created":      summary.PlanningsCreated,
			"regenerated":  summary.PlanningsRegenerated,
			"skipped":      summary.PlanningsSkipped,
			"initiator_id": req.InitiatorID,
		})
	}

	plannings := make([]models.DayPlanning, 0, len(drafts))
	for _, draft := range drafts {
		planning := draft.planning
		planning.Assignments = draft.assignments
		planning.Conflicts = draft.conflicts
		plannings = append(plannings, planning)
	}

	s.logger.Info("planning generation completed",
		zap.String("site_id", req.SiteID),
		zap.Int("created", summary.PlanningsCreated),
		zap.Int("regenerated", summary.PlanningsRegenerated),
		zap.Int("skipped", summary.PlanningsSkipped),
		zap.Int("conflicts", summary.ConflictsRecorded))

	return &dto.GeneratePlanningResponse{Plannings: plannings, Summary: summary}, nil
}

func (s *PlanningGeneratorService) persist(ctx context.Context, drafts []dayDraft, regenerateIDs []string, summary *dto.GenerationSummary) error {
	if len(drafts) == 0 {
		return nil
	}
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	var newPlannings []models.DayPlanning
	var rooms []models.RoomAssignment
	var staff []models.StaffAssignment
	var conflicts []models.PlanningConflict
	for _, draft := range drafts {
		if draft.isNew {
			newPlannings = append(newPlannings, draft.planning)
		}
		for _, room := range draft.assignments {
			rooms = append(rooms, room)
			staff = append(staff, room.StaffAssignments...)
		}
		conflicts = append(conflicts, draft.conflicts...)
	}
	summary.RoomAssignmentsCreated = len(rooms)
	summary.StaffAssignmentsCreated = len(staff)
	summary.ConflictsRecorded = len(conflicts)

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.staff.DeleteByPlanningIDs(ctx, tx, regenerateIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear staff assignments")
	}
	if err = s.rooms.DeleteByPlanningIDs(ctx, tx, regenerateIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear room assignments")
	}
	if err = s.conflicts.DeleteByPlanningIDs(ctx, tx, regenerateIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear conflicts")
	}
	if err = s.plannings.BulkCreate(ctx, tx, newPlannings); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create plannings")
	}
	if err = s.plannings.TouchRegenerated(ctx, tx, regenerateIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to touch regenerated plannings")
	}
	if err = s.rooms.BulkCreate(ctx, tx, rooms); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room assignments")
	}
	if err = s.staff.BulkCreate(ctx, tx, staff); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create staff assignments")
	}
	if err = s.conflicts.BulkCreate(ctx, tx, conflicts); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create conflicts")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit generation")
	}
	return nil
}

// selectSlots resolves the slots applying to one date. Templates arrive in
// descending priority order; the first slot claiming a (room, period) cell
// wins, later templates cannot override it. Only operating-room slots with a
// room reference materialize; consultation and on-call slots never claim a cell.
func selectSlots(templates []models.PlanningTemplate, date time.Time) []models.TemplateSlot {
	var selected []models.TemplateSlot
	claimed := make(map[string]bool)
	for _, template := range templates {
		if !template.CoversDate(date) {
			continue
		}
		for _, slot := range template.Slots {
			if slot.Activity != models.ActivityOperatingRoom || slot.RoomID == nil || !slot.MatchesDate(date) {
				continue
			}
			key := *slot.RoomID + "|" + string(slot.Period)
			if claimed[key] {
				continue
			}
			claimed[key] = true
			selected = append(selected, slot)
		}
	}
	return selected
}

func absenceConflict(planningID, message string, now time.Time) models.PlanningConflict {
	return models.PlanningConflict{
		ID:            uuid.NewString(),
		DayPlanningID: planningID,
		Type:          models.ConflictAbsenceOverlap,
		Severity:      models.SeverityWarning,
		Message:       message,
		CreatedAt:     now,
	}
}

func parseDateRange(start, end string) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation("2006-01-02", start, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "startDate must be formatted as 2006-01-02")
	}
	to, err := time.ParseInLocation("2006-01-02", end, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "endDate must be formatted as 2006-01-02")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
	}
	if int(to.Sub(from).Hours()/24) >= maxGenerationRangeDays {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("date range must cover fewer than %d days", maxGenerationRangeDays))
	}
	return from, to, nil
}

func planningCachePattern(siteID string) string {
	return fmt.Sprintf("plannings:%s:*", siteID)
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
