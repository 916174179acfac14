package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/database"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type timetableRepository interface {
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	FindByKey(ctx context.Context, termID, classGroupID, classID string) (*models.Timetable, error)
	List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error)
	CreateWithChildren(ctx context.Context, timetable *models.Timetable, periods []models.Period, breakTimes []models.BreakTime) error
	Delete(ctx context.Context, id string) error
	ListBreakTimes(ctx context.Context, timetableID string) ([]models.BreakTime, error)
}

type timetablePeriodReader interface {
	ListByTimetable(ctx context.Context, timetableID string) ([]models.Period, error)
}

type timetableLookupRepository interface {
	TermExists(ctx context.Context, id string) (bool, error)
	ClassGroupExists(ctx context.Context, id string) (bool, error)
	ClassExists(ctx context.Context, id string) (bool, error)
	SubjectExists(ctx context.Context, id string) (bool, error)
	ClassroomExists(ctx context.Context, id string) (bool, error)
	TeacherProfileExists(ctx context.Context, id string) (bool, error)
}

// TimetablePeriodInput is one period definition inside a timetable draft.
// The teacher id here is the teacher-profile id; batch callers are expected
// to have resolved user accounts already.
type TimetablePeriodInput struct {
	DayOfWeek       int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=1,max=240"`
	SubjectID       string `json:"subject_id" validate:"required"`
	TeacherID       string `json:"teacher_id" validate:"required"`
	ClassroomID     string `json:"classroom_id" validate:"required"`
}

// TimetableBreakInput is one break-time definition inside a timetable draft.
type TimetableBreakInput struct {
	DayOfWeek int              `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime string           `json:"start_time" validate:"required"`
	EndTime   string           `json:"end_time" validate:"required"`
	Type      models.BreakType `json:"type" validate:"required,oneof=SHORT_BREAK LUNCH_BREAK"`
}

// CreateTimetableRequest describes a full timetable draft for one
// (term, class group, class) triple.
type CreateTimetableRequest struct {
	TermID       string                 `json:"term_id" validate:"required"`
	ClassGroupID string                 `json:"class_group_id" validate:"required"`
	ClassID      string                 `json:"class_id" validate:"required"`
	Periods      []TimetablePeriodInput `json:"periods" validate:"dive"`
	BreakTimes   []TimetableBreakInput  `json:"break_times" validate:"dive"`
}

// TimetableService builds and tears down whole timetables. Creation persists
// an already-validated batch atomically; it does not re-run the conflict
// detector. Callers check availability per period before submitting.
type TimetableService struct {
	repo      timetableRepository
	periods   timetablePeriodReader
	lookups   timetableLookupRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService instantiates TimetableService.
func NewTimetableService(repo timetableRepository, periods timetablePeriodReader, lookups timetableLookupRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{repo: repo, periods: periods, lookups: lookups, cache: cache, validator: validate, logger: logger}
}

// Create persists a timetable with its periods and break times in one
// composite write. Re-invoking for an existing (term, class group, class)
// key is an upsert no-op: the stored timetable is returned untouched and the
// supplied children are ignored. Period replacement goes through the bulk
// replace path instead.
func (s *TimetableService) Create(ctx context.Context, req CreateTimetableRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}

	periods := make([]models.Period, 0, len(req.Periods))
	for _, item := range req.Periods {
		window, err := resolvePeriodWindow(item.StartTime, item.EndTime, item.DurationMinutes)
		if err != nil {
			return nil, err
		}
		periods = append(periods, models.Period{
			DayOfWeek:        item.DayOfWeek,
			StartTime:        window.Start,
			EndTime:          window.End,
			DurationMinutes:  window.Duration,
			SubjectID:        item.SubjectID,
			TeacherProfileID: item.TeacherID,
			ClassroomID:      item.ClassroomID,
		})
	}

	breakTimes := make([]models.BreakTime, 0, len(req.BreakTimes))
	for _, item := range req.BreakTimes {
		start, end, err := validateBreakWindow(item.StartTime, item.EndTime)
		if err != nil {
			return nil, err
		}
		breakTimes = append(breakTimes, models.BreakTime{
			DayOfWeek: item.DayOfWeek,
			StartTime: start,
			EndTime:   end,
			Type:      item.Type,
		})
	}

	if err := s.ensureReferences(ctx, req); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByKey(ctx, req.TermID, req.ClassGroupID, req.ClassID)
	if err == nil {
		return s.withChildren(ctx, existing)
	}
	if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	timetable := &models.Timetable{
		TermID:       req.TermID,
		ClassGroupID: req.ClassGroupID,
		ClassID:      req.ClassID,
	}
	if err := s.repo.CreateWithChildren(ctx, timetable, periods, breakTimes); err != nil {
		if database.IsConstraintConflict(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "timetable periods conflict with an existing schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}

	s.cache.InvalidateSchedules(ctx)

	timetable.Periods = periods
	timetable.BreakTimes = breakTimes
	return timetable, nil
}

// Get returns a timetable with its periods and break times.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	timetable, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return s.withChildren(ctx, timetable)
}

// List returns timetables plus pagination data. Children are omitted from
// list views.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, *models.Pagination, error) {
	timetables, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return timetables, pagination, nil
}

// Delete removes a timetable and, through the schema's cascade rules, every
// period and break time it owns.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.cache.InvalidateSchedules(ctx)
	return nil
}

func (s *TimetableService) withChildren(ctx context.Context, timetable *models.Timetable) (*models.Timetable, error) {
	periods, err := s.periods.ListByTimetable(ctx, timetable.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable periods")
	}
	breaks, err := s.repo.ListBreakTimes(ctx, timetable.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable break times")
	}
	timetable.Periods = periods
	timetable.BreakTimes = breaks
	return timetable, nil
}

func (s *TimetableService) ensureReferences(ctx context.Context, req CreateTimetableRequest) error {
	checks := []struct {
		name   string
		id     string
		exists func(context.Context, string) (bool, error)
	}{
		{"term", req.TermID, s.lookups.TermExists},
		{"class group", req.ClassGroupID, s.lookups.ClassGroupExists},
		{"class", req.ClassID, s.lookups.ClassExists},
	}
	for _, check := range checks {
		ok, err := check.exists(ctx, check.id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to check %s", check.name))
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", check.name, check.id))
		}
	}

	for _, item := range req.Periods {
		refs := []struct {
			name   string
			id     string
			exists func(context.Context, string) (bool, error)
		}{
			{"subject", item.SubjectID, s.lookups.SubjectExists},
			{"teacher profile", item.TeacherID, s.lookups.TeacherProfileExists},
			{"classroom", item.ClassroomID, s.lookups.ClassroomExists},
		}
		for _, ref := range refs {
			ok, err := ref.exists(ctx, ref.id)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to check %s", ref.name))
			}
			if !ok {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", ref.name, ref.id))
			}
		}
	}
	return nil
}
