package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/lock"
)

type periodRepository interface {
	FindConflicts(ctx context.Context, q models.PeriodConflictQuery) ([]models.Period, error)
	FindByID(ctx context.Context, id string) (*models.Period, error)
	Create(ctx context.Context, period *models.Period) error
	Update(ctx context.Context, period *models.Period) error
	Delete(ctx context.Context, id string) error
	ReplaceForTimetable(ctx context.Context, timetableID string, periods []models.Period) error
}

type periodTimetableReader interface {
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
}

type periodLookupRepository interface {
	FindTeacherProfileByUserID(ctx context.Context, userID string) (*models.TeacherProfile, error)
	SubjectExists(ctx context.Context, id string) (bool, error)
	ClassroomExists(ctx context.Context, id string) (bool, error)
}

// CreatePeriodRequest describes a single-period insert. TeacherID is the
// teacher's user-account id; the service resolves it to a teacher profile
// before any conflict probe runs.
type CreatePeriodRequest struct {
	TimetableID     string `json:"timetable_id" validate:"required"`
	DayOfWeek       int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=1,max=240"`
	SubjectID       string `json:"subject_id" validate:"required"`
	TeacherID       string `json:"teacher_id" validate:"required"`
	ClassroomID     string `json:"classroom_id" validate:"required"`
}

// UpdatePeriodRequest carries the full replacement state for a period. The
// period being updated is excluded from its own conflict probe.
type UpdatePeriodRequest struct {
	DayOfWeek       int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=1,max=240"`
	SubjectID       string `json:"subject_id" validate:"required"`
	TeacherID       string `json:"teacher_id" validate:"required"`
	ClassroomID     string `json:"classroom_id" validate:"required"`
}

// BulkReplaceItem is one period in a wholesale replacement batch. TeacherID
// is the teacher's user-account id, resolved to a profile per item.
type BulkReplaceItem struct {
	DayOfWeek       int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=1,max=240"`
	SubjectID       string `json:"subject_id" validate:"required"`
	TeacherID       string `json:"teacher_id" validate:"required"`
	ClassroomID     string `json:"classroom_id" validate:"required"`
}

// PeriodService owns period mutations. Single-period writes take short redis
// locks over the (teacher, day) and (classroom, day) slots so that two
// concurrent inserts cannot both pass the conflict probe; the schema's
// exclusion constraints back the lock up.
type PeriodService struct {
	periods    periodRepository
	timetables periodTimetableReader
	lookups    periodLookupRepository
	cache      *CacheService
	metrics    *MetricsService
	locker     lock.Locker
	cfg        config.TimetableConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPeriodService instantiates PeriodService.
func NewPeriodService(periods periodRepository, timetables periodTimetableReader, lookups periodLookupRepository, cache *CacheService, metrics *MetricsService, locker lock.Locker, cfg config.TimetableConfig, validate *validator.Validate, logger *zap.Logger) *PeriodService {
	if locker == nil {
		locker = lock.NopLocker{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{
		periods:    periods,
		timetables: timetables,
		lookups:    lookups,
		cache:      cache,
		metrics:    metrics,
		locker:     locker,
		cfg:        cfg,
		validator:  validate,
		logger:     logger,
	}
}

// Create validates and inserts one period. The conflict probe runs against
// every stored period of the resolved teacher profile and of the classroom on
// the same day; a hit on either dimension rejects the insert with the full
// conflict detail.
func (s *PeriodService) Create(ctx context.Context, req CreatePeriodRequest) (*models.Period, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	window, err := resolvePeriodWindow(req.StartTime, req.EndTime, req.DurationMinutes)
	if err != nil {
		return nil, err
	}

	if _, err := s.timetables.FindByID(ctx, req.TimetableID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("timetable %s not found", req.TimetableID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if err := s.ensurePeriodReferences(ctx, req.SubjectID, req.ClassroomID); err != nil {
		return nil, err
	}
	profile, err := s.resolveTeacherProfile(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquireSlotLocks(ctx, profile.ID, req.ClassroomID, req.DayOfWeek)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.checkConflicts(ctx, models.PeriodConflictQuery{
		TeacherProfileID: profile.ID,
		ClassroomID:      req.ClassroomID,
		DayOfWeek:        req.DayOfWeek,
		StartTime:        window.Start,
		EndTime:          window.End,
	}); err != nil {
		return nil, err
	}

	period := &models.Period{
		TimetableID:      req.TimetableID,
		DayOfWeek:        req.DayOfWeek,
		StartTime:        window.Start,
		EndTime:          window.End,
		DurationMinutes:  window.Duration,
		SubjectID:        req.SubjectID,
		TeacherProfileID: profile.ID,
		ClassroomID:      req.ClassroomID,
	}
	if err := s.periods.Create(ctx, period); err != nil {
		if database.IsConstraintConflict(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "period conflicts with an existing schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create period")
	}

	s.cache.InvalidateSchedules(ctx)
	return period, nil
}

// Update replaces a period's scheduling data. The stored period itself is
// excluded from the conflict probe so an unchanged slot never collides with
// its own row.
func (s *PeriodService) Update(ctx context.Context, id string, req UpdatePeriodRequest) (*models.Period, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	window, err := resolvePeriodWindow(req.StartTime, req.EndTime, req.DurationMinutes)
	if err != nil {
		return nil, err
	}

	period, err := s.periods.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("period %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	if err := s.ensurePeriodReferences(ctx, req.SubjectID, req.ClassroomID); err != nil {
		return nil, err
	}
	profile, err := s.resolveTeacherProfile(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquireSlotLocks(ctx, profile.ID, req.ClassroomID, req.DayOfWeek)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.checkConflicts(ctx, models.PeriodConflictQuery{
		TeacherProfileID: profile.ID,
		ClassroomID:      req.ClassroomID,
		DayOfWeek:        req.DayOfWeek,
		StartTime:        window.Start,
		EndTime:          window.End,
		ExcludePeriodID:  period.ID,
	}); err != nil {
		return nil, err
	}

	period.DayOfWeek = req.DayOfWeek
	period.StartTime = window.Start
	period.EndTime = window.End
	period.DurationMinutes = window.Duration
	period.SubjectID = req.SubjectID
	period.TeacherProfileID = profile.ID
	period.ClassroomID = req.ClassroomID
	if err := s.periods.Update(ctx, period); err != nil {
		if database.IsConstraintConflict(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "period conflicts with an existing schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update period")
	}

	s.cache.InvalidateSchedules(ctx)
	return period, nil
}

// Delete removes a period.
func (s *PeriodService) Delete(ctx context.Context, id string) error {
	if _, err := s.periods.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("period %s not found", id))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	if err := s.periods.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete period")
	}
	s.cache.InvalidateSchedules(ctx)
	return nil
}

// BulkReplace swaps a timetable's entire period set atomically: the old
// periods are deleted and the batch inserted in one transaction. Conflict
// checks are skipped unless ValidateBulkReplace is on; when validating, the
// target timetable's own periods are excluded since they are about to be
// replaced.
func (s *PeriodService) BulkReplace(ctx context.Context, timetableID string, items []BulkReplaceItem) ([]models.Period, error) {
	if _, err := s.timetables.FindByID(ctx, timetableID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("timetable %s not found", timetableID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	profileIDs := make(map[string]string, len(items))
	periods := make([]models.Period, 0, len(items))
	for i, item := range items {
		if err := s.validator.Struct(item); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid period at index %d", i))
		}
		window, err := resolvePeriodWindow(item.StartTime, item.EndTime, item.DurationMinutes)
		if err != nil {
			return nil, err
		}
		profileID, ok := profileIDs[item.TeacherID]
		if !ok {
			profile, err := s.resolveTeacherProfile(ctx, item.TeacherID)
			if err != nil {
				return nil, err
			}
			profileID = profile.ID
			profileIDs[item.TeacherID] = profileID
		}
		periods = append(periods, models.Period{
			TimetableID:      timetableID,
			DayOfWeek:        item.DayOfWeek,
			StartTime:        window.Start,
			EndTime:          window.End,
			DurationMinutes:  window.Duration,
			SubjectID:        item.SubjectID,
			TeacherProfileID: profileID,
			ClassroomID:      item.ClassroomID,
		})
	}

	if s.cfg.ValidateBulkReplace {
		for _, period := range periods {
			if err := s.checkConflicts(ctx, models.PeriodConflictQuery{
				TeacherProfileID:   period.TeacherProfileID,
				ClassroomID:        period.ClassroomID,
				DayOfWeek:          period.DayOfWeek,
				StartTime:          period.StartTime,
				EndTime:            period.EndTime,
				ExcludeTimetableID: timetableID,
			}); err != nil {
				return nil, err
			}
		}
	}

	if err := s.periods.ReplaceForTimetable(ctx, timetableID, periods); err != nil {
		if database.IsConstraintConflict(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "replacement periods conflict with an existing schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace periods")
	}

	s.cache.InvalidateSchedules(ctx)
	return periods, nil
}

func (s *PeriodService) resolveTeacherProfile(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	profile, err := s.lookups.FindTeacherProfileByUserID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher profile for user %s not found", userID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher profile")
	}
	return profile, nil
}

func (s *PeriodService) ensurePeriodReferences(ctx context.Context, subjectID, classroomID string) error {
	ok, err := s.lookups.SubjectExists(ctx, subjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subject %s not found", subjectID))
	}
	ok, err = s.lookups.ClassroomExists(ctx, classroomID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("classroom %s not found", classroomID))
	}
	return nil
}

// acquireSlotLocks takes the per-day teacher and classroom locks, returning a
// release func for both. A held lock means another writer is mid-check on the
// same slot; callers get a retryable conflict rather than waiting.
func (s *PeriodService) acquireSlotLocks(ctx context.Context, teacherProfileID, classroomID string, day int) (func(), error) {
	keys := []string{
		fmt.Sprintf("period:teacher:%s:%d", teacherProfileID, day),
		fmt.Sprintf("period:classroom:%s:%d", classroomID, day),
	}
	acquired := make([]string, 0, len(keys))
	release := func() {
		for _, key := range acquired {
			if err := s.locker.Release(context.WithoutCancel(ctx), key); err != nil {
				s.logger.Warn("slot lock release failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	for _, key := range keys {
		ok, err := s.locker.Acquire(ctx, key, s.cfg.LockTTL)
		if err != nil {
			release()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire slot lock")
		}
		if !ok {
			release()
			return nil, appErrors.Clone(appErrors.ErrConflict, "scheduling in progress for this slot, retry shortly")
		}
		acquired = append(acquired, key)
	}
	return release, nil
}

// checkConflicts runs the combined teacher/classroom probe and reports a
// single conflict: each hit belongs to exactly one kind, and teacher hits win
// over classroom hits when a stored period collides on both dimensions.
func (s *PeriodService) checkConflicts(ctx context.Context, q models.PeriodConflictQuery) error {
	hits, err := s.periods.FindConflicts(ctx, q)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check period conflicts")
	}
	if len(hits) == 0 {
		return nil
	}

	conflict := conflictFromPeriod(models.ConflictClassroom, hits[0], hits[0].ClassroomID)
	for _, hit := range hits {
		if hit.TeacherProfileID == q.TeacherProfileID {
			conflict = conflictFromPeriod(models.ConflictTeacher, hit, hit.TeacherProfileID)
			break
		}
	}
	conflicts := []models.ScheduleConflict{conflict}

	if s.metrics != nil {
		for _, c := range conflicts {
			s.metrics.RecordConflict(string(c.Type))
		}
	}
	return appErrors.Wrap(
		&models.ScheduleConflictError{Message: "period conflicts with an existing schedule", Conflicts: conflicts},
		appErrors.ErrConflict.Code,
		appErrors.ErrConflict.Status,
		"period conflicts with an existing schedule",
	)
}
