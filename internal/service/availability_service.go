package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/clock"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type availabilityPeriodRepository interface {
	FindConflicts(ctx context.Context, q models.PeriodConflictQuery) ([]models.Period, error)
}

// PeriodDraft is a candidate slot submitted for an availability check.
type PeriodDraft struct {
	DayOfWeek   int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	TeacherID   string `json:"teacher_id" validate:"required"`
	ClassroomID string `json:"classroom_id" validate:"required"`
}

// BreakTimeDraft is a break window supplied by the caller for validation-only
// checks; it need not be persisted anywhere.
type BreakTimeDraft struct {
	DayOfWeek int              `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime string           `json:"start_time" validate:"required"`
	EndTime   string           `json:"end_time" validate:"required"`
	Type      models.BreakType `json:"type" validate:"omitempty,oneof=SHORT_BREAK LUNCH_BREAK"`
}

// CheckAvailabilityRequest bundles the candidate period with the effective
// break windows for its timetable.
type CheckAvailabilityRequest struct {
	Period     PeriodDraft      `json:"period" validate:"required"`
	BreakTimes []BreakTimeDraft `json:"break_times" validate:"dive"`
}

// AvailabilityService is the conflict detector: it decides whether a
// candidate period can be placed without double-booking a teacher, a
// classroom, or a break window. It never writes.
type AvailabilityService struct {
	periods   availabilityPeriodRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(periods availabilityPeriodRepository, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{periods: periods, validator: validate, logger: logger}
}

// Check runs the three constraint checks independently and reports every
// conflict found, not just the first. The stored-period checks use the
// closed-interval rule; the break-time check uses the strict rule. Touching
// boundaries therefore conflict with periods but not with breaks.
func (s *AvailabilityService) Check(ctx context.Context, req CheckAvailabilityRequest) (*models.AvailabilityResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	window, err := resolvePeriodWindow(req.Period.StartTime, req.Period.EndTime, 0)
	if err != nil {
		return nil, err
	}
	breaks := make([]BreakTimeDraft, len(req.BreakTimes))
	for i, bt := range req.BreakTimes {
		start, end, err := validateBreakWindow(bt.StartTime, bt.EndTime)
		if err != nil {
			return nil, err
		}
		bt.StartTime, bt.EndTime = start, end
		breaks[i] = bt
	}

	var conflicts []models.ScheduleConflict

	teacherHits, err := s.periods.FindConflicts(ctx, models.PeriodConflictQuery{
		TeacherProfileID: req.Period.TeacherID,
		DayOfWeek:        req.Period.DayOfWeek,
		StartTime:        window.Start,
		EndTime:          window.End,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher availability")
	}
	if len(teacherHits) > 0 {
		conflicts = append(conflicts, conflictFromPeriod(models.ConflictTeacher, teacherHits[0], req.Period.TeacherID))
	}

	classroomHits, err := s.periods.FindConflicts(ctx, models.PeriodConflictQuery{
		ClassroomID: req.Period.ClassroomID,
		DayOfWeek:   req.Period.DayOfWeek,
		StartTime:   window.Start,
		EndTime:     window.End,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom availability")
	}
	if len(classroomHits) > 0 {
		conflicts = append(conflicts, conflictFromPeriod(models.ConflictClassroom, classroomHits[0], req.Period.ClassroomID))
	}

	candStart, candEnd := clock.Format(window.Start), clock.Format(window.End)
	for _, bt := range breaks {
		if bt.DayOfWeek != req.Period.DayOfWeek {
			continue
		}
		if clock.Overlaps(candStart, candEnd, bt.StartTime, bt.EndTime) {
			conflicts = append(conflicts, models.ScheduleConflict{
				Type:      models.ConflictBreakTime,
				StartTime: bt.StartTime,
				EndTime:   bt.EndTime,
				DayOfWeek: bt.DayOfWeek,
				EntityID:  models.BreakEntityID,
			})
			break
		}
	}

	return &models.AvailabilityResult{
		IsAvailable: len(conflicts) == 0,
		Conflicts:   conflicts,
	}, nil
}
