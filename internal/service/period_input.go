package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/clock"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// periodWindow is a parsed, validated period time slot.
type periodWindow struct {
	Start    time.Time
	End      time.Time
	Duration int
}

const maxPeriodMinutes = 240

// resolvePeriodWindow parses "HH:mm" bounds and reconciles the stored
// duration with them. Duration is derivable but persisted for display; the
// two must agree. A zero duration defaults to the derived value.
func resolvePeriodWindow(startTime, endTime string, durationMinutes int) (*periodWindow, error) {
	start, err := clock.Parse(startTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid start time %q", startTime))
	}
	end, err := clock.Parse(endTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid end time %q", endTime))
	}
	if !start.Before(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period end %s must be after start %s", endTime, startTime))
	}

	derived := clock.MinutesBetween(start, end)
	if durationMinutes == 0 {
		durationMinutes = derived
	}
	if durationMinutes < 1 || durationMinutes > maxPeriodMinutes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duration %d minutes is outside 1-%d", durationMinutes, maxPeriodMinutes))
	}
	if durationMinutes != derived {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duration %d minutes does not match interval %s-%s", durationMinutes, startTime, endTime))
	}

	return &periodWindow{Start: start, End: end, Duration: durationMinutes}, nil
}

// validateBreakWindow checks a break-time draft's clock strings and returns
// them in canonical zero-padded form. Unpadded input like "9:00" parses but
// compares wrong lexically, so only the canonical forms are ordered here and
// only they may be stored or compared downstream.
func validateBreakWindow(startTime, endTime string) (string, string, error) {
	start, err := clock.Canonical(startTime)
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid break start time %q", startTime))
	}
	end, err := clock.Canonical(endTime)
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid break end time %q", endTime))
	}
	if start >= end {
		return "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("break end %s must be after start %s", endTime, startTime))
	}
	return start, end, nil
}

// conflictFromPeriod renders a stored period hit into the caller-facing
// conflict record. Times come back as "HH:mm" so messages can be built
// directly.
func conflictFromPeriod(kind models.ConflictType, period models.Period, entityID string) models.ScheduleConflict {
	return models.ScheduleConflict{
		Type:      kind,
		StartTime: clock.Format(period.StartTime),
		EndTime:   clock.Format(period.EndTime),
		DayOfWeek: period.DayOfWeek,
		EntityID:  entityID,
	}
}
