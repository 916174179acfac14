package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/clock"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type scheduleEntriesStub struct {
	teacher   []models.ScheduleEntry
	classroom []models.ScheduleEntry
}

func (s *scheduleEntriesStub) ListByTeacher(ctx context.Context, teacherProfileID, termID string) ([]models.ScheduleEntry, error) {
	return s.teacher, nil
}

func (s *scheduleEntriesStub) ListByClassroom(ctx context.Context, classroomID, termID string) ([]models.ScheduleEntry, error) {
	return s.classroom, nil
}

type termBreaksStub struct {
	items []models.BreakTime
}

func (s *termBreaksStub) ListBreakTimesByTerm(ctx context.Context, termID string) ([]models.BreakTime, error) {
	return s.items, nil
}

type existsStub struct {
	missing map[string]bool
}

func (s *existsStub) TeacherProfileExists(ctx context.Context, id string) (bool, error) {
	return !s.missing[id], nil
}

func (s *existsStub) ClassroomExists(ctx context.Context, id string) (bool, error) {
	return !s.missing[id], nil
}

func entry(day int, start, end, subject string) models.ScheduleEntry {
	s, _ := clock.Parse(start)
	e, _ := clock.Parse(end)
	return models.ScheduleEntry{
		ID:            "entry-" + subject,
		DayOfWeek:     day,
		StartTime:     s,
		EndTime:       e,
		SubjectName:   subject,
		TeacherName:   "T. Ahmad",
		ClassroomName: "Lab 2",
		ClassName:     "X-A",
	}
}

func newScheduleService(entries *scheduleEntriesStub, breaks *termBreaksStub, missing map[string]bool) *ScheduleService {
	if breaks == nil {
		breaks = &termBreaksStub{}
	}
	if missing == nil {
		missing = map[string]bool{}
	}
	return NewScheduleService(entries, breaks, &existsStub{missing: missing}, nil, nil)
}

func TestTeacherSchedule(t *testing.T) {
	entries := &scheduleEntriesStub{teacher: []models.ScheduleEntry{
		entry(1, "08:00", "09:30", "Math"),
		entry(1, "10:00", "11:30", "Physics"),
	}}
	breaks := &termBreaksStub{items: []models.BreakTime{
		{ID: "bt-1", DayOfWeek: 1, StartTime: "09:30", EndTime: "10:00", Type: models.BreakTypeShort},
	}}
	svc := newScheduleService(entries, breaks, nil)

	schedule, err := svc.TeacherSchedule(context.Background(), "profile-1", "term-1")
	require.NoError(t, err)
	require.Len(t, schedule.Periods, 2)
	assert.Equal(t, "Math", schedule.Periods[0].SubjectName)
	require.Len(t, schedule.BreakTimes, 1)
}

func TestTeacherScheduleUnknownProfile(t *testing.T) {
	svc := newScheduleService(&scheduleEntriesStub{}, nil, map[string]bool{"profile-x": true})

	_, err := svc.TeacherSchedule(context.Background(), "profile-x", "term-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassroomScheduleEmpty(t *testing.T) {
	svc := newScheduleService(&scheduleEntriesStub{}, nil, nil)

	schedule, err := svc.ClassroomSchedule(context.Background(), "room-1", "term-1")
	require.NoError(t, err)
	assert.NotNil(t, schedule.Periods)
	assert.Empty(t, schedule.Periods)
}

func TestMergeBreakTimesDeduplicates(t *testing.T) {
	server := []models.BreakTime{
		{ID: "server-1", DayOfWeek: 1, StartTime: "09:30", EndTime: "10:00", Type: models.BreakTypeShort},
		{ID: "server-2", DayOfWeek: 1, StartTime: "12:00", EndTime: "12:45", Type: models.BreakTypeLunch},
	}
	local := []models.BreakTime{
		// Same slot as server-1: dropped, the server copy wins.
		{ID: "local-1", DayOfWeek: 1, StartTime: "09:30", EndTime: "10:00", Type: models.BreakTypeShort},
		{ID: "local-2", DayOfWeek: 2, StartTime: "09:30", EndTime: "10:00", Type: models.BreakTypeShort},
	}

	merged := MergeBreakTimes(server, local)
	require.Len(t, merged, 3)
	assert.Equal(t, "server-1", merged[0].ID)
	assert.Equal(t, "server-2", merged[1].ID)
	assert.Equal(t, "local-2", merged[2].ID)
}

func TestMergeBreakTimesEmptyInputs(t *testing.T) {
	assert.Empty(t, MergeBreakTimes(nil, nil))

	local := []models.BreakTime{{ID: "local-1", DayOfWeek: 1, StartTime: "09:30", EndTime: "10:00"}}
	merged := MergeBreakTimes(nil, local)
	require.Len(t, merged, 1)
	assert.Equal(t, "local-1", merged[0].ID)
}

func TestExportTeacherScheduleCSV(t *testing.T) {
	entries := &scheduleEntriesStub{teacher: []models.ScheduleEntry{entry(1, "08:00", "09:30", "Math")}}
	svc := newScheduleService(entries, nil, nil)

	result, err := svc.ExportTeacherSchedule(context.Background(), "profile-1", "term-1", ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "teacher-schedule-profile-1.csv", result.Filename)

	content := string(result.Content)
	assert.True(t, strings.HasPrefix(content, "Day,Start,End,Subject,Teacher,Classroom,Class"))
	assert.Contains(t, content, "Monday,08:00,09:30,Math,T. Ahmad,Lab 2,X-A")
}

func TestExportClassroomSchedulePDF(t *testing.T) {
	entries := &scheduleEntriesStub{classroom: []models.ScheduleEntry{entry(2, "10:00", "11:00", "Biology")}}
	svc := newScheduleService(entries, nil, nil)

	result, err := svc.ExportClassroomSchedule(context.Background(), "room-1", "term-1", ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "classroom-schedule-room-1.pdf", result.Filename)
	assert.True(t, len(result.Content) > 0)
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := newScheduleService(&scheduleEntriesStub{}, nil, nil)

	_, err := svc.ExportTeacherSchedule(context.Background(), "profile-1", "term-1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
