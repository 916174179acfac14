package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/clock"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
)

// ExportFormat selects the rendering for a schedule export.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

type scheduleRepository interface {
	ListByTeacher(ctx context.Context, teacherProfileID, termID string) ([]models.ScheduleEntry, error)
	ListByClassroom(ctx context.Context, classroomID, termID string) ([]models.ScheduleEntry, error)
}

type scheduleBreakRepository interface {
	ListBreakTimesByTerm(ctx context.Context, termID string) ([]models.BreakTime, error)
}

type scheduleLookupRepository interface {
	TeacherProfileExists(ctx context.Context, id string) (bool, error)
	ClassroomExists(ctx context.Context, id string) (bool, error)
}

// ExportResult carries a rendered schedule document plus the HTTP metadata
// handlers need to serve it.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ScheduleService assembles per-term schedule views for teachers and
// classrooms, serves them through the cache when enabled, and renders export
// documents.
type ScheduleService struct {
	entries scheduleRepository
	breaks  scheduleBreakRepository
	lookups scheduleLookupRepository
	cache   *CacheService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(entries scheduleRepository, breaks scheduleBreakRepository, lookups scheduleLookupRepository, cache *CacheService, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		entries: entries,
		breaks:  breaks,
		lookups: lookups,
		cache:   cache,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// TeacherSchedule returns every period a teacher covers within a term,
// ordered by day of week then start time, together with the term's break
// times.
func (s *ScheduleService) TeacherSchedule(ctx context.Context, teacherProfileID, termID string) (*models.Schedule, error) {
	cacheKey := fmt.Sprintf("schedule:teacher:%s:%s", teacherProfileID, termID)
	if schedule, ok := s.fromCache(ctx, cacheKey); ok {
		return schedule, nil
	}

	ok, err := s.lookups.TeacherProfileExists(ctx, teacherProfileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher profile")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher profile %s not found", teacherProfileID))
	}

	entries, err := s.entries.ListByTeacher(ctx, teacherProfileID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher schedule")
	}
	return s.assemble(ctx, cacheKey, termID, entries)
}

// ClassroomSchedule returns every period held in a classroom within a term,
// ordered by day of week then start time, together with the term's break
// times.
func (s *ScheduleService) ClassroomSchedule(ctx context.Context, classroomID, termID string) (*models.Schedule, error) {
	cacheKey := fmt.Sprintf("schedule:classroom:%s:%s", classroomID, termID)
	if schedule, ok := s.fromCache(ctx, cacheKey); ok {
		return schedule, nil
	}

	ok, err := s.lookups.ClassroomExists(ctx, classroomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("classroom %s not found", classroomID))
	}

	entries, err := s.entries.ListByClassroom(ctx, classroomID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom schedule")
	}
	return s.assemble(ctx, cacheKey, termID, entries)
}

// ExportTeacherSchedule renders a teacher's schedule as a downloadable
// document.
func (s *ScheduleService) ExportTeacherSchedule(ctx context.Context, teacherProfileID, termID string, format ExportFormat) (*ExportResult, error) {
	schedule, err := s.TeacherSchedule(ctx, teacherProfileID, termID)
	if err != nil {
		return nil, err
	}
	title := "Teacher Schedule"
	if len(schedule.Periods) > 0 {
		title = fmt.Sprintf("Schedule - %s", schedule.Periods[0].TeacherName)
	}
	return s.render(schedule, format, title, fmt.Sprintf("teacher-schedule-%s", teacherProfileID))
}

// ExportClassroomSchedule renders a classroom's schedule as a downloadable
// document.
func (s *ScheduleService) ExportClassroomSchedule(ctx context.Context, classroomID, termID string, format ExportFormat) (*ExportResult, error) {
	schedule, err := s.ClassroomSchedule(ctx, classroomID, termID)
	if err != nil {
		return nil, err
	}
	title := "Classroom Schedule"
	if len(schedule.Periods) > 0 {
		title = fmt.Sprintf("Schedule - %s", schedule.Periods[0].ClassroomName)
	}
	return s.render(schedule, format, title, fmt.Sprintf("classroom-schedule-%s", classroomID))
}

func (s *ScheduleService) fromCache(ctx context.Context, key string) (*models.Schedule, bool) {
	if !s.cache.Enabled() {
		return nil, false
	}
	var schedule models.Schedule
	hit, err := s.cache.Get(ctx, key, &schedule)
	if err != nil || !hit {
		return nil, false
	}
	return &schedule, true
}

func (s *ScheduleService) assemble(ctx context.Context, cacheKey, termID string, entries []models.ScheduleEntry) (*models.Schedule, error) {
	breakTimes, err := s.breaks.ListBreakTimesByTerm(ctx, termID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load break times")
	}
	if entries == nil {
		entries = []models.ScheduleEntry{}
	}
	schedule := &models.Schedule{
		Periods:    entries,
		BreakTimes: MergeBreakTimes(breakTimes, nil),
	}
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, schedule); err != nil {
			s.logger.Warn("schedule cache population failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return schedule, nil
}

func (s *ScheduleService) render(schedule *models.Schedule, format ExportFormat, title, baseName string) (*ExportResult, error) {
	dataset := scheduleDataset(schedule)
	switch format {
	case ExportCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: baseName + ".csv"}, nil
	case ExportPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: baseName + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

var dayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func dayName(day int) string {
	if day >= 1 && day < len(dayNames) {
		return dayNames[day]
	}
	return strconv.Itoa(day)
}

func scheduleDataset(schedule *models.Schedule) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Day", "Start", "End", "Subject", "Teacher", "Classroom", "Class"},
	}
	for _, entry := range schedule.Periods {
		dataset.Rows = append(dataset.Rows, []string{
			dayName(entry.DayOfWeek),
			clock.Format(entry.StartTime),
			clock.Format(entry.EndTime),
			entry.SubjectName,
			entry.TeacherName,
			entry.ClassroomName,
			entry.ClassName,
		})
	}
	return dataset
}

// MergeBreakTimes combines server-side break times with locally held ones,
// dropping duplicates on (day, start, end). Server entries win: the first
// occurrence of a slot is kept and later ones are skipped.
func MergeBreakTimes(server, local []models.BreakTime) []models.BreakTime {
	merged := make([]models.BreakTime, 0, len(server)+len(local))
	seen := make(map[string]struct{}, len(server)+len(local))
	for _, list := range [][]models.BreakTime{server, local} {
		for _, bt := range list {
			key := fmt.Sprintf("%d|%s|%s", bt.DayOfWeek, bt.StartTime, bt.EndTime)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, bt)
		}
	}
	return merged
}
