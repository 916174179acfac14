package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

const scheduleEntryQuery = `SELECT p.id, p.timetable_id, p.day_of_week, p.start_time, p.end_time, p.duration_minutes,
	p.subject_id, s.name AS subject_name,
	p.teacher_profile_id, u.name AS teacher_name,
	p.classroom_id, r.name AS classroom_name,
	c.name AS class_name
FROM periods p
JOIN timetables t ON t.id = p.timetable_id
JOIN subjects s ON s.id = p.subject_id
JOIN classrooms r ON r.id = p.classroom_id
JOIN teacher_profiles tp ON tp.id = p.teacher_profile_id
JOIN users u ON u.id = tp.user_id
JOIN classes c ON c.id = t.class_id
WHERE t.term_id = $1 AND %s = $2
ORDER BY p.day_of_week ASC, p.start_time ASC`

// ScheduleRepository reads committed schedules back, enriched with the
// display names the presentation layer needs.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListByTeacher returns a teacher's periods within a term ordered by day and
// start time.
func (r *ScheduleRepository) ListByTeacher(ctx context.Context, teacherProfileID, termID string) ([]models.ScheduleEntry, error) {
	query := fmt.Sprintf(scheduleEntryQuery, "p.teacher_profile_id")
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, termID, teacherProfileID); err != nil {
		return nil, fmt.Errorf("list teacher schedule: %w", err)
	}
	return entries, nil
}

// ListByClassroom returns a classroom's periods within a term ordered by day
// and start time.
func (r *ScheduleRepository) ListByClassroom(ctx context.Context, classroomID, termID string) ([]models.ScheduleEntry, error) {
	query := fmt.Sprintf(scheduleEntryQuery, "p.classroom_id")
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, termID, classroomID); err != nil {
		return nil, fmt.Errorf("list classroom schedule: %w", err)
	}
	return entries, nil
}
