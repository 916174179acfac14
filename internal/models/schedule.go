package models

import "time"

// ConflictType identifies which constraint a candidate period violates.
type ConflictType string

const (
	ConflictTeacher   ConflictType = "TEACHER"
	ConflictClassroom ConflictType = "CLASSROOM"
	ConflictBreakTime ConflictType = "BREAK_TIME"
)

// BreakEntityID is the entity identifier carried by break-time conflicts.
const BreakEntityID = "break"

// ScheduleConflict describes one detected collision. Times are "HH:mm" so
// callers can render messages directly.
type ScheduleConflict struct {
	Type      ConflictType `json:"type"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
	DayOfWeek int          `json:"day_of_week"`
	EntityID  string       `json:"entity_id"`
}

// AvailabilityResult is the conflict detector's verdict. IsAvailable is true
// iff Conflicts is empty.
type AvailabilityResult struct {
	IsAvailable bool               `json:"is_available"`
	Conflicts   []ScheduleConflict `json:"conflicts"`
}

// ScheduleConflictError is returned when a period mutation collides with an
// existing commitment.
type ScheduleConflictError struct {
	Message   string             `json:"message"`
	Conflicts []ScheduleConflict `json:"conflicts"`
}

// Error implements the error interface.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// ScheduleEntry is a period enriched with the display names resolved at query
// time: subject, teacher, classroom and the owning timetable's class.
type ScheduleEntry struct {
	ID              string    `db:"id" json:"id"`
	TimetableID     string    `db:"timetable_id" json:"timetable_id"`
	DayOfWeek       int       `db:"day_of_week" json:"day_of_week"`
	StartTime       time.Time `db:"start_time" json:"start_time"`
	EndTime         time.Time `db:"end_time" json:"end_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	SubjectID       string    `db:"subject_id" json:"subject_id"`
	SubjectName     string    `db:"subject_name" json:"subject_name"`
	TeacherID       string    `db:"teacher_profile_id" json:"teacher_id"`
	TeacherName     string    `db:"teacher_name" json:"teacher_name"`
	ClassroomID     string    `db:"classroom_id" json:"classroom_id"`
	ClassroomName   string    `db:"classroom_name" json:"classroom_name"`
	ClassName       string    `db:"class_name" json:"class_name"`
}

// Schedule is the per-term view returned for a teacher or classroom: the
// enriched periods ordered by (day, start time) plus the term's break times.
type Schedule struct {
	Periods    []ScheduleEntry `json:"periods"`
	BreakTimes []BreakTime     `json:"break_times"`
}
