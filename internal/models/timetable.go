package models

import "time"

// BreakType distinguishes the two non-teaching window kinds.
type BreakType string

const (
	BreakTypeShort BreakType = "SHORT_BREAK"
	BreakTypeLunch BreakType = "LUNCH_BREAK"
)

// Timetable is the weekly schedule for one class within one term. The
// (term, class group, class) triple is unique: at most one timetable per
// class per term.
type Timetable struct {
	ID           string    `db:"id" json:"id"`
	TermID       string    `db:"term_id" json:"term_id"`
	ClassGroupID string    `db:"class_group_id" json:"class_group_id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Periods    []Period    `db:"-" json:"periods,omitempty"`
	BreakTimes []BreakTime `db:"-" json:"break_times,omitempty"`
}

// Period is one scheduled teaching slot owned by a timetable. Start and end
// timestamps carry the fixed epoch date; only the time of day is meaningful.
type Period struct {
	ID               string    `db:"id" json:"id"`
	TimetableID      string    `db:"timetable_id" json:"timetable_id"`
	DayOfWeek        int       `db:"day_of_week" json:"day_of_week"`
	StartTime        time.Time `db:"start_time" json:"start_time"`
	EndTime          time.Time `db:"end_time" json:"end_time"`
	DurationMinutes  int       `db:"duration_minutes" json:"duration_minutes"`
	SubjectID        string    `db:"subject_id" json:"subject_id"`
	TeacherProfileID string    `db:"teacher_profile_id" json:"teacher_profile_id"`
	ClassroomID      string    `db:"classroom_id" json:"classroom_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// BreakTime is a non-teaching interval on a given day scoped to a timetable.
// Times stay in "HH:mm" form; break windows are never joined against period
// timestamps directly.
type BreakTime struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	Type        BreakType `db:"type" json:"type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PeriodConflictQuery describes a stored-period overlap probe. The time
// comparison is closed-interval: stored periods that merely touch the
// candidate's boundaries count as hits. When both a teacher and a classroom
// are supplied a hit on either dimension is a conflict.
type PeriodConflictQuery struct {
	TeacherProfileID   string
	ClassroomID        string
	DayOfWeek          int
	StartTime          time.Time
	EndTime            time.Time
	ExcludePeriodID    string
	ExcludeTimetableID string
}

// TimetableFilter describes query params for listing timetables.
type TimetableFilter struct {
	TermID       string
	ClassGroupID string
	ClassID      string
	Page         int
	PageSize     int
}

// TeacherProfile is the teacher-specific record, keyed separately from the
// underlying user account.
type TeacherProfile struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`
	Name   string `db:"name" json:"name"`
}
