package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

const periodColumns = "id, timetable_id, day_of_week, start_time, end_time, duration_minutes, subject_id, teacher_profile_id, classroom_id, created_at, updated_at"

// PeriodRepository provides persistence for periods.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository creates a new period repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// FindConflicts returns committed periods overlapping the candidate interval
// on the same day. When both a teacher and a classroom are supplied the match
// is a disjunction: a hit on either dimension is a conflict. Teachers and
// classrooms are globally exclusive, so the probe is never scoped to one
// timetable unless an exclusion is requested.
func (r *PeriodRepository) FindConflicts(ctx context.Context, q models.PeriodConflictQuery) ([]models.Period, error) {
	conditions := []string{"day_of_week = $1", "start_time <= $2", "end_time >= $3"}
	args := []interface{}{q.DayOfWeek, q.EndTime, q.StartTime}

	switch {
	case q.TeacherProfileID != "" && q.ClassroomID != "":
		conditions = append(conditions, fmt.Sprintf("(teacher_profile_id = $%d OR classroom_id = $%d)", len(args)+1, len(args)+2))
		args = append(args, q.TeacherProfileID, q.ClassroomID)
	case q.TeacherProfileID != "":
		conditions = append(conditions, fmt.Sprintf("teacher_profile_id = $%d", len(args)+1))
		args = append(args, q.TeacherProfileID)
	case q.ClassroomID != "":
		conditions = append(conditions, fmt.Sprintf("classroom_id = $%d", len(args)+1))
		args = append(args, q.ClassroomID)
	default:
		return nil, fmt.Errorf("conflict query requires a teacher or classroom")
	}

	if q.ExcludePeriodID != "" {
		conditions = append(conditions, fmt.Sprintf("id <> $%d", len(args)+1))
		args = append(args, q.ExcludePeriodID)
	}
	if q.ExcludeTimetableID != "" {
		conditions = append(conditions, fmt.Sprintf("timetable_id <> $%d", len(args)+1))
		args = append(args, q.ExcludeTimetableID)
	}

	query := fmt.Sprintf("SELECT %s FROM periods WHERE %s ORDER BY start_time ASC", periodColumns, strings.Join(conditions, " AND "))
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query, args...); err != nil {
		return nil, fmt.Errorf("find period conflicts: %w", err)
	}
	return periods, nil
}

// FindByID loads a period by id.
func (r *PeriodRepository) FindByID(ctx context.Context, id string) (*models.Period, error) {
	query := fmt.Sprintf("SELECT %s FROM periods WHERE id = $1", periodColumns)
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		return nil, err
	}
	return &period, nil
}

// ListByTimetable returns the periods owned by a timetable ordered by day and
// start time.
func (r *PeriodRepository) ListByTimetable(ctx context.Context, timetableID string) ([]models.Period, error) {
	query := fmt.Sprintf("SELECT %s FROM periods WHERE timetable_id = $1 ORDER BY day_of_week ASC, start_time ASC", periodColumns)
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query, timetableID); err != nil {
		return nil, fmt.Errorf("list periods by timetable: %w", err)
	}
	return periods, nil
}

// Create stores a new period record.
func (r *PeriodRepository) Create(ctx context.Context, period *models.Period) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if period.CreatedAt.IsZero() {
		period.CreatedAt = now
	}
	period.UpdatedAt = now

	const query = `INSERT INTO periods (id, timetable_id, day_of_week, start_time, end_time, duration_minutes, subject_id, teacher_profile_id, classroom_id, created_at, updated_at) VALUES (:id, :timetable_id, :day_of_week, :start_time, :end_time, :duration_minutes, :subject_id, :teacher_profile_id, :classroom_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("create period: %w", err)
	}
	return nil
}

// Update modifies a period record.
func (r *PeriodRepository) Update(ctx context.Context, period *models.Period) error {
	period.UpdatedAt = time.Now().UTC()
	const query = `UPDATE periods SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, duration_minutes = :duration_minutes, subject_id = :subject_id, teacher_profile_id = :teacher_profile_id, classroom_id = :classroom_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	return nil
}

// Delete removes a period by id.
func (r *PeriodRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM periods WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete period: %w", err)
	}
	return nil
}

// ReplaceForTimetable deletes every period owned by the timetable and inserts
// the replacement set inside one transaction, so a failed write leaves the
// previous schedule intact.
func (r *PeriodRepository) ReplaceForTimetable(ctx context.Context, timetableID string, periods []models.Period) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace periods: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM periods WHERE timetable_id = $1`, timetableID); err != nil {
		return fmt.Errorf("delete periods for timetable: %w", err)
	}

	if err = r.BulkCreateWithTx(ctx, tx, periods); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace periods: %w", err)
	}
	return nil
}

// BulkCreateWithTx inserts periods using an existing transaction.
func (r *PeriodRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, periods []models.Period) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	return bulkInsertPeriods(ctx, tx, periods)
}

func bulkInsertPeriods(ctx context.Context, exec sqlx.ExtContext, periods []models.Period) error {
	now := time.Now().UTC()
	for i := range periods {
		payload := periods[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, exec, `INSERT INTO periods (id, timetable_id, day_of_week, start_time, end_time, duration_minutes, subject_id, teacher_profile_id, classroom_id, created_at, updated_at) VALUES (:id, :timetable_id, :day_of_week, :start_time, :end_time, :duration_minutes, :subject_id, :teacher_profile_id, :classroom_id, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert period: %w", err)
		}
		periods[i] = payload
	}
	return nil
}
