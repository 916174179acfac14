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

const timetableColumns = "id, term_id, class_group_id, class_id, created_at, updated_at"
const breakTimeColumns = "id, timetable_id, day_of_week, start_time, end_time, type, created_at"

// TimetableRepository persists timetables together with the periods and break
// times they exclusively own.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// FindByID loads a timetable by id.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE id = $1", timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// FindByKey loads the timetable for a (term, class group, class) triple.
// At most one row can exist per key.
func (r *TimetableRepository) FindByKey(ctx context.Context, termID, classGroupID, classID string) (*models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE term_id = $1 AND class_group_id = $2 AND class_id = $3", timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, termID, classGroupID, classID); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// List returns timetables with optional filtering and pagination.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	base := "FROM timetables WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.ClassGroupID != "" {
		conditions = append(conditions, fmt.Sprintf("class_group_id = $%d", len(args)+1))
		args = append(args, filter.ClassGroupID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", timetableColumns, base, size, offset)
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetables: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetables: %w", err)
	}

	return timetables, total, nil
}

// CreateWithChildren inserts the timetable row and all supplied periods and
// break times as one composite write. Either everything lands or nothing
// does.
func (r *TimetableRepository) CreateWithChildren(ctx context.Context, timetable *models.Timetable, periods []models.Period, breakTimes []models.BreakTime) (err error) {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create timetable: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertTimetable = `INSERT INTO timetables (id, term_id, class_group_id, class_id, created_at, updated_at) VALUES (:id, :term_id, :class_group_id, :class_id, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertTimetable, timetable); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}

	for i := range periods {
		periods[i].TimetableID = timetable.ID
	}
	if err = bulkInsertPeriods(ctx, tx, periods); err != nil {
		return err
	}

	if err = bulkInsertBreakTimes(ctx, tx, timetable.ID, breakTimes); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create timetable: %w", err)
	}
	return nil
}

// Delete removes a timetable. Owned periods and break times go with it via
// the schema's cascade rules.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	return nil
}

// ListBreakTimes returns the break times owned by a timetable.
func (r *TimetableRepository) ListBreakTimes(ctx context.Context, timetableID string) ([]models.BreakTime, error) {
	query := fmt.Sprintf("SELECT %s FROM break_times WHERE timetable_id = $1 ORDER BY day_of_week ASC, start_time ASC", breakTimeColumns)
	var breaks []models.BreakTime
	if err := r.db.SelectContext(ctx, &breaks, query, timetableID); err != nil {
		return nil, fmt.Errorf("list break times: %w", err)
	}
	return breaks, nil
}

// ListBreakTimesByTerm returns the break times of every timetable within a
// term, the server-side half of the read-side merge.
func (r *TimetableRepository) ListBreakTimesByTerm(ctx context.Context, termID string) ([]models.BreakTime, error) {
	const query = `SELECT b.id, b.timetable_id, b.day_of_week, b.start_time, b.end_time, b.type, b.created_at FROM break_times b JOIN timetables t ON t.id = b.timetable_id WHERE t.term_id = $1 ORDER BY b.day_of_week ASC, b.start_time ASC`
	var breaks []models.BreakTime
	if err := r.db.SelectContext(ctx, &breaks, query, termID); err != nil {
		return nil, fmt.Errorf("list break times by term: %w", err)
	}
	return breaks, nil
}

func bulkInsertBreakTimes(ctx context.Context, exec sqlx.ExtContext, timetableID string, breakTimes []models.BreakTime) error {
	now := time.Now().UTC()
	for i := range breakTimes {
		payload := breakTimes[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.TimetableID = timetableID
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}

		if _, err := sqlx.NamedExecContext(ctx, exec, `INSERT INTO break_times (id, timetable_id, day_of_week, start_time, end_time, type, created_at) VALUES (:id, :timetable_id, :day_of_week, :start_time, :end_time, :type, :created_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert break time: %w", err)
		}
		breakTimes[i] = payload
	}
	return nil
}
