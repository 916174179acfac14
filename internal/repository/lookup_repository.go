package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// LookupRepository resolves references owned by other subsystems: the
// entities a period or timetable points at but does not own.
type LookupRepository struct {
	db *sqlx.DB
}

// NewLookupRepository creates a new lookup repository.
func NewLookupRepository(db *sqlx.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

// FindTeacherProfileByUserID resolves a user account to its teacher profile.
// Callers submit user ids; periods store profile ids.
func (r *LookupRepository) FindTeacherProfileByUserID(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	const query = `SELECT tp.id, tp.user_id, u.name FROM teacher_profiles tp JOIN users u ON u.id = tp.user_id WHERE tp.user_id = $1`
	var profile models.TeacherProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// TermExists reports whether a term id is known.
func (r *LookupRepository) TermExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM terms WHERE id = $1 LIMIT 1`, id)
}

// ClassGroupExists reports whether a class group id is known.
func (r *LookupRepository) ClassGroupExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM class_groups WHERE id = $1 LIMIT 1`, id)
}

// ClassExists reports whether a class id is known.
func (r *LookupRepository) ClassExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM classes WHERE id = $1 LIMIT 1`, id)
}

// SubjectExists reports whether a subject id is known.
func (r *LookupRepository) SubjectExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM subjects WHERE id = $1 LIMIT 1`, id)
}

// ClassroomExists reports whether a classroom id is known.
func (r *LookupRepository) ClassroomExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM classrooms WHERE id = $1 LIMIT 1`, id)
}

// TeacherProfileExists reports whether a teacher profile id is known.
func (r *LookupRepository) TeacherProfileExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM teacher_profiles WHERE id = $1 LIMIT 1`, id)
}

func (r *LookupRepository) exists(ctx context.Context, query, id string) (bool, error) {
	var one int
	if err := r.db.GetContext(ctx, &one, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("existence check: %w", err)
	}
	return true, nil
}
