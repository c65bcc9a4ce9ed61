package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/activity"
	"github.com/jkazadi/kampus/core/user"
)

type activityRepository struct {
	db *sqlx.DB
	// userRepo maps rows for the digest queries
	userRepo *userRepository
}

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *sqlx.DB) *activityRepository {
	return &activityRepository{db: db, userRepo: NewUserRepository(db)}
}

func (repo activityRepository) CountUsersByRole(ctx context.Context) (map[string]int, error) {
	// one row per (unnested) role
	query := `SELECT UNNEST(roles) AS role, COUNT(*) AS count FROM users WHERE is_active GROUP BY role`

	var rows []struct {
		Role  string `db:"role"`
		Count int    `db:"count"`
	}
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "counting users by role")
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

func (repo activityRepository) CountSignupsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE created_at >= $1`, since)
	return count, errors.Wrap(err, "counting signups")
}

func (repo activityRepository) QueryProgress(ctx context.Context, limit int) ([]activity.ProgressRow, error) {
	query := `
		SELECT lp.user_id, lp.watched_seconds, lp.updated_at,
		       c.id AS course_id, c.title AS course_title,
		       COALESCE(p.id::text, '') AS program_id, COALESCE(p.title, '') AS program_title
		FROM lesson_progress lp
		JOIN lessons l ON l.id = lp.lesson_id
		JOIN courses c ON c.id = l.course_id
		LEFT JOIN programs p ON p.id = c.program_id
		ORDER BY lp.updated_at DESC
		LIMIT $1`

	var rows []struct {
		UserID         string    `db:"user_id"`
		WatchedSeconds int       `db:"watched_seconds"`
		UpdatedAt      time.Time `db:"updated_at"`
		CourseID       string    `db:"course_id"`
		CourseTitle    string    `db:"course_title"`
		ProgramID      string    `db:"program_id"`
		ProgramTitle   string    `db:"program_title"`
	}
	if err := repo.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}

	progress := make([]activity.ProgressRow, 0, len(rows))
	for _, row := range rows {
		progress = append(progress, activity.ProgressRow{
			UserID:         row.UserID,
			CourseID:       row.CourseID,
			CourseTitle:    row.CourseTitle,
			ProgramID:      row.ProgramID,
			ProgramTitle:   row.ProgramTitle,
			WatchedSeconds: row.WatchedSeconds,
			UpdatedAt:      row.UpdatedAt,
		})
	}
	return progress, nil
}

func (repo activityRepository) QueryInactiveStudents(ctx context.Context, since time.Time) ([]user.User, error) {
	query := `
		SELECT ` + sqlxColumns(userCols) + ` FROM users
		WHERE is_active AND roles && $1
		AND id NOT IN (SELECT user_id FROM lesson_progress WHERE updated_at >= $2)
		ORDER BY created_at`

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, pq.StringArray(user.StudentRoles), since); err != nil {
		return nil, errors.Wrap(err, "querying inactive students")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

func (repo activityRepository) QueryAdmins(ctx context.Context) ([]user.User, error) {
	isActive := true
	return repo.userRepo.QueryUsers(ctx, &user.QueryFilter{
		Roles:    user.AdminRoles,
		IsActive: &isActive,
	}, nil)
}
