package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jkazadi/kampus/core/enroll"
)

type (
	enrollmentRow struct {
		ID              string    `db:"id"`
		UserID          string    `db:"user_id"`
		ProgramID       string    `db:"program_id"`
		Status          string    `db:"status"`
		ProgressPercent int       `db:"progress_percent"`
		CreatedAt       time.Time `db:"created_at"`
		UpdatedAt       time.Time `db:"updated_at"`
		Inserted        bool      `db:"inserted"`
	}

	courseEnrollmentRow struct {
		ID              string    `db:"id"`
		UserID          string    `db:"user_id"`
		CourseID        string    `db:"course_id"`
		Status          string    `db:"status"`
		ProgressPercent int       `db:"progress_percent"`
		CreatedAt       time.Time `db:"created_at"`
		UpdatedAt       time.Time `db:"updated_at"`
		Inserted        bool      `db:"inserted"`
	}

	lessonProgressRow struct {
		ID             string    `db:"id"`
		UserID         string    `db:"user_id"`
		LessonID       string    `db:"lesson_id"`
		WatchedSeconds int       `db:"watched_seconds"`
		Completed      bool      `db:"completed"`
		Approved       bool      `db:"approved"`
		UpdatedAt      time.Time `db:"updated_at"`
	}

	assignmentRow struct {
		ID         string      `db:"id"`
		UserID     string      `db:"user_id"`
		LessonID   string      `db:"lesson_id"`
		Status     string      `db:"status"`
		FileURL    null.String `db:"file_url"`
		TextAnswer null.String `db:"text_answer"`
		Grade      null.Int    `db:"grade"`
		Feedback   null.String `db:"feedback"`
		CreatedAt  time.Time   `db:"created_at"`
		UpdatedAt  time.Time   `db:"updated_at"`
	}
)

func (r enrollmentRow) toDomain() enroll.Enrollment {
	return enroll.Enrollment{
		ID: r.ID, UserID: r.UserID, ProgramID: r.ProgramID, Status: r.Status,
		ProgressPercent: r.ProgressPercent, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (r courseEnrollmentRow) toDomain() enroll.CourseEnrollment {
	return enroll.CourseEnrollment{
		ID: r.ID, UserID: r.UserID, CourseID: r.CourseID, Status: r.Status,
		ProgressPercent: r.ProgressPercent, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (r lessonProgressRow) toDomain() enroll.LessonProgress {
	return enroll.LessonProgress{
		ID: r.ID, UserID: r.UserID, LessonID: r.LessonID,
		WatchedSeconds: r.WatchedSeconds, Completed: r.Completed, Approved: r.Approved,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r assignmentRow) toDomain() enroll.Assignment {
	return enroll.Assignment{
		ID: r.ID, UserID: r.UserID, LessonID: r.LessonID, Status: r.Status,
		FileURL: r.FileURL, TextAnswer: r.TextAnswer, Grade: r.Grade, Feedback: r.Feedback,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

var (
	enrollmentCols     = []string{"id", "user_id", "program_id", "status", "progress_percent", "created_at", "updated_at"}
	courseEnrollCols   = []string{"id", "user_id", "course_id", "status", "progress_percent", "created_at", "updated_at"}
	lessonProgressCols = []string{"id", "user_id", "lesson_id", "watched_seconds", "completed", "approved", "updated_at"}
	assignmentCols     = []string{"id", "user_id", "lesson_id", "status", "file_url", "text_answer", "grade", "feedback", "created_at", "updated_at"}
)

type enrollRepository struct {
	db *sqlx.DB
}

var _ enroll.Repository = (*enrollRepository)(nil)

func NewEnrollRepository(db *sqlx.DB) *enrollRepository {
	return &enrollRepository{db: db}
}

// Enrollments

// UpsertEnrollment keeps the existing row untouched on conflict; the
// "inserted" column (xmax = 0 trick) reports whether a new row was created.
func (repo enrollRepository) UpsertEnrollment(ctx context.Context, e enroll.Enrollment) (enroll.Enrollment, bool, error) {
	query, args, err := psql.Insert("enrollments").
		Columns("user_id", "program_id", "status", "progress_percent", "created_at", "updated_at").
		Values(e.UserID, e.ProgramID, e.Status, e.ProgressPercent, e.CreatedAt, e.UpdatedAt).
		Suffix("ON CONFLICT (user_id, program_id) DO UPDATE SET user_id = EXCLUDED.user_id").
		Suffix("RETURNING " + sqlxColumns(enrollmentCols) + ", (xmax = 0) AS inserted").
		ToSql()
	if err != nil {
		return enroll.Enrollment{}, false, errors.Wrap(err, "building query")
	}

	var row enrollmentRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return enroll.Enrollment{}, false, errors.Wrap(err, "upserting enrollment")
	}
	return row.toDomain(), row.Inserted, nil
}

func (repo enrollRepository) UpsertCourseEnrollment(ctx context.Context, ce enroll.CourseEnrollment) (enroll.CourseEnrollment, bool, error) {
	query, args, err := psql.Insert("course_enrollments").
		Columns("user_id", "course_id", "status", "progress_percent", "created_at", "updated_at").
		Values(ce.UserID, ce.CourseID, ce.Status, ce.ProgressPercent, ce.CreatedAt, ce.UpdatedAt).
		Suffix("ON CONFLICT (user_id, course_id) DO UPDATE SET user_id = EXCLUDED.user_id").
		Suffix("RETURNING " + sqlxColumns(courseEnrollCols) + ", (xmax = 0) AS inserted").
		ToSql()
	if err != nil {
		return enroll.CourseEnrollment{}, false, errors.Wrap(err, "building query")
	}

	var row courseEnrollmentRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return enroll.CourseEnrollment{}, false, errors.Wrap(err, "upserting course enrollment")
	}
	return row.toDomain(), row.Inserted, nil
}

func (repo enrollRepository) QueryEnrollments(ctx context.Context, userID string) ([]enroll.Enrollment, error) {
	query, args, err := psql.Select(enrollmentCols...).From("enrollments").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []enrollmentRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]enroll.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.toDomain())
	}
	return enrollments, nil
}

func (repo enrollRepository) QueryCourseEnrollments(ctx context.Context, userID string) ([]enroll.CourseEnrollment, error) {
	query, args, err := psql.Select(courseEnrollCols...).From("course_enrollments").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []courseEnrollmentRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying course enrollments")
	}
	enrollments := make([]enroll.CourseEnrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.toDomain())
	}
	return enrollments, nil
}

func (repo enrollRepository) UpdateEnrollment(ctx context.Context, e enroll.Enrollment) (enroll.Enrollment, error) {
	query, args, err := psql.Update("enrollments").
		Set("status", e.Status).
		Set("progress_percent", e.ProgressPercent).
		Set("updated_at", e.UpdatedAt).
		Where(sq.Eq{"id": e.ID}).
		Suffix("RETURNING " + sqlxColumns(enrollmentCols)).
		ToSql()
	if err != nil {
		return enroll.Enrollment{}, errors.Wrap(err, "building query")
	}

	var row enrollmentRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return enroll.Enrollment{}, enroll.ErrNotEnrolled
		}
		return enroll.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	return row.toDomain(), nil
}

func (repo enrollRepository) UpdateCourseEnrollment(ctx context.Context, ce enroll.CourseEnrollment) (enroll.CourseEnrollment, error) {
	query, args, err := psql.Update("course_enrollments").
		Set("status", ce.Status).
		Set("progress_percent", ce.ProgressPercent).
		Set("updated_at", ce.UpdatedAt).
		Where(sq.Eq{"id": ce.ID}).
		Suffix("RETURNING " + sqlxColumns(courseEnrollCols)).
		ToSql()
	if err != nil {
		return enroll.CourseEnrollment{}, errors.Wrap(err, "building query")
	}

	var row courseEnrollmentRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return enroll.CourseEnrollment{}, enroll.ErrNotEnrolled
		}
		return enroll.CourseEnrollment{}, errors.Wrap(err, "updating course enrollment")
	}
	return row.toDomain(), nil
}

// Lesson progress

func (repo enrollRepository) UpsertLessonProgress(ctx context.Context, lp enroll.LessonProgress) (enroll.LessonProgress, error) {
	query, args, err := psql.Insert("lesson_progress").
		Columns("user_id", "lesson_id", "watched_seconds", "completed", "approved", "updated_at").
		Values(lp.UserID, lp.LessonID, lp.WatchedSeconds, lp.Completed, lp.Approved, lp.UpdatedAt).
		Suffix(`ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			watched_seconds = EXCLUDED.watched_seconds,
			completed = EXCLUDED.completed,
			approved = EXCLUDED.approved,
			updated_at = EXCLUDED.updated_at`).
		Suffix("RETURNING " + sqlxColumns(lessonProgressCols)).
		ToSql()
	if err != nil {
		return enroll.LessonProgress{}, errors.Wrap(err, "building query")
	}

	var row lessonProgressRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return enroll.LessonProgress{}, errors.Wrap(err, "upserting lesson progress")
	}
	return row.toDomain(), nil
}

func (repo enrollRepository) GetLessonProgress(ctx context.Context, userID, lessonID string) (enroll.LessonProgress, error) {
	query, args, err := psql.Select(lessonProgressCols...).From("lesson_progress").
		Where(sq.Eq{"user_id": userID, "lesson_id": lessonID}).
		ToSql()
	if err != nil {
		return enroll.LessonProgress{}, errors.Wrap(err, "building query")
	}

	var row lessonProgressRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return enroll.LessonProgress{}, enroll.ErrProgressNotFound
		}
		return enroll.LessonProgress{}, errors.Wrap(err, "getting lesson progress")
	}
	return row.toDomain(), nil
}

func (repo enrollRepository) QueryLessonProgress(ctx context.Context, userID string, lessonIDs []string) ([]enroll.LessonProgress, error) {
	qb := psql.Select(lessonProgressCols...).From("lesson_progress").
		Where(sq.Eq{"user_id": userID})
	if len(lessonIDs) > 0 {
		qb = qb.Where(sq.Eq{"lesson_id": lessonIDs})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []lessonProgressRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying lesson progress")
	}
	progress := make([]enroll.LessonProgress, 0, len(rows))
	for _, row := range rows {
		progress = append(progress, row.toDomain())
	}
	return progress, nil
}

func (repo enrollRepository) DeleteLessonProgress(ctx context.Context, userID string, lessonIDs ...string) error {
	if len(lessonIDs) == 0 {
		return nil
	}
	query, args, err := psql.Delete("lesson_progress").
		Where(sq.Eq{"user_id": userID, "lesson_id": lessonIDs}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting lesson progress")
}

// Assignments

func (repo enrollRepository) UpsertAssignment(ctx context.Context, a enroll.Assignment) (enroll.Assignment, error) {
	query, args, err := psql.Insert("assignments").
		Columns("user_id", "lesson_id", "status", "file_url", "text_answer", "grade", "feedback", "created_at", "updated_at").
		Values(a.UserID, a.LessonID, a.Status, a.FileURL, a.TextAnswer, a.Grade, a.Feedback, a.CreatedAt, a.UpdatedAt).
		Suffix(`ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			status = EXCLUDED.status,
			file_url = COALESCE(EXCLUDED.file_url, assignments.file_url),
			text_answer = COALESCE(EXCLUDED.text_answer, assignments.text_answer),
			grade = EXCLUDED.grade,
			feedback = EXCLUDED.feedback,
			updated_at = EXCLUDED.updated_at`).
		Suffix("RETURNING " + sqlxColumns(assignmentCols)).
		ToSql()
	if err != nil {
		return enroll.Assignment{}, errors.Wrap(err, "building query")
	}

	var row assignmentRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return enroll.Assignment{}, errors.Wrap(err, "upserting assignment")
	}
	return row.toDomain(), nil
}

func (repo enrollRepository) GetAssignment(ctx context.Context, userID, lessonID string) (enroll.Assignment, error) {
	query, args, err := psql.Select(assignmentCols...).From("assignments").
		Where(sq.Eq{"user_id": userID, "lesson_id": lessonID}).
		ToSql()
	if err != nil {
		return enroll.Assignment{}, errors.Wrap(err, "building query")
	}

	var row assignmentRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return enroll.Assignment{}, enroll.ErrAssignmentNotFound
		}
		return enroll.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return row.toDomain(), nil
}

func (repo enrollRepository) QueryAssignments(ctx context.Context, filter enroll.AssignmentFilter) ([]enroll.Assignment, error) {
	qb := psql.Select(assignmentCols...).From("assignments").OrderBy("updated_at DESC")
	if filter.UserID != "" {
		qb = qb.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.LessonID != "" {
		qb = qb.Where(sq.Eq{"lesson_id": filter.LessonID})
	}
	if filter.Status != "" {
		qb = qb.Where(sq.Eq{"status": filter.Status})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []assignmentRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]enroll.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.toDomain())
	}
	return assignments, nil
}
