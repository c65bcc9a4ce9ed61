package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jkazadi/kampus/core/catalog"
)

type (
	programRow struct {
		ID          string      `db:"id"`
		Title       string      `db:"title"`
		Slug        string      `db:"slug"`
		Summary     string      `db:"summary"`
		ImageURL    null.String `db:"image_url"`
		PublishedAt null.Time   `db:"published_at"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}

	courseRow struct {
		ID          string      `db:"id"`
		ProgramID   null.String `db:"program_id"`
		Title       string      `db:"title"`
		Slug        string      `db:"slug"`
		Summary     string      `db:"summary"`
		ImageURL    null.String `db:"image_url"`
		SortOrder   int         `db:"sort_order"`
		PublishedAt null.Time   `db:"published_at"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}

	lessonRow struct {
		ID              string    `db:"id"`
		CourseID        string    `db:"course_id"`
		Title           string    `db:"title"`
		Slug            string    `db:"slug"`
		VideoURL        string    `db:"video_url"`
		DurationMinutes int       `db:"duration_minutes"`
		SortOrder       int       `db:"sort_order"`
		HasAssignment   bool      `db:"has_assignment"`
		HasMaterials    bool      `db:"has_materials"`
		CreatedAt       time.Time `db:"created_at"`
		UpdatedAt       time.Time `db:"updated_at"`
	}

	materialRow struct {
		ID        string    `db:"id"`
		LessonID  string    `db:"lesson_id"`
		Kind      string    `db:"kind"`
		Title     string    `db:"title"`
		URL       string    `db:"url"`
		CreatedAt time.Time `db:"created_at"`
	}
)

func (r programRow) toDomain() catalog.Program {
	return catalog.Program{
		ID: r.ID, Title: r.Title, Slug: r.Slug, Summary: r.Summary,
		ImageURL: r.ImageURL, PublishedAt: r.PublishedAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (r courseRow) toDomain() catalog.Course {
	return catalog.Course{
		ID: r.ID, ProgramID: r.ProgramID, Title: r.Title, Slug: r.Slug,
		Summary: r.Summary, ImageURL: r.ImageURL, SortOrder: r.SortOrder,
		PublishedAt: r.PublishedAt, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (r lessonRow) toDomain() catalog.Lesson {
	return catalog.Lesson{
		ID: r.ID, CourseID: r.CourseID, Title: r.Title, Slug: r.Slug,
		VideoURL: r.VideoURL, DurationMinutes: r.DurationMinutes, SortOrder: r.SortOrder,
		HasAssignment: r.HasAssignment, HasMaterials: r.HasMaterials,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (r materialRow) toDomain() catalog.Material {
	return catalog.Material{
		ID: r.ID, LessonID: r.LessonID, Kind: r.Kind, Title: r.Title,
		URL: r.URL, CreatedAt: r.CreatedAt,
	}
}

var (
	programCols  = []string{"id", "title", "slug", "summary", "image_url", "published_at", "created_at", "updated_at"}
	courseCols   = []string{"id", "program_id", "title", "slug", "summary", "image_url", "sort_order", "published_at", "created_at", "updated_at"}
	lessonCols   = []string{"id", "course_id", "title", "slug", "video_url", "duration_minutes", "sort_order", "has_assignment", "has_materials", "created_at", "updated_at"}
	materialCols = []string{"id", "lesson_id", "kind", "title", "url", "created_at"}
)

type catalogRepository struct {
	db *sqlx.DB
}

var _ catalog.Repository = (*catalogRepository)(nil)

func NewCatalogRepository(db *sqlx.DB) *catalogRepository {
	return &catalogRepository{db: db}
}

// slugConflict turns unique-slug violations into the domain sentinel.
func slugConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return catalog.ErrSlugExists
	}
	return err
}

// Programs

func (repo catalogRepository) CreateProgram(ctx context.Context, p catalog.Program) (catalog.Program, error) {
	query, args, err := psql.Insert("programs").
		Columns("title", "slug", "summary", "image_url", "published_at", "created_at", "updated_at").
		Values(p.Title, p.Slug, p.Summary, p.ImageURL, p.PublishedAt, p.CreatedAt, p.UpdatedAt).
		Suffix("RETURNING " + sqlxColumns(programCols)).
		ToSql()
	if err != nil {
		return catalog.Program{}, errors.Wrap(err, "building query")
	}

	var row programRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return catalog.Program{}, errors.Wrap(slugConflict(err), "creating program")
	}
	return row.toDomain(), nil
}

func (repo catalogRepository) GetProgram(ctx context.Context, filter catalog.GetFilter) (catalog.Program, error) {
	qb := psql.Select(programCols...).From("programs")
	switch {
	case filter.ID != "":
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.Slug != "":
		qb = qb.Where(sq.Eq{"slug": filter.Slug})
	default:
		return catalog.Program{}, catalog.ErrProgramNotFound
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return catalog.Program{}, errors.Wrap(err, "building query")
	}

	var row programRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Program{}, catalog.ErrProgramNotFound
		}
		return catalog.Program{}, errors.Wrap(err, "getting program")
	}
	return row.toDomain(), nil
}

func (repo catalogRepository) QueryPrograms(ctx context.Context, publishedOnly bool) ([]catalog.Program, error) {
	qb := psql.Select(programCols...).From("programs").OrderBy("title")
	if publishedOnly {
		qb = qb.Where("published_at IS NOT NULL")
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []programRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying programs")
	}
	programs := make([]catalog.Program, 0, len(rows))
	for _, row := range rows {
		programs = append(programs, row.toDomain())
	}
	return programs, nil
}

func (repo catalogRepository) UpdateProgram(ctx context.Context, p catalog.Program) (catalog.Program, error) {
	query, args, err := psql.Update("programs").
		Set("title", p.Title).
		Set("summary", p.Summary).
		Set("image_url", p.ImageURL).
		Set("published_at", p.PublishedAt).
		Set("updated_at", p.UpdatedAt).
		Where(sq.Eq{"id": p.ID}).
		Suffix("RETURNING " + sqlxColumns(programCols)).
		ToSql()
	if err != nil {
		return catalog.Program{}, errors.Wrap(err, "building query")
	}

	var row programRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Program{}, catalog.ErrProgramNotFound
		}
		return catalog.Program{}, errors.Wrap(err, "updating program")
	}
	return row.toDomain(), nil
}

func (repo catalogRepository) DeleteProgram(ctx context.Context, id string) error {
	query, args, err := psql.Delete("programs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting program")
}

// Courses

func (repo catalogRepository) CreateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	query, args, err := psql.Insert("courses").
		Columns("program_id", "title", "slug", "summary", "image_url", "sort_order", "published_at", "created_at", "updated_at").
		Values(c.ProgramID, c.Title, c.Slug, c.Summary, c.ImageURL, c.SortOrder, c.PublishedAt, c.CreatedAt, c.UpdatedAt).
		Suffix("RETURNING " + sqlxColumns(courseCols)).
		ToSql()
	if err != nil {
		return catalog.Course{}, errors.Wrap(err, "building query")
	}

	var row courseRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return catalog.Course{}, errors.Wrap(slugConflict(err), "creating course")
	}
	return row.toDomain(), nil
}

func (repo catalogRepository) GetCourse(ctx context.Context, filter catalog.GetFilter) (catalog.Course, error) {
	qb := psql.Select(courseCols...).From("courses")
	switch {
	case filter.ID != "":
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.Slug != "":
		qb = qb.Where(sq.Eq{"slug": filter.Slug})
	default:
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return catalog.Course{}, errors.Wrap(err, "building query")
	}

	var row courseRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Course{}, catalog.ErrCourseNotFound
		}
		return catalog.Course{}, errors.Wrap(err, "getting course")
	}
	return row.toDomain(), nil
}

func (repo catalogRepository) QueryCourses(ctx context.Context, filter catalog.CourseFilter) ([]catalog.Course, error) {
	qb := psql.Select(courseCols...).From("courses").OrderBy("sort_order", "title")
	if filter.ProgramID != "" {
		qb = qb.Where(sq.Eq{"program_id": filter.ProgramID})
	}
	if len(filter.IDs) > 0 {
		qb = qb.Where(sq.Eq{"id": filter.IDs})
	}
	if filter.PublishedOnly {
		qb = qb.Where("published_at IS NOT NULL")
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []courseRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]catalog.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toDomain())
	}
	return courses, nil
}

func (repo catalogRepository) UpdateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	query, args, err := psql.Update("courses").
		Set("program_id", c.ProgramID).
		Set("title", c.Title).
		Set("summary", c.Summary).
		Set("image_url", c.ImageURL).
		Set("sort_order", c.SortOrder).
		Set("published_at", c.PublishedAt).
		Set("updated_at", c.UpdatedAt).
		Where(sq.Eq{"id": c.ID}).
		Suffix("RETURNING " + sqlxColumns(courseCols)).
		ToSql()
	if err != nil {
		return catalog.Course{}, errors.Wrap(err, "building query")
	}

	var row courseRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Course{}, catalog.ErrCourseNotFound
		}
		return catalog.Course{}, errors.Wrap(err, "updating course")
	}
	return row.toDomain(), nil
}

func (repo catalogRepository) DeleteCourse(ctx context.Context, id string) error {
	query, args, err := psql.Delete("courses").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting course")
}

// Lessons

func (repo catalogRepository) CreateLesson(ctx context.Context, l catalog.Lesson) (catalog.Lesson, error) {
	query, args, err := psql.Insert("lessons").
		Columns("course_id", "title", "slug", "video_url", "duration_minutes", "sort_order", "has_assignment", "has_materials", "created_at", "updated_at").
		Values(l.CourseID, l.Title, l.Slug, l.VideoURL, l.DurationMinutes, l.SortOrder, l.HasAssignment, l.HasMaterials, l.CreatedAt, l.UpdatedAt).
		Suffix("RETURNING " + sqlxColumns(lessonCols)).
		ToSql()
	if err != nil {
		return catalog.Lesson{}, errors.Wrap(err, "building query")
	}

	var row lessonRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return catalog.Lesson{}, errors.Wrap(slugConflict(err), "creating lesson")
	}
	return row.toDomain(), nil
}

func (repo catalogRepository) GetLesson(ctx context.Context, filter catalog.GetFilter) (catalog.Lesson, error) {
	qb := psql.Select(lessonCols...).From("lessons")
	switch {
	case filter.ID != "":
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.Slug != "":
		qb = qb.Where(sq.Eq{"slug": filter.Slug})
	default:
		return catalog.Lesson{}, catalog.ErrLessonNotFound
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return catalog.Lesson{}, errors.Wrap(err, "building query")
	}

	var row lessonRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Lesson{}, catalog.ErrLessonNotFound
		}
		return catalog.Lesson{}, errors.Wrap(err, "getting lesson")
	}
	return row.toDomain(), nil
}

func (repo catalogRepository) QueryLessons(ctx context.Context, courseID string) ([]catalog.Lesson, error) {
	query, args, err := psql.Select(lessonCols...).From("lessons").
		Where(sq.Eq{"course_id": courseID}).
		OrderBy("sort_order", "title").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []lessonRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]catalog.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.toDomain())
	}
	return lessons, nil
}

func (repo catalogRepository) UpdateLesson(ctx context.Context, l catalog.Lesson) (catalog.Lesson, error) {
	query, args, err := psql.Update("lessons").
		Set("title", l.Title).
		Set("video_url", l.VideoURL).
		Set("duration_minutes", l.DurationMinutes).
		Set("sort_order", l.SortOrder).
		Set("has_assignment", l.HasAssignment).
		Set("has_materials", l.HasMaterials).
		Set("updated_at", l.UpdatedAt).
		Where(sq.Eq{"id": l.ID}).
		Suffix("RETURNING " + sqlxColumns(lessonCols)).
		ToSql()
	if err != nil {
		return catalog.Lesson{}, errors.Wrap(err, "building query")
	}

	var row lessonRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Lesson{}, catalog.ErrLessonNotFound
		}
		return catalog.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	return row.toDomain(), nil
}

func (repo catalogRepository) DeleteLesson(ctx context.Context, id string) error {
	query, args, err := psql.Delete("lessons").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting lesson")
}

// Materials

func (repo catalogRepository) CreateMaterial(ctx context.Context, m catalog.Material) (catalog.Material, error) {
	query, args, err := psql.Insert("materials").
		Columns("lesson_id", "kind", "title", "url", "created_at").
		Values(m.LessonID, m.Kind, m.Title, m.URL, m.CreatedAt).
		Suffix("RETURNING " + sqlxColumns(materialCols)).
		ToSql()
	if err != nil {
		return catalog.Material{}, errors.Wrap(err, "building query")
	}

	var row materialRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return catalog.Material{}, errors.Wrap(err, "creating material")
	}
	return row.toDomain(), nil
}

func (repo catalogRepository) QueryMaterials(ctx context.Context, lessonID string) ([]catalog.Material, error) {
	query, args, err := psql.Select(materialCols...).From("materials").
		Where(sq.Eq{"lesson_id": lessonID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []materialRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	materials := make([]catalog.Material, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, row.toDomain())
	}
	return materials, nil
}

func (repo catalogRepository) DeleteMaterial(ctx context.Context, id string) error {
	query, args, err := psql.Delete("materials").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting material")
}
