package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jkazadi/kampus/core"
)

var (
	// errors
	ErrProgramNotFound  = errors.New("program not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrMaterialNotFound = errors.New("material not found")
	ErrSlugExists       = errors.New("a row with this slug already exists")
)

type (
	Repository interface {
		CreateProgram(ctx context.Context, p Program) (Program, error)
		GetProgram(ctx context.Context, filter GetFilter) (Program, error)
		QueryPrograms(ctx context.Context, publishedOnly bool) ([]Program, error)
		UpdateProgram(ctx context.Context, p Program) (Program, error)
		DeleteProgram(ctx context.Context, id string) error

		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, filter GetFilter) (Course, error)
		// QueryCourses returns courses ordered by (sort_order, title).
		QueryCourses(ctx context.Context, filter CourseFilter) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLesson(ctx context.Context, filter GetFilter) (Lesson, error)
		QueryLessons(ctx context.Context, courseID string) ([]Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error

		CreateMaterial(ctx context.Context, m Material) (Material, error)
		QueryMaterials(ctx context.Context, lessonID string) ([]Material, error)
		DeleteMaterial(ctx context.Context, id string) error
	}

	Service interface {
		CreateProgram(ctx context.Context, np NewProgram) (Program, error)
		UpdateProgram(ctx context.Context, id string, up UpdateProgram) (Program, error)
		DeleteProgram(ctx context.Context, id string) error
		QueryPrograms(ctx context.Context, includeDrafts bool) ([]Program, error)
		GetProgramDetail(ctx context.Context, slug string, includeDrafts bool) (ProgramDetail, error)

		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		UpdateCourse(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
		QueryCourses(ctx context.Context, filter CourseFilter) ([]Course, error)
		GetCourseDetail(ctx context.Context, slug string, includeDrafts bool) (CourseDetail, error)

		CreateLesson(ctx context.Context, nl NewLesson) (Lesson, error)
		UpdateLesson(ctx context.Context, id string, ul UpdateLesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
		// GetLessonDetail always includes the lesson's materials; the
		// HasMaterials flag is advisory and never consulted.
		GetLessonDetail(ctx context.Context, slug string) (LessonDetail, error)

		AddMaterial(ctx context.Context, nm NewMaterial) (Material, error)
		RemoveMaterial(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// slugFor derives a unique slug from title within the rows visible via get.
func (svc *service) slugFor(ctx context.Context, title string, get func(context.Context, GetFilter) (interface{}, error)) string {
	slug := core.Slugify(title)
	if _, err := get(ctx, GetFilter{Slug: slug}); err != nil {
		return slug // not taken
	}
	return slug + "-" + core.Slugify(time.Now().UTC().Format("20060102150405"))
}

func (svc *service) programSlug(ctx context.Context, title string) string {
	return svc.slugFor(ctx, title, func(ctx context.Context, f GetFilter) (interface{}, error) {
		return svc.repo.GetProgram(ctx, f)
	})
}

func (svc *service) courseSlug(ctx context.Context, title string) string {
	return svc.slugFor(ctx, title, func(ctx context.Context, f GetFilter) (interface{}, error) {
		return svc.repo.GetCourse(ctx, f)
	})
}

func (svc *service) lessonSlug(ctx context.Context, title string) string {
	return svc.slugFor(ctx, title, func(ctx context.Context, f GetFilter) (interface{}, error) {
		return svc.repo.GetLesson(ctx, f)
	})
}

// Programs

func (svc *service) CreateProgram(ctx context.Context, np NewProgram) (Program, error) {
	now := time.Now().UTC()
	p := Program{
		Title:     np.Title,
		Slug:      svc.programSlug(ctx, np.Title),
		Summary:   np.Summary,
		ImageURL:  null.NewString(np.ImageURL, np.ImageURL != ""),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateProgram(ctx, p)
}

func (svc *service) UpdateProgram(ctx context.Context, id string, up UpdateProgram) (Program, error) {
	p, err := svc.repo.GetProgram(ctx, GetFilter{ID: id})
	if err != nil {
		return Program{}, err
	}
	if up.Title != "" && up.Title != p.Title {
		p.Title = up.Title
		p.Slug = svc.programSlug(ctx, up.Title)
	}
	if up.Summary != "" {
		p.Summary = up.Summary
	}
	if up.ImageURL != "" {
		p.ImageURL.SetValid(up.ImageURL)
	}
	if up.Published != nil {
		if *up.Published && !p.Published() {
			p.PublishedAt = null.TimeFrom(time.Now().UTC())
		} else if !*up.Published {
			p.PublishedAt = null.Time{}
		}
	}
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProgram(ctx, p)
}

func (svc *service) DeleteProgram(ctx context.Context, id string) error {
	return svc.repo.DeleteProgram(ctx, id)
}

func (svc *service) QueryPrograms(ctx context.Context, includeDrafts bool) ([]Program, error) {
	return svc.repo.QueryPrograms(ctx, !includeDrafts)
}

func (svc *service) GetProgramDetail(ctx context.Context, slug string, includeDrafts bool) (ProgramDetail, error) {
	p, err := svc.repo.GetProgram(ctx, GetFilter{Slug: slug})
	if err != nil {
		return ProgramDetail{}, err
	}
	if !p.Published() && !includeDrafts {
		return ProgramDetail{}, ErrProgramNotFound
	}
	courses, err := svc.repo.QueryCourses(ctx, CourseFilter{ProgramID: p.ID, PublishedOnly: !includeDrafts})
	if err != nil {
		return ProgramDetail{}, errors.Wrap(err, "querying program courses")
	}
	return ProgramDetail{Program: p, Courses: courses}, nil
}

// Courses

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if nc.ProgramID != "" {
		if _, err := svc.repo.GetProgram(ctx, GetFilter{ID: nc.ProgramID}); err != nil {
			return Course{}, err
		}
	}
	now := time.Now().UTC()
	c := Course{
		ProgramID: null.NewString(nc.ProgramID, nc.ProgramID != ""),
		Title:     nc.Title,
		Slug:      svc.courseSlug(ctx, nc.Title),
		Summary:   nc.Summary,
		ImageURL:  null.NewString(nc.ImageURL, nc.ImageURL != ""),
		SortOrder: nc.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *service) UpdateCourse(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, GetFilter{ID: id})
	if err != nil {
		return Course{}, err
	}
	if uc.Title != "" && uc.Title != c.Title {
		c.Title = uc.Title
		c.Slug = svc.courseSlug(ctx, uc.Title)
	}
	if uc.Summary != "" {
		c.Summary = uc.Summary
	}
	if uc.ImageURL != "" {
		c.ImageURL.SetValid(uc.ImageURL)
	}
	if uc.ProgramID != nil {
		c.ProgramID = null.NewString(*uc.ProgramID, *uc.ProgramID != "")
	}
	if uc.SortOrder != nil {
		c.SortOrder = *uc.SortOrder
	}
	if uc.Published != nil {
		if *uc.Published && !c.Published() {
			c.PublishedAt = null.TimeFrom(time.Now().UTC())
		} else if !*uc.Published {
			c.PublishedAt = null.Time{}
		}
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

func (svc *service) DeleteCourse(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *service) QueryCourses(ctx context.Context, filter CourseFilter) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *service) GetCourseDetail(ctx context.Context, slug string, includeDrafts bool) (CourseDetail, error) {
	c, err := svc.repo.GetCourse(ctx, GetFilter{Slug: slug})
	if err != nil {
		return CourseDetail{}, err
	}
	if !c.Published() && !includeDrafts {
		return CourseDetail{}, ErrCourseNotFound
	}
	lessons, err := svc.repo.QueryLessons(ctx, c.ID)
	if err != nil {
		return CourseDetail{}, errors.Wrap(err, "querying course lessons")
	}
	return CourseDetail{Course: c, Lessons: lessons}, nil
}

// Lessons

func (svc *service) CreateLesson(ctx context.Context, nl NewLesson) (Lesson, error) {
	if _, err := svc.repo.GetCourse(ctx, GetFilter{ID: nl.CourseID}); err != nil {
		return Lesson{}, err
	}
	now := time.Now().UTC()
	l := Lesson{
		CourseID:        nl.CourseID,
		Title:           nl.Title,
		Slug:            svc.lessonSlug(ctx, nl.Title),
		VideoURL:        nl.VideoURL,
		DurationMinutes: nl.DurationMinutes,
		SortOrder:       nl.SortOrder,
		HasAssignment:   nl.HasAssignment,
		HasMaterials:    nl.HasMaterials,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return svc.repo.CreateLesson(ctx, l)
}

func (svc *service) UpdateLesson(ctx context.Context, id string, ul UpdateLesson) (Lesson, error) {
	l, err := svc.repo.GetLesson(ctx, GetFilter{ID: id})
	if err != nil {
		return Lesson{}, err
	}
	if ul.Title != "" && ul.Title != l.Title {
		l.Title = ul.Title
		l.Slug = svc.lessonSlug(ctx, ul.Title)
	}
	if ul.VideoURL != "" {
		l.VideoURL = ul.VideoURL
	}
	if ul.DurationMinutes != nil {
		l.DurationMinutes = *ul.DurationMinutes
	}
	if ul.SortOrder != nil {
		l.SortOrder = *ul.SortOrder
	}
	if ul.HasAssignment != nil {
		l.HasAssignment = *ul.HasAssignment
	}
	if ul.HasMaterials != nil {
		l.HasMaterials = *ul.HasMaterials
	}
	l.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLesson(ctx, l)
}

func (svc *service) DeleteLesson(ctx context.Context, id string) error {
	return svc.repo.DeleteLesson(ctx, id)
}

func (svc *service) GetLessonDetail(ctx context.Context, slug string) (LessonDetail, error) {
	l, err := svc.repo.GetLesson(ctx, GetFilter{Slug: slug})
	if err != nil {
		return LessonDetail{}, err
	}
	materials, err := svc.repo.QueryMaterials(ctx, l.ID)
	if err != nil {
		return LessonDetail{}, errors.Wrap(err, "querying lesson materials")
	}
	return LessonDetail{Lesson: l, Materials: materials}, nil
}

// Materials

func (svc *service) AddMaterial(ctx context.Context, nm NewMaterial) (Material, error) {
	if _, err := svc.repo.GetLesson(ctx, GetFilter{ID: nm.LessonID}); err != nil {
		return Material{}, err
	}
	m := Material{
		LessonID:  nm.LessonID,
		Kind:      nm.Kind,
		Title:     nm.Title,
		URL:       nm.URL,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateMaterial(ctx, m)
}

func (svc *service) RemoveMaterial(ctx context.Context, id string) error {
	return svc.repo.DeleteMaterial(ctx, id)
}
