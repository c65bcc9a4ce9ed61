package inmemdb

import (
	"context"
	"sort"

	"github.com/jkazadi/kampus/core/catalog"
)

type catalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db}
}

// Programs

func (repo *catalogRepository) CreateProgram(ctx context.Context, p catalog.Program) (catalog.Program, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.programs {
		if existing.Slug == p.Slug {
			return catalog.Program{}, catalog.ErrSlugExists
		}
	}
	p.ID = newID()
	repo.db.programs[p.ID] = &p
	return p, nil
}

func (repo *catalogRepository) GetProgram(ctx context.Context, filter catalog.GetFilter) (catalog.Program, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	switch {
	case filter.ID != "":
		if p, ok := repo.db.programs[filter.ID]; ok {
			return *p, nil
		}
	case filter.Slug != "":
		for _, p := range repo.db.programs {
			if p.Slug == filter.Slug {
				return *p, nil
			}
		}
	}
	return catalog.Program{}, catalog.ErrProgramNotFound
}

func (repo *catalogRepository) QueryPrograms(ctx context.Context, publishedOnly bool) ([]catalog.Program, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	programs := make([]catalog.Program, 0, len(repo.db.programs))
	for _, p := range repo.db.programs {
		if publishedOnly && !p.Published() {
			continue
		}
		programs = append(programs, *p)
	}
	sort.Slice(programs, func(i, j int) bool { return programs[i].Title < programs[j].Title })
	return programs, nil
}

func (repo *catalogRepository) UpdateProgram(ctx context.Context, p catalog.Program) (catalog.Program, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.programs[p.ID]; !ok {
		return catalog.Program{}, catalog.ErrProgramNotFound
	}
	repo.db.programs[p.ID] = &p
	return p, nil
}

func (repo *catalogRepository) DeleteProgram(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.programs, id)
	return nil
}

// Courses

func (repo *catalogRepository) CreateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.courses {
		if existing.Slug == c.Slug {
			return catalog.Course{}, catalog.ErrSlugExists
		}
	}
	c.ID = newID()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *catalogRepository) GetCourse(ctx context.Context, filter catalog.GetFilter) (catalog.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	switch {
	case filter.ID != "":
		if c, ok := repo.db.courses[filter.ID]; ok {
			return *c, nil
		}
	case filter.Slug != "":
		for _, c := range repo.db.courses {
			if c.Slug == filter.Slug {
				return *c, nil
			}
		}
	}
	return catalog.Course{}, catalog.ErrCourseNotFound
}

func (repo *catalogRepository) QueryCourses(ctx context.Context, filter catalog.CourseFilter) ([]catalog.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	inIDs := func(id string) bool {
		if len(filter.IDs) == 0 {
			return true
		}
		for _, want := range filter.IDs {
			if id == want {
				return true
			}
		}
		return false
	}

	courses := make([]catalog.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter.ProgramID != "" && c.ProgramID.String != filter.ProgramID {
			continue
		}
		if filter.PublishedOnly && !c.Published() {
			continue
		}
		if !inIDs(c.ID) {
			continue
		}
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].SortOrder != courses[j].SortOrder {
			return courses[i].SortOrder < courses[j].SortOrder
		}
		return courses[i].Title < courses[j].Title
	})
	return courses, nil
}

func (repo *catalogRepository) UpdateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[c.ID]; !ok {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *catalogRepository) DeleteCourse(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.courses, id)
	return nil
}

// Lessons

func (repo *catalogRepository) CreateLesson(ctx context.Context, l catalog.Lesson) (catalog.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.lessons {
		if existing.Slug == l.Slug {
			return catalog.Lesson{}, catalog.ErrSlugExists
		}
	}
	l.ID = newID()
	repo.db.lessons[l.ID] = &l
	return l, nil
}

func (repo *catalogRepository) GetLesson(ctx context.Context, filter catalog.GetFilter) (catalog.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	switch {
	case filter.ID != "":
		if l, ok := repo.db.lessons[filter.ID]; ok {
			return *l, nil
		}
	case filter.Slug != "":
		for _, l := range repo.db.lessons {
			if l.Slug == filter.Slug {
				return *l, nil
			}
		}
	}
	return catalog.Lesson{}, catalog.ErrLessonNotFound
}

func (repo *catalogRepository) QueryLessons(ctx context.Context, courseID string) ([]catalog.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	lessons := make([]catalog.Lesson, 0)
	for _, l := range repo.db.lessons {
		if l.CourseID == courseID {
			lessons = append(lessons, *l)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].SortOrder != lessons[j].SortOrder {
			return lessons[i].SortOrder < lessons[j].SortOrder
		}
		return lessons[i].Title < lessons[j].Title
	})
	return lessons, nil
}

func (repo *catalogRepository) UpdateLesson(ctx context.Context, l catalog.Lesson) (catalog.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.lessons[l.ID]; !ok {
		return catalog.Lesson{}, catalog.ErrLessonNotFound
	}
	repo.db.lessons[l.ID] = &l
	return l, nil
}

func (repo *catalogRepository) DeleteLesson(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.lessons, id)
	return nil
}

// Materials

func (repo *catalogRepository) CreateMaterial(ctx context.Context, m catalog.Material) (catalog.Material, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	m.ID = newID()
	repo.db.materials[m.ID] = &m
	return m, nil
}

func (repo *catalogRepository) QueryMaterials(ctx context.Context, lessonID string) ([]catalog.Material, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	materials := make([]catalog.Material, 0)
	for _, m := range repo.db.materials {
		if m.LessonID == lessonID {
			materials = append(materials, *m)
		}
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].CreatedAt.Before(materials[j].CreatedAt) })
	return materials, nil
}

func (repo *catalogRepository) DeleteMaterial(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.materials, id)
	return nil
}
