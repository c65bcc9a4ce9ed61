package catalog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/catalog"
	inmemdb "github.com/jkazadi/kampus/storage/database/inmem"
)

type fixture struct {
	svc  catalog.Service
	repo catalog.Repository
}

func setup(t *testing.T) *fixture {
	t.Helper()
	repo := inmemdb.NewCatalogRepository(inmemdb.NewDB())
	return &fixture{svc: catalog.NewService(repo), repo: repo}
}

func publish(v bool) *bool { return &v }

func Test_service_Programs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.CreateProgram(ctx, catalog.NewProgram{Title: "Web Dev", Summary: "Build for the web"})
	if err != nil {
		t.Fatalf("CreateProgram() failed: %v", err)
	}
	if p.Slug != "web-dev" {
		t.Errorf("Slug = %q, want %q", p.Slug, "web-dev")
	}

	t.Run("duplicate title gets a suffixed slug", func(t *testing.T) {
		dup, err := f.svc.CreateProgram(ctx, catalog.NewProgram{Title: "Web Dev"})
		if err != nil {
			t.Fatalf("CreateProgram() failed: %v", err)
		}
		if dup.Slug == p.Slug || !strings.HasPrefix(dup.Slug, "web-dev-") {
			t.Errorf("Slug = %q, want a unique web-dev- slug", dup.Slug)
		}
	})

	t.Run("drafts are hidden unless asked for", func(t *testing.T) {
		programs, err := f.svc.QueryPrograms(ctx, false /* includeDrafts */)
		if err != nil {
			t.Fatalf("QueryPrograms() failed: %v", err)
		}
		if len(programs) != 0 {
			t.Errorf("programs len = %d, want 0", len(programs))
		}

		programs, err = f.svc.QueryPrograms(ctx, true)
		if err != nil {
			t.Fatalf("QueryPrograms() failed: %v", err)
		}
		if len(programs) != 2 {
			t.Errorf("programs len = %d, want 2", len(programs))
		}
	})

	t.Run("publish and unpublish", func(t *testing.T) {
		p, err = f.svc.UpdateProgram(ctx, p.ID, catalog.UpdateProgram{Published: publish(true)})
		if err != nil {
			t.Fatalf("UpdateProgram() failed: %v", err)
		}
		if !p.Published() {
			t.Error("program should be published")
		}
		publishedAt := p.PublishedAt

		// publishing again must not move the publication date
		p, err = f.svc.UpdateProgram(ctx, p.ID, catalog.UpdateProgram{Published: publish(true)})
		if err != nil {
			t.Fatalf("UpdateProgram() failed: %v", err)
		}
		if p.PublishedAt != publishedAt {
			t.Error("PublishedAt changed on a re-publish")
		}

		programs, err := f.svc.QueryPrograms(ctx, false)
		if err != nil {
			t.Fatalf("QueryPrograms() failed: %v", err)
		}
		if len(programs) != 1 {
			t.Errorf("programs len = %d, want 1", len(programs))
		}

		p, err = f.svc.UpdateProgram(ctx, p.ID, catalog.UpdateProgram{Published: publish(false)})
		if err != nil {
			t.Fatalf("UpdateProgram() failed: %v", err)
		}
		if p.Published() {
			t.Error("program should be a draft again")
		}
	})

	t.Run("renaming refreshes the slug", func(t *testing.T) {
		p, err = f.svc.UpdateProgram(ctx, p.ID, catalog.UpdateProgram{Title: "Web Development"})
		if err != nil {
			t.Fatalf("UpdateProgram() failed: %v", err)
		}
		if p.Slug != "web-development" {
			t.Errorf("Slug = %q, want %q", p.Slug, "web-development")
		}
	})

	t.Run("draft detail is hidden from students", func(t *testing.T) {
		if _, err := f.svc.GetProgramDetail(ctx, p.Slug, false); errors.Cause(err) != catalog.ErrProgramNotFound {
			t.Errorf("GetProgramDetail() error = %v, want ErrProgramNotFound", err)
		}
		detail, err := f.svc.GetProgramDetail(ctx, p.Slug, true)
		if err != nil {
			t.Fatalf("GetProgramDetail() failed: %v", err)
		}
		if detail.ID != p.ID {
			t.Errorf("ID = %q, want %q", detail.ID, p.ID)
		}
	})

	t.Run("update of unknown program", func(t *testing.T) {
		if _, err := f.svc.UpdateProgram(ctx, "7cf0c532-10c8-4a34-85cf-b7ccb7979c68", catalog.UpdateProgram{Title: "X"}); errors.Cause(err) != catalog.ErrProgramNotFound {
			t.Errorf("UpdateProgram() error = %v, want ErrProgramNotFound", err)
		}
	})
}

func Test_service_Courses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	prog, err := f.svc.CreateProgram(ctx, catalog.NewProgram{Title: "Design"})
	if err != nil {
		t.Fatalf("CreateProgram() failed: %v", err)
	}

	t.Run("unknown program is rejected", func(t *testing.T) {
		_, err := f.svc.CreateCourse(ctx, catalog.NewCourse{Title: "Typography", ProgramID: "7cf0c532-10c8-4a34-85cf-b7ccb7979c68"})
		if errors.Cause(err) != catalog.ErrProgramNotFound {
			t.Errorf("CreateCourse() error = %v, want ErrProgramNotFound", err)
		}
	})

	course, err := f.svc.CreateCourse(ctx, catalog.NewCourse{Title: "Typography", ProgramID: prog.ID, SortOrder: 1})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	standalone, err := f.svc.CreateCourse(ctx, catalog.NewCourse{Title: "Photography"})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	if standalone.ProgramID.Valid {
		t.Error("stand-alone course should have no program")
	}

	t.Run("filter by program", func(t *testing.T) {
		courses, err := f.svc.QueryCourses(ctx, catalog.CourseFilter{ProgramID: prog.ID})
		if err != nil {
			t.Fatalf("QueryCourses() failed: %v", err)
		}
		if len(courses) != 1 || courses[0].ID != course.ID {
			t.Errorf("courses = %+v, want just %q", courses, course.Title)
		}
	})

	t.Run("detail lists lessons", func(t *testing.T) {
		course, err = f.svc.UpdateCourse(ctx, course.ID, catalog.UpdateCourse{Published: publish(true)})
		if err != nil {
			t.Fatalf("UpdateCourse() failed: %v", err)
		}
		l1, err := f.svc.CreateLesson(ctx, catalog.NewLesson{CourseID: course.ID, Title: "Serifs", DurationMinutes: 8, SortOrder: 1})
		if err != nil {
			t.Fatalf("CreateLesson() failed: %v", err)
		}

		detail, err := f.svc.GetCourseDetail(ctx, course.Slug, false)
		if err != nil {
			t.Fatalf("GetCourseDetail() failed: %v", err)
		}
		if len(detail.Lessons) != 1 || detail.Lessons[0].ID != l1.ID {
			t.Errorf("Lessons = %+v, want just %q", detail.Lessons, l1.Title)
		}
	})

	t.Run("draft detail is hidden from students", func(t *testing.T) {
		if _, err := f.svc.GetCourseDetail(ctx, standalone.Slug, false); errors.Cause(err) != catalog.ErrCourseNotFound {
			t.Errorf("GetCourseDetail() error = %v, want ErrCourseNotFound", err)
		}
	})
}

func Test_service_LessonsAndMaterials(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	course, err := f.svc.CreateCourse(ctx, catalog.NewCourse{Title: "Photography"})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}

	t.Run("unknown course is rejected", func(t *testing.T) {
		_, err := f.svc.CreateLesson(ctx, catalog.NewLesson{CourseID: "7cf0c532-10c8-4a34-85cf-b7ccb7979c68", Title: "Lighting"})
		if errors.Cause(err) != catalog.ErrCourseNotFound {
			t.Errorf("CreateLesson() error = %v, want ErrCourseNotFound", err)
		}
	})

	// HasMaterials deliberately left false: the detail endpoint returns
	// materials regardless of the advisory flag.
	lesson, err := f.svc.CreateLesson(ctx, catalog.NewLesson{CourseID: course.ID, Title: "Lighting", DurationMinutes: 12})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}

	t.Run("materials", func(t *testing.T) {
		_, err := f.svc.AddMaterial(ctx, catalog.NewMaterial{LessonID: "7cf0c532-10c8-4a34-85cf-b7ccb7979c68", Kind: "link", Title: "Cheat sheet", URL: "https://test.cd/cheat"})
		if errors.Cause(err) != catalog.ErrLessonNotFound {
			t.Errorf("AddMaterial() error = %v, want ErrLessonNotFound", err)
		}

		m, err := f.svc.AddMaterial(ctx, catalog.NewMaterial{LessonID: lesson.ID, Kind: "file", Title: "Slides", URL: "https://test.cd/slides.pdf"})
		if err != nil {
			t.Fatalf("AddMaterial() failed: %v", err)
		}

		detail, err := f.svc.GetLessonDetail(ctx, lesson.Slug)
		if err != nil {
			t.Fatalf("GetLessonDetail() failed: %v", err)
		}
		if len(detail.Materials) != 1 || detail.Materials[0].ID != m.ID {
			t.Errorf("Materials = %+v, want just %q", detail.Materials, m.Title)
		}

		if err := f.svc.RemoveMaterial(ctx, m.ID); err != nil {
			t.Fatalf("RemoveMaterial() failed: %v", err)
		}
		detail, err = f.svc.GetLessonDetail(ctx, lesson.Slug)
		if err != nil {
			t.Fatalf("GetLessonDetail() failed: %v", err)
		}
		if len(detail.Materials) != 0 {
			t.Errorf("Materials len = %d, want 0", len(detail.Materials))
		}
	})

	t.Run("update duration", func(t *testing.T) {
		dur := 20
		lesson, err = f.svc.UpdateLesson(ctx, lesson.ID, catalog.UpdateLesson{DurationMinutes: &dur})
		if err != nil {
			t.Fatalf("UpdateLesson() failed: %v", err)
		}
		if lesson.DurationMinutes != 20 {
			t.Errorf("DurationMinutes = %d, want 20", lesson.DurationMinutes)
		}
	})
}
