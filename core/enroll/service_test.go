package enroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/catalog"
	"github.com/jkazadi/kampus/core/enroll"
	"github.com/jkazadi/kampus/core/user"
	inmemdb "github.com/jkazadi/kampus/storage/database/inmem"
)

type fixture struct {
	svc     enroll.Service
	repo    enroll.Repository
	catRepo catalog.Repository
	usrRepo user.Repository
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := inmemdb.NewDB()
	repo := inmemdb.NewEnrollRepository(db)
	catRepo := inmemdb.NewCatalogRepository(db)
	usrRepo := inmemdb.NewUserRepository(db)
	return &fixture{
		svc:     enroll.NewService(repo, catRepo, usrRepo),
		repo:    repo,
		catRepo: catRepo,
		usrRepo: usrRepo,
	}
}

func (f *fixture) createUser(t *testing.T, name, email string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Roles:     []string{user.RoleStudent},
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	usr, err := f.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (f *fixture) createProgram(t *testing.T, title string) catalog.Program {
	t.Helper()
	now := time.Now().UTC()
	p, err := f.catRepo.CreateProgram(context.Background(), catalog.Program{
		Title:     title,
		Slug:      title,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createProgram() failed: %v", err)
	}
	return p
}

func (f *fixture) createCourse(t *testing.T, title, programID string) catalog.Course {
	t.Helper()
	now := time.Now().UTC()
	c := catalog.Course{
		Title:     title,
		Slug:      title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if programID != "" {
		c.ProgramID.SetValid(programID)
	}
	c, err := f.catRepo.CreateCourse(context.Background(), c)
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return c
}

func (f *fixture) createLesson(t *testing.T, title, courseID string, durationMinutes int) catalog.Lesson {
	t.Helper()
	now := time.Now().UTC()
	l, err := f.catRepo.CreateLesson(context.Background(), catalog.Lesson{
		CourseID:        courseID,
		Title:           title,
		Slug:            title,
		DurationMinutes: durationMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("createLesson() failed: %v", err)
	}
	return l
}

func Test_service_EnrollProgram(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := f.createUser(t, "Awa", "awa@test.cd")
	prog := f.createProgram(t, "software-dev")
	c1 := f.createCourse(t, "intro", prog.ID)
	c2 := f.createCourse(t, "html", prog.ID)
	f.createCourse(t, "standalone", "")

	t.Run("unknown program", func(t *testing.T) {
		if _, err := f.svc.EnrollProgram(ctx, usr.ID, "6b38ae2d-51f4-4cbe-9c0f-96c7e9e46bf0"); errors.Cause(err) != catalog.ErrProgramNotFound {
			t.Errorf("EnrollProgram() error = %v, want %v", err, catalog.ErrProgramNotFound)
		}
	})

	t.Run("expands to current program courses", func(t *testing.T) {
		enr, err := f.svc.EnrollProgram(ctx, usr.ID, prog.ID)
		if err != nil {
			t.Fatalf("EnrollProgram() failed: %v", err)
		}
		if enr.Status != enroll.StatusActive {
			t.Errorf("Status = %q, want %q", enr.Status, enroll.StatusActive)
		}

		courses, err := f.svc.MyCourses(ctx, usr.ID)
		if err != nil {
			t.Fatalf("MyCourses() failed: %v", err)
		}
		if len(courses) != 2 {
			t.Fatalf("MyCourses() len = %d, want 2", len(courses))
		}
		want := map[string]bool{c1.ID: true, c2.ID: true}
		for _, c := range courses {
			if !want[c.ID] {
				t.Errorf("unexpected course %q", c.Title)
			}
		}
	})

	t.Run("idempotent on re-enrollment", func(t *testing.T) {
		if _, err := f.svc.EnrollProgram(ctx, usr.ID, prog.ID); err != nil {
			t.Fatalf("EnrollProgram() failed: %v", err)
		}
		enrs, err := f.svc.MyPrograms(ctx, usr.ID)
		if err != nil {
			t.Fatalf("MyPrograms() failed: %v", err)
		}
		if len(enrs) != 1 {
			t.Errorf("MyPrograms() len = %d, want 1", len(enrs))
		}
		ces, err := f.repo.QueryCourseEnrollments(ctx, usr.ID)
		if err != nil {
			t.Fatalf("QueryCourseEnrollments() failed: %v", err)
		}
		if len(ces) != 2 {
			t.Errorf("QueryCourseEnrollments() len = %d, want 2", len(ces))
		}
	})

	t.Run("expansion is not retroactive", func(t *testing.T) {
		c3 := f.createCourse(t, "css", prog.ID)

		ces, err := f.repo.QueryCourseEnrollments(ctx, usr.ID)
		if err != nil {
			t.Fatalf("QueryCourseEnrollments() failed: %v", err)
		}
		for _, ce := range ces {
			if ce.CourseID == c3.ID {
				t.Errorf("course %q was enrolled retroactively", c3.Title)
			}
		}

		// the reconciled course list does include it
		courses, err := f.svc.MyCourses(ctx, usr.ID)
		if err != nil {
			t.Fatalf("MyCourses() failed: %v", err)
		}
		var found bool
		for _, c := range courses {
			found = found || c.ID == c3.ID
		}
		if !found {
			t.Errorf("MyCourses() does not include the program's new course")
		}
	})
}

func Test_service_Enroll(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := f.createUser(t, "Ben", "ben@test.cd")
	prog := f.createProgram(t, "design")
	f.createCourse(t, "figma", prog.ID)
	solo := f.createCourse(t, "photography", "")

	sel := enroll.EnrollSelection{ProgramIDs: []string{prog.ID}, CourseIDs: []string{solo.ID}}
	if err := f.svc.Enroll(ctx, usr.ID, sel); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	// applying the same selection again changes nothing
	if err := f.svc.Enroll(ctx, usr.ID, sel); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}

	enrs, err := f.svc.MyPrograms(ctx, usr.ID)
	if err != nil {
		t.Fatalf("MyPrograms() failed: %v", err)
	}
	if len(enrs) != 1 {
		t.Errorf("MyPrograms() len = %d, want 1", len(enrs))
	}
	courses, err := f.svc.MyCourses(ctx, usr.ID)
	if err != nil {
		t.Fatalf("MyCourses() failed: %v", err)
	}
	if len(courses) != 2 {
		t.Errorf("MyCourses() len = %d, want 2", len(courses))
	}
}

func Test_service_RecordProgress(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := f.createUser(t, "Cira", "cira@test.cd")
	prog := f.createProgram(t, "software-dev")
	course := f.createCourse(t, "html", prog.ID)
	lesson := f.createLesson(t, "tags", course.ID, 10) // 600s, completes at 540s
	other := f.createLesson(t, "forms", course.ID, 10)

	if _, err := f.svc.EnrollProgram(ctx, usr.ID, prog.ID); err != nil {
		t.Fatalf("EnrollProgram() failed: %v", err)
	}

	t.Run("below threshold", func(t *testing.T) {
		lp, err := f.svc.RecordProgress(ctx, usr.ID, enroll.ProgressUpdate{LessonID: lesson.ID, WatchedSeconds: 500})
		if err != nil {
			t.Fatalf("RecordProgress() failed: %v", err)
		}
		if lp.Completed {
			t.Errorf("Completed = true, want false at 500/600s")
		}
	})

	t.Run("trips at 90 percent", func(t *testing.T) {
		lp, err := f.svc.RecordProgress(ctx, usr.ID, enroll.ProgressUpdate{LessonID: lesson.ID, WatchedSeconds: 540})
		if err != nil {
			t.Fatalf("RecordProgress() failed: %v", err)
		}
		if !lp.Completed {
			t.Errorf("Completed = false, want true at 540/600s")
		}
	})

	t.Run("watched seconds never decrease", func(t *testing.T) {
		lp, err := f.svc.RecordProgress(ctx, usr.ID, enroll.ProgressUpdate{LessonID: lesson.ID, WatchedSeconds: 100})
		if err != nil {
			t.Fatalf("RecordProgress() failed: %v", err)
		}
		if lp.WatchedSeconds != 540 {
			t.Errorf("WatchedSeconds = %d, want 540", lp.WatchedSeconds)
		}
		if !lp.Completed {
			t.Errorf("Completed = false, completion never untrips")
		}
	})

	t.Run("course and program percent are floored", func(t *testing.T) {
		// 1 of 2 lessons completed -> 50%
		ces, err := f.repo.QueryCourseEnrollments(ctx, usr.ID)
		if err != nil {
			t.Fatalf("QueryCourseEnrollments() failed: %v", err)
		}
		if len(ces) != 1 || ces[0].ProgressPercent != 50 {
			t.Fatalf("course ProgressPercent = %+v, want one enrollment at 50", ces)
		}

		if _, err = f.svc.RecordProgress(ctx, usr.ID, enroll.ProgressUpdate{LessonID: other.ID, WatchedSeconds: 600}); err != nil {
			t.Fatalf("RecordProgress() failed: %v", err)
		}
		ces, _ = f.repo.QueryCourseEnrollments(ctx, usr.ID)
		if ces[0].ProgressPercent != 100 || ces[0].Status != enroll.StatusCompleted {
			t.Errorf("course enrollment = %d%% %q, want 100%% %q", ces[0].ProgressPercent, ces[0].Status, enroll.StatusCompleted)
		}
		enrs, _ := f.svc.MyPrograms(ctx, usr.ID)
		if enrs[0].ProgressPercent != 100 || enrs[0].Status != enroll.StatusCompleted {
			t.Errorf("program enrollment = %d%% %q, want 100%% %q", enrs[0].ProgressPercent, enrs[0].Status, enroll.StatusCompleted)
		}
	})

	t.Run("unknown lesson", func(t *testing.T) {
		_, err := f.svc.RecordProgress(ctx, usr.ID, enroll.ProgressUpdate{LessonID: "eb7e99fc-6461-44c4-80a3-1e1d4b3f22fb", WatchedSeconds: 10})
		if errors.Cause(err) != catalog.ErrLessonNotFound {
			t.Errorf("RecordProgress() error = %v, want %v", err, catalog.ErrLessonNotFound)
		}
	})
}

func Test_service_MarkCourseComplete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := f.createUser(t, "Didi", "didi@test.cd")
	course := f.createCourse(t, "html", "")
	timed := f.createLesson(t, "tags", course.ID, 12)
	zero := f.createLesson(t, "quiz", course.ID, 0) // no video

	if _, err := f.svc.EnrollCourses(ctx, usr.ID, course.ID); err != nil {
		t.Fatalf("EnrollCourses() failed: %v", err)
	}

	rows, err := f.svc.MarkCourseComplete(ctx, usr.ID, course.ID)
	if err != nil {
		t.Fatalf("MarkCourseComplete() failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("MarkCourseComplete() len = %d, want 2", len(rows))
	}
	for _, lp := range rows {
		if !lp.Completed || !lp.Approved {
			t.Errorf("lesson %s not fully completed: %+v", lp.LessonID, lp)
		}
		switch lp.LessonID {
		case timed.ID:
			if lp.WatchedSeconds != 12*60 {
				t.Errorf("WatchedSeconds = %d, want %d", lp.WatchedSeconds, 12*60)
			}
		case zero.ID:
			if lp.WatchedSeconds != 1 {
				t.Errorf("WatchedSeconds = %d, want 1 for a zero-duration lesson", lp.WatchedSeconds)
			}
		}
	}

	ces, err := f.repo.QueryCourseEnrollments(ctx, usr.ID)
	if err != nil {
		t.Fatalf("QueryCourseEnrollments() failed: %v", err)
	}
	if ces[0].ProgressPercent != 100 || ces[0].Status != enroll.StatusCompleted {
		t.Errorf("course enrollment = %d%% %q, want 100%% completed", ces[0].ProgressPercent, ces[0].Status)
	}
}

func Test_service_ResetCourseProgress(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := f.createUser(t, "Eli", "eli@test.cd")
	course := f.createCourse(t, "html", "")
	lesson := f.createLesson(t, "tags", course.ID, 5)

	if _, err := f.svc.EnrollCourses(ctx, usr.ID, course.ID); err != nil {
		t.Fatalf("EnrollCourses() failed: %v", err)
	}
	if _, err := f.svc.MarkLessonComplete(ctx, usr.ID, lesson.ID); err != nil {
		t.Fatalf("MarkLessonComplete() failed: %v", err)
	}

	if err := f.svc.ResetCourseProgress(ctx, usr.ID, course.ID); err != nil {
		t.Fatalf("ResetCourseProgress() failed: %v", err)
	}
	ces, err := f.repo.QueryCourseEnrollments(ctx, usr.ID)
	if err != nil {
		t.Fatalf("QueryCourseEnrollments() failed: %v", err)
	}
	if ces[0].ProgressPercent != 0 || ces[0].Status != enroll.StatusActive {
		t.Errorf("course enrollment = %d%% %q, want 0%% active after reset", ces[0].ProgressPercent, ces[0].Status)
	}
}

func Test_service_Assignments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := f.createUser(t, "Fifi", "fifi@test.cd")
	course := f.createCourse(t, "html", "")
	lesson := f.createLesson(t, "tags", course.ID, 5)

	if _, err := f.svc.EnrollCourses(ctx, usr.ID, course.ID); err != nil {
		t.Fatalf("EnrollCourses() failed: %v", err)
	}

	t.Run("submit then resubmit preserves previous answer", func(t *testing.T) {
		a, err := f.svc.SubmitAssignment(ctx, usr.ID, enroll.SubmitAssignment{
			LessonID: lesson.ID,
			FileURL:  "https://files.test.cd/hw.pdf",
		})
		if err != nil {
			t.Fatalf("SubmitAssignment() failed: %v", err)
		}
		if a.Status != enroll.AssignmentSubmitted {
			t.Errorf("Status = %q, want %q", a.Status, enroll.AssignmentSubmitted)
		}

		a, err = f.svc.SubmitAssignment(ctx, usr.ID, enroll.SubmitAssignment{
			LessonID:   lesson.ID,
			TextAnswer: "done in class",
		})
		if err != nil {
			t.Fatalf("SubmitAssignment() failed: %v", err)
		}
		if a.FileURL.String != "https://files.test.cd/hw.pdf" {
			t.Errorf("FileURL = %q, want previous file kept", a.FileURL.String)
		}
		if a.TextAnswer.String != "done in class" {
			t.Errorf("TextAnswer = %q, want %q", a.TextAnswer.String, "done in class")
		}
	})

	t.Run("approval marks the lesson approved", func(t *testing.T) {
		if _, err := f.svc.RecordProgress(ctx, usr.ID, enroll.ProgressUpdate{LessonID: lesson.ID, WatchedSeconds: 30}); err != nil {
			t.Fatalf("RecordProgress() failed: %v", err)
		}

		grade := 85
		a, err := f.svc.ReviewAssignment(ctx, enroll.ReviewAssignment{
			UserID:   usr.ID,
			LessonID: lesson.ID,
			Status:   enroll.AssignmentApproved,
			Grade:    &grade,
			Feedback: "good work",
		})
		if err != nil {
			t.Fatalf("ReviewAssignment() failed: %v", err)
		}
		if a.Status != enroll.AssignmentApproved || a.Grade.Int != 85 {
			t.Errorf("reviewed assignment = %q grade %d, want approved grade 85", a.Status, a.Grade.Int)
		}

		lp, err := f.repo.GetLessonProgress(ctx, usr.ID, lesson.ID)
		if err != nil {
			t.Fatalf("GetLessonProgress() failed: %v", err)
		}
		if !lp.Approved {
			t.Errorf("lesson progress Approved = false, want true after approval")
		}
	})

	t.Run("review of unknown submission", func(t *testing.T) {
		_, err := f.svc.ReviewAssignment(ctx, enroll.ReviewAssignment{
			UserID:   usr.ID,
			LessonID: "0b664cd4-59dd-47a4-b3a1-6a3b79c1e63f",
			Status:   enroll.AssignmentRejected,
		})
		if errors.Cause(err) != enroll.ErrAssignmentNotFound {
			t.Errorf("ReviewAssignment() error = %v, want %v", err, enroll.ErrAssignmentNotFound)
		}
	})
}
