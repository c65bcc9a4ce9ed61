package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jkazadi/kampus/core/catalog"
	"github.com/jkazadi/kampus/core/enroll"
	"github.com/jkazadi/kampus/core/user"
)

func TestHome(t *testing.T) {
	f := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	f.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "Welcome to Kampus API!" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func (f *appFixture) seedCatalog(t *testing.T, published bool) (catalog.Program, catalog.Course, catalog.Lesson) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	prog := catalog.Program{Title: "Software Dev", Slug: "software-dev", CreatedAt: now, UpdatedAt: now}
	if published {
		prog.PublishedAt.SetValid(now)
	}
	prog, err := f.catRepo.CreateProgram(ctx, prog)
	if err != nil {
		t.Fatalf("seedCatalog() failed: %v", err)
	}

	course := catalog.Course{Title: "HTML", Slug: "html", CreatedAt: now, UpdatedAt: now}
	course.ProgramID.SetValid(prog.ID)
	if published {
		course.PublishedAt.SetValid(now)
	}
	course, err = f.catRepo.CreateCourse(ctx, course)
	if err != nil {
		t.Fatalf("seedCatalog() failed: %v", err)
	}

	lesson, err := f.catRepo.CreateLesson(ctx, catalog.Lesson{
		CourseID:        course.ID,
		Title:           "Tags",
		Slug:            "html-tags",
		DurationMinutes: 10,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("seedCatalog() failed: %v", err)
	}
	return prog, course, lesson
}

func TestCatalogVisibility(t *testing.T) {
	f := setup(t)
	student := createUser(t, f.usrRepo, "Awa", "awa", "awa@test.cd", "LeTshuapa#1", []string{user.RoleStudent}, true)
	teacher := createUser(t, f.usrRepo, "Prof", "profprof", "prof@test.cd", "LeTshuapa#1", []string{user.RoleTeacher}, true)
	f.seedCatalog(t, false /* draft */)

	t.Run("unauthenticated is rejected", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/programs")
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("drafts hidden from students", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/programs", getToken(t, student))
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var programs []catalog.Program
		if err := json.Unmarshal(rec.Body.Bytes(), &programs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(programs) != 0 {
			t.Errorf("programs len = %d, want 0 for a student", len(programs))
		}
	})

	t.Run("staff sees drafts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/programs", getToken(t, teacher))
		f.server.ServeHTTP(rec, req)
		var programs []catalog.Program
		if err := json.Unmarshal(rec.Body.Bytes(), &programs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(programs) != 1 {
			t.Errorf("programs len = %d, want 1 for staff", len(programs))
		}
	})

	t.Run("students cannot create programs", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"title": "Hacking"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/programs", getToken(t, student), body)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("staff creates a program", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"title": "Design", "summary": "Learn design"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/programs", getToken(t, teacher), body)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var p catalog.Program
		if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if p.Slug != "design" {
			t.Errorf("Slug = %q, want %q", p.Slug, "design")
		}
	})
}

func TestEnrollmentFlow(t *testing.T) {
	f := setup(t)
	student := createUser(t, f.usrRepo, "Awa", "awa", "awa@test.cd", "LeTshuapa#1", []string{user.RoleStudent}, true)
	teacher := createUser(t, f.usrRepo, "Prof", "profprof", "prof@test.cd", "LeTshuapa#1", []string{user.RoleTeacher}, true)
	prog, course, lesson := f.seedCatalog(t, true)
	token := getToken(t, student)

	t.Run("enroll in a program", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments/programs/"+prog.ID, token)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var enr enroll.Enrollment
		if err := json.Unmarshal(rec.Body.Bytes(), &enr); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if enr.ProgramID != prog.ID || enr.Status != enroll.StatusActive {
			t.Errorf("enrollment = %+v", enr)
		}
	})

	t.Run("unknown program is a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments/programs/6b38ae2d-51f4-4cbe-9c0f-96c7e9e46bf0", token)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("my courses lists the program's courses", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/me/courses", token)
		f.server.ServeHTTP(rec, req)
		var courses []catalog.Course
		if err := json.Unmarshal(rec.Body.Bytes(), &courses); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(courses) != 1 || courses[0].ID != course.ID {
			t.Errorf("courses = %+v, want the seeded course", courses)
		}
	})

	t.Run("record progress", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"lesson_id": lesson.ID, "watched_seconds": 580})
		req, rec := newAuthRequest(http.MethodPost, "/v1/me/progress", token, body)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var lp enroll.LessonProgress
		if err := json.Unmarshal(rec.Body.Bytes(), &lp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if !lp.Completed {
			t.Errorf("Completed = false, want true at 580/600s")
		}
	})

	t.Run("negative watched seconds", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"lesson_id": lesson.ID, "watched_seconds": -5})
		req, rec := newAuthRequest(http.MethodPost, "/v1/me/progress", token, body)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("submit and review an assignment", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"lesson_id": lesson.ID, "text_answer": "my homework"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/me/assignments", token, body)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		// students cannot review
		review := marchallObj(t, map[string]interface{}{
			"user_id":   student.ID,
			"lesson_id": lesson.ID,
			"status":    "approved",
			"grade":     90,
		})
		req, rec = newAuthRequest(http.MethodPost, "/v1/assignments/review", token, review)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusForbidden)
		}

		req, rec = newAuthRequest(http.MethodPost, "/v1/assignments/review", getToken(t, teacher), review)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var a enroll.Assignment
		if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if a.Status != enroll.AssignmentApproved {
			t.Errorf("Status = %q, want %q", a.Status, enroll.AssignmentApproved)
		}
	})

	t.Run("empty submission is rejected", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"lesson_id": lesson.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/me/assignments", token, body)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestDropboxWebhook(t *testing.T) {
	f := setup(t)
	createUser(t, f.usrRepo, "Awa", "awa", "awa@test.cd", "LeTshuapa#1", []string{user.RoleStudent}, true)
	f.seedCatalog(t, true)

	t.Run("verification challenge", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/webhooks/dropbox?challenge=abc123")
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Body.String() != "abc123" {
			t.Errorf("code = %d body = %q, want 200 %q", rec.Code, rec.Body.String(), "abc123")
		}
	})

	t.Run("intake without auth", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"entries": []map[string]string{
				{"name": "html-tags__awa@test.cd.pdf", "url": "https://files.test.cd/hw.pdf"},
				{"name": "nonsense.pdf"},
			},
		})
		req, rec := newRequest(http.MethodPost, "/v1/webhooks/dropbox", body)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var res enroll.IntakeResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if res.Processed != 1 || res.Skipped != 1 {
			t.Errorf("IntakeResult = %+v, want 1 processed / 1 skipped", res)
		}
	})
}

func TestActivityEndpoints(t *testing.T) {
	f := setup(t)
	student := createUser(t, f.usrRepo, "Awa", "awa", "awa@test.cd", "LeTshuapa#1", []string{user.RoleStudent}, true)
	admin := createUser(t, f.usrRepo, "Root", "rooot", "root@test.cd", "LeTshuapa#1", []string{user.RoleAdmin}, true)

	t.Run("report is admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/activity/report", getToken(t, student))
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin gets the report", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/activity/report", getToken(t, admin))
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var report struct {
			UsersByRole map[string]int `json:"users_by_role"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if report.UsersByRole[user.RoleStudent] != 1 {
			t.Errorf("UsersByRole = %+v, want 1 student", report.UsersByRole)
		}
	})
}
