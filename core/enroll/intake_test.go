package enroll_test

import (
	"context"
	"testing"

	"github.com/jkazadi/kampus/core/enroll"
)

func TestParseDropName(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    enroll.DropName
		wantErr bool
	}{
		{
			name: "plain",
			arg:  "html-tags__awa@test.cd.pdf",
			want: enroll.DropName{LessonSlug: "html-tags", Email: "awa@test.cd"},
		},
		{
			name: "nested path and mixed case email",
			arg:  "/drop/2026/html-tags__AWA@Test.CD.docx",
			want: enroll.DropName{LessonSlug: "html-tags", Email: "awa@test.cd"},
		},
		{
			name: "no extension keeps the email TLD",
			arg:  "css-layout__ben@test.cd",
			want: enroll.DropName{LessonSlug: "css-layout", Email: "ben@test.cd"},
		},
		{
			name: "uppercase extension",
			arg:  "css-layout__ben@test.cd.PDF",
			want: enroll.DropName{LessonSlug: "css-layout", Email: "ben@test.cd"},
		},
		{name: "missing separator", arg: "html-tags-awa@test.cd.pdf", wantErr: true},
		{name: "empty slug", arg: "__awa@test.cd.pdf", wantErr: true},
		{name: "bad email", arg: "html-tags__not-an-email.pdf", wantErr: true},
		{name: "empty", arg: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enroll.ParseDropName(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDropName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDropName() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func Test_service_ProcessDropEntries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := f.createUser(t, "Awa", "awa@test.cd")
	course := f.createCourse(t, "html", "")
	lesson := f.createLesson(t, "html-tags", course.ID, 5)

	entries := []enroll.DropEntry{
		{Name: "html-tags__awa@test.cd.pdf", URL: "https://files.test.cd/html-tags__awa.pdf"},
		{Name: "garbage-file.pdf"},                        // malformed name
		{Name: "unknown-lesson__awa@test.cd.pdf"},        // no such lesson
		{Name: "html-tags__stranger@test.cd.pdf"},        // no such user
		{Name: "html-tags__AWA@test.cd.docx", URL: "https://files.test.cd/html-tags__awa.docx"}, // resubmission
	}

	res, err := f.svc.ProcessDropEntries(ctx, entries)
	if err != nil {
		t.Fatalf("ProcessDropEntries() failed: %v", err)
	}
	if res.Processed != 2 {
		t.Errorf("Processed = %d, want 2", res.Processed)
	}
	if res.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", res.Skipped)
	}
	if len(res.Errors) != 3 {
		t.Errorf("Errors len = %d, want 3", len(res.Errors))
	}

	a, err := f.repo.GetAssignment(ctx, usr.ID, lesson.ID)
	if err != nil {
		t.Fatalf("GetAssignment() failed: %v", err)
	}
	if a.Status != enroll.AssignmentSubmitted {
		t.Errorf("Status = %q, want %q", a.Status, enroll.AssignmentSubmitted)
	}
	if a.FileURL.String != "https://files.test.cd/html-tags__awa.docx" {
		t.Errorf("FileURL = %q, want the latest drop", a.FileURL.String)
	}
}
