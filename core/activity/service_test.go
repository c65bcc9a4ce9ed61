package activity_test

import (
	"context"
	"testing"
	"time"

	"github.com/jkazadi/kampus/core"
	"github.com/jkazadi/kampus/core/activity"
	"github.com/jkazadi/kampus/core/user"
)

type fakeRepo struct {
	byRole    map[string]int
	signups   map[int]int // days -> count
	rows      []activity.ProgressRow
	inactive  []user.User
	admins    []user.User
	lastSince time.Time
}

func (r *fakeRepo) CountUsersByRole(ctx context.Context) (map[string]int, error) {
	return r.byRole, nil
}

func (r *fakeRepo) CountSignupsSince(ctx context.Context, since time.Time) (int, error) {
	days := int(time.Since(since).Hours()/24 + 0.5)
	return r.signups[days], nil
}

func (r *fakeRepo) QueryProgress(ctx context.Context, limit int) ([]activity.ProgressRow, error) {
	if len(r.rows) > limit {
		return r.rows[:limit], nil
	}
	return r.rows, nil
}

func (r *fakeRepo) QueryInactiveStudents(ctx context.Context, since time.Time) ([]user.User, error) {
	r.lastSince = since
	return r.inactive, nil
}

func (r *fakeRepo) QueryAdmins(ctx context.Context) ([]user.User, error) {
	return r.admins, nil
}

type fakeMailer struct {
	sent []*core.EmailMessage
}

func (m *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

func Test_service_BuildReport(t *testing.T) {
	now := time.Now().UTC()
	repo := &fakeRepo{
		byRole:  map[string]int{user.RoleStudent: 40, user.RoleTeacher: 3},
		signups: map[int]int{7: 2, 30: 9, 365: 35},
		rows: []activity.ProgressRow{
			{UserID: "u1", CourseID: "c1", CourseTitle: "HTML", ProgramID: "p1", ProgramTitle: "Software Dev", WatchedSeconds: 1800, UpdatedAt: now.AddDate(0, 0, -1)},
			{UserID: "u2", CourseID: "c1", CourseTitle: "HTML", ProgramID: "p1", ProgramTitle: "Software Dev", WatchedSeconds: 600, UpdatedAt: now.AddDate(0, 0, -10)},
			{UserID: "u1", CourseID: "c2", CourseTitle: "Photography", WatchedSeconds: 3600, UpdatedAt: now.AddDate(0, 0, -40)},
		},
	}
	svc := activity.NewService(repo, &fakeMailer{})

	report, err := svc.BuildReport(context.Background())
	if err != nil {
		t.Fatalf("BuildReport() failed: %v", err)
	}

	if report.UsersByRole[user.RoleStudent] != 40 {
		t.Errorf("UsersByRole[student] = %d, want 40", report.UsersByRole[user.RoleStudent])
	}
	if report.Signups.Last7Days != 2 || report.Signups.Last30Days != 9 || report.Signups.Last365Days != 35 {
		t.Errorf("Signups = %+v, want 2/9/35", report.Signups)
	}
	if report.ActiveUsers.Last7Days != 1 || report.ActiveUsers.Last30Days != 2 {
		t.Errorf("ActiveUsers = %+v, want 1/2", report.ActiveUsers)
	}
	if report.RowsScanned != 3 || report.Capped {
		t.Errorf("RowsScanned = %d capped = %v, want 3 uncapped", report.RowsScanned, report.Capped)
	}

	// minutes descending, stand-alone course has no program entry
	if len(report.MinutesByCourse) != 2 {
		t.Fatalf("MinutesByCourse len = %d, want 2", len(report.MinutesByCourse))
	}
	if report.MinutesByCourse[0].Title != "Photography" || report.MinutesByCourse[0].Minutes != 60 {
		t.Errorf("top course = %+v, want Photography at 60min", report.MinutesByCourse[0])
	}
	if report.MinutesByCourse[1].Title != "HTML" || report.MinutesByCourse[1].Minutes != 40 {
		t.Errorf("second course = %+v, want HTML at 40min", report.MinutesByCourse[1])
	}
	if len(report.MinutesByProgram) != 1 || report.MinutesByProgram[0].Minutes != 40 {
		t.Errorf("MinutesByProgram = %+v, want Software Dev at 40min", report.MinutesByProgram)
	}
}

func Test_service_SendWeeklySummary(t *testing.T) {
	repo := &fakeRepo{
		byRole:  map[string]int{},
		signups: map[int]int{},
		admins: []user.User{
			{Name: "Root", Email: "root@test.cd"},
			{Name: "Boss", Email: "boss@test.cd"},
		},
	}
	mailer := &fakeMailer{}
	svc := activity.NewService(repo, mailer)

	n, err := svc.SendWeeklySummary(context.Background())
	if err != nil {
		t.Fatalf("SendWeeklySummary() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("recipients = %d, want 2", n)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent len = %d, want 1 message to all admins", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.TemplateName != "weekly-summary" {
		t.Errorf("TemplateName = %q, want weekly-summary", msg.TemplateName)
	}
	if len(msg.To) != 2 {
		t.Errorf("To len = %d, want 2", len(msg.To))
	}
}

func Test_service_SendWeeklySummary_noAdmins(t *testing.T) {
	mailer := &fakeMailer{}
	svc := activity.NewService(&fakeRepo{byRole: map[string]int{}, signups: map[int]int{}}, mailer)

	n, err := svc.SendWeeklySummary(context.Background())
	if err != nil {
		t.Fatalf("SendWeeklySummary() failed: %v", err)
	}
	if n != 0 || len(mailer.sent) != 0 {
		t.Errorf("recipients = %d sent = %d, want nothing sent", n, len(mailer.sent))
	}
}

func Test_service_SendInactivityNudges(t *testing.T) {
	repo := &fakeRepo{
		inactive: []user.User{
			{Name: "Awa", Email: "awa@test.cd"},
			{Name: "Ben", Email: "ben@test.cd"},
			{Name: "Cira", Email: "cira@test.cd"},
		},
	}
	mailer := &fakeMailer{}
	svc := activity.NewService(repo, mailer)

	n, err := svc.SendInactivityNudges(context.Background(), 0) // 0 -> default window
	if err != nil {
		t.Fatalf("SendInactivityNudges() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("recipients = %d, want 3", n)
	}
	if len(mailer.sent) != 3 {
		t.Fatalf("sent len = %d, want one message per student", len(mailer.sent))
	}
	for _, msg := range mailer.sent {
		if msg.TemplateName != "inactivity-nudge" {
			t.Errorf("TemplateName = %q, want inactivity-nudge", msg.TemplateName)
		}
		if len(msg.To) != 1 {
			t.Errorf("To len = %d, want 1", len(msg.To))
		}
	}

	wantSince := time.Now().UTC().AddDate(0, 0, -activity.DefaultInactiveDays)
	if diff := repo.lastSince.Sub(wantSince); diff < -time.Minute || diff > time.Minute {
		t.Errorf("since = %v, want about %v", repo.lastSince, wantSince)
	}
}
