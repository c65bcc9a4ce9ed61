package activity

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/user"
)

type (
	Repository interface {
		CountUsersByRole(ctx context.Context) (map[string]int, error)
		CountSignupsSince(ctx context.Context, since time.Time) (int, error)
		// QueryProgress returns lesson-progress rows joined with course and
		// program, most recent first, at most limit rows.
		QueryProgress(ctx context.Context, limit int) ([]ProgressRow, error)
		// QueryInactiveStudents returns active students with no lesson
		// progress recorded since the given time.
		QueryInactiveStudents(ctx context.Context, since time.Time) ([]user.User, error)
		QueryAdmins(ctx context.Context) ([]user.User, error)
	}

	Service interface {
		// BuildReport recomputes the dashboard aggregates from scratch.
		BuildReport(ctx context.Context) (Report, error)
		// SendWeeklySummary mails the current report highlights to every
		// admin; returns the number of recipients.
		SendWeeklySummary(ctx context.Context) (int, error)
		// SendInactivityNudges mails students with no progress in the last
		// inactiveDays days; returns the number of recipients.
		SendInactivityNudges(ctx context.Context, inactiveDays int) (int, error)
	}
)

func NewService(repo Repository, mailSvc mailSender) Service {
	return &service{repo: repo, mailSvc: mailSvc}
}

func (svc *service) BuildReport(ctx context.Context) (Report, error) {
	now := time.Now().UTC()
	report := Report{GeneratedAt: now}

	byRole, err := svc.repo.CountUsersByRole(ctx)
	if err != nil {
		return Report{}, errors.Wrap(err, "counting users by role")
	}
	report.UsersByRole = byRole

	for _, win := range []struct {
		days int
		dest *int
	}{
		{7, &report.Signups.Last7Days},
		{30, &report.Signups.Last30Days},
		{365, &report.Signups.Last365Days},
	} {
		n, err := svc.repo.CountSignupsSince(ctx, now.AddDate(0, 0, -win.days))
		if err != nil {
			return Report{}, errors.Wrapf(err, "counting %d-day signups", win.days)
		}
		*win.dest = n
	}

	rows, err := svc.repo.QueryProgress(ctx, progressScanCap)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying progress")
	}
	report.RowsScanned = len(rows)
	report.Capped = len(rows) == progressScanCap

	courseMins := map[string]*MinutesEntry{}
	programMins := map[string]*MinutesEntry{}
	active7 := map[string]bool{}
	active30 := map[string]bool{}
	for _, row := range rows {
		mins := row.WatchedSeconds / 60
		if e, ok := courseMins[row.CourseID]; ok {
			e.Minutes += mins
		} else {
			courseMins[row.CourseID] = &MinutesEntry{ID: row.CourseID, Title: row.CourseTitle, Minutes: mins}
		}
		if row.ProgramID != "" {
			if e, ok := programMins[row.ProgramID]; ok {
				e.Minutes += mins
			} else {
				programMins[row.ProgramID] = &MinutesEntry{ID: row.ProgramID, Title: row.ProgramTitle, Minutes: mins}
			}
		}
		if row.UpdatedAt.After(now.AddDate(0, 0, -30)) {
			active30[row.UserID] = true
			if row.UpdatedAt.After(now.AddDate(0, 0, -7)) {
				active7[row.UserID] = true
			}
		}
	}
	report.ActiveUsers.Last7Days = len(active7)
	report.ActiveUsers.Last30Days = len(active30)
	report.MinutesByCourse = sortedEntries(courseMins)
	report.MinutesByProgram = sortedEntries(programMins)
	return report, nil
}

// sortedEntries orders by minutes descending, title as tiebreak.
func sortedEntries(m map[string]*MinutesEntry) []MinutesEntry {
	entries := make([]MinutesEntry, 0, len(m))
	for _, e := range m {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Minutes != entries[j].Minutes {
			return entries[i].Minutes > entries[j].Minutes
		}
		return entries[i].Title < entries[j].Title
	})
	return entries
}
