package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/jkazadi/kampus/core/activity"
	"github.com/jkazadi/kampus/core/user"
)

type activityRepository struct {
	db *DB
}

func NewActivityRepository(db *DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) CountUsersByRole(ctx context.Context) (map[string]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[string]int)
	for _, usr := range repo.db.users {
		if !usr.Active() {
			continue
		}
		for _, role := range usr.Roles {
			counts[role]++
		}
	}
	return counts, nil
}

func (repo *activityRepository) CountSignupsSince(ctx context.Context, since time.Time) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, usr := range repo.db.users {
		if !usr.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (repo *activityRepository) QueryProgress(ctx context.Context, limit int) ([]activity.ProgressRow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rows := make([]activity.ProgressRow, 0, len(repo.db.lessonProgress))
	for _, lp := range repo.db.lessonProgress {
		lesson, ok := repo.db.lessons[lp.LessonID]
		if !ok {
			continue
		}
		course, ok := repo.db.courses[lesson.CourseID]
		if !ok {
			continue
		}
		row := activity.ProgressRow{
			UserID:         lp.UserID,
			CourseID:       course.ID,
			CourseTitle:    course.Title,
			WatchedSeconds: lp.WatchedSeconds,
			UpdatedAt:      lp.UpdatedAt,
		}
		if course.ProgramID.Valid {
			if program, ok := repo.db.programs[course.ProgramID.String]; ok {
				row.ProgramID = program.ID
				row.ProgramTitle = program.Title
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UpdatedAt.After(rows[j].UpdatedAt) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (repo *activityRepository) QueryInactiveStudents(ctx context.Context, since time.Time) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	activeSince := make(map[string]bool)
	for _, lp := range repo.db.lessonProgress {
		if !lp.UpdatedAt.Before(since) {
			activeSince[lp.UserID] = true
		}
	}

	students := make([]user.User, 0)
	for _, usr := range repo.db.users {
		if usr.Active() && usr.IsStudent() && !activeSince[usr.ID] {
			students = append(students, *usr)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].CreatedAt.Before(students[j].CreatedAt) })
	return students, nil
}

func (repo *activityRepository) QueryAdmins(ctx context.Context) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	admins := make([]user.User, 0)
	for _, usr := range repo.db.users {
		if usr.Active() && usr.IsAdmin() {
			admins = append(admins, *usr)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].CreatedAt.Before(admins[j].CreatedAt) })
	return admins, nil
}
