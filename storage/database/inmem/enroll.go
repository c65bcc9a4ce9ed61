package inmemdb

import (
	"context"
	"sort"

	"github.com/jkazadi/kampus/core/enroll"
)

type enrollRepository struct {
	db *DB
}

func NewEnrollRepository(db *DB) *enrollRepository {
	return &enrollRepository{db: db}
}

// Enrollments

func (repo *enrollRepository) UpsertEnrollment(ctx context.Context, e enroll.Enrollment) (enroll.Enrollment, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.enrollments {
		if existing.UserID == e.UserID && existing.ProgramID == e.ProgramID {
			return *existing, false, nil
		}
	}
	e.ID = newID()
	repo.db.enrollments[e.ID] = &e
	return e, true, nil
}

func (repo *enrollRepository) UpsertCourseEnrollment(ctx context.Context, ce enroll.CourseEnrollment) (enroll.CourseEnrollment, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.courseEnrollments {
		if existing.UserID == ce.UserID && existing.CourseID == ce.CourseID {
			return *existing, false, nil
		}
	}
	ce.ID = newID()
	repo.db.courseEnrollments[ce.ID] = &ce
	return ce, true, nil
}

func (repo *enrollRepository) QueryEnrollments(ctx context.Context, userID string) ([]enroll.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrollments := make([]enroll.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if e.UserID == userID {
			enrollments = append(enrollments, *e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].CreatedAt.Before(enrollments[j].CreatedAt) })
	return enrollments, nil
}

func (repo *enrollRepository) QueryCourseEnrollments(ctx context.Context, userID string) ([]enroll.CourseEnrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrollments := make([]enroll.CourseEnrollment, 0)
	for _, ce := range repo.db.courseEnrollments {
		if ce.UserID == userID {
			enrollments = append(enrollments, *ce)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].CreatedAt.Before(enrollments[j].CreatedAt) })
	return enrollments, nil
}

func (repo *enrollRepository) UpdateEnrollment(ctx context.Context, e enroll.Enrollment) (enroll.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.enrollments[e.ID]; !ok {
		return enroll.Enrollment{}, enroll.ErrNotEnrolled
	}
	repo.db.enrollments[e.ID] = &e
	return e, nil
}

func (repo *enrollRepository) UpdateCourseEnrollment(ctx context.Context, ce enroll.CourseEnrollment) (enroll.CourseEnrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courseEnrollments[ce.ID]; !ok {
		return enroll.CourseEnrollment{}, enroll.ErrNotEnrolled
	}
	repo.db.courseEnrollments[ce.ID] = &ce
	return ce, nil
}

// Lesson progress

func (repo *enrollRepository) UpsertLessonProgress(ctx context.Context, lp enroll.LessonProgress) (enroll.LessonProgress, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.lessonProgress {
		if existing.UserID == lp.UserID && existing.LessonID == lp.LessonID {
			lp.ID = existing.ID
			repo.db.lessonProgress[lp.ID] = &lp
			return lp, nil
		}
	}
	lp.ID = newID()
	repo.db.lessonProgress[lp.ID] = &lp
	return lp, nil
}

func (repo *enrollRepository) GetLessonProgress(ctx context.Context, userID, lessonID string) (enroll.LessonProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, lp := range repo.db.lessonProgress {
		if lp.UserID == userID && lp.LessonID == lessonID {
			return *lp, nil
		}
	}
	return enroll.LessonProgress{}, enroll.ErrProgressNotFound
}

func (repo *enrollRepository) QueryLessonProgress(ctx context.Context, userID string, lessonIDs []string) ([]enroll.LessonProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	inIDs := func(id string) bool {
		if len(lessonIDs) == 0 {
			return true
		}
		for _, want := range lessonIDs {
			if id == want {
				return true
			}
		}
		return false
	}

	progress := make([]enroll.LessonProgress, 0)
	for _, lp := range repo.db.lessonProgress {
		if lp.UserID == userID && inIDs(lp.LessonID) {
			progress = append(progress, *lp)
		}
	}
	return progress, nil
}

func (repo *enrollRepository) DeleteLessonProgress(ctx context.Context, userID string, lessonIDs ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, lp := range repo.db.lessonProgress {
		if lp.UserID != userID {
			continue
		}
		for _, lessonID := range lessonIDs {
			if lp.LessonID == lessonID {
				delete(repo.db.lessonProgress, id)
				break
			}
		}
	}
	return nil
}

// Assignments

func (repo *enrollRepository) UpsertAssignment(ctx context.Context, a enroll.Assignment) (enroll.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.assignments {
		if existing.UserID == a.UserID && existing.LessonID == a.LessonID {
			a.ID = existing.ID
			a.CreatedAt = existing.CreatedAt
			if !a.FileURL.Valid {
				a.FileURL = existing.FileURL
			}
			if !a.TextAnswer.Valid {
				a.TextAnswer = existing.TextAnswer
			}
			repo.db.assignments[a.ID] = &a
			return a, nil
		}
	}
	a.ID = newID()
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *enrollRepository) GetAssignment(ctx context.Context, userID, lessonID string) (enroll.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, a := range repo.db.assignments {
		if a.UserID == userID && a.LessonID == lessonID {
			return *a, nil
		}
	}
	return enroll.Assignment{}, enroll.ErrAssignmentNotFound
}

func (repo *enrollRepository) QueryAssignments(ctx context.Context, filter enroll.AssignmentFilter) ([]enroll.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	assignments := make([]enroll.Assignment, 0)
	for _, a := range repo.db.assignments {
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if filter.LessonID != "" && a.LessonID != filter.LessonID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		assignments = append(assignments, *a)
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].UpdatedAt.After(assignments[j].UpdatedAt) })
	return assignments, nil
}
