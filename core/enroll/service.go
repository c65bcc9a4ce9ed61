package enroll

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/catalog"
)

var (
	// errors
	ErrNotEnrolled        = errors.New("not enrolled")
	ErrProgressNotFound   = errors.New("progress not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
)

type (
	Repository interface {
		// UpsertEnrollment inserts the (user, program) row or leaves the
		// existing one untouched; created reports which happened.
		UpsertEnrollment(ctx context.Context, e Enrollment) (res Enrollment, created bool, err error)
		UpsertCourseEnrollment(ctx context.Context, ce CourseEnrollment) (res CourseEnrollment, created bool, err error)
		QueryEnrollments(ctx context.Context, userID string) ([]Enrollment, error)
		QueryCourseEnrollments(ctx context.Context, userID string) ([]CourseEnrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		UpdateCourseEnrollment(ctx context.Context, ce CourseEnrollment) (CourseEnrollment, error)

		// UpsertLessonProgress inserts or overwrites the (user, lesson) row.
		UpsertLessonProgress(ctx context.Context, lp LessonProgress) (LessonProgress, error)
		GetLessonProgress(ctx context.Context, userID, lessonID string) (LessonProgress, error)
		QueryLessonProgress(ctx context.Context, userID string, lessonIDs []string) ([]LessonProgress, error)
		DeleteLessonProgress(ctx context.Context, userID string, lessonIDs ...string) error

		UpsertAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, userID, lessonID string) (Assignment, error)
		QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
	}

	Service interface {
		// Enroll is the single authoritative entry point for a user's
		// program/course selection.
		Enroll(ctx context.Context, userID string, sel EnrollSelection) error
		EnrollProgram(ctx context.Context, userID, programID string) (Enrollment, error)
		EnrollCourses(ctx context.Context, userID string, courseIDs ...string) ([]CourseEnrollment, error)
		MyPrograms(ctx context.Context, userID string) ([]Enrollment, error)
		// MyCourses reconciles direct course enrollments with courses of
		// enrolled programs, de-duplicated by course id.
		MyCourses(ctx context.Context, userID string) ([]catalog.Course, error)

		RecordProgress(ctx context.Context, userID string, pu ProgressUpdate) (LessonProgress, error)
		MarkLessonComplete(ctx context.Context, userID, lessonID string) (LessonProgress, error)
		MarkCourseComplete(ctx context.Context, userID, courseID string) ([]LessonProgress, error)
		ResetLessonProgress(ctx context.Context, userID, lessonID string) error
		ResetCourseProgress(ctx context.Context, userID, courseID string) error

		SubmitAssignment(ctx context.Context, userID string, sa SubmitAssignment) (Assignment, error)
		ReviewAssignment(ctx context.Context, ra ReviewAssignment) (Assignment, error)
		QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)

		ProcessDropEntries(ctx context.Context, entries []DropEntry) (IntakeResult, error)
	}

	service struct {
		repo    Repository
		catRepo catalog.Repository
		usrRepo UserResolver
	}

	// UserResolver is the slice of the user repository the enrollment flow
	// needs (webhook intake resolves submitters by email).
	UserResolver interface {
		GetUserIDByEmail(ctx context.Context, email string) (string, error)
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, catRepo catalog.Repository, usrRepo UserResolver) Service {
	return &service{
		repo:    repo,
		catRepo: catRepo,
		usrRepo: usrRepo,
	}
}

// Enrollment writer

// Enroll applies a selection: programs expand to their current courses;
// stand-alone courses are enrolled individually. Each write is an idempotent
// upsert; no cross-row atomicity is promised, a failure leaves prior rows
// committed.
func (svc *service) Enroll(ctx context.Context, userID string, sel EnrollSelection) error {
	for _, pid := range sel.ProgramIDs {
		if _, err := svc.EnrollProgram(ctx, userID, pid); err != nil {
			return errors.Wrapf(err, "enrolling program %s", pid)
		}
	}
	if len(sel.CourseIDs) > 0 {
		if _, err := svc.EnrollCourses(ctx, userID, sel.CourseIDs...); err != nil {
			return errors.Wrap(err, "enrolling courses")
		}
	}
	return nil
}

// EnrollProgram upserts the (user, program) enrollment and expands it to a
// course enrollment for every course linked to the program at this moment.
// Courses linked to the program later are not enrolled retroactively.
func (svc *service) EnrollProgram(ctx context.Context, userID, programID string) (Enrollment, error) {
	if _, err := svc.catRepo.GetProgram(ctx, catalog.GetFilter{ID: programID}); err != nil {
		return Enrollment{}, err
	}

	now := time.Now().UTC()
	e, _, err := svc.repo.UpsertEnrollment(ctx, Enrollment{
		UserID:    userID,
		ProgramID: programID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "upserting enrollment")
	}

	courses, err := svc.catRepo.QueryCourses(ctx, catalog.CourseFilter{ProgramID: programID})
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "querying program courses")
	}
	for _, c := range courses {
		if _, _, err = svc.repo.UpsertCourseEnrollment(ctx, CourseEnrollment{
			UserID:    userID,
			CourseID:  c.ID,
			Status:    StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return Enrollment{}, errors.Wrapf(err, "upserting course enrollment %s", c.ID)
		}
	}
	return e, nil
}

func (svc *service) EnrollCourses(ctx context.Context, userID string, courseIDs ...string) ([]CourseEnrollment, error) {
	now := time.Now().UTC()
	enrollments := make([]CourseEnrollment, 0, len(courseIDs))
	for _, cid := range courseIDs {
		if _, err := svc.catRepo.GetCourse(ctx, catalog.GetFilter{ID: cid}); err != nil {
			return nil, err
		}
		ce, _, err := svc.repo.UpsertCourseEnrollment(ctx, CourseEnrollment{
			UserID:    userID,
			CourseID:  cid,
			Status:    StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "upserting course enrollment %s", cid)
		}
		enrollments = append(enrollments, ce)
	}
	return enrollments, nil
}

func (svc *service) MyPrograms(ctx context.Context, userID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, userID)
}

func (svc *service) MyCourses(ctx context.Context, userID string) ([]catalog.Course, error) {
	courseEnrs, err := svc.repo.QueryCourseEnrollments(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course enrollments")
	}
	progEnrs, err := svc.repo.QueryEnrollments(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	seen := make(map[string]bool, len(courseEnrs))
	ids := make([]string, 0, len(courseEnrs))
	for _, ce := range courseEnrs {
		if !seen[ce.CourseID] {
			seen[ce.CourseID] = true
			ids = append(ids, ce.CourseID)
		}
	}
	// program-linked courses may predate the expansion upserts (or the user
	// was enrolled in the program before a course was added); include them
	// without duplicating.
	for _, e := range progEnrs {
		courses, err := svc.catRepo.QueryCourses(ctx, catalog.CourseFilter{ProgramID: e.ProgramID})
		if err != nil {
			return nil, errors.Wrap(err, "querying program courses")
		}
		for _, c := range courses {
			if !seen[c.ID] {
				seen[c.ID] = true
				ids = append(ids, c.ID)
			}
		}
	}

	if len(ids) == 0 {
		return []catalog.Course{}, nil
	}
	return svc.catRepo.QueryCourses(ctx, catalog.CourseFilter{IDs: ids})
}

// Progress bookkeeping

// lessonTargetSeconds is the full watch target of a lesson, at least 1s so
// zero-duration lessons can still be completed.
func lessonTargetSeconds(l catalog.Lesson) int {
	secs := l.DurationMinutes * 60
	if secs < 1 {
		secs = 1
	}
	return secs
}

// RecordProgress upserts the user's progress on a lesson. Watched seconds
// never decrease; completion trips at 90% of the lesson duration and never
// untrips.
func (svc *service) RecordProgress(ctx context.Context, userID string, pu ProgressUpdate) (LessonProgress, error) {
	lesson, err := svc.catRepo.GetLesson(ctx, catalog.GetFilter{ID: pu.LessonID})
	if err != nil {
		return LessonProgress{}, err
	}

	lp, err := svc.repo.GetLessonProgress(ctx, userID, pu.LessonID)
	if err != nil && errors.Cause(err) != ErrProgressNotFound {
		return LessonProgress{}, err
	}
	lp.UserID = userID
	lp.LessonID = pu.LessonID
	if pu.WatchedSeconds > lp.WatchedSeconds {
		lp.WatchedSeconds = pu.WatchedSeconds
	}
	if float64(lp.WatchedSeconds) >= completionThreshold*float64(lessonTargetSeconds(lesson)) {
		lp.Completed = true
	}
	lp.UpdatedAt = time.Now().UTC()

	lp, err = svc.repo.UpsertLessonProgress(ctx, lp)
	if err != nil {
		return LessonProgress{}, errors.Wrap(err, "upserting lesson progress")
	}
	if err = svc.recomputeCourseProgress(ctx, userID, lesson.CourseID); err != nil {
		return LessonProgress{}, err
	}
	return lp, nil
}

func (svc *service) MarkLessonComplete(ctx context.Context, userID, lessonID string) (LessonProgress, error) {
	lesson, err := svc.catRepo.GetLesson(ctx, catalog.GetFilter{ID: lessonID})
	if err != nil {
		return LessonProgress{}, err
	}
	lp, err := svc.repo.UpsertLessonProgress(ctx, LessonProgress{
		UserID:         userID,
		LessonID:       lessonID,
		WatchedSeconds: lessonTargetSeconds(lesson),
		Completed:      true,
		Approved:       true,
		UpdatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return LessonProgress{}, errors.Wrap(err, "upserting lesson progress")
	}
	if err = svc.recomputeCourseProgress(ctx, userID, lesson.CourseID); err != nil {
		return LessonProgress{}, err
	}
	return lp, nil
}

// MarkCourseComplete upserts one lesson_progress row per lesson in the
// course, each fully watched (clamped to at least 1 second).
func (svc *service) MarkCourseComplete(ctx context.Context, userID, courseID string) ([]LessonProgress, error) {
	lessons, err := svc.catRepo.QueryLessons(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course lessons")
	}

	now := time.Now().UTC()
	rows := make([]LessonProgress, 0, len(lessons))
	for _, l := range lessons {
		lp, err := svc.repo.UpsertLessonProgress(ctx, LessonProgress{
			UserID:         userID,
			LessonID:       l.ID,
			WatchedSeconds: lessonTargetSeconds(l),
			Completed:      true,
			Approved:       true,
			UpdatedAt:      now,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "upserting lesson progress %s", l.ID)
		}
		rows = append(rows, lp)
	}
	if err = svc.recomputeCourseProgress(ctx, userID, courseID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (svc *service) ResetLessonProgress(ctx context.Context, userID, lessonID string) error {
	lesson, err := svc.catRepo.GetLesson(ctx, catalog.GetFilter{ID: lessonID})
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteLessonProgress(ctx, userID, lessonID); err != nil {
		return errors.Wrap(err, "deleting lesson progress")
	}
	return svc.recomputeCourseProgress(ctx, userID, lesson.CourseID)
}

func (svc *service) ResetCourseProgress(ctx context.Context, userID, courseID string) error {
	lessons, err := svc.catRepo.QueryLessons(ctx, courseID)
	if err != nil {
		return errors.Wrap(err, "querying course lessons")
	}
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	if len(ids) > 0 {
		if err = svc.repo.DeleteLessonProgress(ctx, userID, ids...); err != nil {
			return errors.Wrap(err, "deleting lesson progress")
		}
	}
	return svc.recomputeCourseProgress(ctx, userID, courseID)
}

// recomputeCourseProgress refreshes the completion percentage on the user's
// course enrollment (if any) and on the parent program enrollment. Percent
// is completed lessons over total lessons, floored.
func (svc *service) recomputeCourseProgress(ctx context.Context, userID, courseID string) error {
	course, err := svc.catRepo.GetCourse(ctx, catalog.GetFilter{ID: courseID})
	if err != nil {
		return err
	}

	percent, err := svc.completionPercent(ctx, userID, []string{courseID})
	if err != nil {
		return err
	}
	courseEnrs, err := svc.repo.QueryCourseEnrollments(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "querying course enrollments")
	}
	for _, ce := range courseEnrs {
		if ce.CourseID != courseID {
			continue
		}
		ce.ProgressPercent = percent
		ce.Status = StatusActive
		if percent >= 100 {
			ce.Status = StatusCompleted
		}
		ce.UpdatedAt = time.Now().UTC()
		if _, err = svc.repo.UpdateCourseEnrollment(ctx, ce); err != nil {
			return errors.Wrap(err, "updating course enrollment")
		}
	}

	if !course.ProgramID.Valid {
		return nil
	}
	return svc.recomputeProgramProgress(ctx, userID, course.ProgramID.String)
}

func (svc *service) recomputeProgramProgress(ctx context.Context, userID, programID string) error {
	enrs, err := svc.repo.QueryEnrollments(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	var enr *Enrollment
	for i := range enrs {
		if enrs[i].ProgramID == programID {
			enr = &enrs[i]
			break
		}
	}
	if enr == nil {
		return nil // enrolled in the course only
	}

	courses, err := svc.catRepo.QueryCourses(ctx, catalog.CourseFilter{ProgramID: programID})
	if err != nil {
		return errors.Wrap(err, "querying program courses")
	}
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	percent, err := svc.completionPercent(ctx, userID, ids)
	if err != nil {
		return err
	}

	enr.ProgressPercent = percent
	enr.Status = StatusActive
	if percent >= 100 {
		enr.Status = StatusCompleted
	}
	enr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateEnrollment(ctx, *enr)
	return errors.Wrap(err, "updating enrollment")
}

// completionPercent computes completed/total lessons across courses, floored.
func (svc *service) completionPercent(ctx context.Context, userID string, courseIDs []string) (int, error) {
	var lessonIDs []string
	for _, cid := range courseIDs {
		lessons, err := svc.catRepo.QueryLessons(ctx, cid)
		if err != nil {
			return 0, errors.Wrap(err, "querying course lessons")
		}
		for _, l := range lessons {
			lessonIDs = append(lessonIDs, l.ID)
		}
	}
	if len(lessonIDs) == 0 {
		return 0, nil
	}

	rows, err := svc.repo.QueryLessonProgress(ctx, userID, lessonIDs)
	if err != nil {
		return 0, errors.Wrap(err, "querying lesson progress")
	}
	var completed int
	for _, lp := range rows {
		if lp.Completed {
			completed++
		}
	}
	return completed * 100 / len(lessonIDs), nil
}

// Assignments

func (svc *service) SubmitAssignment(ctx context.Context, userID string, sa SubmitAssignment) (Assignment, error) {
	if _, err := svc.catRepo.GetLesson(ctx, catalog.GetFilter{ID: sa.LessonID}); err != nil {
		return Assignment{}, err
	}
	now := time.Now().UTC()
	a := Assignment{
		UserID:    userID,
		LessonID:  sa.LessonID,
		Status:    AssignmentSubmitted, // resubmitting resets the review
		CreatedAt: now,
		UpdatedAt: now,
	}
	if sa.FileURL != "" {
		a.FileURL.SetValid(sa.FileURL)
	}
	if sa.TextAnswer != "" {
		a.TextAnswer.SetValid(sa.TextAnswer)
	}
	return svc.repo.UpsertAssignment(ctx, a)
}

func (svc *service) ReviewAssignment(ctx context.Context, ra ReviewAssignment) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, ra.UserID, ra.LessonID)
	if err != nil {
		return Assignment{}, err
	}
	a.Status = ra.Status
	if ra.Grade != nil {
		a.Grade.SetValid(*ra.Grade)
	}
	if ra.Feedback != "" {
		a.Feedback.SetValid(ra.Feedback)
	}
	a.UpdatedAt = time.Now().UTC()

	a, err = svc.repo.UpsertAssignment(ctx, a)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "upserting assignment")
	}

	// approving a reviewed assignment marks the lesson approved too
	if a.Status == AssignmentApproved {
		lp, err := svc.repo.GetLessonProgress(ctx, ra.UserID, ra.LessonID)
		if err == nil {
			lp.Approved = true
			lp.UpdatedAt = time.Now().UTC()
			if _, err = svc.repo.UpsertLessonProgress(ctx, lp); err != nil {
				return Assignment{}, errors.Wrap(err, "upserting lesson progress")
			}
		}
	}
	return a, nil
}

func (svc *service) QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, filter)
}
