package enroll

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/jkazadi/kampus/core"
)

// Enrollment statuses
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Assignment statuses
const (
	AssignmentSubmitted = "submitted"
	AssignmentReviewing = "reviewing"
	AssignmentApproved  = "approved"
	AssignmentRejected  = "rejected"
)

// completionThreshold is the watched share of a lesson's video at which the
// lesson counts as completed.
const completionThreshold = 0.9

// Enrollment registers a user in a program; unique on (user_id, program_id).
type Enrollment struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ProgramID       string    `json:"program_id"`
	Status          string    `json:"status"`
	ProgressPercent int       `json:"progress_percent"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// CourseEnrollment registers a user in a single course, independent of any
// program enrollment; unique on (user_id, course_id).
type CourseEnrollment struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	CourseID        string    `json:"course_id"`
	Status          string    `json:"status"`
	ProgressPercent int       `json:"progress_percent"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// LessonProgress is the unit aggregated into course and program completion;
// unique on (user_id, lesson_id).
type LessonProgress struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	LessonID       string    `json:"lesson_id"`
	WatchedSeconds int       `json:"watched_seconds"`
	Completed      bool      `json:"completed"`
	Approved       bool      `json:"approved"`
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// Assignment is a student's submission against a lesson; unique on
// (user_id, lesson_id) and upserted on resubmission.
type Assignment struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	LessonID   string      `json:"lesson_id"`
	Status     string      `json:"status"` // submitted | reviewing | approved | rejected
	FileURL    null.String `json:"file_url"`
	TextAnswer null.String `json:"text_answer"`
	Grade      null.Int    `json:"grade"`
	Feedback   null.String `json:"feedback"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
	UpdatedAt  time.Time   `json:"updated_at"` // UTC
}

// Inputs

// EnrollSelection is a set of chosen programs and stand-alone courses.
// Courses whose parent program is also selected need not be listed; program
// enrollment expands to the program's current courses.
type EnrollSelection struct {
	ProgramIDs []string `json:"program_ids" validate:"omitempty,dive,uuid4"`
	CourseIDs  []string `json:"course_ids" validate:"omitempty,dive,uuid4"`
}

func (es *EnrollSelection) Validate(validate *validator.Validate) error {
	return validate.Struct(es)
}

func (es *EnrollSelection) IsEmpty() bool {
	return len(es.ProgramIDs) == 0 && len(es.CourseIDs) == 0
}

type ProgressUpdate struct {
	LessonID       string `json:"lesson_id" validate:"required,uuid4"`
	WatchedSeconds int    `json:"watched_seconds" validate:"min=0"`
}

func (pu *ProgressUpdate) Validate(validate *validator.Validate) error {
	return validate.Struct(pu)
}

type SubmitAssignment struct {
	LessonID   string `json:"lesson_id" validate:"required,uuid4"`
	FileURL    string `json:"file_url" validate:"omitempty,url"`
	TextAnswer string `json:"text_answer"`
}

func (sa *SubmitAssignment) Validate(validate *validator.Validate) error {
	sa.TextAnswer = core.CleanString(sa.TextAnswer)
	if err := validate.Struct(sa); err != nil {
		return err
	}
	if sa.FileURL == "" && sa.TextAnswer == "" {
		return core.NewValidationError(nil,
			core.FieldError{Field: "file_url", Error: "one of file_url or text_answer is required"},
			core.FieldError{Field: "text_answer", Error: "one of file_url or text_answer is required"},
		)
	}
	return nil
}

type ReviewAssignment struct {
	UserID   string `json:"user_id" validate:"required,uuid4"`
	LessonID string `json:"lesson_id" validate:"required,uuid4"`
	Status   string `json:"status" validate:"required,oneof=reviewing approved rejected"`
	Grade    *int   `json:"grade" validate:"omitempty,min=0,max=100"`
	Feedback string `json:"feedback"`
}

func (ra *ReviewAssignment) Validate(validate *validator.Validate) error {
	ra.Feedback = core.CleanString(ra.Feedback)
	return validate.Struct(ra)
}

// AssignmentFilter narrows assignment queries; zero value means all rows.
type AssignmentFilter struct {
	UserID   string
	LessonID string
	Status   string
}
