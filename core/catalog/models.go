package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/jkazadi/kampus/core"
)

// Material kinds
const (
	MaterialFile  = "file"
	MaterialLink  = "link"
	MaterialVideo = "video"
)

type Program struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Summary     string    `json:"summary"`
	ImageURL    null.String `json:"image_url"`
	PublishedAt null.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (p *Program) Published() bool { return p.PublishedAt.Valid }

type Course struct {
	ID          string      `json:"id"`
	ProgramID   null.String `json:"program_id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Summary     string      `json:"summary"`
	ImageURL    null.String `json:"image_url"`
	PublishedAt null.Time   `json:"published_at"`
	SortOrder   int         `json:"sort_order"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

func (c *Course) Published() bool { return c.PublishedAt.Valid }

type Lesson struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"course_id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	VideoURL        string    `json:"video_url"`
	DurationMinutes int       `json:"duration_minutes"`
	SortOrder       int       `json:"sort_order"`
	// HasAssignment and HasMaterials are advisory flags for list views;
	// detail queries never trust them.
	HasAssignment bool      `json:"has_assignment"`
	HasMaterials  bool      `json:"has_materials"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

type Material struct {
	ID        string    `json:"id"`
	LessonID  string    `json:"lesson_id"`
	Kind      string    `json:"kind"` // file | link | video
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// ProgramDetail is a Program with its courses in sort order.
type ProgramDetail struct {
	Program
	Courses []Course `json:"courses"`
}

// CourseDetail is a Course with its lessons in sort order.
type CourseDetail struct {
	Course
	Lessons []Lesson `json:"lessons"`
}

// LessonDetail is a Lesson with all its materials, independent of the
// HasMaterials flag.
type LessonDetail struct {
	Lesson
	Materials []Material `json:"materials"`
}

// Inputs

type NewProgram struct {
	Title    string `json:"title" validate:"required"`
	Summary  string `json:"summary"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

func (np *NewProgram) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Summary = core.CleanString(np.Summary)
	return validate.Struct(np)
}

type UpdateProgram struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	ImageURL  string `json:"image_url" validate:"omitempty,url"`
	Published *bool  `json:"published"`
}

func (up *UpdateProgram) Validate(validate *validator.Validate) error {
	up.Title = core.CleanString(up.Title)
	up.Summary = core.CleanString(up.Summary)
	return validate.Struct(up)
}

type NewCourse struct {
	Title     string `json:"title" validate:"required"`
	Summary   string `json:"summary"`
	ImageURL  string `json:"image_url" validate:"omitempty,url"`
	ProgramID string `json:"program_id" validate:"omitempty,uuid4"`
	SortOrder int    `json:"sort_order" validate:"omitempty,min=0"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Summary = core.CleanString(nc.Summary)
	return validate.Struct(nc)
}

type UpdateCourse struct {
	Title     string  `json:"title"`
	Summary   string  `json:"summary"`
	ImageURL  string  `json:"image_url" validate:"omitempty,url"`
	ProgramID *string `json:"program_id" validate:"omitempty"`
	SortOrder *int    `json:"sort_order" validate:"omitempty"`
	Published *bool   `json:"published"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Summary = core.CleanString(uc.Summary)
	return validate.Struct(uc)
}

type NewLesson struct {
	CourseID        string `json:"course_id" validate:"required,uuid4"`
	Title           string `json:"title" validate:"required"`
	VideoURL        string `json:"video_url" validate:"omitempty,url"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=0"`
	SortOrder       int    `json:"sort_order" validate:"omitempty,min=0"`
	HasAssignment   bool   `json:"has_assignment"`
	HasMaterials    bool   `json:"has_materials"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

type UpdateLesson struct {
	Title           string `json:"title"`
	VideoURL        string `json:"video_url" validate:"omitempty,url"`
	DurationMinutes *int   `json:"duration_minutes" validate:"omitempty"`
	SortOrder       *int   `json:"sort_order" validate:"omitempty"`
	HasAssignment   *bool  `json:"has_assignment"`
	HasMaterials    *bool  `json:"has_materials"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	ul.Title = core.CleanString(ul.Title)
	return validate.Struct(ul)
}

type NewMaterial struct {
	LessonID string `json:"lesson_id" validate:"required,uuid4"`
	Kind     string `json:"kind" validate:"required,oneof=file link video"`
	Title    string `json:"title" validate:"required"`
	URL      string `json:"url" validate:"required,url"`
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	return validate.Struct(nm)
}

// GetFilter selects a single catalog row; fields are tried in order.
type GetFilter struct {
	ID   string
	Slug string
}

// CourseFilter narrows course queries; zero value means all courses.
type CourseFilter struct {
	ProgramID     string
	IDs           []string
	PublishedOnly bool
}
