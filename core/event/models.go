package event

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/jkazadi/kampus/core"
)

// Event scopes; a campus event reaches every active user, program and course
// events reach the enrolled ones only.
const (
	ScopeCampus  = "campus"
	ScopeProgram = "program"
	ScopeCourse  = "course"
)

type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description null.String `json:"description"`
	Scope       string      `json:"scope"` // campus | program | course
	ScopeID     null.String `json:"scope_id"`
	Location    null.String `json:"location"`
	MeetingURL  null.String `json:"meeting_url"`
	StartsAt    time.Time   `json:"starts_at"` // UTC
	EndsAt      null.Time   `json:"ends_at"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

// Notification is one user's copy of an announcement; read state is per user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Inputs

type NewEvent struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Scope       string     `json:"scope" validate:"required,oneof=campus program course"`
	ScopeID     string     `json:"scope_id" validate:"omitempty,uuid4"`
	Location    string     `json:"location"`
	MeetingURL  string     `json:"meeting_url" validate:"omitempty,url"`
	StartsAt    time.Time  `json:"starts_at" validate:"required"`
	EndsAt      *time.Time `json:"ends_at"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	if ne.Scope != ScopeCampus && ne.ScopeID == "" {
		return core.NewValidationError(nil, core.FieldError{
			Field: "scope_id", Error: "scope_id is required for program and course events",
		})
	}
	if ne.EndsAt != nil && ne.EndsAt.Before(ne.StartsAt) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "ends_at", Error: "ends_at must not precede starts_at",
		})
	}
	return nil
}

type UpdateEvent struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	MeetingURL  string     `json:"meeting_url" validate:"omitempty,url"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	ue.Title = core.CleanString(ue.Title)
	ue.Description = core.CleanString(ue.Description)
	return validate.Struct(ue)
}

// EventFilter narrows event queries; zero value means all upcoming events.
type EventFilter struct {
	Scope   string
	ScopeID string
	From    time.Time
	Until   time.Time
}
