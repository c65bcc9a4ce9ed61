package event

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

var ErrNotFound = errors.New("event not found")

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event) (Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		// QueryEvents returns events ordered by starts_at.
		QueryEvents(ctx context.Context, filter EventFilter) ([]Event, error)
		// QueryUserEvents returns campus events plus events scoped to the
		// user's enrolled programs and courses, ordered by starts_at.
		QueryUserEvents(ctx context.Context, userID string, from time.Time) ([]Event, error)
		UpdateEvent(ctx context.Context, evt Event) (Event, error)
		DeleteEvent(ctx context.Context, id string) error

		// AudienceUserIDs resolves the users an event reaches: all active
		// users for campus scope, enrolled users otherwise.
		AudienceUserIDs(ctx context.Context, scope, scopeID string) ([]string, error)
		CreateNotifications(ctx context.Context, notifs []Notification) error
		QueryNotifications(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error)
		CountUnreadNotifications(ctx context.Context, userID string) (int, error)
		// MarkNotificationsRead with no ids marks all of the user's rows.
		MarkNotificationsRead(ctx context.Context, userID string, ids ...string) error
	}

	Service interface {
		Create(ctx context.Context, createdBy string, ne NewEvent) (Event, error)
		Update(ctx context.Context, id string, ue UpdateEvent) (Event, error)
		Delete(ctx context.Context, id string) error
		Get(ctx context.Context, id string) (Event, error)
		Query(ctx context.Context, filter EventFilter) ([]Event, error)
		UpcomingForUser(ctx context.Context, userID string) ([]Event, error)

		Notifications(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error)
		UnreadCount(ctx context.Context, userID string) (int, error)
		MarkRead(ctx context.Context, userID string, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Create stores the event and fans out one notification row per audience
// member. Users joining the scope later do not receive it.
func (svc *service) Create(ctx context.Context, createdBy string, ne NewEvent) (Event, error) {
	now := time.Now().UTC()
	evt := Event{
		Title:       ne.Title,
		Description: null.NewString(ne.Description, ne.Description != ""),
		Scope:       ne.Scope,
		ScopeID:     null.NewString(ne.ScopeID, ne.ScopeID != ""),
		Location:    null.NewString(ne.Location, ne.Location != ""),
		MeetingURL:  null.NewString(ne.MeetingURL, ne.MeetingURL != ""),
		StartsAt:    ne.StartsAt.UTC(),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ne.EndsAt != nil {
		evt.EndsAt = null.TimeFrom(ne.EndsAt.UTC())
	}

	evt, err := svc.repo.CreateEvent(ctx, evt)
	if err != nil {
		return Event{}, errors.Wrap(err, "creating event")
	}

	userIDs, err := svc.repo.AudienceUserIDs(ctx, evt.Scope, evt.ScopeID.String)
	if err != nil {
		return Event{}, errors.Wrap(err, "resolving audience")
	}
	if len(userIDs) > 0 {
		notifs := make([]Notification, 0, len(userIDs))
		for _, uid := range userIDs {
			notifs = append(notifs, Notification{
				UserID:    uid,
				EventID:   evt.ID,
				Title:     evt.Title,
				Body:      evt.Description.String,
				CreatedAt: now,
			})
		}
		if err = svc.repo.CreateNotifications(ctx, notifs); err != nil {
			return Event{}, errors.Wrap(err, "fanning out notifications")
		}
	}
	return evt, nil
}

func (svc *service) Update(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if ue.Title != "" {
		evt.Title = ue.Title
	}
	if ue.Description != "" {
		evt.Description.SetValid(ue.Description)
	}
	if ue.Location != "" {
		evt.Location.SetValid(ue.Location)
	}
	if ue.MeetingURL != "" {
		evt.MeetingURL.SetValid(ue.MeetingURL)
	}
	if ue.StartsAt != nil {
		evt.StartsAt = ue.StartsAt.UTC()
	}
	if ue.EndsAt != nil {
		evt.EndsAt = null.TimeFrom(ue.EndsAt.UTC())
	}
	evt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEvent(ctx, evt)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteEvent(ctx, id)
}

func (svc *service) Get(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter EventFilter) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, filter)
}

func (svc *service) UpcomingForUser(ctx context.Context, userID string) ([]Event, error) {
	return svc.repo.QueryUserEvents(ctx, userID, time.Now().UTC())
}

func (svc *service) Notifications(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, userID, unreadOnly)
}

func (svc *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountUnreadNotifications(ctx, userID)
}

func (svc *service) MarkRead(ctx context.Context, userID string, ids ...string) error {
	return svc.repo.MarkNotificationsRead(ctx, userID, ids...)
}
