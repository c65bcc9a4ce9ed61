package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/event"
)

type eventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	evt.ID = newID()
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if evt, ok := repo.db.events[id]; ok {
		return *evt, nil
	}
	return event.Event{}, event.ErrNotFound
}

func sortEvents(events []event.Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].StartsAt.Before(events[j].StartsAt) })
}

func (repo *eventRepository) QueryEvents(ctx context.Context, filter event.EventFilter) ([]event.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	events := make([]event.Event, 0)
	for _, evt := range repo.db.events {
		if filter.Scope != "" && evt.Scope != filter.Scope {
			continue
		}
		if filter.ScopeID != "" && evt.ScopeID.String != filter.ScopeID {
			continue
		}
		if !filter.From.IsZero() && evt.StartsAt.Before(filter.From) {
			continue
		}
		if !filter.Until.IsZero() && evt.StartsAt.After(filter.Until) {
			continue
		}
		events = append(events, *evt)
	}
	sortEvents(events)
	return events, nil
}

func (repo *eventRepository) QueryUserEvents(ctx context.Context, userID string, from time.Time) ([]event.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	programIDs := make(map[string]bool)
	for _, e := range repo.db.enrollments {
		if e.UserID == userID {
			programIDs[e.ProgramID] = true
		}
	}
	courseIDs := make(map[string]bool)
	for _, ce := range repo.db.courseEnrollments {
		if ce.UserID == userID {
			courseIDs[ce.CourseID] = true
		}
	}

	events := make([]event.Event, 0)
	for _, evt := range repo.db.events {
		if evt.StartsAt.Before(from) {
			continue
		}
		switch evt.Scope {
		case event.ScopeCampus:
		case event.ScopeProgram:
			if !programIDs[evt.ScopeID.String] {
				continue
			}
		case event.ScopeCourse:
			if !courseIDs[evt.ScopeID.String] {
				continue
			}
		default:
			continue
		}
		events = append(events, *evt)
	}
	sortEvents(events)
	return events, nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.events[evt.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.events, id)
	return nil
}

func (repo *eventRepository) AudienceUserIDs(ctx context.Context, scope, scopeID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]string, 0)
	switch scope {
	case event.ScopeCampus:
		for _, usr := range repo.db.users {
			if usr.Active() {
				ids = append(ids, usr.ID)
			}
		}
	case event.ScopeProgram:
		for _, e := range repo.db.enrollments {
			if e.ProgramID == scopeID {
				ids = append(ids, e.UserID)
			}
		}
	case event.ScopeCourse:
		for _, ce := range repo.db.courseEnrollments {
			if ce.CourseID == scopeID {
				ids = append(ids, ce.UserID)
			}
		}
	default:
		return nil, errors.Errorf("unknown scope %q", scope)
	}
	return ids, nil
}

func (repo *eventRepository) CreateNotifications(ctx context.Context, notifs []event.Notification) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

outer:
	for _, n := range notifs {
		for _, existing := range repo.db.notifications {
			if existing.UserID == n.UserID && existing.EventID == n.EventID {
				continue outer
			}
		}
		n := n
		n.ID = newID()
		repo.db.notifications[n.ID] = &n
	}
	return nil
}

func (repo *eventRepository) QueryNotifications(ctx context.Context, userID string, unreadOnly bool) ([]event.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	notifs := make([]event.Notification, 0)
	for _, n := range repo.db.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		notifs = append(notifs, *n)
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	return notifs, nil
}

func (repo *eventRepository) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, n := range repo.db.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (repo *eventRepository) MarkNotificationsRead(ctx context.Context, userID string, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	inIDs := func(id string) bool {
		if len(ids) == 0 {
			return true
		}
		for _, want := range ids {
			if id == want {
				return true
			}
		}
		return false
	}
	for _, n := range repo.db.notifications {
		if n.UserID == userID && inIDs(n.ID) {
			n.Read = true
		}
	}
	return nil
}
