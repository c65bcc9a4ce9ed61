package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/catalog"
	"github.com/jkazadi/kampus/core/enroll"
	"github.com/jkazadi/kampus/core/event"
	"github.com/jkazadi/kampus/core/user"
	inmemdb "github.com/jkazadi/kampus/storage/database/inmem"
)

type fixture struct {
	svc       event.Service
	enrollSvc enroll.Service
	catRepo   catalog.Repository
	usrRepo   user.Repository
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := inmemdb.NewDB()
	catRepo := inmemdb.NewCatalogRepository(db)
	usrRepo := inmemdb.NewUserRepository(db)
	return &fixture{
		svc:       event.NewService(inmemdb.NewEventRepository(db)),
		enrollSvc: enroll.NewService(inmemdb.NewEnrollRepository(db), catRepo, usrRepo),
		catRepo:   catRepo,
		usrRepo:   usrRepo,
	}
}

func (f *fixture) createUser(t *testing.T, name, email string, active bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Roles:     []string{user.RoleStudent},
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(active)
	usr, err := f.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func Test_service_Create_fanOut(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	awa := f.createUser(t, "Awa", "awa@test.cd", true)
	ben := f.createUser(t, "Ben", "ben@test.cd", true)
	f.createUser(t, "Gone", "gone@test.cd", false) // inactive, no notification

	prog, err := f.catRepo.CreateProgram(ctx, catalog.Program{Title: "Software Dev", Slug: "software-dev"})
	if err != nil {
		t.Fatalf("CreateProgram() failed: %v", err)
	}
	if _, err = f.enrollSvc.EnrollProgram(ctx, awa.ID, prog.ID); err != nil {
		t.Fatalf("EnrollProgram() failed: %v", err)
	}

	t.Run("campus scope reaches every active user", func(t *testing.T) {
		evt, err := f.svc.Create(ctx, ben.ID, event.NewEvent{
			Title:    "Open Day",
			Scope:    event.ScopeCampus,
			StartsAt: time.Now().Add(24 * time.Hour),
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if evt.ID == "" {
			t.Fatal("Create() returned an event without an ID")
		}
		for _, uid := range []string{awa.ID, ben.ID} {
			n, err := f.svc.UnreadCount(ctx, uid)
			if err != nil {
				t.Fatalf("UnreadCount() failed: %v", err)
			}
			if n != 1 {
				t.Errorf("UnreadCount(%s) = %d, want 1", uid, n)
			}
		}
	})

	t.Run("program scope reaches enrolled users only", func(t *testing.T) {
		if _, err := f.svc.Create(ctx, ben.ID, event.NewEvent{
			Title:    "Demo Day",
			Scope:    event.ScopeProgram,
			ScopeID:  prog.ID,
			StartsAt: time.Now().Add(48 * time.Hour),
		}); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		nAwa, _ := f.svc.UnreadCount(ctx, awa.ID)
		nBen, _ := f.svc.UnreadCount(ctx, ben.ID)
		if nAwa != 2 || nBen != 1 {
			t.Errorf("unread = awa %d / ben %d, want 2 / 1", nAwa, nBen)
		}
	})

	t.Run("users joining later get no notification", func(t *testing.T) {
		late := f.createUser(t, "Late", "late@test.cd", true)
		if _, err := f.enrollSvc.EnrollProgram(ctx, late.ID, prog.ID); err != nil {
			t.Fatalf("EnrollProgram() failed: %v", err)
		}
		n, _ := f.svc.UnreadCount(ctx, late.ID)
		if n != 0 {
			t.Errorf("UnreadCount() = %d, want 0 for a user who joined after the fan-out", n)
		}
	})
}

func Test_service_Notifications(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	awa := f.createUser(t, "Awa", "awa@test.cd", true)

	for _, title := range []string{"One", "Two", "Three"} {
		if _, err := f.svc.Create(ctx, awa.ID, event.NewEvent{
			Title:    title,
			Scope:    event.ScopeCampus,
			StartsAt: time.Now().Add(time.Hour),
		}); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	notifs, err := f.svc.Notifications(ctx, awa.ID, true /* unreadOnly */)
	if err != nil {
		t.Fatalf("Notifications() failed: %v", err)
	}
	if len(notifs) != 3 {
		t.Fatalf("Notifications() len = %d, want 3", len(notifs))
	}

	// mark one read explicitly
	if err = f.svc.MarkRead(ctx, awa.ID, notifs[0].ID); err != nil {
		t.Fatalf("MarkRead() failed: %v", err)
	}
	n, _ := f.svc.UnreadCount(ctx, awa.ID)
	if n != 2 {
		t.Errorf("UnreadCount() = %d, want 2", n)
	}

	// no ids marks everything read
	if err = f.svc.MarkRead(ctx, awa.ID); err != nil {
		t.Fatalf("MarkRead() failed: %v", err)
	}
	n, _ = f.svc.UnreadCount(ctx, awa.ID)
	if n != 0 {
		t.Errorf("UnreadCount() = %d, want 0 after marking all read", n)
	}
}

func Test_service_UpcomingForUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	awa := f.createUser(t, "Awa", "awa@test.cd", true)

	prog, _ := f.catRepo.CreateProgram(ctx, catalog.Program{Title: "Design", Slug: "design"})
	other, _ := f.catRepo.CreateProgram(ctx, catalog.Program{Title: "Other", Slug: "other"})
	if _, err := f.enrollSvc.EnrollProgram(ctx, awa.ID, prog.ID); err != nil {
		t.Fatalf("EnrollProgram() failed: %v", err)
	}

	mk := func(title, scope, scopeID string, startsIn time.Duration) {
		t.Helper()
		if _, err := f.svc.Create(ctx, awa.ID, event.NewEvent{
			Title:    title,
			Scope:    scope,
			ScopeID:  scopeID,
			StartsAt: time.Now().Add(startsIn),
		}); err != nil {
			t.Fatalf("Create(%s) failed: %v", title, err)
		}
	}
	mk("campus soon", event.ScopeCampus, "", time.Hour)
	mk("my program", event.ScopeProgram, prog.ID, 2*time.Hour)
	mk("someone else's program", event.ScopeProgram, other.ID, 3*time.Hour)
	mk("already over", event.ScopeCampus, "", -2*time.Hour)

	events, err := f.svc.UpcomingForUser(ctx, awa.ID)
	if err != nil {
		t.Fatalf("UpcomingForUser() failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("UpcomingForUser() len = %d, want 2: %+v", len(events), events)
	}
	if events[0].Title != "campus soon" || events[1].Title != "my program" {
		t.Errorf("events out of order: %q, %q", events[0].Title, events[1].Title)
	}
}

func Test_service_Get_notFound(t *testing.T) {
	f := setup(t)
	if _, err := f.svc.Get(context.Background(), "e0a1f585-2f56-44a4-bd1a-45e63b4bd9a5"); errors.Cause(err) != event.ErrNotFound {
		t.Errorf("Get() error = %v, want %v", err, event.ErrNotFound)
	}
}
