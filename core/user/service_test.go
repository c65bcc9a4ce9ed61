package user_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core"
	"github.com/jkazadi/kampus/core/user"
	inmemdb "github.com/jkazadi/kampus/storage/database/inmem"
)

// mailRecorder captures outgoing messages instead of sending them.
type mailRecorder struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (rec *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.sent = append(rec.sent, messages...)
}

func (rec *mailRecorder) last() *core.EmailMessage {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.sent) == 0 {
		return nil
	}
	return rec.sent[len(rec.sent)-1]
}

type fixture struct {
	svc  user.Service
	repo user.Repository
	mail *mailRecorder
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conf := &core.Config{
		Env:                   "TEST",
		TestMode:              true,
		AppName:               "Kampus",
		SecretKey:             []byte("secret"),
		MagicLinkTimeoutDelta: 15 * time.Minute,
	}
	repo := inmemdb.NewUserRepository(inmemdb.NewDB())
	mail := &mailRecorder{}
	return &fixture{svc: user.NewServiceMock(repo, mail, conf), repo: repo, mail: mail}
}

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func Test_service_BulkImport(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	validate := newValidate(t)

	rows := []user.BulkImportRow{
		{Name: "Awa Ndiaye", Email: "awa@test.cd"},
		{Name: "Ben Habib", Email: "ben@test.cd", Roles: []string{user.RoleTeacher}},
		{Name: "Bad Email", Email: "not-an-email"},
		{Email: "no-name@test.cd"},
		{Name: "Awa Again", Email: "awa@test.cd"},
		{Name: "Awa Diop", Email: "awa@other.cd"},
	}
	res, err := f.svc.BulkImport(ctx, rows, validate)
	if err != nil {
		t.Fatalf("BulkImport() failed: %v", err)
	}

	if len(res.Created) != 3 {
		t.Fatalf("Created len = %d, want 3", len(res.Created))
	}
	if len(res.Skipped) != 3 {
		t.Fatalf("Skipped len = %d, want 3", len(res.Skipped))
	}

	t.Run("created users are active with a set password", func(t *testing.T) {
		for _, usr := range res.Created {
			if !usr.Active() {
				t.Errorf("user %s is not active", usr.Email)
			}
			if len(usr.PasswordHash) == 0 {
				t.Errorf("user %s has no password", usr.Email)
			}
		}
	})

	t.Run("usernames derive from the email and stay unique", func(t *testing.T) {
		wantUnames := []string{"awa", "ben", "awa2"}
		for i, usr := range res.Created {
			if usr.Username != wantUnames[i] {
				t.Errorf("Created[%d].Username = %q, want %q", i, usr.Username, wantUnames[i])
			}
		}
	})

	t.Run("default role is student", func(t *testing.T) {
		if got := res.Created[0].Roles; len(got) != 1 || got[0] != user.RoleStudent {
			t.Errorf("Roles = %v, want [%s]", got, user.RoleStudent)
		}
		if got := res.Created[1].Roles; len(got) != 1 || got[0] != user.RoleTeacher {
			t.Errorf("Roles = %v, want [%s]", got, user.RoleTeacher)
		}
	})

	t.Run("bad rows are reported, not fatal", func(t *testing.T) {
		wantRows := []int{2, 3, 4}
		for i, skipped := range res.Skipped {
			if skipped.Row != wantRows[i] {
				t.Errorf("Skipped[%d].Row = %d, want %d", i, skipped.Row, wantRows[i])
			}
			if skipped.Reason == "" {
				t.Errorf("Skipped[%d].Reason is empty", i)
			}
		}
	})
}

func Test_service_MagicLink(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	usr, err := f.svc.Create(ctx, user.NewUser{
		Name:     "Awa Ndiaye",
		Username: "awandiaye",
		Email:    "awa@test.cd",
		Password: "Secr3t!pwd",
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	t.Run("unknown email", func(t *testing.T) {
		if err := f.svc.RequestMagicLink(ctx, "nobody@test.cd"); errors.Cause(err) != user.ErrNotFound {
			t.Errorf("RequestMagicLink() error = %v, want %v", err, user.ErrNotFound)
		}
	})

	if err := f.svc.RequestMagicLink(ctx, usr.Email); err != nil {
		t.Fatalf("RequestMagicLink() failed: %v", err)
	}
	msg := f.mail.last()
	if msg == nil || msg.TemplateName != "magic-link" {
		t.Fatalf("message = %+v, want a magic-link mail", msg)
	}
	data, ok := msg.TemplateData.(struct{ Name, UID, Token string })
	if !ok {
		t.Fatalf("TemplateData is a %T, want the link data", msg.TemplateData)
	}

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := f.svc.VerifyMagicLink(ctx, user.MagicLinkLogin{UID: data.UID, Token: "lol-nope"})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("VerifyMagicLink() error = %v, want a validation error", err)
		}
	})

	t.Run("garbage uid is rejected", func(t *testing.T) {
		_, err := f.svc.VerifyMagicLink(ctx, user.MagicLinkLogin{UID: "???", Token: data.Token})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("VerifyMagicLink() error = %v, want a validation error", err)
		}
	})

	loggedIn, err := f.svc.VerifyMagicLink(ctx, user.MagicLinkLogin{UID: data.UID, Token: data.Token})
	if err != nil {
		t.Fatalf("VerifyMagicLink() failed: %v", err)
	}
	if loggedIn.ID != usr.ID {
		t.Errorf("ID = %q, want %q", loggedIn.ID, usr.ID)
	}
	if loggedIn.LastLogin.IsZero() {
		t.Error("LastLogin was not set")
	}

	t.Run("a redeemed link is single use", func(t *testing.T) {
		_, err := f.svc.VerifyMagicLink(ctx, user.MagicLinkLogin{UID: data.UID, Token: data.Token})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("VerifyMagicLink() error = %v, want a validation error", err)
		}
	})

	t.Run("deactivated accounts get no link", func(t *testing.T) {
		usr, err := f.svc.GetByEmail(ctx, "awa@test.cd")
		if err != nil {
			t.Fatalf("GetByEmail() failed: %v", err)
		}
		usr.SetActive(false)
		if _, err := f.repo.UpdateUser(ctx, usr); err != nil {
			t.Fatalf("UpdateUser() failed: %v", err)
		}
		if err := f.svc.RequestMagicLink(ctx, usr.Email); errors.Cause(err) != user.ErrNotFound {
			t.Errorf("RequestMagicLink() error = %v, want %v", err, user.ErrNotFound)
		}
	})
}
