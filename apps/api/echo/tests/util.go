package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/jkazadi/kampus/apps/api/echo"
	"github.com/jkazadi/kampus/core"
	"github.com/jkazadi/kampus/core/activity"
	"github.com/jkazadi/kampus/core/catalog"
	"github.com/jkazadi/kampus/core/enroll"
	"github.com/jkazadi/kampus/core/event"
	"github.com/jkazadi/kampus/core/forum"
	"github.com/jkazadi/kampus/core/user"
	emailsvc "github.com/jkazadi/kampus/services/email"
	logsvc "github.com/jkazadi/kampus/services/logger"
	inmemdb "github.com/jkazadi/kampus/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type appFixture struct {
	server  Server
	conf    *core.Config
	usrRepo user.Repository
	catRepo catalog.Repository
	enrRepo enroll.Repository
}

func setup(t *testing.T) *appFixture {
	t.Helper()

	conf := &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Kampus",
		SecretKey: []byte("secret"),
		Server: core.ServerConfig{
			JWTExpirationDelta:        4 * time.Hour,
			JWTRefreshExpirationDelta: 7 * 24 * time.Hour,
		},
	}

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	catRepo := inmemdb.NewCatalogRepository(db)
	enrRepo := inmemdb.NewEnrollRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf)
	catSvc := catalog.NewService(catRepo)
	enrSvc := enroll.NewService(enrRepo, catRepo, usrRepo)
	evtSvc := event.NewService(inmemdb.NewEventRepository(db))
	forumSvc := forum.NewService(inmemdb.NewForumRepository(db))
	actSvc := activity.NewService(inmemdb.NewActivityRepository(db), mailSvc)

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up server
	return &appFixture{
		server: NewServer(ServerDeps{
			Conf:        conf,
			Logger:      logger,
			UserSvc:     usrSvc,
			CatalogSvc:  catSvc,
			EnrollSvc:   enrSvc,
			EventSvc:    evtSvc,
			ForumSvc:    forumSvc,
			ActivitySvc: actSvc,
			Validate:    validate,
			Translator:  translator,
		}),
		conf:    conf,
		usrRepo: usrRepo,
		catRepo: catRepo,
		enrRepo: enrRepo,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func createUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("%s code = %d, want %d; body: %s", tt.path, rec.Code, tt.wantCode, rec.Body.String())
		return
	}
	if tt.wantData == nil {
		return
	}
	eq, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Fatalf("jsonBytesEqual() failed: %v", err)
	}
	if !eq {
		t.Errorf("%s body = %s, want %s", tt.path, rec.Body.String(), tt.wantData)
	}
}
