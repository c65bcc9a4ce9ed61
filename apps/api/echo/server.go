package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/jkazadi/kampus/core"
	"github.com/jkazadi/kampus/core/activity"
	"github.com/jkazadi/kampus/core/catalog"
	"github.com/jkazadi/kampus/core/enroll"
	"github.com/jkazadi/kampus/core/event"
	"github.com/jkazadi/kampus/core/forum"
	"github.com/jkazadi/kampus/core/user"
	chatsvc "github.com/jkazadi/kampus/services/chat"
)

type (
	ServerDeps struct {
		Conf        *core.Config
		Logger      core.Logger
		UserSvc     user.Service
		CatalogSvc  catalog.Service
		EnrollSvc   enroll.Service
		EventSvc    event.Service
		ForumSvc    forum.Service
		ActivitySvc activity.Service
		ChatSvc     chatsvc.Service
		Storage     core.FileStorage
		Validate    *validator.Validate
		Translator  ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf
	initAuth(conf)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.deps.UserSvc, s.deps.Validate, s.deps.Translator)
	registerCatalogAPI(v1, jwt, s.deps.CatalogSvc, s.deps.Validate)
	registerEnrollAPI(v1, jwt, s.deps.EnrollSvc, s.deps.Validate)
	registerEventAPI(v1, jwt, s.deps.EventSvc, s.deps.Validate)
	registerForumAPI(v1, jwt, s.deps.ForumSvc, s.deps.Validate)
	registerActivityAPI(v1, jwt, s.deps.ActivitySvc)
	registerUploadAPI(v1, jwt, s.deps.UserSvc, s.deps.Storage)
	registerWebhookAPI(v1, s.deps.EnrollSvc)
	if s.deps.ChatSvc != nil {
		registerChatAPI(v1, jwt, s.deps.ChatSvc, s.deps.Validate)
	}
}

// signalShutdown triggers a graceful shutdown; used on unrecoverable errors.
func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errs
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Kampus API!")
}
