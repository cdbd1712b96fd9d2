package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/activitylog"
	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/examconfig"
	"github.com/invigilo/invigilo/core/examconfig/convert"
	"github.com/invigilo/invigilo/core/institution"
	"github.com/invigilo/invigilo/core/user"
)

type (
	Options struct {
		Addr           string
		DisableReqLogs bool

		Logger     core.Logger
		UserSvc    *user.Service
		InstSvc    *institution.Service
		LogSvc     *activitylog.Service
		ExamCfgSvc *examconfig.Service
		ConvertSvc *convert.Service
		AuthzSvc   *authz.Service
		BulkSvc    *entity.BulkService
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
		ShutdownSignal() <-chan struct{}
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan struct{}
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan struct{}, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/admin-api/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerInstitutionAPI(v1, jwt, s.opts.InstSvc, s.opts.AuthzSvc, s.opts.LogSvc, s.opts.BulkSvc, s.opts.UserSvc)
	registerUserAPI(v1, jwt, s.opts.UserSvc, s.opts.AuthzSvc, s.opts.LogSvc, s.opts.BulkSvc)
	registerActivityLogAPI(v1, jwt, s.opts.LogSvc, s.opts.AuthzSvc, s.opts.BulkSvc, s.opts.UserSvc)
	registerExamConfigAPI(v1, jwt, s.opts.ExamCfgSvc, s.opts.ConvertSvc, s.opts.AuthzSvc, s.opts.LogSvc, s.opts.BulkSvc, s.opts.UserSvc)
	registerInfoAPI(v1, jwt, s.opts.InstSvc, s.opts.AuthzSvc)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Addr))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// ShutdownSignal fires when an unrecoverable error asks for a graceful
// shutdown.
func (s *server) ShutdownSignal() <-chan struct{} {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- struct{}{}:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the "+core.Conf.AppName+" admin API!")
}
