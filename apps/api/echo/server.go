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
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/result"
	"github.com/trezcool/shule/core/student"
	metricsvc "github.com/trezcool/shule/services/metrics"
)

type (
	// Deps holds everything the handlers need. Metrics is optional.
	Deps struct {
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    *metricsvc.Metrics

		Students   *student.Service
		Marks      *mark.Service
		Results    *result.Aggregator
		Attendance *attendance.Service
		Reports    ReportRunner
	}

	Server struct {
		conf     *core.Config
		deps     Deps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(conf *core.Config, deps Deps) *Server {
	s := &Server{
		conf:     conf,
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	if !conf.TestMode {
		signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(metricsMiddleware(s.deps.Metrics))
		s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1", middleware.JWTWithConfig(newJWTConfig(s.conf.Server.SecretKey)))

	registerStudentAPI(v1, s.deps.Students, s.deps.Validate)
	registerMarkAPI(v1, s.deps.Marks, s.deps.Validate)
	registerResultAPI(v1, s.deps.Results, s.deps.Students)
	registerAttendanceAPI(v1, s.deps.Attendance, s.deps.Validate, s.deps.Translator)
	registerReportAPI(v1, s.deps.Reports, s.deps.Metrics)
}

// Start blocks until the server stops; failures are reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
