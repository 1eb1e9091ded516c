package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/course"
	"github.com/trezcool/masomo-console/core/invigilation"
	"github.com/trezcool/masomo-console/core/program"
	"github.com/trezcool/masomo-console/core/report"
	"github.com/trezcool/masomo-console/core/user"
)

type ServerDeps struct {
	Conf            *core.Config
	Logger          core.Logger
	Validate        *validator.Validate
	Translator      ut.Translator
	MailSvc         core.EmailService
	UserSvc         *user.Service
	InvigilationSvc *invigilation.Service
	CourseSvc       *course.Service
	ProgramSvc      *program.Service
	// Registerer receives the HTTP metrics. A private registry is used when nil.
	Registerer prometheus.Registerer
}

type Server struct {
	deps     ServerDeps
	app      *echo.Echo
	jwtConf  middleware.JWTConfig
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
		vala.IsNotNil(deps.MailSvc, "MailSvc"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.InvigilationSvc, "InvigilationSvc"),
		vala.IsNotNil(deps.CourseSvc, "CourseSvc"),
		vala.IsNotNil(deps.ProgramSvc, "ProgramSvc"),
	).CheckAndPanic()
	if deps.Registerer == nil {
		deps.Registerer = prometheus.NewRegistry()
	}

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		jwtConf:  newJWTConfig(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	if conf.Debug && !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(newMetrics(s.deps.Registerer).middleware)

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwtConf)

	registerUserAPI(v1, jwt, s.deps.UserSvc, s.deps.Validate, s.deps.Conf)
	registerViewAPI(v1, jwt)
	registerInvigilationAPI(v1, jwt, s.deps.InvigilationSvc, s.deps.Validate)
	registerCourseAPI(v1, jwt, s.deps.CourseSvc, s.deps.Validate)
	registerProgramAPI(v1, jwt, s.deps.ProgramSvc, s.deps.Validate)
	sources := report.NewSources(s.deps.InvigilationSvc, s.deps.CourseSvc, s.deps.ProgramSvc)
	registerExportAPI(v1, jwt, sources, s.deps.UserSvc, s.deps.MailSvc)
}

// Start listens on the configured host. Listening errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error             { return s.errors }
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the application to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Masomo Console API!")
}
