package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core"
)

type (
	ServerDeps struct {
		Conf     *core.Config
		Logger   core.Logger
		Services *di.Container

		// Metrics receives the HTTP metrics; a private registry is used when nil.
		Metrics prometheus.Registerer

		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	if deps.Logger == nil {
		deps.Logger = core.NopLogger{}
	}
	if deps.Metrics == nil {
		deps.Metrics = prometheus.NewRegistry()
	}
	s := &server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.Services.Accounts),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(corsMiddleware(conf.Server.CORSOrigins))
	s.app.Use(metricsMiddleware(s.deps.Metrics))
	s.app.Use(rateLimitMiddleware(conf.Server.RateLimit, conf.Server.RateBurst))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Services.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)
	svcs := s.deps.Services

	registerLedgerAPI(v1, svcs, metricsFor(s.deps.Metrics))
	registerAccountAPI(v1, jwt, s.auth, svcs)
	registerInstitutionAPI(v1, jwt, s.auth, svcs)
	registerCourseAPI(v1, jwt, s.auth, svcs)
	registerSubjectAPI(v1, jwt, s.auth, svcs)
	registerCurriculumAPI(v1, jwt, s.auth, svcs)
	registerStudentAPI(v1, jwt, s.auth, svcs)
	registerTokenAPI(v1, jwt, s.auth, svcs)
	registerEquivalenceAPI(v1, jwt, s.auth, svcs)
	registerDegreeAPI(v1, jwt, s.auth, svcs)
	registerScheduleAPI(v1, jwt, s.auth, svcs)
	registerSyllabusAPI(v1, jwt, svcs)

	registerLegacyAPI(s.app.Group("/academictoken"), svcs)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	s.deps.Services.Ledger.Hub().Close()
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to AcademicToken API!")
}
