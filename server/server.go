// Package server provides the HTTP front end for the activities page.
//
// Every browser session gets its own page model, so banners and form contents
// never leak between visitors. Forms post back to the server, which runs the
// action and redirects to the page (post/redirect/get).
//
// # Endpoints
//
//   - GET / - The activities page for the requesting session
//   - GET /api/page - The same page as JSON
//   - POST /signup - Submits the signup form
//   - GET /unregister - Asks to confirm removing a participant
//   - POST /unregister - Removes a participant when confirm=yes
//   - POST /refresh - Reloads the activity list
//   - GET /health - Simple health check, returns "ok"
//   - GET /metrics - Prometheus metrics
//   - GET /config - Returns current configuration as YAML, secrets redacted
//   - POST /reload - Reloads configuration from disk
//   - GET /static/* - Stylesheet
//
// # Architecture
//
// Config-derived dependencies (the API client and the card renderer) are
// swapped atomically on reload. Sessions are dropped on reload so every page
// is rebuilt against the new dependencies. Listener, cookie, CSRF and metrics
// settings are read once at startup.
//
// # Example
//
//	srv, err := server.New("/etc/clubsignup/config.yaml", server.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/clubsignup/buildinfo"
	"github.com/nomis52/clubsignup/clients/activityclient"
	"github.com/nomis52/clubsignup/clock"
	"github.com/nomis52/clubsignup/config"
	"github.com/nomis52/clubsignup/metrics"
	"github.com/nomis52/clubsignup/notifier"
	"github.com/nomis52/clubsignup/page"
	"github.com/nomis52/clubsignup/render"
	"github.com/nomis52/clubsignup/server/cron"
	"github.com/nomis52/clubsignup/server/handlers"
	"github.com/nomis52/clubsignup/server/sessions"
)

//go:embed static
var staticFiles embed.FS

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	sweepJobName = "session-sweep"
)

// serverDeps holds config-derived dependencies that are swapped atomically on reload.
type serverDeps struct {
	config   *config.Config
	client   *activityclient.Client
	renderer *render.Renderer
}

// Server is the HTTP server for the activities page.
type Server struct {
	addr        string
	configPath  string
	logger      *slog.Logger
	clock       clock.Clock
	deps        atomic.Pointer[serverDeps]
	metrics     *metrics.ScrapeRegistry
	pageMetrics *page.Metrics
	sessions    *sessions.Registry
	cookies     *sessions.Cookies
	sweep       *cron.CronTrigger
	handler     http.Handler
	httpServer  *http.Server
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			return errors.New("logger is nil")
		}
		s.logger = logger
		return nil
	}
}

// WithListenAddr overrides the listener address from the config.
func WithListenAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithClock sets the clock used for banners and session expiry.
func WithClock(c clock.Clock) Option {
	return func(s *Server) error {
		s.clock = c
		return nil
	}
}

// New creates a new Server with the given config path and options.
// It loads the configuration and initializes all dependencies.
func New(configPath string, opts ...Option) (*Server, error) {
	s := &Server{
		configPath: configPath,
		logger:     slog.Default(),
		clock:      clock.NewSystem(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}
	cfg := s.Config()
	if s.addr == "" {
		s.addr = cfg.Listener.Addr
	}

	var err error
	s.metrics, err = metrics.NewScrapeRegistry(cfg.Monitoring.MetricsPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating metrics registry: %w", err)
	}
	if err := registerBuildInfo(s.metrics); err != nil {
		return nil, err
	}
	s.pageMetrics, err = page.NewMetrics(s.metrics)
	if err != nil {
		return nil, err
	}

	s.sessions, err = sessions.New(s.newPage,
		sessions.WithClock(s.clock),
		sessions.WithIdleTimeout(cfg.Sessions.IdleTimeout),
		sessions.WithLogger(s.logger),
		sessions.WithMetrics(s.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session registry: %w", err)
	}
	s.cookies = sessions.NewCookies(
		[]byte(cfg.Sessions.Key),
		cfg.Listener.TLSEnabled() || cfg.CSRF.Secure,
		cfg.Sessions.IdleTimeout,
	)

	s.sweep, err = cron.NewCronTrigger(sweepJobName, cfg.Sessions.SweepSchedule, s.sessions, s.logger)
	if err != nil {
		return nil, fmt.Errorf("creating session sweep: %w", err)
	}

	s.handler = s.routes(cfg)
	return s, nil
}

func registerBuildInfo(reg metrics.Registry) error {
	info, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build properties of the running binary, always 1",
	}, []string{"git_commit", "build_time"})
	if err != nil {
		return fmt.Errorf("creating build_info metric: %w", err)
	}
	props := buildinfo.Get()
	info.With(prometheus.Labels{"git_commit": props.GitCommit, "build_time": props.BuildTime}).Set(1)
	return nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// Reload reads the config from disk and rebuilds server dependencies.
// Live sessions are dropped and rebuilt on their next request.
func (s *Server) Reload() error {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		return err
	}

	client, err := activityclient.New(cfg.API.BaseURL,
		activityclient.WithLogger(s.logger),
		activityclient.WithTimeout(cfg.API.Timeout),
	)
	if err != nil {
		return fmt.Errorf("creating activities client: %w", err)
	}
	renderer, err := render.New(render.WithMarkdownDescriptions(cfg.Render.MarkdownDescriptions))
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	s.deps.Store(&serverDeps{
		config:   &cfg,
		client:   client,
		renderer: renderer,
	})
	if s.sessions != nil {
		s.sessions.Reset(s.newPage)
	}

	s.logger.Info("configuration loaded", "config_path", s.configPath, "api", cfg.API.BaseURL)
	return nil
}

// Config returns the current configuration.
func (s *Server) Config() *config.Config {
	return s.deps.Load().config
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Page returns the page of the session resolved by the session middleware.
func (s *Server) Page(r *http.Request) (*page.Page, error) {
	id, ok := sessions.IDFromContext(r.Context())
	if !ok {
		return nil, errors.New("request has no session")
	}
	p, created, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("creating page for session: %w", err)
	}
	if created {
		s.logger.DebugContext(r.Context(), "new session")
	}
	return p, nil
}

// newPage builds a page against the current dependencies.
func (s *Server) newPage(string) (*page.Page, error) {
	deps := s.deps.Load()
	n := notifier.New(
		notifier.WithClock(s.clock),
		notifier.WithHideAfter(deps.config.Notifier.HideAfter),
		notifier.WithLogger(s.logger),
	)
	return page.New(deps.client,
		page.WithLogger(s.logger),
		page.WithNotifier(n),
		page.WithRenderer(deps.renderer),
		page.WithMetrics(s.pageMetrics),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.Config()

	s.httpServer = &http.Server{
		Addr:        s.addr,
		Handler:     s.handler,
		ReadTimeout: defaultReadTimeout,
		// A mutation makes two API calls: the change and the reload.
		WriteTimeout: defaultWriteTimeout + 2*cfg.API.Timeout,
	}

	tlsEnabled := cfg.Listener.TLSEnabled()
	if tlsEnabled {
		loader, err := NewCertLoader(cfg.Listener.TLSCert, cfg.Listener.TLSKey, s.logger)
		if err != nil {
			return fmt.Errorf("loading tls certificate: %w", err)
		}
		s.httpServer.TLSConfig = &tls.Config{
			GetCertificate: loader.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}
	}

	s.logger.Info("starting session sweep", "job", s.sweep.Name(), "next_run", s.sweep.NextRun())
	s.sweep.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		props := buildinfo.Get()
		s.logger.Info("starting server",
			"addr", s.addr,
			"tls", tlsEnabled,
			"config_path", s.configPath,
			"git_commit", props.GitCommit,
			"build_time", props.BuildTime,
		)
		var err error
		if tlsEnabled {
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		s.sessions.Reset(nil)
		return err
	}
}

func (s *Server) routes(cfg *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.HandleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Method(http.MethodGet, "/config", handlers.NewConfigHandler(s))
	r.Method(http.MethodPost, "/reload", handlers.NewReloadHandler(s.logger, s))

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		s.logger.Error("failed to create static file system", "error", err)
	} else {
		r.Method(http.MethodGet, "/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.cookies.Middleware(s.logger))
		if cfg.CSRF.Key != "" {
			r.Use(csrf.Protect([]byte(cfg.CSRF.Key),
				csrf.Secure(cfg.CSRF.Secure),
				csrf.Path("/"),
			))
		}

		unregister := handlers.NewUnregisterHandler(s.logger, s)
		r.Method(http.MethodGet, "/", handlers.NewPageHandler(s.logger, s))
		r.Method(http.MethodGet, "/api/page", handlers.NewAPIPageHandler(s.logger, s))
		r.Method(http.MethodPost, "/signup", handlers.NewSignupHandler(s.logger, s))
		r.Method(http.MethodGet, "/unregister", unregister)
		r.Method(http.MethodPost, "/unregister", unregister)
		r.Method(http.MethodPost, "/refresh", handlers.NewRefreshHandler(s.logger, s))
	})
	return r
}
