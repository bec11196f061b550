// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mbd888/fountainscan/internal/catalog"
	"github.com/mbd888/fountainscan/internal/circuitbreaker"
	"github.com/mbd888/fountainscan/internal/config"
	"github.com/mbd888/fountainscan/internal/health"
	"github.com/mbd888/fountainscan/internal/lists"
	"github.com/mbd888/fountainscan/internal/logging"
	"github.com/mbd888/fountainscan/internal/metrics"
	"github.com/mbd888/fountainscan/internal/ratelimit"
	"github.com/mbd888/fountainscan/internal/realtime"
	"github.com/mbd888/fountainscan/internal/reports"
	"github.com/mbd888/fountainscan/internal/reputation"
	"github.com/mbd888/fountainscan/internal/risk"
	"github.com/mbd888/fountainscan/internal/scancache"
	"github.com/mbd888/fountainscan/internal/scanner"
	"github.com/mbd888/fountainscan/internal/security"
	"github.com/mbd888/fountainscan/internal/traces"
	"github.com/mbd888/fountainscan/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg           *config.Config
	version       string
	engine        *scanner.Engine
	reports       *reports.Service
	realtimeHub   *realtime.Hub
	sweeper       *scancache.Sweeper
	rateLimiter   *ratelimit.Limiter
	health        *health.Registry
	probe         reputation.Probe
	submitter     reports.Submitter
	openCircuits  atomic.Int64
	db            *sql.DB // nil if using in-memory
	router        *gin.Engine
	httpSrv       *http.Server
	logger        *slog.Logger
	drainDelay    time.Duration
	cancelRunCtx  context.CancelFunc // cancels background goroutines started in Run
	shutdownTrace func(context.Context) error

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported by /health and traces.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithProbe replaces the RDAP domain-age probe (for testing)
func WithProbe(p reputation.Probe) Option {
	return func(s *Server) {
		s.probe = p
	}
}

// WithReportSubmitter replaces the report forwarder (for testing)
func WithReportSubmitter(sub reports.Submitter) Option {
	return func(s *Server) {
		s.submitter = sub
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		version:    "dev",
		logger:     logging.New(cfg.LogLevel, cfg.LogFormat),
		drainDelay: 5 * time.Second,
		health:     health.NewRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	shutdownTrace, err := traces.Init(ctx, cfg.OTLPEndpoint, s.version, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing, continuing without it", "error", err)
		shutdownTrace = func(context.Context) error { return nil }
	}
	s.shutdownTrace = shutdownTrace

	// Storage: Postgres if DATABASE_URL set, otherwise in-memory
	var (
		listStore   lists.Store
		auditStore  risk.Store
		reportStore reports.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		ls := lists.NewPostgresStore(db)
		if err := ls.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate list store", "error", err)
		}
		as := risk.NewPostgresStore(db)
		if err := as.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate verdict store", "error", err)
		}
		rs := reports.NewPostgresStore(db)
		if err := rs.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate report store", "error", err)
		}
		listStore, auditStore, reportStore = ls, as, rs

		s.health.Register("database", health.PingChecker("database", db))
	} else {
		listStore = lists.NewMemoryStore()
		auditStore = risk.NewMemoryStore()
		reportStore = reports.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		cat, err = loadCatalog(cfg.CatalogFile)
		if err != nil {
			s.closeDB()
			return nil, err
		}
		s.logger.Info("catalog loaded", "file", cfg.CatalogFile, "version", cat.Version)
	}

	if s.probe == nil && cfg.ProbeEnabled {
		s.probe = s.newRDAPProbe()
	}
	s.health.RegisterOptional("probe", s.probeHealth)

	s.realtimeHub = realtime.NewHub(s.logger)
	s.health.RegisterOptional("realtime", func(context.Context) health.Status {
		stats := s.realtimeHub.Stats()
		return health.Status{Healthy: true, Detail: fmt.Sprintf("%v clients", stats["connectedClients"])}
	})

	engineOpts := []scanner.Option{
		scanner.WithCatalog(cat),
		scanner.WithListStore(listStore),
		scanner.WithAuditStore(auditStore),
		scanner.WithNotifier(s.realtimeHub),
	}
	if s.probe != nil {
		engineOpts = append(engineOpts, scanner.WithProbe(s.probe))
	}
	s.engine, err = scanner.New(ctx, settingsFromConfig(cfg), s.logger, engineOpts...)
	if err != nil {
		s.closeDB()
		return nil, fmt.Errorf("failed to create scan engine: %w", err)
	}
	s.sweeper = scancache.NewSweeper(s.engine.Cache(), cfg.CacheSweepInterval, s.logger)

	if s.submitter == nil && cfg.ReportEndpointURL != "" {
		fwdOpts := []reports.ForwarderOption{}
		if cfg.ReportSigningSecret != "" {
			fwdOpts = append(fwdOpts, reports.WithSigningSecret(cfg.ReportSigningSecret))
		}
		fwd, err := reports.NewForwarder(cfg.ReportEndpointURL, fwdOpts...)
		if err != nil {
			s.closeDB()
			return nil, fmt.Errorf("invalid REPORT_ENDPOINT_URL: %w", err)
		}
		s.submitter = fwd
		s.logger.Info("report forwarding enabled")
	}
	s.reports = reports.NewService(reportStore, s.engine, s.submitter, s.logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// settingsFromConfig maps environment configuration onto engine settings.
func settingsFromConfig(cfg *config.Config) scanner.Settings {
	st := scanner.DefaultSettings()
	st.Thresholds = risk.Thresholds{
		LowMin:    cfg.RiskLowMin,
		MediumMin: cfg.RiskMediumMin,
		HighMin:   cfg.RiskHighMin,
	}
	st.Freshness = cfg.CacheFreshness
	st.Expiry = cfg.CacheExpiry
	st.ProbeTimeout = cfg.ProbeTimeout
	st.AlertsEnabled = cfg.AlertsEnabled
	st.BlockingEnabled = cfg.BlockingEnabled
	st.RealTimeScanning = cfg.RealTimeScanning
	st.AutoUpdate = cfg.AutoUpdate
	return st
}

func (s *Server) newRDAPProbe() reputation.Probe {
	breaker := circuitbreaker.New(5, time.Minute)
	breaker.OnTransition(func(tld string, from, to circuitbreaker.State) {
		if to == circuitbreaker.StateOpen {
			s.openCircuits.Add(1)
		}
		if from == circuitbreaker.StateOpen {
			s.openCircuits.Add(-1)
		}
		s.logger.Warn("rdap circuit changed", "tld", tld, "from", from.String(), "to", to.String())
	})

	rdap := reputation.NewRDAPProbe(s.logger,
		reputation.WithMaxAge(s.cfg.ProbeMaxAge),
		reputation.WithBreaker(breaker),
	)
	s.logger.Info("domain-age probe enabled", "max_age", s.cfg.ProbeMaxAge)
	return reputation.NewCachedProbe(rdap, reputation.DefaultCacheTTL)
}

func (s *Server) probeHealth(context.Context) health.Status {
	if s.probe == nil {
		return health.Status{Healthy: true, Detail: "disabled"}
	}
	if n := s.openCircuits.Load(); n > 0 {
		return health.Status{Healthy: false, Detail: strconv.FormatInt(n, 10) + " rdap circuits open"}
	}
	return health.Status{Healthy: true}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var def catalog.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	cat, err := catalog.Compile(def)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog file: %w", err)
	}
	return cat, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	s.router.Use(security.HeadersMiddleware())
	s.router.Use(security.CORSMiddleware(s.cfg.CORSOrigins))

	// Scan requests may carry a page's HTML
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	s.rateLimiter = ratelimit.New(ratelimit.FromRPM(s.cfg.RateLimitRPM))
	s.router.Use(s.rateLimiter.Middleware())

	s.router.Use(metrics.Middleware())
	s.router.Use(logging.RequestIDMiddleware(s.logger))
	s.router.Use(logging.AccessLogMiddleware())
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health.Handler(s.version))
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	v1 := s.router.Group("/v1")
	scanHandler := scanner.NewHandler(s.engine)
	scanHandler.RegisterRoutes(v1)
	reports.NewHandler(s.reports).RegisterRoutes(v1)

	admin := v1.Group("", security.RequireAdmin(s.cfg.AdminSecret))
	scanHandler.RegisterAdminRoutes(admin)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"env", s.cfg.Env,
			"probe", s.probe != nil,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.realtimeHub.Run(runCtx)
	go s.sweeper.Start(runCtx)
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(s.drainDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.sweeper.Stop()
	s.rateLimiter.Stop()

	// Waits for pending verdict audit writes
	s.engine.Close()
	s.logger.Info("scan engine stopped")

	if err := s.shutdownTrace(ctx); err != nil {
		s.logger.Error("trace shutdown error", "error", err)
	}

	s.closeDB()

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) closeDB() {
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	} else {
		s.logger.Info("database connection closed")
	}
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Engine returns the scan engine.
func (s *Server) Engine() *scanner.Engine {
	return s.engine
}
