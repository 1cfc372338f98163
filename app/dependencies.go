package app

import (
	"context"
	"fmt"
	"time"

	"github.com/unistudious/backend/config"
	"github.com/unistudious/backend/handlers"
	"github.com/unistudious/backend/middleware"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/repositories/postgres"
	"github.com/unistudious/backend/services/audit"
	"github.com/unistudious/backend/services/calendar"
	"github.com/unistudious/backend/services/courses"
	"github.com/unistudious/backend/services/identity"
	"github.com/unistudious/backend/services/notifications"
	"github.com/unistudious/backend/services/ratelimit"
	"github.com/unistudious/backend/services/resources"
	"github.com/unistudious/backend/services/users"
	"github.com/unistudious/backend/tokens"
	"go.uber.org/zap"
)

// auditStopTimeout bounds how long Close waits for queued audit entries
const auditStopTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Auth
	Tokens         *tokens.Manager
	Principals     *identity.PrincipalCache
	Resolver       *identity.Resolver
	LoginThrottle  *ratelimit.LoginThrottle
	AuthMiddleware *middleware.AuthMiddleware

	// Services
	Audit         *audit.AuditService
	Users         *users.UserService
	Courses       *courses.CourseService
	Events        *calendar.EventService
	Resources     *resources.ResourceService
	Notifications *notifications.NotificationService

	// HTTP handlers
	HealthHandler       *handlers.HealthHandler
	AuthHandler         *handlers.AuthHandler
	UserHandler         *handlers.UserHandler
	CourseHandler       *handlers.CourseHandler
	CalendarHandler     *handlers.CalendarHandler
	ResourceHandler     *handlers.ResourceHandler
	NotificationHandler *handlers.NotificationHandler
	AuditHandler        *handlers.AuditHandler

	cancelWorkers context.CancelFunc
	closed        bool
}

// NewDependencies opens the database and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesWithFactory(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWithFactory wires the application on an already opened pool
func NewDependenciesWithFactory(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if cfg.Database.AutoMigrate {
		if err := factory.InitSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		logger.Info("database schema ready")
	}

	deps.initRepositories()
	if err := deps.initAudit(cfg); err != nil {
		return nil, fmt.Errorf("failed to start audit writer: %w", err)
	}
	deps.initAuth(cfg)
	deps.initServices()
	deps.initHandlers(cfg)

	if err := deps.bootstrapAdmin(ctx, cfg); err != nil {
		deps.stopAudit()
		return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.Repos = d.RepoFactory.NewRepositories()
	d.TxManager = d.RepoFactory.GetTransactionManager()
	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initAudit(cfg *config.Config) error {
	d.Audit = audit.NewAuditService(d.Repos.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	return d.Audit.Start()
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	d.Tokens = tokens.NewManager(tokens.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL,
	})
	d.Principals = identity.NewPrincipalCache(cfg.Auth.PrincipalCacheSize, cfg.Auth.PrincipalCacheTTL)
	d.Resolver = identity.NewResolver(d.Tokens, d.Repos.Users, d.Principals, d.Logger)
	d.LoginThrottle = ratelimit.NewLoginThrottle(d.DB.DB, d.Logger, ratelimit.Config{
		MaxFailures: cfg.LoginThrottle.MaxFailures,
		Window:      cfg.LoginThrottle.Window,
	})
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Resolver, cfg.Auth.CookieName, d.Logger)
	d.Logger.Info("auth initialized", zap.String("issuer", cfg.Auth.Issuer), zap.Duration("token_ttl", d.Tokens.TTL()))
}

func (d *Dependencies) initServices() {
	d.Users = users.NewUserService(users.Deps{
		TxMgr:      d.TxManager,
		Repos:      d.Repos,
		Tokens:     d.Tokens,
		Limiter:    d.LoginThrottle,
		Principals: d.Resolver,
		Audit:      d.Audit,
		Logger:     d.Logger,
	})
	d.Courses = courses.NewCourseService(d.TxManager, d.Repos, d.Audit, d.Logger)
	d.Events = calendar.NewEventService(d.Repos.Events, d.Repos.Courses, d.Audit, d.Logger)
	d.Resources = resources.NewResourceService(d.Repos.Resources, d.Repos.Courses, d.Audit, d.Logger)
	d.Notifications = notifications.NewNotificationService(d.TxManager, d.Repos, d.Audit, d.Logger)
}

func (d *Dependencies) initHandlers(cfg *config.Config) {
	d.HealthHandler = handlers.NewHealthHandler(map[string]handlers.HealthChecker{
		"database": d.DB,
		"audit":    d.Audit,
	}, d.Logger)
	d.AuthHandler = handlers.NewAuthHandler(d.Users, handlers.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
	}, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.Users, d.Logger)
	d.CourseHandler = handlers.NewCourseHandler(d.Courses, d.Logger)
	d.CalendarHandler = handlers.NewCalendarHandler(d.Events, d.Logger)
	d.ResourceHandler = handlers.NewResourceHandler(d.Resources, d.Logger)
	d.NotificationHandler = handlers.NewNotificationHandler(d.Notifications, d.Logger)
	d.AuditHandler = handlers.NewAuditHandler(d.Audit, d.Logger)
}

// bootstrapAdmin creates the configured administrator when it does not exist yet
func (d *Dependencies) bootstrapAdmin(ctx context.Context, cfg *config.Config) error {
	if cfg.Auth.BootstrapAdminEmail == "" {
		return nil
	}
	created, err := d.Users.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword)
	if err != nil {
		return err
	}
	if created {
		d.Logger.Info("bootstrap admin created", zap.String("email", cfg.Auth.BootstrapAdminEmail))
	}
	return nil
}

// StartWorkers launches the periodic cleanup jobs. They stop on Close.
func (d *Dependencies) StartWorkers(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancelWorkers = cancel

	if d.Config.LoginThrottle.CleanupInterval > 0 {
		go d.LoginThrottle.StartCleanupWorker(ctx, d.Config.LoginThrottle.CleanupInterval)
	}
	if d.Config.Auth.PrincipalCacheTTL > 0 {
		go d.Principals.StartCleanupWorker(d.Config.Auth.PrincipalCacheTTL, ctx.Done())
	}
	d.Logger.Info("background workers started")
}

func (d *Dependencies) stopAudit() {
	if d.Audit == nil {
		return
	}
	if err := d.Audit.Stop(auditStopTimeout); err != nil {
		d.Logger.Warn("audit writer did not drain", zap.Error(err))
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.Logger.Info("shutting down dependencies")

	if d.cancelWorkers != nil {
		d.cancelWorkers()
	}

	// Drain audit entries before the pool goes away
	d.stopAudit()

	var errs []error
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
