package di

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"blog-cms/internal/auth"
	authhttp "blog-cms/internal/auth/adapter/http"
	authconfig "blog-cms/internal/auth/config"
	authModel "blog-cms/internal/auth/domain/model"
	"blog-cms/internal/cms"
	cmshttp "blog-cms/internal/cms/adapter/http"
	cmsconfig "blog-cms/internal/cms/config"
	"blog-cms/internal/shared/callable"
	"blog-cms/internal/shared/database"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"

	"github.com/caarlos0/env/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const (
	publicFormLimit  = 20
	publicFormWindow = time.Minute
	healthTimeout    = 5 * time.Second
)

// Config gathers the configuration of every module
type Config struct {
	Auth     *authconfig.Config
	CMS      *cmsconfig.Config
	Database *database.Config
	HTTP     *HTTPConfig
}

// HTTPConfig controls how client addresses are derived behind a reverse proxy.
// ProxyHeader is only honoured for requests coming from TrustedProxies.
type HTTPConfig struct {
	ProxyHeader    string   `env:"PROXY_HEADER"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// LoadConfig reads all module configuration from the environment
func LoadConfig() (*Config, error) {
	authCfg, err := authconfig.LoadConfig()
	if err != nil {
		return nil, err
	}
	cmsCfg, err := cmsconfig.LoadConfig()
	if err != nil {
		return nil, err
	}
	dbCfg := &database.Config{}
	if err := env.Parse(dbCfg); err != nil {
		return nil, fmt.Errorf("failed to load database configuration: %w", err)
	}
	httpCfg := &HTTPConfig{}
	if err := env.Parse(httpCfg); err != nil {
		return nil, fmt.Errorf("failed to load http configuration: %w", err)
	}
	return &Config{Auth: authCfg, CMS: cmsCfg, Database: dbCfg, HTTP: httpCfg}, nil
}

// Container represents a dependency injection container with proper lifecycle management
type Container struct {
	mu       sync.RWMutex
	services map[reflect.Type]interface{}
	// Module instances
	AuthModule *auth.AuthModule
	CMSModule  *cms.CMSModule
	// Shared infrastructure
	Database *database.Manager
	Bus      *eventbus.EventBus
	Registry *callable.Registry
	Logger   logger.Logger

	http *HTTPConfig
}

// NewContainer creates a new DI container
func NewContainer(log logger.Logger) *Container {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Container{
		services: make(map[reflect.Type]interface{}),
		Logger:   log,
	}
}

// Initialize builds the shared infrastructure, then the cms module, then the
// auth module, which stores admin users in the cms admin database. Each module
// resolves what it depends on from the service registry.
func (c *Container) Initialize(ctx context.Context, cfg *Config) error {
	c.mu.Lock()
	c.Bus = eventbus.NewEventBus(c.Logger)
	c.Database = database.NewManager(cfg.Database, c.Logger)
	c.Registry = callable.NewRegistry(c.Logger)
	c.http = cfg.HTTP
	c.mu.Unlock()

	for _, service := range []interface{}{c.Bus, c.Database, c.Registry} {
		if err := c.Register(service); err != nil {
			return err
		}
	}

	if err := c.InitializeCMS(ctx, cfg.CMS); err != nil {
		return err
	}
	return c.InitializeAuth(ctx, cfg.Auth)
}

// InitializeCMS initializes the blog cms module
func (c *Container) InitializeCMS(ctx context.Context, cfg *cmsconfig.Config) error {
	bus, err := GetService[*eventbus.EventBus](c)
	if err != nil {
		return err
	}
	dbm, err := GetService[*database.Manager](c)
	if err != nil {
		return err
	}
	reg, err := GetService[*callable.Registry](c)
	if err != nil {
		return err
	}

	cmsModule, err := cms.NewCMSModule(ctx, cfg, dbm, bus, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create cms module: %w", err)
	}
	cmsModule.RegisterCallables(reg)

	c.mu.Lock()
	c.CMSModule = cmsModule
	c.mu.Unlock()
	return c.Register(cmsModule)
}

// InitializeAuth initializes the authentication module
func (c *Container) InitializeAuth(ctx context.Context, cfg *authconfig.Config) error {
	cmsModule, err := GetService[*cms.CMSModule](c)
	if err != nil {
		return fmt.Errorf("cms module must be initialized before auth module: %w", err)
	}
	bus, err := GetService[*eventbus.EventBus](c)
	if err != nil {
		return err
	}
	reg, err := GetService[*callable.Registry](c)
	if err != nil {
		return err
	}

	authModule, err := auth.NewAuthModule(ctx, cmsModule.AdminDatabase(), cfg, bus, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create auth module: %w", err)
	}
	authModule.RegisterCallables(reg)

	c.mu.Lock()
	c.AuthModule = authModule
	c.mu.Unlock()
	return c.Register(authModule)
}

// Start launches background work: topic consumers and the autopublish ticker
func (c *Container) Start(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.CMSModule == nil {
		return errors.New("container is not initialized")
	}
	return c.CMSModule.Start(ctx)
}

// NewApp builds the fiber application with global middleware and every route
func (c *Container) NewApp(appName string) *fiber.App {
	c.mu.RLock()
	defer c.mu.RUnlock()

	appConfig := fiber.Config{
		AppName:      appName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    32 << 20,
		ErrorHandler: c.errorHandler,
	}
	if c.http != nil && c.http.ProxyHeader != "" {
		appConfig.ProxyHeader = c.http.ProxyHeader
		appConfig.EnableTrustedProxyCheck = true
		appConfig.TrustedProxies = c.http.TrustedProxies
	}
	app := fiber.New(appConfig)

	mw := c.AuthModule.GetMiddleware()
	app.Use(recover.New())
	app.Use(authhttp.RequestID())
	app.Use(authhttp.RequestContext())
	app.Use(mw.CORS())
	app.Use(mw.SecurityHeaders())

	app.Get("/health", c.health)

	c.AuthModule.RegisterRoutes(app.Group("/auth"))
	c.CMSModule.RegisterRoutes(app, cmshttp.Middleware{
		Protect:         mw.Protect(),
		RequireAdmin:    mw.RequireRole(authModel.RoleAdmin),
		RequireContent:  mw.RequireRole(authModel.RoleAdmin, authModel.RoleEditor),
		PublicRateLimit: authhttp.RateLimiter(publicFormLimit, publicFormWindow),
	})
	app.Post("/callable/:"+callable.NameParam, mw.Protect(), c.Registry.Handler())

	return app
}

// errorHandler renders errors that escape handlers, such as unknown routes, in
// the callable error shape.
func (c *Container) errorHandler(ctx *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(fiber.Map{"error": callable.ErrorBody{
			Status:  statusForHTTP(fiberErr.Code),
			Message: fiberErr.Message,
		}})
	}
	return callable.WriteError(ctx, c.Logger, err)
}

func statusForHTTP(code int) apperrors.CallableStatus {
	switch {
	case code == fiber.StatusUnauthorized:
		return apperrors.StatusUnauthenticated
	case code == fiber.StatusForbidden:
		return apperrors.StatusPermissionDenied
	case code == fiber.StatusNotFound:
		return apperrors.StatusNotFound
	case code == fiber.StatusConflict:
		return apperrors.StatusAlreadyExists
	case code == fiber.StatusServiceUnavailable:
		return apperrors.StatusUnavailable
	case code >= 500:
		return apperrors.StatusInternal
	default:
		return apperrors.StatusInvalidArgument
	}
}

func (c *Container) health(ctx *fiber.Ctx) error {
	healthCtx, cancel := context.WithTimeout(ctx.UserContext(), healthTimeout)
	defer cancel()

	if err := c.HealthCheck(healthCtx); err != nil {
		c.Logger.WithFields(map[string]interface{}{"error": err.Error()}).Error("Health check failed")
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "UNHEALTHY",
			"error":   err.Error(),
			"message": "One or more services are unhealthy",
		})
	}

	return ctx.JSON(fiber.Map{
		"status":    "HEALTHY",
		"message":   "Blog CMS API is running",
		"timestamp": time.Now().UTC(),
		"modules": fiber.Map{
			"auth": "initialized",
			"cms":  "initialized",
		},
	})
}

// Register registers a service instance
func (c *Container) Register(service interface{}) error {
	if service == nil {
		return errors.New("cannot register a nil service")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	serviceType := reflect.TypeOf(service)
	if serviceType.Kind() == reflect.Ptr {
		serviceType = serviceType.Elem()
	}

	c.services[serviceType] = service
	return nil
}

// Resolve resolves a service by type
func (c *Container) Resolve(serviceType reflect.Type) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if serviceType.Kind() == reflect.Ptr {
		serviceType = serviceType.Elem()
	}
	if service, exists := c.services[serviceType]; exists {
		return service, nil
	}
	return nil, fmt.Errorf("service of type %v not registered", serviceType)
}

// GetService is a generic helper for resolving services
func GetService[T any](c *Container) (T, error) {
	var zero T
	service, err := c.Resolve(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}

	if typedService, ok := service.(T); ok {
		return typedService, nil
	}

	return zero, fmt.Errorf("service is not of expected type %T", zero)
}

// GetAuthModule returns the auth module instance
func (c *Container) GetAuthModule() *auth.AuthModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AuthModule
}

// GetCMSModule returns the cms module instance
func (c *Container) GetCMSModule() *cms.CMSModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.CMSModule
}

// HealthCheck pings the databases the container opened
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Database != nil {
		if err := c.Database.Ping(ctx); err != nil {
			return fmt.Errorf("MongoDB health check failed: %w", err)
		}
	}
	return nil
}

// Cleanup shuts modules down in reverse order of initialization
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.AuthModule != nil {
		if err := c.AuthModule.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop auth module: %w", err))
		}
		c.AuthModule = nil
	}

	if c.CMSModule != nil {
		if err := c.CMSModule.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop cms module: %w", err))
		}
		c.CMSModule = nil
	}

	if c.Database != nil {
		if err := c.Database.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	c.services = make(map[reflect.Type]interface{})
	return errors.Join(errs...)
}

// Close gracefully shuts down all services in the container with timeout
func (c *Container) Close() error {
	c.Logger.Info("Closing DI container resources")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		c.Logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("Cleanup errors occurred")
		return err
	}

	c.Logger.Info("DI container resources closed")
	return nil
}
