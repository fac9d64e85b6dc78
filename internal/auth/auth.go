package auth

import (
	"context"
	"fmt"

	authhttp "blog-cms/internal/auth/adapter/http"
	"blog-cms/internal/auth/adapter/persistence/memory"
	"blog-cms/internal/auth/adapter/persistence/mongodb"
	"blog-cms/internal/auth/adapter/security"
	"blog-cms/internal/auth/config"
	"blog-cms/internal/auth/domain/repository"
	"blog-cms/internal/auth/usecase"
	"blog-cms/internal/shared/callable"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuthModule represents the complete authentication module
type AuthModule struct {
	repository repository.AuthRepository
	tokenSvc   repository.TokenService
	usecase    *usecase.AuthUsecase
	handler    *authhttp.AuthHTTPHandler
	middleware *authhttp.AuthMiddleware
	config     *config.Config
	log        logger.Logger
}

// NewAuthModule creates the module. Users and sessions are stored in db, or in
// memory when db is nil. The bootstrap admin is created if configured.
func NewAuthModule(ctx context.Context, db *mongo.Database, cfg *config.Config, bus eventbus.EventBusInterface, log logger.Logger) (*AuthModule, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	var authRepo repository.AuthRepository
	if db != nil {
		mongoRepo, err := mongodb.NewMongoAuthRepository(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("failed to create auth repository: %w", err)
		}
		authRepo = mongoRepo
	} else {
		authRepo = memory.NewAuthRepository()
	}

	tokenSvc, err := security.NewJWTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	authUsecase := usecase.NewAuthUsecase(authRepo, tokenSvc, cfg, bus, log)

	created, err := authUsecase.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	if created {
		log.WithFields(map[string]interface{}{"email": cfg.BootstrapAdminEmail}).Info("Bootstrap admin user created")
	}

	return &AuthModule{
		repository: authRepo,
		tokenSvc:   tokenSvc,
		usecase:    authUsecase,
		handler:    authhttp.NewAuthHTTPHandler(authUsecase, cfg, log),
		middleware: authhttp.NewAuthMiddleware(authUsecase, cfg.CookieName, cfg.CORSAllowOrigins, log),
		config:     cfg,
		log:        log,
	}, nil
}

// RegisterRoutes registers authentication routes with the provided router
func (am *AuthModule) RegisterRoutes(router fiber.Router) {
	am.handler.SetupAuthRoutesWithMiddleware(router, am.middleware)
}

// RegisterCallables registers the admin user callables
func (am *AuthModule) RegisterCallables(reg *callable.Registry) {
	authhttp.RegisterCallables(reg, am.usecase)
}

// GetUsecase returns the auth usecase for external access
func (am *AuthModule) GetUsecase() usecase.AuthUsecaseInterface {
	return am.usecase
}

// GetMiddleware returns the auth middleware
func (am *AuthModule) GetMiddleware() *authhttp.AuthMiddleware {
	return am.middleware
}

// Stop performs cleanup when the module is shut down. The database connection
// belongs to the caller.
func (am *AuthModule) Stop() error {
	return nil
}
