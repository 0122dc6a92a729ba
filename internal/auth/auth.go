package auth

import (
	"context"
	"fmt"

	authhttp "photoshoot-studio/internal/auth/adapter/http"
	"photoshoot-studio/internal/auth/adapter/persistence/mongodb"
	authredis "photoshoot-studio/internal/auth/adapter/persistence/redis"
	"photoshoot-studio/internal/auth/adapter/security"
	"photoshoot-studio/internal/auth/config"
	"photoshoot-studio/internal/auth/usecase"
	"photoshoot-studio/internal/shared/eventbus"
	"photoshoot-studio/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// AuthModule represents the complete authentication module
type AuthModule struct {
	usecase    usecase.AuthUsecaseInterface
	handler    *authhttp.AuthHTTPHandler
	middleware *authhttp.AuthMiddleware
	config     *config.Config
}

// Options are the shared collaborators of the module. Redis may be nil, in
// which case OAuth sign-in is disabled.
type Options struct {
	DB     *mongo.Database
	Redis  goredis.Cmdable
	Bus    eventbus.EventBusInterface
	Logger logger.Logger
}

// NewAuthModule creates a new authentication module instance
func NewAuthModule(ctx context.Context, opts Options, cfg *config.Config) (*AuthModule, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	authRepo := mongodb.NewMongoAuthRepository(opts.DB)
	if err := authRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create auth indexes: %w", err)
	}
	profileRepo := mongodb.NewMongoProfileRepository(opts.DB)

	tokenSvc, err := security.NewJWTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	deps := usecase.Deps{
		Repo:     authRepo,
		Profiles: profileRepo,
		Tokens:   tokenSvc,
		Bus:      opts.Bus,
		Logger:   log,
	}
	if provider := security.NewOAuthProvider(cfg.OAuth); provider != nil && opts.Redis != nil {
		deps.Exchanger = provider
		deps.States = authredis.NewOAuthStateStore(opts.Redis)
		log.Info("oauth sign-in enabled", zap.String("provider", cfg.OAuth.Provider))
	}

	authUsecase := usecase.NewAuthUsecase(deps, cfg)

	return &AuthModule{
		usecase:    authUsecase,
		handler:    authhttp.NewAuthHTTPHandler(authUsecase, cfg),
		middleware: authhttp.NewAuthMiddleware(authUsecase, cfg.CookieName),
		config:     cfg,
	}, nil
}

// RegisterRoutes registers authentication routes with the provided router
func (am *AuthModule) RegisterRoutes(router fiber.Router) {
	am.handler.SetupAuthRoutesWithMiddleware(router, am.middleware, am.middleware.RateLimiter(10))
}

// GetUsecase returns the auth usecase for external access
func (am *AuthModule) GetUsecase() usecase.AuthUsecaseInterface {
	return am.usecase
}

// GetMiddleware returns the auth middleware
func (am *AuthModule) GetMiddleware() *authhttp.AuthMiddleware {
	return am.middleware
}

// Stop performs cleanup when the module is shut down
func (am *AuthModule) Stop() error {
	return nil
}
