package di

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"photoshoot-studio/internal/asset"
	"photoshoot-studio/internal/auth"
	authconfig "photoshoot-studio/internal/auth/config"
	"photoshoot-studio/internal/config"
	"photoshoot-studio/internal/session"
	sessionconfig "photoshoot-studio/internal/session/config"
	"photoshoot-studio/internal/shared/eventbus"
	"photoshoot-studio/internal/shared/logger"
	"photoshoot-studio/internal/ssr"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Configs groups the configuration of every module.
type Configs struct {
	App     *config.Config
	Auth    *authconfig.Config
	Session *sessionconfig.Config
}

// Container owns the connections and modules of the service and closes them
// in reverse order of construction.
type Container struct {
	mu sync.RWMutex

	Configs Configs
	Logger  logger.Logger
	Clock   clockwork.Clock

	// Connections
	Mongo   *mongo.Client
	MongoDB *mongo.Database
	Redis   *goredis.Client
	Bus     *eventbus.EventBus

	// Modules
	AuthModule    *auth.AuthModule
	AssetModule   *asset.AssetModule
	SessionModule *session.SessionModule
	Renderer      *ssr.Renderer
}

// NewContainer creates an empty container.
func NewContainer(cfgs Configs, log logger.Logger) *Container {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Container{
		Configs: cfgs,
		Logger:  log,
		Clock:   clockwork.NewRealClock(),
	}
}

// Connect opens MongoDB and Redis. A Redis that does not answer is dropped:
// OAuth sign-in and the onboarding tour are then disabled.
func (c *Container) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.Configs.App.Mongo.URI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	c.Mongo = client
	c.MongoDB = client.Database(c.Configs.App.Mongo.DatabaseName)
	c.Logger.Info("mongodb connected", zap.String("database", c.Configs.App.Mongo.DatabaseName))

	rdb := config.NewRedisClient(&c.Configs.App.Redis)
	if err := rdb.Ping(ctx).Err(); err != nil {
		c.Logger.Warn("redis unavailable, oauth and onboarding disabled",
			zap.String("addr", c.Configs.App.Redis.GetAddr()), zap.Error(err))
		_ = rdb.Close()
	} else {
		c.Redis = rdb
		c.Logger.Info("redis connected", zap.String("addr", c.Configs.App.Redis.GetAddr()))
	}
	return nil
}

// redis returns the Redis client as a Cmdable, or nil when none is
// connected. A nil *Client must not leak into an interface.
func (c *Container) redis() goredis.Cmdable {
	if c.Redis == nil {
		return nil
	}
	return c.Redis
}

// InitializeModules builds the event bus and every module on top of the
// open connections.
func (c *Container) InitializeModules(ctx context.Context, render ssr.RenderFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.MongoDB == nil {
		return errors.New("MongoDB must be connected before modules are initialized")
	}

	c.Bus = eventbus.NewEventBus(c.Logger)

	authModule, err := auth.NewAuthModule(ctx, auth.Options{
		DB:     c.MongoDB,
		Redis:  c.redis(),
		Bus:    c.Bus,
		Logger: c.Logger,
	}, c.Configs.Auth)
	if err != nil {
		return fmt.Errorf("failed to create auth module: %w", err)
	}
	c.AuthModule = authModule

	assetModule, err := asset.NewAssetModule(ctx, asset.Options{
		DB:       c.MongoDB,
		Sessions: authModule.GetUsecase(),
		Logger:   c.Logger,
		Clock:    c.Clock,
		IdleTTL:  c.Configs.App.Asset.IdleTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create asset module: %w", err)
	}
	c.AssetModule = assetModule

	sessionModule, err := session.NewSessionModule(session.Options{
		Provider: authModule.GetUsecase(),
		Assets:   assetModule.Library(),
		Redis:    c.redis(),
		Clock:    c.Clock,
		Logger:   c.Logger,
	}, c.Configs.Session)
	if err != nil {
		return fmt.Errorf("failed to create session module: %w", err)
	}
	c.SessionModule = sessionModule

	if render == nil {
		render = ssr.ShellRender
	}
	renderer, err := ssr.NewRenderer(c.Configs.App.SSR, render, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	c.Renderer = renderer

	return nil
}

// RegisterRoutes mounts every module. The SSR catch-all goes last.
func (c *Container) RegisterRoutes(app fiber.Router) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	middleware := c.AuthModule.GetMiddleware()
	c.AuthModule.RegisterRoutes(app)
	c.AssetModule.RegisterRoutes(app, middleware.Protect())
	c.SessionModule.RegisterRoutes(app, middleware.OptionalAuth())
	c.Renderer.RegisterRoutes(app)
}

// HealthCheck pings every open connection concurrently.
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	if c.Mongo != nil {
		g.Go(func() error {
			if err := c.Mongo.Ping(ctx, nil); err != nil {
				return fmt.Errorf("MongoDB health check failed: %w", err)
			}
			return nil
		})
	}
	if c.Redis != nil {
		g.Go(func() error {
			if err := c.Redis.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("Redis health check failed: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close stops the modules and then the connections.
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.SessionModule != nil {
		errs = append(errs, c.SessionModule.Stop())
		c.SessionModule = nil
	}
	if c.AssetModule != nil {
		errs = append(errs, c.AssetModule.Stop())
		c.AssetModule = nil
	}
	if c.AuthModule != nil {
		errs = append(errs, c.AuthModule.Stop())
		c.AuthModule = nil
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
		c.Redis = nil
	}
	if c.Mongo != nil {
		errs = append(errs, c.Mongo.Disconnect(ctx))
		c.Mongo = nil
		c.MongoDB = nil
	}

	if err := errors.Join(errs...); err != nil {
		c.Logger.Error("container closed with errors", zap.Error(err))
		return err
	}
	c.Logger.Info("container closed")
	return nil
}
