package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	authconfig "photoshoot-studio/internal/auth/config"
	"photoshoot-studio/internal/config"
	"photoshoot-studio/internal/di"
	sessionconfig "photoshoot-studio/internal/session/config"
	apperrors "photoshoot-studio/internal/shared/errors"
	"photoshoot-studio/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run serves until a shutdown signal or a server failure. Every error path
// returns through it so the container is always closed.
func run() error {
	appLogger := logger.NewLogger().WithComponent("main")

	appCfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}
	authCfg, err := authconfig.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load auth configuration: %w", err)
	}
	sessionCfg, err := sessionconfig.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load session configuration: %w", err)
	}
	appLogger.Info("configuration loaded")

	container := di.NewContainer(di.Configs{App: appCfg, Auth: authCfg, Session: sessionCfg}, logger.NewLogger())
	defer func() {
		if err := container.Close(); err != nil {
			appLogger.Error("failed to close container", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := container.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if err := container.InitializeModules(ctx, nil); err != nil {
		return fmt.Errorf("failed to initialize modules: %w", err)
	}
	appLogger.Info("modules initialized")

	app := fiber.New(fiber.Config{
		AppName:      appCfg.Server.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			appLogger.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": "Internal Server Error"})
		},
	})

	middleware := container.AuthModule.GetMiddleware()
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.CORS(appCfg.Server.AllowOrigins))
	app.Use(middleware.SecurityHeaders())

	app.Get("/health", func(c *fiber.Ctx) error {
		healthCtx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		if err := container.HealthCheck(healthCtx); err != nil {
			appLogger.Error("health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "UNHEALTHY",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status":    "HEALTHY",
			"timestamp": time.Now().UTC(),
			"modules": fiber.Map{
				"auth":    "initialized",
				"asset":   "initialized",
				"session": "initialized",
				"ssr":     "initialized",
			},
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	container.RegisterRoutes(app)

	serverAddr := appCfg.Server.Addr()
	appLogger.Info("starting http server", zap.String("addr", serverAddr))

	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- app.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-quit:
		appLogger.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Error("server forced to shutdown", zap.Error(err))
		}
		appLogger.Info("http server stopped")
	}
	return nil
}
