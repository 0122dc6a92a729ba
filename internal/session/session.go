package session

import (
	"fmt"

	sessionhttp "photoshoot-studio/internal/session/adapter/http"
	"photoshoot-studio/internal/session/adapter/identity"
	sessionredis "photoshoot-studio/internal/session/adapter/persistence/redis"
	"photoshoot-studio/internal/session/config"
	"photoshoot-studio/internal/session/domain/repository"
	"photoshoot-studio/internal/session/usecase"
	"photoshoot-studio/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

// Provider is what the module needs from the identity provider.
type Provider interface {
	usecase.SessionProvider
	identity.ProfileGetter
}

// Options are the shared collaborators of the module. Redis may be nil, in
// which case the onboarding tour never opens.
type Options struct {
	Provider Provider
	Assets   repository.AssetLibrary
	Redis    goredis.Cmdable
	Clock    clockwork.Clock
	Logger   logger.Logger
}

// SessionModule serves the session projection stream.
type SessionModule struct {
	factory *usecase.ProjectorFactory
	handler *sessionhttp.SessionHandler
}

// NewSessionModule wires the projector factory and its websocket handler.
func NewSessionModule(opts Options, cfg *config.Config) (*SessionModule, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	deps := usecase.Deps{
		Sessions: opts.Provider,
		Profiles: identity.NewProfileSource(opts.Provider),
		Assets:   opts.Assets,
		Clock:    opts.Clock,
		Logger:   log,
	}
	if opts.Redis != nil {
		deps.Flags = sessionredis.NewFlagStore(opts.Redis)
	}

	factory, err := usecase.NewProjectorFactory(deps, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build session guard: %w", err)
	}
	return &SessionModule{
		factory: factory,
		handler: sessionhttp.NewSessionHandler(factory, log),
	}, nil
}

// RegisterRoutes mounts /ws/session behind optionalAuth.
func (m *SessionModule) RegisterRoutes(router fiber.Router, optionalAuth fiber.Handler) {
	m.handler.RegisterRoutes(router, optionalAuth)
}

// Projectors returns the projector factory.
func (m *SessionModule) Projectors() *usecase.ProjectorFactory {
	return m.factory
}

// Stop is a no-op: projectors close with their connections.
func (m *SessionModule) Stop() error {
	return nil
}
