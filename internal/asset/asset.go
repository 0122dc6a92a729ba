package asset

import (
	"context"
	"fmt"
	"time"

	assethttp "photoshoot-studio/internal/asset/adapter/http"
	"photoshoot-studio/internal/asset/adapter/persistence/mongodb"
	"photoshoot-studio/internal/asset/usecase"
	authmodel "photoshoot-studio/internal/auth/domain/model"
	authusecase "photoshoot-studio/internal/auth/usecase"
	"photoshoot-studio/internal/shared/eventbus"
	"photoshoot-studio/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SessionSource is the part of the identity provider the module follows.
type SessionSource interface {
	OnSessionChange(listener authusecase.SessionListener) eventbus.Unsubscribe
}

// Options are the shared collaborators of the module.
type Options struct {
	DB       *mongo.Database
	Sessions SessionSource
	Logger   logger.Logger
	Clock    clockwork.Clock
	// IdleTTL bounds how long lists nobody holds outlive their last use.
	IdleTTL time.Duration
}

// AssetModule owns the per-owner asset lists and their HTTP surface.
type AssetModule struct {
	store       *mongodb.AssetStore
	library     *usecase.Library
	handler     *assethttp.AssetHandler
	unsubscribe eventbus.Unsubscribe
	log         logger.Logger
}

// NewAssetModule wires the Mongo store, the library and the handler, and
// follows session changes so every signed-in session holds its owner's
// lists until it signs out or expires.
func NewAssetModule(ctx context.Context, opts Options) (*AssetModule, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithComponent("asset")

	store := mongodb.NewAssetStore(opts.DB)
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create asset indexes: %w", err)
	}

	library := usecase.NewLibraryWithOptions(usecase.LibraryOptions{
		Store:   store,
		Logger:  log,
		Clock:   opts.Clock,
		IdleTTL: opts.IdleTTL,
	})
	m := &AssetModule{
		store:   store,
		library: library,
		handler: assethttp.NewAssetHandler(library, store, log),
		log:     log,
	}
	if opts.Sessions != nil {
		m.unsubscribe = opts.Sessions.OnSessionChange(m.onSessionChange)
	}
	return m, nil
}

func (m *AssetModule) onSessionChange(ctx context.Context, ev authmodel.SessionEvent) {
	switch ev.Kind {
	case authmodel.EventSignedIn, authmodel.EventInitialSession:
		if _, err := m.library.Acquire(ev.UserID, ev.SessionID, sessionExpiry(ev)); err != nil {
			m.log.Warn("asset lists not initialized", zap.String("owner", ev.UserID), zap.Error(err))
		}
	case authmodel.EventTokenRefreshed:
		if _, ok := m.library.Get(ev.UserID); !ok {
			return
		}
		if _, err := m.library.Acquire(ev.UserID, ev.SessionID, sessionExpiry(ev)); err != nil {
			m.log.Warn("asset lease not extended", zap.String("owner", ev.UserID), zap.Error(err))
		}
	case authmodel.EventSignedOut:
		m.library.Release(ev.UserID, ev.SessionID)
	}
}

func sessionExpiry(ev authmodel.SessionEvent) time.Time {
	if ev.Session == nil {
		return time.Time{}
	}
	return ev.Session.ExpiresAt
}

// RegisterRoutes mounts the asset routes behind protect.
func (m *AssetModule) RegisterRoutes(router fiber.Router, protect fiber.Handler) {
	m.handler.RegisterRoutes(router, protect)
}

// Library returns the per-owner list registry.
func (m *AssetModule) Library() *usecase.Library {
	return m.library
}

// Stop detaches from session events and closes every list.
func (m *AssetModule) Stop() error {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.library.Close()
	return nil
}
