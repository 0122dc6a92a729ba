package repository

import (
	"context"

	assetmodel "photoshoot-studio/internal/asset/domain/model"
	assetusecase "photoshoot-studio/internal/asset/usecase"
	"photoshoot-studio/internal/session/domain/model"
)

// FlagStore is a durable string key/value store.
type FlagStore interface {
	// Get returns ("", false, nil) when key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// ProfileSource looks up the optional profile of a user. A missing profile
// is (nil, nil).
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (*model.ProfileInfo, error)
}

// AssetLibrary is the per-owner asset state the projector drives. A
// subscription holds the owner's lists until its unsubscribe func runs;
// other holders of the same owner are unaffected.
type AssetLibrary interface {
	RefreshIfEmpty(ctx context.Context, ownerID string, force bool) error
	Subscribe(ownerID string, kind assetmodel.Kind) (<-chan assetusecase.ListState, func(), error)
}
