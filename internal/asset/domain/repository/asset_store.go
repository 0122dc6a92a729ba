package repository

import (
	"context"
	"io"

	"photoshoot-studio/internal/asset/domain/model"
)

// AssetStore is the remote source of truth for both asset lists.
type AssetStore interface {
	// ListByOwner returns owner's assets of kind, most recent first.
	ListByOwner(ctx context.Context, kind model.Kind, ownerID string) ([]model.Asset, error)
	Create(ctx context.Context, kind model.Kind, ownerID string, payload model.Payload, meta model.Metadata) (*model.Asset, error)
	// Delete removes ownerID's asset. Nothing is removed unless the asset
	// belongs to ownerID and, when storageRef is set, is stored under it.
	Delete(ctx context.Context, kind model.Kind, ownerID, assetID, storageRef string) error
}

// BlobStore serves stored image bytes to the owner they were uploaded for.
type BlobStore interface {
	OpenBlob(ctx context.Context, ownerID, storageRef string) (io.ReadCloser, string, error)
}
