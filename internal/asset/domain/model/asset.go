package model

import (
	"errors"
	"time"
)

// Kind selects one of the two asset lists.
type Kind string

const (
	KindPhotoshoot Kind = "photoshoot"
	KindCollection Kind = "collection"
)

// Kinds lists every asset kind in display order.
var Kinds = []Kind{KindPhotoshoot, KindCollection}

var (
	ErrUnknownKind   = errors.New("unknown asset kind")
	ErrAssetNotFound = errors.New("asset not found")
	ErrBlobNotFound  = errors.New("asset blob not found")
)

// ParseKind validates a kind taken from a route or a frame.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPhotoshoot, KindCollection:
		return Kind(s), nil
	}
	return "", ErrUnknownKind
}

// StorageRefPending marks an asset whose bytes have not been stored yet.
const StorageRefPending = "__pending__"

// Asset is one entry of a photoshoot or collection list.
type Asset struct {
	Ref        Ref       `json:"id"`
	OwnerID    string    `json:"owner_id"`
	StorageRef string    `json:"storage_ref"`
	DisplayURL string    `json:"display_url"`
	Kind       Kind      `json:"kind"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`

	// Collection assets
	ItemName     string `json:"item_name,omitempty"`
	ItemCategory string `json:"item_category,omitempty"`
	// Photoshoot assets
	SourceFeature string `json:"source_feature,omitempty"`
}

// Pending reports whether the asset is a placeholder awaiting confirmation.
func (a Asset) Pending() bool {
	return a.Ref.IsPending()
}

// Metadata is the descriptive part of a save, stored alongside the bytes.
type Metadata struct {
	Type          string `json:"type"`
	ItemName      string `json:"item_name,omitempty"`
	ItemCategory  string `json:"item_category,omitempty"`
	SourceFeature string `json:"source_feature,omitempty"`
}

// SaveRequest is what a caller hands to a list. DisplayURL is shown as is
// until the remote write completes.
type SaveRequest struct {
	DisplayURL string `json:"display_url"`
	Metadata
}

// NewPendingAsset builds the placeholder shown while a save is in flight.
func NewPendingAsset(ref Ref, kind Kind, ownerID string, req SaveRequest, now time.Time) Asset {
	return Asset{
		Ref:           ref,
		OwnerID:       ownerID,
		StorageRef:    StorageRefPending,
		DisplayURL:    req.DisplayURL,
		Kind:          kind,
		Type:          req.Type,
		CreatedAt:     now,
		ItemName:      req.ItemName,
		ItemCategory:  req.ItemCategory,
		SourceFeature: req.SourceFeature,
	}
}
