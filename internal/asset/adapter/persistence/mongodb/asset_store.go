package mongodb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"photoshoot-studio/internal/asset/domain/model"
	"photoshoot-studio/internal/asset/domain/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BlobBucket is the GridFS bucket holding asset bytes.
const BlobBucket = "asset_blobs"

var collections = map[model.Kind]string{
	model.KindPhotoshoot: "photoshoot_assets",
	model.KindCollection: "collection_assets",
}

// assetDocument is the stored metadata row of an asset.
type assetDocument struct {
	ID            string    `bson:"_id"`
	OwnerID       string    `bson:"owner_id"`
	StorageRef    string    `bson:"storage_ref"`
	DisplayURL    string    `bson:"display_url"`
	Type          string    `bson:"type"`
	CreatedAt     time.Time `bson:"created_at"`
	ItemName      string    `bson:"item_name,omitempty"`
	ItemCategory  string    `bson:"item_category,omitempty"`
	SourceFeature string    `bson:"source_feature,omitempty"`
}

func (d assetDocument) toAsset(kind model.Kind) model.Asset {
	return model.Asset{
		Ref:           model.PersistedRef(d.ID),
		OwnerID:       d.OwnerID,
		StorageRef:    d.StorageRef,
		DisplayURL:    d.DisplayURL,
		Kind:          kind,
		Type:          d.Type,
		CreatedAt:     d.CreatedAt,
		ItemName:      d.ItemName,
		ItemCategory:  d.ItemCategory,
		SourceFeature: d.SourceFeature,
	}
}

// AssetStore keeps asset metadata in one collection per kind and image bytes
// in GridFS. Assets saved from an http(s) URL keep the URL as their storage
// reference and never touch GridFS.
type AssetStore struct {
	db  *mongo.Database
	now func() time.Time
}

// NewAssetStore creates the store. No I/O happens until the first call.
func NewAssetStore(db *mongo.Database) *AssetStore {
	return &AssetStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// BlobURL is the path the blob handler serves storageRef under.
func BlobURL(kind model.Kind, storageRef string) string {
	return fmt.Sprintf("/api/assets/%s/blob/%s", kind, storageRef)
}

func (s *AssetStore) collection(kind model.Kind) (*mongo.Collection, error) {
	name, ok := collections[kind]
	if !ok {
		return nil, model.ErrUnknownKind
	}
	return s.db.Collection(name), nil
}

// bucket opens a GridFS bucket bound to the deadline of ctx. Buckets carry
// their deadlines as state, so each call gets its own.
func (s *AssetStore) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(BlobBucket))
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := b.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		if err := b.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// EnsureIndexes creates the owner/recency index on both collections.
func (s *AssetStore) EnsureIndexes(ctx context.Context) error {
	for _, kind := range model.Kinds {
		coll, _ := s.collection(kind)
		_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
		})
		if err != nil {
			return fmt.Errorf("failed to create index on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// ListByOwner returns ownerID's assets of kind, most recent first.
func (s *AssetStore) ListByOwner(ctx context.Context, kind model.Kind, ownerID string) ([]model.Asset, error) {
	coll, err := s.collection(kind)
	if err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, errors.New("owner ID cannot be empty")
	}

	cursor, err := coll.Find(ctx, bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []assetDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	assets := make([]model.Asset, 0, len(docs))
	for _, d := range docs {
		assets = append(assets, d.toAsset(kind))
	}
	return assets, nil
}

// Create stores the payload and its metadata row and returns the persisted asset.
func (s *AssetStore) Create(ctx context.Context, kind model.Kind, ownerID string, payload model.Payload, meta model.Metadata) (*model.Asset, error) {
	coll, err := s.collection(kind)
	if err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, errors.New("owner ID cannot be empty")
	}

	doc := assetDocument{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Type:          meta.Type,
		CreatedAt:     s.now(),
		ItemName:      meta.ItemName,
		ItemCategory:  meta.ItemCategory,
		SourceFeature: meta.SourceFeature,
	}

	var blobID primitive.ObjectID
	switch {
	case payload.SourceURL != "":
		doc.StorageRef = payload.SourceURL
		doc.DisplayURL = payload.SourceURL
	case len(payload.Data) > 0:
		bucket, err := s.bucket(ctx)
		if err != nil {
			return nil, err
		}
		blobID, err = bucket.UploadFromStream(doc.ID, bytes.NewReader(payload.Data),
			options.GridFSUpload().SetMetadata(bson.M{
				"content_type": payload.ContentType,
				"owner_id":     ownerID,
				"kind":         string(kind),
			}))
		if err != nil {
			return nil, fmt.Errorf("failed to upload asset bytes: %w", err)
		}
		doc.StorageRef = blobID.Hex()
		doc.DisplayURL = BlobURL(kind, doc.StorageRef)
	default:
		return nil, model.ErrEmptyDisplay
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if !blobID.IsZero() {
			if bucket, berr := s.bucket(ctx); berr == nil {
				_ = bucket.Delete(blobID)
			}
		}
		return nil, fmt.Errorf("failed to insert asset: %w", err)
	}

	asset := doc.toAsset(kind)
	return &asset, nil
}

// Delete removes ownerID's metadata row and, when the row points at a GridFS
// file uploaded for ownerID, the stored bytes. A row held by another owner,
// or stored under a different reference, is reported as not found.
func (s *AssetStore) Delete(ctx context.Context, kind model.Kind, ownerID, assetID, storageRef string) error {
	coll, err := s.collection(kind)
	if err != nil {
		return err
	}
	if assetID == "" {
		return errors.New("asset ID cannot be empty")
	}
	if ownerID == "" {
		return errors.New("owner ID cannot be empty")
	}

	filter := bson.M{"_id": assetID, "owner_id": ownerID}
	if storageRef != "" {
		filter["storage_ref"] = storageRef
	}
	var doc assetDocument
	if err := coll.FindOneAndDelete(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.ErrAssetNotFound
		}
		return err
	}

	blobID, err := primitive.ObjectIDFromHex(doc.StorageRef)
	if err != nil {
		return nil
	}
	bucket, err := s.bucket(ctx)
	if err != nil {
		return err
	}
	owned, err := s.ownsBlob(ctx, bucket, ownerID, blobID)
	if err != nil || !owned {
		return err
	}
	if err := bucket.DeleteContext(ctx, blobID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("failed to delete asset bytes: %w", err)
	}
	return nil
}

func (s *AssetStore) ownsBlob(ctx context.Context, bucket *gridfs.Bucket, ownerID string, blobID primitive.ObjectID) (bool, error) {
	cursor, err := bucket.FindContext(ctx, bson.M{"_id": blobID, "metadata.owner_id": ownerID})
	if err != nil {
		return false, err
	}
	defer cursor.Close(ctx)
	return cursor.Next(ctx), cursor.Err()
}

// OpenBlob streams the bytes stored under storageRef with their content type.
// Files uploaded for another owner are reported as not found.
func (s *AssetStore) OpenBlob(ctx context.Context, ownerID, storageRef string) (io.ReadCloser, string, error) {
	blobID, err := primitive.ObjectIDFromHex(storageRef)
	if err != nil || ownerID == "" {
		return nil, "", model.ErrBlobNotFound
	}
	bucket, err := s.bucket(ctx)
	if err != nil {
		return nil, "", err
	}
	stream, err := bucket.OpenDownloadStream(blobID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", model.ErrBlobNotFound
		}
		return nil, "", err
	}

	file := stream.GetFile()
	if file == nil || len(file.Metadata) == 0 {
		_ = stream.Close()
		return nil, "", model.ErrBlobNotFound
	}
	if owner, _ := file.Metadata.Lookup("owner_id").StringValueOK(); owner != ownerID {
		_ = stream.Close()
		return nil, "", model.ErrBlobNotFound
	}

	contentType := "application/octet-stream"
	if ct, ok := file.Metadata.Lookup("content_type").StringValueOK(); ok && ct != "" {
		contentType = ct
	}
	return stream, contentType, nil
}

var (
	_ repository.AssetStore = (*AssetStore)(nil)
	_ repository.BlobStore  = (*AssetStore)(nil)
)
