package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"photoshoot-studio/internal/asset/domain/model"
	"photoshoot-studio/internal/asset/usecase"
	"photoshoot-studio/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type memoryStore struct {
	mu        sync.Mutex
	assets    map[model.Kind][]model.Asset
	seq       int
	failWrite bool
	blobs     map[string]memoryBlob
}

type memoryBlob struct {
	owner string
	data  []byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{assets: map[model.Kind][]model.Asset{}, blobs: map[string]memoryBlob{}}
}

func (m *memoryStore) hasBlob(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[ref]
	return ok
}

func (m *memoryStore) ListByOwner(ctx context.Context, kind model.Kind, ownerID string) ([]model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Asset
	for _, a := range m.assets[kind] {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryStore) Create(ctx context.Context, kind model.Kind, ownerID string, payload model.Payload, meta model.Metadata) (*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return nil, errors.New("store unavailable")
	}
	m.seq++
	id := fmt.Sprintf("asset-%d", m.seq)
	a := model.Asset{
		Ref:        model.PersistedRef(id),
		OwnerID:    ownerID,
		StorageRef: "blob-" + id,
		DisplayURL: "/api/assets/" + string(kind) + "/blob/blob-" + id,
		Kind:       kind,
		Type:       meta.Type,
	}
	m.assets[kind] = append([]model.Asset{a}, m.assets[kind]...)
	return &a, nil
}

func (m *memoryStore) Delete(ctx context.Context, kind model.Kind, ownerID, assetID, storageRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errors.New("store unavailable")
	}
	for i, a := range m.assets[kind] {
		if a.Ref.String() != assetID || a.OwnerID != ownerID {
			continue
		}
		if storageRef != "" && storageRef != a.StorageRef {
			break
		}
		m.assets[kind] = append(m.assets[kind][:i:i], m.assets[kind][i+1:]...)
		if blob, ok := m.blobs[a.StorageRef]; ok && blob.owner == ownerID {
			delete(m.blobs, a.StorageRef)
		}
		return nil
	}
	return model.ErrAssetNotFound
}

func (m *memoryStore) OpenBlob(ctx context.Context, ownerID, storageRef string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[storageRef]
	if !ok || blob.owner != ownerID {
		return nil, "", model.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(blob.data)), "image/png", nil
}

type AssetHandlerTestSuite struct {
	suite.Suite
	store   *memoryStore
	library *usecase.Library
	app     *fiber.App
}

// asUser stands in for the auth middleware: the X-Test-User header becomes
// the authenticated owner.
func asUser(c *fiber.Ctx) error {
	if user := c.Get("X-Test-User"); user != "" {
		c.SetUserContext(utils.WithUserID(c.UserContext(), user))
	}
	return c.Next()
}

func (s *AssetHandlerTestSuite) SetupTest() {
	s.store = newMemoryStore()
	s.library = usecase.NewLibrary(s.store, nil, nil)
	s.app = fiber.New()
	NewAssetHandler(s.library, s.store, nil).RegisterRoutes(s.app, asUser)
}

func (s *AssetHandlerTestSuite) TearDownTest() {
	s.library.Close()
}

func (s *AssetHandlerTestSuite) do(method, path, body string) (int, map[string]interface{}) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", "owner-1")
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func (s *AssetHandlerTestSuite) items(kind string) []interface{} {
	status, body := s.do("GET", "/api/assets/"+kind, "")
	s.Require().Equal(fiber.StatusOK, status)
	items, _ := body["items"].([]interface{})
	return items
}

func (s *AssetHandlerTestSuite) TestSaveReturnsPlaceholderThenConfirms() {
	status, body := s.do("POST", "/api/assets/photoshoot",
		`{"display_url":"data:image/png;base64,aGVsbG8=","type":"photoshoot","source_feature":"try-on"}`)
	s.Equal(fiber.StatusAccepted, status)

	asset := body["asset"].(map[string]interface{})
	s.True(strings.HasPrefix(asset["id"].(string), model.PlaceholderPrefix))
	s.Equal(model.StorageRefPending, asset["storage_ref"])
	s.Equal("data:image/png;base64,aGVsbG8=", asset["display_url"])

	s.Eventually(func() bool {
		items := s.items("photoshoot")
		return len(items) == 1 && items[0].(map[string]interface{})["id"] == "asset-1"
	}, time.Second, 10*time.Millisecond)
}

func (s *AssetHandlerTestSuite) TestSaveValidation() {
	status, body := s.do("POST", "/api/assets/collection", `{"display_url":""}`)
	s.Equal(fiber.StatusBadRequest, status)
	s.Equal("empty_content", body["code"])

	status, _ = s.do("POST", "/api/assets/poster", `{"display_url":"x"}`)
	s.Equal(fiber.StatusNotFound, status)
}

func (s *AssetHandlerTestSuite) TestRequiresOwner() {
	req := httptest.NewRequest("GET", "/api/assets/photoshoot", nil)
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	s.Equal(fiber.StatusForbidden, resp.StatusCode)
}

func (s *AssetHandlerTestSuite) TestDeleteFailureSetsErrorFlag() {
	s.store.assets[model.KindCollection] = []model.Asset{
		{Ref: model.PersistedRef("c1"), OwnerID: "owner-1", StorageRef: "blob-c1", Kind: model.KindCollection},
	}
	s.Require().Len(s.items("collection"), 1)

	s.store.mu.Lock()
	s.store.failWrite = true
	s.store.mu.Unlock()

	status, body := s.do("DELETE", "/api/assets/collection/c1", "")
	s.Equal(fiber.StatusAccepted, status)
	s.Equal("c1", body["deleting_id"])

	var state map[string]interface{}
	s.Eventually(func() bool {
		_, state = s.do("GET", "/api/assets/collection", "")
		return state["error"] != nil
	}, time.Second, 10*time.Millisecond)
	s.Len(state["items"], 1)

	status, _ = s.do("DELETE", "/api/assets/collection/error", "")
	s.Equal(fiber.StatusNoContent, status)
	s.Eventually(func() bool {
		_, state = s.do("GET", "/api/assets/collection", "")
		return state["error"] == nil
	}, time.Second, 10*time.Millisecond)
}

func (s *AssetHandlerTestSuite) TestDeleteUnknownAsset() {
	status, _ := s.do("DELETE", "/api/assets/photoshoot/missing", "")
	s.Equal(fiber.StatusNotFound, status)
}

func (s *AssetHandlerTestSuite) TestBlob() {
	s.store.blobs["b1"] = memoryBlob{owner: "owner-1", data: []byte("png-bytes")}

	req := httptest.NewRequest("GET", "/api/assets/photoshoot/blob/b1", nil)
	req.Header.Set("X-Test-User", "owner-1")
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	s.Equal(fiber.StatusOK, resp.StatusCode)
	s.Equal("image/png", resp.Header.Get("Content-Type"))
	raw, _ := io.ReadAll(resp.Body)
	s.Equal("png-bytes", string(raw))

	status, _ := s.do("GET", "/api/assets/photoshoot/blob/nope", "")
	s.Equal(fiber.StatusNotFound, status)
}

func (s *AssetHandlerTestSuite) TestBlobOfAnotherOwnerIsHidden() {
	s.store.blobs["b2"] = memoryBlob{owner: "owner-2", data: []byte("theirs")}

	status, _ := s.do("GET", "/api/assets/photoshoot/blob/b2", "")
	s.Equal(fiber.StatusNotFound, status)
}

func (s *AssetHandlerTestSuite) TestDeleteRejectsForeignStorageRef() {
	s.store.assets[model.KindCollection] = []model.Asset{
		{Ref: model.PersistedRef("c1"), OwnerID: "owner-1", StorageRef: "blob-c1", Kind: model.KindCollection},
	}
	s.store.blobs["blob-c1"] = memoryBlob{owner: "owner-1", data: []byte("mine")}
	s.store.blobs["blob-x"] = memoryBlob{owner: "owner-2", data: []byte("theirs")}
	s.Require().Len(s.items("collection"), 1)

	status, body := s.do("DELETE", "/api/assets/collection/c1?storage_ref=blob-x", "")
	s.Equal(fiber.StatusBadRequest, status)
	s.Equal("storage_ref_mismatch", body["code"])
	s.Len(s.items("collection"), 1)
	s.True(s.store.hasBlob("blob-x"))

	status, _ = s.do("DELETE", "/api/assets/collection/c1", "")
	s.Equal(fiber.StatusAccepted, status)
	s.Eventually(func() bool { return !s.store.hasBlob("blob-c1") }, time.Second, 10*time.Millisecond)
	s.True(s.store.hasBlob("blob-x"))
}

func (s *AssetHandlerTestSuite) TestWebsocketRequiresUpgrade() {
	status, _ := s.do("GET", "/ws/assets/photoshoot", "")
	s.Equal(fiber.StatusUpgradeRequired, status)
}

func TestAssetHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AssetHandlerTestSuite))
}

func TestWriteErrorStatuses(t *testing.T) {
	app := fiber.New()
	app.Get("/:case", func(c *fiber.Ctx) error {
		switch c.Params("case") {
		case "inflight":
			return writeError(c, usecase.ErrDeleteInFlight)
		case "closed":
			return writeError(c, usecase.ErrListClosed)
		default:
			return writeError(c, model.ErrUnknownKind)
		}
	})

	for path, want := range map[string]int{
		"/inflight": fiber.StatusConflict,
		"/closed":   fiber.StatusServiceUnavailable,
		"/kind":     fiber.StatusNotFound,
	} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}
}
