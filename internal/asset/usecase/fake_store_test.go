package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"photoshoot-studio/internal/asset/domain/model"
)

type createResult struct {
	asset *model.Asset
	err   error
}

type deleteCall struct {
	owner, id, storageRef string
}

// fakeStore blocks every write until the test resolves it. Creates are keyed
// by Metadata.Type, deletes by asset id.
type fakeStore struct {
	mu      sync.Mutex
	creates map[string]chan createResult
	deletes map[string]chan error
	listed  []model.Asset
	listErr error
	removed []deleteCall

	createCalls atomic.Int32
	deleteCalls atomic.Int32
	listCalls   atomic.Int32
}

func newFakeStore(listed ...model.Asset) *fakeStore {
	return &fakeStore{
		creates: make(map[string]chan createResult),
		deletes: make(map[string]chan error),
		listed:  listed,
	}
}

func (f *fakeStore) createGate(key string) chan createResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.creates[key]
	if !ok {
		ch = make(chan createResult, 1)
		f.creates[key] = ch
	}
	return ch
}

func (f *fakeStore) deleteGate(id string) chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.deletes[id]
	if !ok {
		ch = make(chan error, 1)
		f.deletes[id] = ch
	}
	return ch
}

func (f *fakeStore) confirm(key string, asset model.Asset) {
	f.createGate(key) <- createResult{asset: &asset}
}
func (f *fakeStore) failCreate(key string) {
	f.createGate(key) <- createResult{err: errors.New("network down")}
}
func (f *fakeStore) confirmDelete(id string) { f.deleteGate(id) <- nil }
func (f *fakeStore) failDelete(id string)    { f.deleteGate(id) <- errors.New("network down") }

func (f *fakeStore) ListByOwner(ctx context.Context, kind model.Kind, ownerID string) ([]model.Asset, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Asset, len(f.listed))
	copy(out, f.listed)
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, kind model.Kind, ownerID string, payload model.Payload, meta model.Metadata) (*model.Asset, error) {
	f.createCalls.Add(1)
	res := <-f.createGate(meta.Type)
	return res.asset, res.err
}

func (f *fakeStore) Delete(ctx context.Context, kind model.Kind, ownerID, assetID, storageRef string) error {
	f.deleteCalls.Add(1)
	f.mu.Lock()
	f.removed = append(f.removed, deleteCall{owner: ownerID, id: assetID, storageRef: storageRef})
	f.mu.Unlock()
	return <-f.deleteGate(assetID)
}

func (f *fakeStore) deleteCallsSeen() []deleteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]deleteCall(nil), f.removed...)
}

func persisted(id string) model.Asset {
	return model.Asset{
		Ref:        model.PersistedRef(id),
		OwnerID:    "owner-1",
		StorageRef: "blob-" + id,
		DisplayURL: "/api/assets/photoshoot/blob/blob-" + id,
		Kind:       model.KindPhotoshoot,
		Type:       "photoshoot",
	}
}
