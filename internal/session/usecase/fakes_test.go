package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	assetmodel "photoshoot-studio/internal/asset/domain/model"
	assetusecase "photoshoot-studio/internal/asset/usecase"
	authmodel "photoshoot-studio/internal/auth/domain/model"
	authusecase "photoshoot-studio/internal/auth/usecase"
	"photoshoot-studio/internal/session/domain/model"
	apperrors "photoshoot-studio/internal/shared/errors"
	"photoshoot-studio/internal/shared/eventbus"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSessions struct {
	mu        sync.Mutex
	sessions  map[string]*authmodel.Session
	err       error
	listeners map[int]authusecase.SessionListener
	next      int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions:  map[string]*authmodel.Session{},
		listeners: map[int]authusecase.SessionListener{},
	}
}

func (f *fakeSessions) add(token string, s *authmodel.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[token] = s
}

func (f *fakeSessions) GetSession(ctx context.Context, token string) (*authmodel.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[token]
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}
	return s, nil
}

func (f *fakeSessions) OnSessionChange(listener authusecase.SessionListener) eventbus.Unsubscribe {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	f.listeners[id] = listener
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *fakeSessions) publish(ev authmodel.SessionEvent) {
	f.mu.Lock()
	listeners := make([]authusecase.SessionListener, 0, len(f.listeners))
	for _, l := range f.listeners {
		listeners = append(listeners, l)
	}
	f.mu.Unlock()
	for _, l := range listeners {
		l(context.Background(), ev)
	}
}

func (f *fakeSessions) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

type fakeProfiles struct {
	profiles map[string]*model.ProfileInfo
	err      error
}

func (f *fakeProfiles) Profile(ctx context.Context, userID string) (*model.ProfileInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[userID], nil
}

type refreshCall struct {
	owner string
	force bool
}

type fakeAssets struct {
	mu        sync.Mutex
	refreshes []refreshCall
	released  map[string]int
	subs      map[string][]chan assetusecase.ListState
	subErr    error
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{subs: map[string][]chan assetusecase.ListState{}, released: map[string]int{}}
}

func (f *fakeAssets) RefreshIfEmpty(ctx context.Context, ownerID string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, refreshCall{owner: ownerID, force: force})
	return nil
}

func (f *fakeAssets) Subscribe(ownerID string, kind assetmodel.Kind) (<-chan assetusecase.ListState, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, nil, f.subErr
	}
	ch := make(chan assetusecase.ListState, 4)
	ch <- assetusecase.ListState{Kind: kind, Items: []assetmodel.Asset{}}
	f.subs[ownerID] = append(f.subs[ownerID], ch)
	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.released[ownerID]++
	}, nil
}

// releasedStreams reports how many of ownerID's subscriptions were given up.
func (f *fakeAssets) releasedStreams(ownerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released[ownerID]
}

func (f *fakeAssets) refreshCalls() []refreshCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]refreshCall(nil), f.refreshes...)
}

// emptyAssetStore backs a real asset library with owners that have no assets.
type emptyAssetStore struct{}

func (emptyAssetStore) ListByOwner(ctx context.Context, kind assetmodel.Kind, ownerID string) ([]assetmodel.Asset, error) {
	return nil, nil
}

func (emptyAssetStore) Create(ctx context.Context, kind assetmodel.Kind, ownerID string, payload assetmodel.Payload, meta assetmodel.Metadata) (*assetmodel.Asset, error) {
	return nil, errors.New("read only store")
}

func (emptyAssetStore) Delete(ctx context.Context, kind assetmodel.Kind, ownerID, assetID, storageRef string) error {
	return nil
}

type memoryFlags struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemoryFlags() *memoryFlags {
	return &memoryFlags{data: map[string]string{}}
}

func (f *memoryFlags) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *memoryFlags) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data[key] = value
	return nil
}

func (f *memoryFlags) value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func newSession(id, userID, email string) *authmodel.Session {
	return &authmodel.Session{
		ID:     id,
		UserID: userID,
		User:   &authmodel.User{ID: userID, Email: email},
	}
}
