package usecase

import (
	"context"
	"sync"
	"time"

	"photoshoot-studio/internal/asset/domain/model"
	"photoshoot-studio/internal/asset/domain/repository"
	apperrors "photoshoot-studio/internal/shared/errors"
	"photoshoot-studio/internal/shared/logger"
	"photoshoot-studio/internal/shared/metrics"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OwnerLists is the pair of lists of one signed-in owner.
type OwnerLists struct {
	owner string
	lists map[model.Kind]*List
}

// List returns the list of kind.
func (o *OwnerLists) List(kind model.Kind) *List { return o.lists[kind] }

// Photoshoots returns the generated photoshoot assets.
func (o *OwnerLists) Photoshoots() *List { return o.lists[model.KindPhotoshoot] }

// Collection returns the collection assets.
func (o *OwnerLists) Collection() *List { return o.lists[model.KindCollection] }

// RefreshIfEmpty refreshes both lists in parallel, each only when it is empty
// unless force is set.
func (o *OwnerLists) RefreshIfEmpty(ctx context.Context, force bool) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range model.Kinds {
		list := o.lists[kind]
		g.Go(func() error {
			_, err := list.RefreshIfEmpty(ctx, force)
			return err
		})
	}
	return g.Wait()
}

// busy reports whether a save or delete is still in flight on either list.
func (o *OwnerLists) busy() bool {
	for _, l := range o.lists {
		st, err := l.Snapshot()
		if err != nil {
			continue
		}
		if st.DeletingID != "" {
			return true
		}
		for _, a := range st.Items {
			if a.Pending() {
				return true
			}
		}
	}
	return false
}

func (o *OwnerLists) close() {
	for _, l := range o.lists {
		l.Close()
	}
}

// DefaultIdleTTL is how long lists without holders survive their last use.
const DefaultIdleTTL = 30 * time.Minute

// ownerEntry is the registry record of one owner. sessions maps each
// signed-in session to its expiry, zero meaning until signed out; streams
// counts attached subscriptions.
type ownerEntry struct {
	lists    *OwnerLists
	sessions map[string]time.Time
	streams  int
	lastUse  time.Time
}

func (e *ownerEntry) signedIn(now time.Time) bool {
	for _, until := range e.sessions {
		if until.IsZero() || until.After(now) {
			return true
		}
	}
	return false
}

func (e *ownerEntry) held(now time.Time) bool {
	return e.streams > 0 || e.signedIn(now)
}

// LibraryOptions configure a Library.
type LibraryOptions struct {
	Store   repository.AssetStore
	Logger  logger.Logger
	Clock   clockwork.Clock
	IdleTTL time.Duration
}

// Library holds the asset lists of every signed-in owner. An owner's lists
// are held by its signed-in sessions and by the streams attached through
// Subscribe. Signing out the last known session closes them, as does
// detaching the last stream of an owner with no session. Lists nobody
// holds are evicted once idle for IdleTTL.
type Library struct {
	mu      sync.Mutex
	owners  map[string]*ownerEntry
	store   repository.AssetStore
	log     logger.Logger
	clock   clockwork.Clock
	ids     *model.PlaceholderGenerator
	idleTTL time.Duration
	sweeper clockwork.Timer
	closed  bool
}

// NewLibrary creates an empty library over store with the default idle TTL.
func NewLibrary(store repository.AssetStore, log logger.Logger, clock clockwork.Clock) *Library {
	return NewLibraryWithOptions(LibraryOptions{Store: store, Logger: log, Clock: clock})
}

// NewLibraryWithOptions creates an empty library and starts its idle sweeper.
func NewLibraryWithOptions(opts LibraryOptions) *Library {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	lib := &Library{
		owners:  make(map[string]*ownerEntry),
		store:   opts.Store,
		log:     opts.Logger.WithComponent("asset_library"),
		clock:   opts.Clock,
		ids:     model.NewPlaceholderGenerator(opts.Clock.Now),
		idleTTL: opts.IdleTTL,
	}
	lib.sweeper = lib.clock.AfterFunc(lib.idleTTL, lib.sweep)
	return lib
}

// entry returns the record of ownerID, creating its lists on first use.
// lib.mu must be held.
func (lib *Library) entry(ownerID string) (*ownerEntry, error) {
	if ownerID == "" {
		return nil, apperrors.NewAuthorizationError("no authenticated owner").WithComponent("asset_library")
	}
	if lib.closed {
		return nil, ErrListClosed
	}

	now := lib.clock.Now()
	if e, ok := lib.owners[ownerID]; ok {
		e.lastUse = now
		return e, nil
	}

	lists := &OwnerLists{owner: ownerID, lists: make(map[model.Kind]*List, len(model.Kinds))}
	for _, kind := range model.Kinds {
		lists.lists[kind] = NewList(kind, ownerID, ListOptions{
			Store:  lib.store,
			Logger: lib.log,
			Clock:  lib.clock,
			IDs:    lib.ids,
		})
	}
	e := &ownerEntry{lists: lists, sessions: make(map[string]time.Time), lastUse: now}
	lib.owners[ownerID] = e
	lib.log.Debug("asset lists initialized", zap.String("owner", ownerID))
	return e, nil
}

// drop forgets e unless ownerID was re-created meanwhile. lib.mu must be
// held; callers close the lists after releasing it.
func (lib *Library) drop(ownerID string, e *ownerEntry) bool {
	if cur, ok := lib.owners[ownerID]; !ok || cur != e {
		return false
	}
	delete(lib.owners, ownerID)
	return true
}

// Init returns the lists of ownerID, creating them on first use.
func (lib *Library) Init(ownerID string) (*OwnerLists, error) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	e, err := lib.entry(ownerID)
	if err != nil {
		return nil, err
	}
	return e.lists, nil
}

// Acquire records that sessionID of ownerID is signed in until the given
// time, or until released when until is zero. Acquiring again moves the
// expiry.
func (lib *Library) Acquire(ownerID, sessionID string, until time.Time) (*OwnerLists, error) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	e, err := lib.entry(ownerID)
	if err != nil {
		return nil, err
	}
	e.sessions[sessionID] = until
	return e.lists, nil
}

// Release signs sessionID out of ownerID's lists. The lists close once no
// known session remains; other sessions of the owner keep them open.
func (lib *Library) Release(ownerID, sessionID string) {
	lib.mu.Lock()
	e, ok := lib.owners[ownerID]
	if !ok {
		lib.mu.Unlock()
		return
	}
	_, known := e.sessions[sessionID]
	delete(e.sessions, sessionID)
	now := lib.clock.Now()
	e.lastUse = now
	if (known && e.signedIn(now)) || (!known && e.held(now)) {
		lib.mu.Unlock()
		return
	}
	dropped := lib.drop(ownerID, e)
	lib.mu.Unlock()

	if dropped {
		e.lists.close()
		lib.log.Debug("asset lists released", zap.String("owner", ownerID), zap.String("session", sessionID))
	}
}

func (lib *Library) detach(ownerID string, e *ownerEntry) {
	lib.mu.Lock()
	if cur, ok := lib.owners[ownerID]; !ok || cur != e {
		lib.mu.Unlock()
		return
	}
	e.streams--
	e.lastUse = lib.clock.Now()
	if e.held(e.lastUse) {
		lib.mu.Unlock()
		return
	}
	dropped := lib.drop(ownerID, e)
	lib.mu.Unlock()

	if dropped {
		e.lists.close()
		lib.log.Debug("asset lists released", zap.String("owner", ownerID))
	}
}

// Holders returns how many sessions and streams hold ownerID's lists.
func (lib *Library) Holders(ownerID string) int {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if e, ok := lib.owners[ownerID]; ok {
		return len(e.sessions) + e.streams
	}
	return 0
}

// Get returns the lists of ownerID if they exist.
func (lib *Library) Get(ownerID string) (*OwnerLists, bool) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	e, ok := lib.owners[ownerID]
	if !ok {
		return nil, false
	}
	return e.lists, true
}

// List is shorthand for Init followed by picking kind.
func (lib *Library) List(ownerID string, kind model.Kind) (*List, error) {
	lists, err := lib.Init(ownerID)
	if err != nil {
		return nil, err
	}
	return lists.List(kind), nil
}

// RefreshIfEmpty initializes ownerID's lists if needed and refreshes them.
func (lib *Library) RefreshIfEmpty(ctx context.Context, ownerID string, force bool) error {
	lists, err := lib.Init(ownerID)
	if err != nil {
		return err
	}
	return lists.RefreshIfEmpty(ctx, force)
}

// Subscribe streams the state of one of ownerID's lists. The stream holds
// the lists until its unsubscribe func is called.
func (lib *Library) Subscribe(ownerID string, kind model.Kind) (<-chan ListState, func(), error) {
	lib.mu.Lock()
	e, err := lib.entry(ownerID)
	if err != nil {
		lib.mu.Unlock()
		return nil, nil, err
	}
	e.streams++
	lib.mu.Unlock()

	states, unsubscribe, err := e.lists.List(kind).Subscribe()
	if err != nil {
		lib.detach(ownerID, e)
		return nil, nil, err
	}
	var once sync.Once
	return states, func() {
		once.Do(func() {
			unsubscribe()
			lib.detach(ownerID, e)
		})
	}, nil
}

// Owners returns how many owners currently hold lists.
func (lib *Library) Owners() int {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	return len(lib.owners)
}

// sweep forgets expired sessions and evicts owners nobody held for the
// idle TTL. Owners with a save or delete in flight wait for the next pass.
func (lib *Library) sweep() {
	lib.mu.Lock()
	if lib.closed {
		lib.mu.Unlock()
		return
	}
	now := lib.clock.Now()
	idle := make(map[string]*ownerEntry)
	for owner, e := range lib.owners {
		for session, until := range e.sessions {
			if !until.IsZero() && !until.After(now) {
				delete(e.sessions, session)
			}
		}
		if !e.held(now) && now.Sub(e.lastUse) >= lib.idleTTL {
			idle[owner] = e
		}
	}
	lib.mu.Unlock()

	for owner, e := range idle {
		lib.evict(owner, e, now)
	}

	lib.mu.Lock()
	if !lib.closed {
		lib.sweeper.Reset(lib.idleTTL)
	}
	lib.mu.Unlock()
}

func (lib *Library) evict(ownerID string, e *ownerEntry, seen time.Time) {
	if e.lists.busy() {
		return
	}

	lib.mu.Lock()
	if e.held(seen) || e.lastUse.After(seen) || !lib.drop(ownerID, e) {
		lib.mu.Unlock()
		return
	}
	lib.mu.Unlock()

	e.lists.close()
	metrics.IdleEvictions.Inc()
	lib.log.Info("idle asset lists evicted", zap.String("owner", ownerID))
}

// Close stops the sweeper and tears down every owner.
func (lib *Library) Close() {
	lib.mu.Lock()
	lib.closed = true
	owners := lib.owners
	lib.owners = make(map[string]*ownerEntry)
	lib.mu.Unlock()

	lib.sweeper.Stop()
	for _, e := range owners {
		e.lists.close()
	}
}
