package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"photoshoot-studio/internal/asset/domain/model"
	"photoshoot-studio/internal/asset/domain/repository"
	apperrors "photoshoot-studio/internal/shared/errors"
	"photoshoot-studio/internal/shared/logger"
	"photoshoot-studio/internal/shared/metrics"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

var (
	// ErrDeleteInFlight is returned when a list already has a delete awaiting the store.
	ErrDeleteInFlight = errors.New("a delete is already in flight for this list")
	// ErrListClosed is returned by every call on a torn down list.
	ErrListClosed = errors.New("asset list is closed")
)

// ListState is an immutable view of a list, handed to readers and subscribers.
type ListState struct {
	Kind       model.Kind    `json:"kind"`
	Items      []model.Asset `json:"items"`
	DeletingID string        `json:"deleting_id,omitempty"`
	Error      string        `json:"error,omitempty"`
	Version    uint64        `json:"version"`
}

// --- Command types ---

type listCmd interface{ listCmd() }

type cmdSave struct {
	asset   model.Asset
	req     model.SaveRequest
	replyCh chan error
}

func (cmdSave) listCmd() {}

type cmdSaveDone struct {
	ref   model.Ref
	asset *model.Asset
	err   error
}

func (cmdSaveDone) listCmd() {}

type cmdDelete struct {
	id         string
	storageRef string
	replyCh    chan error
}

func (cmdDelete) listCmd() {}

type cmdDeleteDone struct {
	id  string
	err error
}

func (cmdDeleteDone) listCmd() {}

type cmdReplace struct {
	items   []model.Asset
	replyCh chan struct{}
}

func (cmdReplace) listCmd() {}

type cmdReset struct {
	replyCh chan struct{}
}

func (cmdReset) listCmd() {}

type cmdClearError struct{}

func (cmdClearError) listCmd() {}

type cmdSnapshot struct {
	replyCh chan ListState
}

func (cmdSnapshot) listCmd() {}

type cmdSubscribe struct {
	ch      chan ListState
	replyCh chan uint64
}

func (cmdSubscribe) listCmd() {}

type cmdUnsubscribe struct {
	id uint64
}

func (cmdUnsubscribe) listCmd() {}

// --- List ---

// ListOptions are the collaborators of a List.
type ListOptions struct {
	Store  repository.AssetStore
	Logger logger.Logger
	Clock  clockwork.Clock
	IDs    *model.PlaceholderGenerator
}

// List holds one owner's assets of one kind. A single goroutine owns the
// slice; callers and background store calls talk to it through cmdCh.
type List struct {
	kind  model.Kind
	owner string
	store repository.AssetStore
	log   logger.Logger
	clock clockwork.Clock
	ids   *model.PlaceholderGenerator

	cmdCh  chan listCmd
	stopCh chan struct{}
	doneCh chan struct{}

	// owned by run
	items      []model.Asset
	deletingID string
	restore    []model.Asset
	errMsg     string
	version    uint64
	subs       map[uint64]chan ListState
	nextSub    uint64
}

// NewList starts the list's loop. Close stops it.
func NewList(kind model.Kind, ownerID string, opts ListOptions) *List {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.IDs == nil {
		opts.IDs = model.NewPlaceholderGenerator(opts.Clock.Now)
	}

	l := &List{
		kind:  kind,
		owner: ownerID,
		store: opts.Store,
		log: opts.Logger.WithComponent("asset_list").WithFields(map[string]interface{}{
			"kind":  string(kind),
			"owner": ownerID,
		}),
		clock:  opts.Clock,
		ids:    opts.IDs,
		cmdCh:  make(chan listCmd, 64),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		subs:   make(map[uint64]chan ListState),
	}
	go l.run()
	return l
}

// Kind returns the list's asset kind.
func (l *List) Kind() model.Kind { return l.kind }

// Owner returns the owner the list belongs to.
func (l *List) Owner() string { return l.owner }

func (l *List) run() {
	defer close(l.doneCh)
	for {
		select {
		case cmd := <-l.cmdCh:
			l.handle(cmd)
		case <-l.stopCh:
			for id, ch := range l.subs {
				close(ch)
				delete(l.subs, id)
			}
			metrics.PendingAssets.WithLabelValues(string(l.kind)).Sub(float64(l.pendingCount()))
			return
		}
	}
}

func (l *List) handle(cmd listCmd) {
	switch c := cmd.(type) {
	case cmdSave:
		l.items = append([]model.Asset{c.asset}, l.items...)
		metrics.PendingAssets.WithLabelValues(string(l.kind)).Inc()
		metrics.AssetMutationsTotal.WithLabelValues(string(l.kind), "save", "optimistic").Inc()
		l.publish()
		c.replyCh <- nil
		go l.persist(c.asset.Ref, c.req)

	case cmdSaveDone:
		l.handleSaveDone(c)

	case cmdDelete:
		c.replyCh <- l.handleDelete(c)

	case cmdDeleteDone:
		l.handleDeleteDone(c)

	case cmdReplace:
		l.handleReplace(c.items)
		c.replyCh <- struct{}{}

	case cmdReset:
		metrics.PendingAssets.WithLabelValues(string(l.kind)).Sub(float64(l.pendingCount()))
		l.items = nil
		l.restore = nil
		l.deletingID = ""
		l.errMsg = ""
		l.publish()
		c.replyCh <- struct{}{}

	case cmdClearError:
		if l.errMsg != "" {
			l.errMsg = ""
			l.publish()
		}

	case cmdSnapshot:
		c.replyCh <- l.state()

	case cmdSubscribe:
		l.nextSub++
		l.subs[l.nextSub] = c.ch
		c.ch <- l.state()
		c.replyCh <- l.nextSub

	case cmdUnsubscribe:
		if ch, ok := l.subs[c.id]; ok {
			close(ch)
			delete(l.subs, c.id)
		}
	}
}

func (l *List) handleSaveDone(c cmdSaveDone) {
	idx := indexOf(l.items, c.ref)
	if idx >= 0 {
		metrics.PendingAssets.WithLabelValues(string(l.kind)).Dec()
	}

	if c.err != nil {
		metrics.AssetMutationsTotal.WithLabelValues(string(l.kind), "save", "rolled_back").Inc()
		l.log.Error("asset save failed, placeholder removed",
			zap.String("placeholder", c.ref.String()),
			zap.Error(c.err))
		if idx >= 0 {
			l.items = removeAt(l.items, idx)
		}
		if j := indexOf(l.restore, c.ref); j >= 0 {
			l.restore = removeAt(l.restore, j)
		}
		l.publish()
		return
	}

	metrics.AssetMutationsTotal.WithLabelValues(string(l.kind), "save", "confirmed").Inc()
	if idx < 0 {
		l.log.Debug("placeholder gone before confirmation", zap.String("placeholder", c.ref.String()))
		return
	}
	l.items[idx] = *c.asset
	if j := indexOf(l.restore, c.ref); j >= 0 {
		l.restore[j] = *c.asset
	}
	l.publish()
}

func (l *List) handleDelete(c cmdDelete) error {
	if l.deletingID != "" {
		metrics.AssetMutationsTotal.WithLabelValues(string(l.kind), "delete", "rejected").Inc()
		return ErrDeleteInFlight
	}

	idx := -1
	for i, a := range l.items {
		if a.Ref.String() == c.id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperrors.NewNotFoundError("asset").WithDetail("id", c.id)
	}
	target := l.items[idx]
	if target.Ref.IsPending() {
		return apperrors.NewValidationError("asset is still being saved").
			WithCode("asset_pending").
			WithDetail("id", c.id)
	}

	if c.storageRef != "" && c.storageRef != target.StorageRef {
		metrics.AssetMutationsTotal.WithLabelValues(string(l.kind), "delete", "rejected").Inc()
		return apperrors.NewValidationError("storage reference does not match asset").
			WithCode("storage_ref_mismatch").
			WithDetail("id", c.id)
	}

	l.restore = cloneAssets(l.items)
	l.items = removeAt(l.items, idx)
	l.deletingID = c.id
	l.errMsg = ""
	metrics.AssetMutationsTotal.WithLabelValues(string(l.kind), "delete", "optimistic").Inc()
	l.publish()

	go l.remove(c.id, target.StorageRef)
	return nil
}

func (l *List) handleDeleteDone(c cmdDeleteDone) {
	if c.id != l.deletingID {
		// list was reset while the delete was in flight
		return
	}

	if c.err != nil {
		metrics.AssetMutationsTotal.WithLabelValues(string(l.kind), "delete", "restored").Inc()
		l.log.Error("asset delete failed, list restored", zap.String("assetID", c.id), zap.Error(c.err))
		l.items = l.restoreWith(l.items)
		l.errMsg = "Failed to delete asset. Please try again."
	} else {
		metrics.AssetMutationsTotal.WithLabelValues(string(l.kind), "delete", "confirmed").Inc()
	}
	l.restore = nil
	l.deletingID = ""
	l.publish()
}

// restoreWith returns the pre-delete snapshot with the entries saved while
// the delete was in flight kept on top, so their placeholders and
// confirmations are not lost.
func (l *List) restoreWith(current []model.Asset) []model.Asset {
	var added []model.Asset
	for _, a := range current {
		if indexOf(l.restore, a.Ref) < 0 {
			added = append(added, a)
		}
	}
	if len(added) == 0 {
		return l.restore
	}
	l.log.Warn("saves made during a failed delete kept on restore", zap.Int("count", len(added)))
	return append(added, l.restore...)
}

// handleReplace installs fetched items behind any placeholders still in flight.
func (l *List) handleReplace(fetched []model.Asset) {
	next := make([]model.Asset, 0, len(fetched)+len(l.items))
	for _, a := range l.items {
		if a.Ref.IsPending() {
			next = append(next, a)
		}
	}
	next = append(next, fetched...)

	if l.deletingID != "" {
		l.restore = cloneAssets(next)
		for i, a := range next {
			if a.Ref.String() == l.deletingID {
				next = removeAt(next, i)
				break
			}
		}
	}
	l.items = next
	l.publish()
}

// persist runs the remote create for a placeholder and reports back.
func (l *List) persist(ref model.Ref, req model.SaveRequest) {
	start := l.clock.Now()
	var saved *model.Asset
	payload, err := model.ExtractPayload(req.DisplayURL)
	if err == nil {
		saved, err = l.store.Create(context.Background(), l.kind, l.owner, payload, req.Metadata)
	}
	if err == nil && saved == nil {
		err = errors.New("store returned no asset")
	}
	if err != nil {
		err = apperrors.NewRemoteWriteError("failed to save asset").WithCause(err).WithComponent("asset_list")
	}
	metrics.RemoteWriteDuration.WithLabelValues("create").Observe(l.clock.Since(start).Seconds())
	l.deliver(cmdSaveDone{ref: ref, asset: saved, err: err})
}

// remove runs the remote delete and reports back.
func (l *List) remove(id, storageRef string) {
	start := l.clock.Now()
	err := l.store.Delete(context.Background(), l.kind, l.owner, id, storageRef)
	if err != nil {
		err = apperrors.NewRemoteWriteError("failed to delete asset").WithCause(err).WithComponent("asset_list")
	}
	metrics.RemoteWriteDuration.WithLabelValues("delete").Observe(l.clock.Since(start).Seconds())
	l.deliver(cmdDeleteDone{id: id, err: err})
}

func (l *List) deliver(cmd listCmd) {
	select {
	case l.cmdCh <- cmd:
	case <-l.stopCh:
	}
}

func (l *List) publish() {
	l.version++
	st := l.state()
	for _, ch := range l.subs {
		// latest state wins for slow readers
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}

func (l *List) state() ListState {
	items := cloneAssets(l.items)
	if items == nil {
		items = []model.Asset{}
	}
	return ListState{
		Kind:       l.kind,
		Items:      items,
		DeletingID: l.deletingID,
		Error:      l.errMsg,
		Version:    l.version,
	}
}

func (l *List) pendingCount() int {
	n := 0
	for _, a := range l.items {
		if a.Ref.IsPending() {
			n++
		}
	}
	return n
}

// --- Public API ---

// Save applies the placeholder synchronously and returns it. The store write
// continues in the background; a failure removes the placeholder and is only
// logged.
func (l *List) Save(ctx context.Context, ownerID string, req model.SaveRequest) (model.Asset, error) {
	if ownerID == "" {
		return model.Asset{}, apperrors.NewAuthorizationError("no authenticated owner").WithComponent("asset_list")
	}
	if ownerID != l.owner {
		return model.Asset{}, apperrors.NewAuthorizationError("list belongs to another owner").WithComponent("asset_list")
	}
	if strings.TrimSpace(req.DisplayURL) == "" {
		return model.Asset{}, apperrors.NewValidationError("display content is required").
			WithCode("empty_content").
			WithDetail("field", "display_url")
	}

	asset := model.NewPendingAsset(l.ids.Next(), l.kind, l.owner, req, l.clock.Now())
	replyCh := make(chan error, 1)
	if err := l.call(cmdSave{asset: asset, req: req, replyCh: replyCh}, replyCh); err != nil {
		return model.Asset{}, err
	}
	return asset, nil
}

// Delete removes assetID optimistically and deletes it from the store in the
// background. Failure restores the previous list and sets the error flag.
// The store is always given the storage reference held by the list; a
// non-empty storageRef that differs from it is rejected.
func (l *List) Delete(ctx context.Context, assetID, storageRef string) error {
	if assetID == "" {
		return apperrors.NewValidationError("asset id is required")
	}
	replyCh := make(chan error, 1)
	return l.call(cmdDelete{id: assetID, storageRef: storageRef, replyCh: replyCh}, replyCh)
}

// Refresh replaces the list with the store's view. Placeholders still in
// flight stay on top.
func (l *List) Refresh(ctx context.Context) error {
	fetched, err := l.store.ListByOwner(ctx, l.kind, l.owner)
	if err != nil {
		return fmt.Errorf("failed to list %s assets: %w", l.kind, err)
	}
	replyCh := make(chan struct{}, 1)
	return l.wait(cmdReplace{items: fetched, replyCh: replyCh}, replyCh)
}

// RefreshIfEmpty refreshes when the list has no entries or force is set, and
// reports whether it did.
func (l *List) RefreshIfEmpty(ctx context.Context, force bool) (bool, error) {
	if !force {
		st, err := l.Snapshot()
		if err != nil {
			return false, err
		}
		if len(st.Items) > 0 {
			return false, nil
		}
	}
	return true, l.Refresh(ctx)
}

// Reset empties the list.
func (l *List) Reset() error {
	replyCh := make(chan struct{}, 1)
	return l.wait(cmdReset{replyCh: replyCh}, replyCh)
}

// ClearError dismisses the delete failure flag.
func (l *List) ClearError() {
	select {
	case l.cmdCh <- cmdClearError{}:
	case <-l.stopCh:
	}
}

// Snapshot returns the current state.
func (l *List) Snapshot() (ListState, error) {
	replyCh := make(chan ListState, 1)
	select {
	case l.cmdCh <- cmdSnapshot{replyCh: replyCh}:
	case <-l.stopCh:
		return ListState{}, ErrListClosed
	}
	select {
	case st := <-replyCh:
		return st, nil
	case <-l.doneCh:
		return ListState{}, ErrListClosed
	}
}

// Subscribe streams every state transition, starting with the current state.
// Slow readers only see the latest state. The channel is closed by the
// returned func or when the list closes.
func (l *List) Subscribe() (<-chan ListState, func(), error) {
	ch := make(chan ListState, 1)
	replyCh := make(chan uint64, 1)
	select {
	case l.cmdCh <- cmdSubscribe{ch: ch, replyCh: replyCh}:
	case <-l.stopCh:
		return nil, nil, ErrListClosed
	}

	var id uint64
	select {
	case id = <-replyCh:
	case <-l.doneCh:
		return nil, nil, ErrListClosed
	}

	unsubscribe := func() {
		select {
		case l.cmdCh <- cmdUnsubscribe{id: id}:
		case <-l.stopCh:
		}
	}
	return ch, unsubscribe, nil
}

// Close stops the loop and closes every subscription. Store calls still in
// flight finish on their own and are discarded.
func (l *List) Close() {
	select {
	case <-l.stopCh:
	default:
		close(l.stopCh)
	}
	<-l.doneCh
}

func (l *List) call(cmd listCmd, replyCh chan error) error {
	select {
	case l.cmdCh <- cmd:
	case <-l.stopCh:
		return ErrListClosed
	}
	select {
	case err := <-replyCh:
		return err
	case <-l.doneCh:
		select {
		case err := <-replyCh:
			return err
		default:
			return ErrListClosed
		}
	}
}

func (l *List) wait(cmd listCmd, replyCh chan struct{}) error {
	select {
	case l.cmdCh <- cmd:
	case <-l.stopCh:
		return ErrListClosed
	}
	select {
	case <-replyCh:
		return nil
	case <-l.doneCh:
		return ErrListClosed
	}
}

func indexOf(items []model.Asset, ref model.Ref) int {
	for i, a := range items {
		if a.Ref == ref {
			return i
		}
	}
	return -1
}

func removeAt(items []model.Asset, i int) []model.Asset {
	out := make([]model.Asset, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func cloneAssets(items []model.Asset) []model.Asset {
	if items == nil {
		return nil
	}
	out := make([]model.Asset, len(items))
	copy(out, items)
	return out
}
