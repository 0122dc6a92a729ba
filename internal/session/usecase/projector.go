package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	assetmodel "photoshoot-studio/internal/asset/domain/model"
	authmodel "photoshoot-studio/internal/auth/domain/model"
	authusecase "photoshoot-studio/internal/auth/usecase"
	"photoshoot-studio/internal/session/config"
	"photoshoot-studio/internal/session/domain/model"
	"photoshoot-studio/internal/session/domain/repository"
	apperrors "photoshoot-studio/internal/shared/errors"
	"photoshoot-studio/internal/shared/eventbus"
	"photoshoot-studio/internal/shared/logger"
	"photoshoot-studio/internal/shared/metrics"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrProjectorClosed is returned by calls on a closed projector.
var ErrProjectorClosed = errors.New("session projector is closed")

// SessionProvider is the identity provider as seen by the projector.
type SessionProvider interface {
	GetSession(ctx context.Context, token string) (*authmodel.Session, error)
	OnSessionChange(listener authusecase.SessionListener) eventbus.Unsubscribe
}

// Deps are the collaborators of a Projector.
type Deps struct {
	Sessions SessionProvider
	Profiles repository.ProfileSource
	Assets   repository.AssetLibrary
	Flags    repository.FlagStore
	Guard    *Guard
	Clock    clockwork.Clock
	Logger   logger.Logger
}

// Projection is a point-in-time view of a projector.
type Projection struct {
	User        *model.User
	Route       string
	TourPending bool
	TourActive  bool
}

// --- Command types ---

type projCmd interface{ projCmd() }

type cmdEvent struct {
	ev authmodel.SessionEvent
}

func (cmdEvent) projCmd() {}

type cmdFail struct {
	kind authmodel.SessionEventKind
	err  error
}

func (cmdFail) projCmd() {}

type cmdRoute struct {
	route string
}

func (cmdRoute) projCmd() {}

type cmdDismissTour struct {
	replyCh chan error
}

func (cmdDismissTour) projCmd() {}

type cmdTourFire struct {
	gen uint64
}

func (cmdTourFire) projCmd() {}

type cmdProjection struct {
	replyCh chan Projection
}

func (cmdProjection) projCmd() {}

// --- Projector ---

// Projector derives the signed-in user of one client from session events
// and pushes the result, navigation and asset list states as frames. One
// goroutine owns the projection; session events, client input and timers
// reach it through cmdCh.
type Projector struct {
	sessions SessionProvider
	profiles repository.ProfileSource
	assets   repository.AssetLibrary
	flags    repository.FlagStore
	guard    *Guard
	clock    clockwork.Clock
	log      logger.Logger
	cfg      *config.Config

	cmdCh  chan projCmd
	frames chan model.Frame
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	// read by the bus listener to drop other sessions' events
	watched atomic.Value

	unsubscribe eventbus.Unsubscribe

	// owned by run
	route       string
	user        *model.User
	sessionID   string
	tourTimer   clockwork.Timer
	tourGen     uint64
	tourActive  bool
	forwardStop chan struct{}
}

// NewProjector starts a projector for a client currently on route. Call
// Start to resolve its session and Close to stop it.
func NewProjector(deps Deps, cfg *config.Config, route string) *Projector {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	p := &Projector{
		sessions: deps.Sessions,
		profiles: deps.Profiles,
		assets:   deps.Assets,
		flags:    deps.Flags,
		guard:    deps.Guard,
		clock:    deps.Clock,
		log:      deps.Logger.WithComponent("session_projector"),
		cfg:      cfg,
		cmdCh:    make(chan projCmd, 64),
		frames:   make(chan model.Frame, 32),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		route:    normalizeRoute(route),
	}
	p.watched.Store("")
	metrics.ActiveProjectors.Inc()
	go p.run()
	return p
}

// Frames delivers frames for the client. It is never closed; stop reading
// when Done is closed.
func (p *Projector) Frames() <-chan model.Frame { return p.frames }

// Done is closed once the projector stopped.
func (p *Projector) Done() <-chan struct{} { return p.doneCh }

// Start subscribes to session changes and projects the session bound to
// token as INITIAL_SESSION. An empty token projects the signed-out state.
func (p *Projector) Start(ctx context.Context, token string) {
	if p.sessions != nil {
		p.unsubscribe = p.sessions.OnSessionChange(p.onSessionChange)
	}

	session, err := p.resolve(ctx, token)
	if err != nil {
		p.send(cmdFail{kind: authmodel.EventInitialSession, err: err})
		return
	}
	ev := authmodel.SessionEvent{Kind: authmodel.EventInitialSession, Session: session}
	if session != nil {
		ev.UserID, ev.SessionID = session.UserID, session.ID
	}
	p.send(cmdEvent{ev: ev})
}

// Attach binds a session obtained after the connection opened, for example
// after a password sign-in, and projects it as SIGNED_IN.
func (p *Projector) Attach(ctx context.Context, token string) error {
	session, err := p.resolve(ctx, token)
	if err != nil {
		return err
	}
	if session == nil {
		return apperrors.NewAuthenticationError("no session for token")
	}
	if !p.send(cmdEvent{ev: authmodel.SessionEvent{
		Kind:      authmodel.EventSignedIn,
		UserID:    session.UserID,
		SessionID: session.ID,
		Session:   session,
	}}) {
		return ErrProjectorClosed
	}
	return nil
}

// SetRoute records the client's current route. It never redirects: the
// guard only runs on session transitions.
func (p *Projector) SetRoute(route string) {
	p.send(cmdRoute{route: route})
}

// DismissTour closes the onboarding overlay and persists the marker so it
// never opens again for this user.
func (p *Projector) DismissTour(ctx context.Context) error {
	replyCh := make(chan error, 1)
	if !p.send(cmdDismissTour{replyCh: replyCh}) {
		return ErrProjectorClosed
	}
	select {
	case err := <-replyCh:
		return err
	case <-p.doneCh:
		return ErrProjectorClosed
	}
}

// Projection returns the current projection.
func (p *Projector) Projection() (Projection, error) {
	replyCh := make(chan Projection, 1)
	if !p.send(cmdProjection{replyCh: replyCh}) {
		return Projection{}, ErrProjectorClosed
	}
	select {
	case pr := <-replyCh:
		return pr, nil
	case <-p.doneCh:
		return Projection{}, ErrProjectorClosed
	}
}

// Notify queues a frame for the client outside of any projection.
func (p *Projector) Notify(f model.Frame) {
	p.emit(f)
}

// HandleEvent feeds a session event directly, bypassing the session id
// filter applied to bus events.
func (p *Projector) HandleEvent(ev authmodel.SessionEvent) {
	p.send(cmdEvent{ev: ev})
}

// Close detaches from session events and stops the projector. Asset lists
// stay with the library.
func (p *Projector) Close() {
	p.once.Do(func() {
		if p.unsubscribe != nil {
			p.unsubscribe()
		}
		close(p.stopCh)
		metrics.ActiveProjectors.Dec()
	})
	<-p.doneCh
	p.wg.Wait()
}

func (p *Projector) onSessionChange(ctx context.Context, ev authmodel.SessionEvent) {
	watched, _ := p.watched.Load().(string)
	if watched == "" || ev.SessionID != watched {
		return
	}
	p.send(cmdEvent{ev: ev})
}

func (p *Projector) resolve(ctx context.Context, token string) (*authmodel.Session, error) {
	if token == "" || p.sessions == nil {
		return nil, nil
	}
	session, err := p.sessions.GetSession(ctx, token)
	if err != nil {
		if apperrors.IsAuthentication(err) {
			return nil, nil
		}
		return nil, apperrors.NewProjectionError("failed to resolve session").WithCause(err)
	}
	return session, nil
}

func (p *Projector) send(cmd projCmd) bool {
	select {
	case <-p.stopCh:
		return false
	default:
	}
	select {
	case p.cmdCh <- cmd:
		return true
	case <-p.stopCh:
		return false
	}
}

func (p *Projector) run() {
	defer close(p.doneCh)
	for {
		select {
		case cmd := <-p.cmdCh:
			p.handle(cmd)
		case <-p.stopCh:
			p.stopTour()
			p.stopForwarding()
			return
		}
	}
}

func (p *Projector) handle(cmd projCmd) {
	switch c := cmd.(type) {
	case cmdEvent:
		p.project(c.ev)

	case cmdFail:
		p.failClosed(authmodel.SessionEvent{Kind: c.kind}, c.err)

	case cmdRoute:
		p.route = normalizeRoute(c.route)

	case cmdDismissTour:
		c.replyCh <- p.dismissTour()

	case cmdTourFire:
		if c.gen != p.tourGen || p.user == nil {
			return
		}
		p.tourTimer = nil
		p.tourActive = true
		p.emit(model.Frame{Type: model.FrameOnboarding, Data: model.OnboardingData{Active: true}})

	case cmdProjection:
		var user *model.User
		if p.user != nil {
			u := *p.user
			user = &u
		}
		c.replyCh <- Projection{
			User:        user,
			Route:       p.route,
			TourPending: p.tourTimer != nil,
			TourActive:  p.tourActive,
		}
	}
}

// project applies one session transition.
func (p *Projector) project(ev authmodel.SessionEvent) {
	if ev.Kind == authmodel.EventSignedOut || ev.Session == nil || ev.Session.User == nil {
		p.signOut()
		metrics.SessionProjectionsTotal.WithLabelValues(string(ev.Kind), "anonymous").Inc()
		p.navigate(false)
		return
	}

	if err := p.signIn(ev); err != nil {
		p.failClosed(ev, err)
		return
	}
	metrics.SessionProjectionsTotal.WithLabelValues(string(ev.Kind), "user").Inc()
	p.navigate(true)
}

func (p *Projector) signIn(ev authmodel.SessionEvent) error {
	session := ev.Session
	identity := model.Identity{
		UserID:    session.User.ID,
		Email:     session.User.Email,
		AvatarURL: session.User.AvatarURL,
	}
	if identity.UserID == "" {
		return apperrors.NewProjectionError("session user has no id")
	}

	if p.user != nil && p.user.ID != identity.UserID {
		p.signOut()
	}

	user := model.ProjectUser(identity, p.fetchProfile(identity.UserID))
	switching := p.user == nil
	p.user = &user
	p.sessionID = session.ID
	p.watched.Store(session.ID)
	p.emit(model.Frame{Type: model.FrameUser, Data: model.UserData{User: &user}})

	if switching {
		if err := p.startForwarding(user.ID); err != nil {
			return err
		}
	}
	p.refreshAssets(user.ID, ev.Kind == authmodel.EventSignedIn)
	p.scheduleTour(user.ID)
	return nil
}

// fetchProfile is best effort: a failure is logged and projected as no profile.
func (p *Projector) fetchProfile(userID string) *model.ProfileInfo {
	if p.profiles == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ProfileTimeout)
	defer cancel()
	profile, err := p.profiles.Profile(ctx, userID)
	if err != nil {
		p.log.Warn("profile fetch failed", zap.String("userID", userID), zap.Error(err))
		return nil
	}
	return profile
}

func (p *Projector) refreshAssets(userID string, force bool) {
	if p.assets == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.assets.RefreshIfEmpty(context.Background(), userID, force); err != nil {
			p.log.Warn("asset refresh failed", zap.String("userID", userID), zap.Bool("forced", force), zap.Error(err))
		}
	}()
}

func (p *Projector) startForwarding(userID string) error {
	if p.assets == nil {
		return nil
	}
	stop := make(chan struct{})
	for _, kind := range assetmodel.Kinds {
		states, unsubscribe, err := p.assets.Subscribe(userID, kind)
		if err != nil {
			close(stop)
			return apperrors.NewProjectionError("failed to follow asset list").WithCause(err)
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer unsubscribe()
			for {
				select {
				case st, ok := <-states:
					if !ok {
						return
					}
					select {
					case p.frames <- model.Frame{Type: model.FrameAssets, Data: st}:
					case <-stop:
						return
					case <-p.stopCh:
						return
					}
				case <-stop:
					return
				case <-p.stopCh:
					return
				}
			}
		}()
	}
	p.forwardStop = stop
	return nil
}

func (p *Projector) stopForwarding() {
	if p.forwardStop != nil {
		close(p.forwardStop)
		p.forwardStop = nil
	}
}

func (p *Projector) scheduleTour(userID string) {
	if p.flags == nil || p.tourActive || p.tourTimer != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ProfileTimeout)
	defer cancel()
	_, done, err := p.flags.Get(ctx, model.TourCompletedKey(userID))
	if err != nil {
		p.log.Warn("onboarding flag unavailable, tour skipped", zap.String("userID", userID), zap.Error(err))
		return
	}
	if done {
		return
	}

	p.tourGen++
	gen := p.tourGen
	p.tourTimer = p.clock.AfterFunc(p.cfg.OnboardingDelay, func() {
		p.send(cmdTourFire{gen: gen})
	})
}

func (p *Projector) stopTour() {
	if p.tourTimer != nil {
		p.tourTimer.Stop()
		p.tourTimer = nil
	}
	p.tourGen++
}

func (p *Projector) dismissTour() error {
	if p.user == nil {
		return apperrors.NewAuthorizationError("no signed-in user")
	}
	if p.flags != nil {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ProfileTimeout)
		defer cancel()
		if err := p.flags.Set(ctx, model.TourCompletedKey(p.user.ID), "true"); err != nil {
			return apperrors.NewRemoteWriteError("failed to persist onboarding marker").WithCause(err)
		}
	}
	p.stopTour()
	if p.tourActive {
		p.tourActive = false
		p.emit(model.Frame{Type: model.FrameOnboarding, Data: model.OnboardingData{Active: false}})
	}
	return nil
}

// signOut clears the projection and lets go of the previous owner's lists.
// Other sessions of the same owner keep theirs.
func (p *Projector) signOut() {
	p.stopTour()
	if p.tourActive {
		p.tourActive = false
		p.emit(model.Frame{Type: model.FrameOnboarding, Data: model.OnboardingData{Active: false}})
	}
	p.stopForwarding()
	if p.user != nil {
		p.user = nil
		p.emit(model.Frame{Type: model.FrameUser, Data: model.UserData{User: nil}})
	}
	p.sessionID = ""
	p.watched.Store("")
}

// failClosed forces the signed-out projection and sends the client to the
// landing route.
func (p *Projector) failClosed(ev authmodel.SessionEvent, err error) {
	p.log.Error("session projection failed, signing out",
		zap.String("event", string(ev.Kind)),
		zap.String("userID", ev.UserID),
		zap.Error(err))
	metrics.SessionProjectionsTotal.WithLabelValues(string(ev.Kind), "failed").Inc()

	hadUser := p.user != nil
	p.signOut()
	if !hadUser {
		p.emit(model.Frame{Type: model.FrameUser, Data: model.UserData{User: nil}})
	}
	landing := normalizeRoute(p.guard.Landing())
	if p.route != landing {
		p.redirect(landing)
	}
}

// navigate runs the guard for the transition just applied.
func (p *Projector) navigate(authenticated bool) {
	target, ok, err := p.guard.Redirect(p.route, authenticated)
	if err != nil {
		p.log.Error("guard evaluation failed", zap.String("route", p.route), zap.Error(err))
		return
	}
	if ok {
		p.redirect(target)
	}
}

func (p *Projector) redirect(target string) {
	metrics.Redirects.WithLabelValues(target).Inc()
	p.route = target
	p.emit(model.Frame{Type: model.FrameNavigate, Data: model.NavigateData{Route: target}})
}

func (p *Projector) emit(f model.Frame) {
	select {
	case p.frames <- f:
	case <-p.stopCh:
	}
}
