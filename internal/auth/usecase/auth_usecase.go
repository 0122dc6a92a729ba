package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"photoshoot-studio/internal/auth/config"
	"photoshoot-studio/internal/auth/domain/model"
	"photoshoot-studio/internal/auth/domain/repository"
	apperrors "photoshoot-studio/internal/shared/errors"
	"photoshoot-studio/internal/shared/eventbus"
	"photoshoot-studio/internal/shared/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Password validation constants
const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// SessionListener receives session lifecycle transitions.
type SessionListener func(ctx context.Context, event model.SessionEvent)

// AuthUsecaseInterface defines the contract for authentication use cases.
type AuthUsecaseInterface interface {
	SignUp(ctx context.Context, req SignUpRequest) (*model.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	SignOut(ctx context.Context, token string) error
	GetSession(ctx context.Context, token string) (*model.Session, error)
	RefreshSession(ctx context.Context, token string) (*model.Session, error)
	OnSessionChange(listener SessionListener) eventbus.Unsubscribe
	OAuthURL(ctx context.Context, provider string) (string, error)
	OAuthCallback(ctx context.Context, state, code string) (*model.Session, error)
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, userID string, req ProfileRequest) (*model.Profile, error)
}

// SignUpRequest represents the registration request
type SignUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// ProfileRequest carries the editable profile fields.
type ProfileRequest struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// AuthUsecase implements the authentication logic.
type AuthUsecase struct {
	repo      repository.AuthRepository
	profiles  repository.ProfileRepository
	tokenSvc  repository.TokenService
	states    repository.OAuthStateStore
	exchanger repository.OAuthExchanger
	bus       eventbus.EventBusInterface
	config    *config.Config
	clock     clockwork.Clock
	log       logger.Logger
}

// Deps groups the collaborators of AuthUsecase. States and Exchanger may be
// nil when OAuth sign-in is not configured.
type Deps struct {
	Repo      repository.AuthRepository
	Profiles  repository.ProfileRepository
	Tokens    repository.TokenService
	States    repository.OAuthStateStore
	Exchanger repository.OAuthExchanger
	Bus       eventbus.EventBusInterface
	Clock     clockwork.Clock
	Logger    logger.Logger
}

// NewAuthUsecase creates a new instance of AuthUsecase.
func NewAuthUsecase(deps Deps, cfg *config.Config) *AuthUsecase {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Bus == nil {
		deps.Bus = eventbus.NewEventBus(deps.Logger)
	}
	return &AuthUsecase{
		repo:      deps.Repo,
		profiles:  deps.Profiles,
		tokenSvc:  deps.Tokens,
		states:    deps.States,
		exchanger: deps.Exchanger,
		bus:       deps.Bus,
		config:    cfg,
		clock:     deps.Clock,
		log:       deps.Logger.WithComponent("auth"),
	}
}

func validateEmail(email string) error {
	if email == "" {
		return apperrors.NewValidationError("email is required").WithCode("email_required")
	}
	if !emailRegex.MatchString(email) {
		return apperrors.NewValidationError("invalid email format").WithCode("email_invalid")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return apperrors.NewValidationError("password is required").WithCode("password_required")
	}
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLength)).
			WithCode("password_too_short")
	}
	if len(password) > maxPasswordLength {
		return apperrors.NewValidationError(fmt.Sprintf("password must be at most %d characters", maxPasswordLength)).
			WithCode("password_too_long")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a password account and signs it in.
func (uc *AuthUsecase) SignUp(ctx context.Context, req SignUpRequest) (*model.Session, error) {
	email := normalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	existing, err := uc.repo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, apperrors.NewConflictError("email is already taken").WithCause(model.ErrEmailTaken)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashed),
		Provider:     "password",
		AvatarURL:    strings.TrimSpace(req.AvatarURL),
	}
	if err := uc.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, apperrors.NewConflictError("email is already taken").WithCause(err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if username := strings.TrimSpace(req.Username); username != "" {
		uc.seedProfile(ctx, user.ID, username, user.AvatarURL)
	}

	return uc.startSession(ctx, user)
}

// SignInWithPassword authenticates email and password.
func (uc *AuthUsecase) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, apperrors.NewValidationError("password is required").WithCode("password_required")
	}

	user, err := uc.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, invalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalidCredentials()
	}

	return uc.startSession(ctx, user)
}

func invalidCredentials() error {
	return apperrors.NewAuthenticationError("invalid credentials").WithCause(model.ErrInvalidCredentials)
}

// SignOut revokes the session bound to token and announces SIGNED_OUT.
func (uc *AuthUsecase) SignOut(ctx context.Context, token string) error {
	claims, err := uc.validate(ctx, token)
	if err != nil {
		return err
	}

	if err := uc.repo.DeleteSession(ctx, claims.SessionID); err != nil && !errors.Is(err, model.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	uc.publish(ctx, model.SessionEvent{Kind: model.EventSignedOut, UserID: claims.UserID, SessionID: claims.SessionID})
	return nil
}

// GetSession resolves token to its live session. An empty token means no
// session and yields (nil, nil).
func (uc *AuthUsecase) GetSession(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := uc.validate(ctx, token)
	if err != nil {
		return nil, err
	}
	session, err := uc.loadSession(ctx, claims)
	if err != nil {
		return nil, err
	}
	session.AccessToken = token
	return session, nil
}

// RefreshSession issues a new access token for the same session and extends it.
func (uc *AuthUsecase) RefreshSession(ctx context.Context, token string) (*model.Session, error) {
	claims, err := uc.validate(ctx, token)
	if err != nil {
		return nil, err
	}
	session, err := uc.loadSession(ctx, claims)
	if err != nil {
		return nil, err
	}

	newToken, expiresAt, err := uc.tokenSvc.GenerateToken(ctx, session.User.ID, session.User.Email, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new token: %w", err)
	}
	if err := uc.repo.ExtendSession(ctx, session.ID, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to extend session: %w", err)
	}

	session.AccessToken = newToken
	session.ExpiresAt = expiresAt
	session.RefreshedAt = uc.clock.Now()

	uc.publish(ctx, model.SessionEvent{Kind: model.EventTokenRefreshed, UserID: session.UserID, SessionID: session.ID, Session: session})
	return session, nil
}

// OnSessionChange registers listener for every session transition. The
// returned func detaches it.
func (uc *AuthUsecase) OnSessionChange(listener SessionListener) eventbus.Unsubscribe {
	return uc.bus.Subscribe(model.SessionChangedEvent, func(ctx context.Context, event eventbus.Event) error {
		if ev, ok := event.Data().(model.SessionEvent); ok {
			listener(ctx, ev)
		}
		return nil
	})
}

// OAuthURL starts an OAuth redirect sign-in and returns the provider URL.
func (uc *AuthUsecase) OAuthURL(ctx context.Context, provider string) (string, error) {
	if uc.exchanger == nil || uc.states == nil {
		return "", apperrors.NewValidationError("oauth sign-in is not configured").WithCode("oauth_disabled")
	}
	if provider == "" {
		return "", apperrors.NewValidationError("provider is required")
	}

	state := uuid.New().String()
	url, err := uc.exchanger.AuthCodeURL(provider, state)
	if err != nil {
		return "", apperrors.NewValidationError(err.Error()).WithCode("oauth_provider")
	}
	if err := uc.states.Save(ctx, state, provider, uc.config.OAuthStateTTL); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}
	return url, nil
}

// OAuthCallback completes an OAuth sign-in, creating the account on first use.
func (uc *AuthUsecase) OAuthCallback(ctx context.Context, state, code string) (*model.Session, error) {
	if uc.exchanger == nil || uc.states == nil {
		return nil, apperrors.NewValidationError("oauth sign-in is not configured").WithCode("oauth_disabled")
	}
	if state == "" || code == "" {
		return nil, apperrors.NewValidationError("state and code are required")
	}

	provider, err := uc.states.Consume(ctx, state)
	if err != nil {
		return nil, apperrors.NewAuthenticationError("unknown or expired oauth state").WithCause(err)
	}

	identity, err := uc.exchanger.Exchange(ctx, provider, code)
	if err != nil {
		return nil, apperrors.NewAuthenticationError("oauth exchange failed").WithCause(err)
	}
	email := normalizeEmail(identity.Email)

	user, err := uc.repo.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		user = &model.User{
			ID:        uuid.New().String(),
			Email:     email,
			Provider:  provider,
			AvatarURL: identity.AvatarURL,
		}
		if err := uc.repo.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		uc.log.Info("account created from oauth", zap.String("userID", user.ID), zap.String("provider", provider))
	case err != nil:
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return uc.startSession(ctx, user)
}

// GetUserByID retrieves a user without its password hash.
func (uc *AuthUsecase) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user ID is required")
	}
	user, err := uc.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("user").WithCause(err)
		}
		return nil, err
	}
	return user.Sanitized(), nil
}

// GetProfile is the point lookup used by the session projector.
func (uc *AuthUsecase) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	return uc.profiles.GetProfile(ctx, userID)
}

// UpdateProfile upserts the caller's profile.
func (uc *AuthUsecase) UpdateProfile(ctx context.Context, userID string, req ProfileRequest) (*model.Profile, error) {
	if userID == "" {
		return nil, apperrors.NewAuthorizationError("no authenticated user")
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username is required")
	}
	profile := &model.Profile{UserID: userID, Username: username, AvatarURL: strings.TrimSpace(req.AvatarURL)}
	if err := uc.profiles.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return profile, nil
}

func (uc *AuthUsecase) seedProfile(ctx context.Context, userID, username, avatarURL string) {
	profile := &model.Profile{UserID: userID, Username: username, AvatarURL: avatarURL}
	if err := uc.profiles.UpsertProfile(ctx, profile); err != nil {
		uc.log.Warn("failed to seed profile", zap.String("userID", userID), zap.Error(err))
	}
}

func (uc *AuthUsecase) startSession(ctx context.Context, user *model.User) (*model.Session, error) {
	sessionID := uuid.New().String()
	token, expiresAt, err := uc.tokenSvc.GenerateToken(ctx, user.ID, user.Email, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
		CreatedAt: uc.clock.Now(),
	}
	if err := uc.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	session.AccessToken = token
	session.User = user.Sanitized()

	uc.publish(ctx, model.SessionEvent{Kind: model.EventSignedIn, UserID: user.ID, SessionID: session.ID, Session: session})
	return session, nil
}

func (uc *AuthUsecase) validate(ctx context.Context, token string) (*repository.Claims, error) {
	if token == "" {
		return nil, apperrors.NewAuthenticationError("missing token").WithCause(apperrors.ErrUnauthorized)
	}
	claims, err := uc.tokenSvc.ValidateToken(ctx, token)
	if err != nil {
		return nil, apperrors.NewAuthenticationError("invalid token").WithCause(apperrors.ErrInvalidToken)
	}
	return claims, nil
}

func (uc *AuthUsecase) loadSession(ctx context.Context, claims *repository.Claims) (*model.Session, error) {
	session, err := uc.repo.GetSessionByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, apperrors.NewAuthenticationError("session revoked").WithCause(apperrors.ErrInvalidToken)
		}
		return nil, err
	}
	if session.UserID != claims.UserID {
		return nil, apperrors.NewAuthenticationError("session does not belong to token").WithCause(apperrors.ErrInvalidToken)
	}
	if session.Expired(uc.clock.Now()) {
		return nil, apperrors.NewAuthenticationError("session expired").WithCause(apperrors.ErrTokenExpired)
	}

	user, err := uc.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, apperrors.NewAuthenticationError("user no longer exists").WithCause(err)
		}
		return nil, err
	}
	session.User = user.Sanitized()
	return session, nil
}

func (uc *AuthUsecase) publish(ctx context.Context, ev model.SessionEvent) {
	err := uc.bus.Publish(ctx, eventbus.NewBasicEventWithSource(model.SessionChangedEvent, ev, "auth"))
	if err != nil {
		uc.log.Warn("session listener failed", zap.String("event", string(ev.Kind)), zap.Error(err))
	}
}

// Ensure AuthUsecase implements AuthUsecaseInterface
var _ AuthUsecaseInterface = (*AuthUsecase)(nil)
