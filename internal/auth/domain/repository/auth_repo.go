package repository

import (
	"context"
	"time"

	"photoshoot-studio/internal/auth/domain/model"
)

// AuthRepository persists users and sessions.
type AuthRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	CreateSession(ctx context.Context, session *model.Session) error
	GetSessionByID(ctx context.Context, id string) (*model.Session, error)
	ExtendSession(ctx context.Context, id string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) error
}

// ProfileRepository is the point-lookup profile store.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpsertProfile(ctx context.Context, profile *model.Profile) error
}

// OAuthStateStore keeps short-lived OAuth state values.
type OAuthStateStore interface {
	Save(ctx context.Context, state, provider string, ttl time.Duration) error
	// Consume returns the provider bound to state and deletes it.
	Consume(ctx context.Context, state string) (string, error)
}

// OAuthExchanger turns an authorization code into the provider account's email.
type OAuthExchanger interface {
	AuthCodeURL(provider, state string) (string, error)
	Exchange(ctx context.Context, provider, code string) (*OAuthIdentity, error)
}

// OAuthIdentity is what the service needs from an OAuth provider.
type OAuthIdentity struct {
	Email     string
	AvatarURL string
}
