package model

import (
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Session represents a signed-in session. AccessToken is never persisted.
type Session struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	AccessToken string    `json:"access_token" bson:"-"`
	ExpiresAt   time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	RefreshedAt time.Time `json:"refreshed_at,omitempty" bson:"refreshed_at,omitempty"`
	User        *User     `json:"user,omitempty" bson:"-"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
