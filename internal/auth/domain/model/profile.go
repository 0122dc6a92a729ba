package model

import (
	"errors"
	"time"
)

var ErrProfileNotFound = errors.New("profile not found")

// Profile is the optional, user-editable record shown alongside a session.
type Profile struct {
	UserID    string    `json:"user_id" bson:"_id"`
	Username  string    `json:"username" bson:"username"`
	AvatarURL string    `json:"avatar_url" bson:"avatar_url"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
