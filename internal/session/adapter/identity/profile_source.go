package identity

import (
	"context"
	"errors"

	authmodel "photoshoot-studio/internal/auth/domain/model"
	"photoshoot-studio/internal/session/domain/model"
	"photoshoot-studio/internal/session/domain/repository"
	apperrors "photoshoot-studio/internal/shared/errors"
)

// ProfileGetter is the profile lookup of the identity provider.
type ProfileGetter interface {
	GetProfile(ctx context.Context, userID string) (*authmodel.Profile, error)
}

// ProfileSource adapts the identity provider's profile store. A missing
// profile is not an error.
type ProfileSource struct {
	profiles ProfileGetter
}

// NewProfileSource wraps profiles.
func NewProfileSource(profiles ProfileGetter) *ProfileSource {
	return &ProfileSource{profiles: profiles}
}

// Profile returns the username and avatar of userID, or nil when there is none.
func (s *ProfileSource) Profile(ctx context.Context, userID string) (*model.ProfileInfo, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, authmodel.ErrProfileNotFound) || apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return &model.ProfileInfo{Username: p.Username, AvatarURL: p.AvatarURL}, nil
}

var _ repository.ProfileSource = (*ProfileSource)(nil)
