package http_test

import (
	"context"

	"photoshoot-studio/internal/auth/domain/model"
	"photoshoot-studio/internal/auth/usecase"
	"photoshoot-studio/internal/shared/eventbus"

	"github.com/stretchr/testify/mock"
)

// Mock usecase
type mockAuthUsecase struct {
	mock.Mock
}

func sessionOrNil(args mock.Arguments) (*model.Session, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockAuthUsecase) SignUp(ctx context.Context, req usecase.SignUpRequest) (*model.Session, error) {
	return sessionOrNil(m.Called(ctx, req))
}

func (m *mockAuthUsecase) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	return sessionOrNil(m.Called(ctx, email, password))
}

func (m *mockAuthUsecase) SignOut(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockAuthUsecase) GetSession(ctx context.Context, token string) (*model.Session, error) {
	return sessionOrNil(m.Called(ctx, token))
}

func (m *mockAuthUsecase) RefreshSession(ctx context.Context, token string) (*model.Session, error) {
	return sessionOrNil(m.Called(ctx, token))
}

func (m *mockAuthUsecase) OnSessionChange(listener usecase.SessionListener) eventbus.Unsubscribe {
	return func() {}
}

func (m *mockAuthUsecase) OAuthURL(ctx context.Context, provider string) (string, error) {
	args := m.Called(ctx, provider)
	return args.String(0), args.Error(1)
}

func (m *mockAuthUsecase) OAuthCallback(ctx context.Context, state, code string) (*model.Session, error) {
	return sessionOrNil(m.Called(ctx, state, code))
}

func (m *mockAuthUsecase) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockAuthUsecase) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *mockAuthUsecase) UpdateProfile(ctx context.Context, userID string, req usecase.ProfileRequest) (*model.Profile, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

var _ usecase.AuthUsecaseInterface = (*mockAuthUsecase)(nil)
