package asset

import (
	"context"
	"testing"
	"time"

	assetmodel "photoshoot-studio/internal/asset/domain/model"
	authmodel "photoshoot-studio/internal/auth/domain/model"
	authusecase "photoshoot-studio/internal/auth/usecase"
	"photoshoot-studio/internal/shared/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

type stubSessions struct {
	listener     authusecase.SessionListener
	unsubscribed bool
}

func (s *stubSessions) OnSessionChange(listener authusecase.SessionListener) eventbus.Unsubscribe {
	s.listener = listener
	return func() { s.unsubscribed = true }
}

func TestAssetModule_FollowsSessionChanges(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("lifecycle", func(mt *mtest.T) {
		// one createIndexes per kind
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		sessions := &stubSessions{}
		module, err := NewAssetModule(context.Background(), Options{DB: mt.DB, Sessions: sessions})
		require.NoError(mt, err)
		require.NotNil(mt, sessions.listener)

		ctx := context.Background()
		sessions.listener(ctx, authmodel.SessionEvent{Kind: authmodel.EventSignedIn, UserID: "u1", SessionID: "s1"})
		sessions.listener(ctx, authmodel.SessionEvent{Kind: authmodel.EventTokenRefreshed, UserID: "u2", SessionID: "s2"})
		assert.Equal(mt, 1, module.Library().Owners())

		_, ok := module.Library().Get("u1")
		assert.True(mt, ok)

		sessions.listener(ctx, authmodel.SessionEvent{Kind: authmodel.EventSignedOut, UserID: "u1", SessionID: "s1"})
		assert.Zero(mt, module.Library().Owners())

		require.NoError(mt, module.Stop())
		assert.True(mt, sessions.unsubscribed)
	})
}

func TestAssetModule_SignOutOnOneDeviceKeepsOtherStreams(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("two sessions", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		sessions := &stubSessions{}
		module, err := NewAssetModule(context.Background(), Options{DB: mt.DB, Sessions: sessions})
		require.NoError(mt, err)
		defer module.Stop()

		ctx := context.Background()
		expires := time.Now().Add(time.Hour)
		for _, sid := range []string{"laptop", "phone"} {
			sessions.listener(ctx, authmodel.SessionEvent{Kind: authmodel.EventSignedIn, UserID: "u1", SessionID: sid,
				Session: &authmodel.Session{ID: sid, UserID: "u1", ExpiresAt: expires}})
		}

		states, unsubscribe, err := module.Library().Subscribe("u1", assetmodel.KindPhotoshoot)
		require.NoError(mt, err)
		defer unsubscribe()
		<-states

		sessions.listener(ctx, authmodel.SessionEvent{Kind: authmodel.EventSignedOut, UserID: "u1", SessionID: "phone"})
		select {
		case _, open := <-states:
			assert.True(mt, open, "laptop stream closed by the phone signing out")
		default:
		}
		lists, ok := module.Library().Get("u1")
		require.True(mt, ok)
		_, err = lists.Photoshoots().Snapshot()
		assert.NoError(mt, err)

		sessions.listener(ctx, authmodel.SessionEvent{Kind: authmodel.EventSignedOut, UserID: "u1", SessionID: "laptop"})
		_, ok = module.Library().Get("u1")
		assert.False(mt, ok)
		require.Eventually(mt, func() bool {
			select {
			case _, open := <-states:
				return !open
			default:
				return false
			}
		}, time.Second, 5*time.Millisecond)
	})
}
