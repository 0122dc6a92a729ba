package utils

import (
	"context"
	"testing"

	"photoshoot-studio/internal/shared/contextkeys"

	"github.com/stretchr/testify/assert"
)

func TestGetSetContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithUserID(ctx, "user1")
	ctx = WithUserEmail(ctx, "user@example.com")
	ctx = WithSessionID(ctx, "sess1")
	ctx = WithToken(ctx, "tok")
	ctx = WithRequestID(ctx, "req1")
	ctx = WithRoute(ctx, "/gallery")
	ctx = WithComponent(ctx, "componentA")

	userID, err := GetUserIDFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "user1", userID)

	email, err := GetUserEmailFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "user@example.com", email)

	sessionID, err := GetSessionIDFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "sess1", sessionID)

	token, err := GetTokenFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "tok", token)

	requestID, err := GetRequestIDFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "req1", requestID)

	assert.Equal(t, "/gallery", ctx.Value(contextkeys.RouteKey))
}

func TestGetUserID_Errors(t *testing.T) {
	_, err := GetUserIDFromContext(context.Background())
	assert.ErrorIs(t, err, ErrUserIDNotFound)

	ctx := context.WithValue(context.Background(), contextkeys.UserIDKey, 42)
	_, err = GetUserIDFromContext(ctx)
	assert.ErrorIs(t, err, ErrUserIDNotString)

	_, err = GetUserIDFromContext(WithUserID(context.Background(), ""))
	assert.ErrorIs(t, err, ErrUserIDNotFound)
}

func TestGetUserIDOrDefault(t *testing.T) {
	assert.Equal(t, "anon", GetUserIDOrDefault(context.Background(), "anon"))
	assert.Equal(t, "u1", GetUserIDOrDefault(WithUserID(context.Background(), "u1"), "anon"))
}
