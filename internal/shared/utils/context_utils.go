package utils

import (
	"context"
	"errors"

	"photoshoot-studio/internal/shared/contextkeys"
)

// Common context errors
var (
	ErrUserIDNotFound     = errors.New("userID not found in context")
	ErrUserIDNotString    = errors.New("userID in context is not a string")
	ErrUserEmailNotFound  = errors.New("userEmail not found in context")
	ErrUserEmailNotString = errors.New("userEmail in context is not a string")
	ErrSessionIDNotFound  = errors.New("sessionID not found in context")
	ErrTokenNotFound      = errors.New("token not found in context")
	ErrRequestIDNotFound  = errors.New("requestID not found in context")
)

func stringValue(ctx context.Context, key interface{}, missing, notString error) (string, error) {
	val := ctx.Value(key)
	if val == nil {
		return "", missing
	}
	s, ok := val.(string)
	if !ok {
		return "", notString
	}
	if s == "" {
		return "", missing
	}
	return s, nil
}

// GetUserIDFromContext retrieves the authenticated owner id.
func GetUserIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.UserIDKey, ErrUserIDNotFound, ErrUserIDNotString)
}

// GetUserEmailFromContext retrieves the user email from the context.
func GetUserEmailFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.UserEmailKey, ErrUserEmailNotFound, ErrUserEmailNotString)
}

// GetSessionIDFromContext retrieves the session id from the context.
func GetSessionIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.SessionIDKey, ErrSessionIDNotFound, ErrSessionIDNotFound)
}

// GetTokenFromContext retrieves the raw access token from the context.
func GetTokenFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.TokenKey, ErrTokenNotFound, ErrTokenNotFound)
}

// GetRequestIDFromContext retrieves the request ID from the context.
func GetRequestIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.RequestIDKey, ErrRequestIDNotFound, ErrRequestIDNotFound)
}

// WithUserID adds user ID to context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextkeys.UserIDKey, userID)
}

// WithUserEmail adds user email to context
func WithUserEmail(ctx context.Context, userEmail string) context.Context {
	return context.WithValue(ctx, contextkeys.UserEmailKey, userEmail)
}

// WithSessionID adds the session id to context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextkeys.SessionIDKey, sessionID)
}

// WithToken adds the raw access token to context
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextkeys.TokenKey, token)
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// WithRoute adds the client route to context
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, contextkeys.RouteKey, route)
}

// WithComponent adds component name to context
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, contextkeys.ComponentKey, component)
}

// GetUserIDOrDefault retrieves the user ID from context or returns a default value
func GetUserIDOrDefault(ctx context.Context, def string) string {
	if v, err := GetUserIDFromContext(ctx); err == nil {
		return v
	}
	return def
}
