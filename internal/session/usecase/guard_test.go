package usecase

import (
	"testing"

	"photoshoot-studio/internal/session/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_DefaultRules(t *testing.T) {
	g, err := NewGuard(config.Default())
	require.NoError(t, err)

	tests := []struct {
		route         string
		authenticated bool
		want          string
	}{
		{"/", true, "/home"},
		{"/login", true, "/home"},
		{"/login?next=/studio", true, "/home"},
		{"/home", true, ""},
		{"/gallery", true, ""},
		{"/gallery", false, "/"},
		{"/studio/", false, "/"},
		{"/", false, ""},
		{"/login", false, ""},
	}
	for _, tt := range tests {
		target, ok, err := g.Redirect(tt.route, tt.authenticated)
		require.NoError(t, err)
		assert.Equal(t, tt.want, target, "%s authenticated=%v", tt.route, tt.authenticated)
		assert.Equal(t, tt.want != "", ok)
	}
}

func TestGuard_CustomRules(t *testing.T) {
	cfg := config.Default()
	cfg.LandingRule = `!authenticated && route.startsWith("/studio")`
	g, err := NewGuard(cfg)
	require.NoError(t, err)

	target, ok, err := g.Redirect("/studio/new", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/", target)

	_, ok, err = g.Redirect("/gallery", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGuard_RejectsBadRules(t *testing.T) {
	cfg := config.Default()
	cfg.HomeRule = "route"
	_, err := NewGuard(cfg)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.HomeRule = "authenticated &&"
	_, err = NewGuard(cfg)
	assert.Error(t, err)
}

func TestGuard_IsPublic(t *testing.T) {
	g, err := NewGuard(config.Default())
	require.NoError(t, err)
	assert.True(t, g.IsPublic("/"))
	assert.True(t, g.IsPublic("/login/"))
	assert.False(t, g.IsPublic("/home"))
	assert.Equal(t, "/", g.Landing())
}
