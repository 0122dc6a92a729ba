package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds all configuration for the auth module.
type Config struct {
	// JWT Configuration
	JWTSecretKey   string        `env:"JWT_SECRET_KEY,required"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"photoshoot-studio-auth"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`

	// Cookie Configuration
	CookieName     string `env:"COOKIE_NAME" envDefault:"ps_session"`
	CookiePath     string `env:"COOKIE_PATH" envDefault:"/"`
	CookieDomain   string `env:"COOKIE_DOMAIN" envDefault:""`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	CookieHTTPOnly bool   `env:"COOKIE_HTTP_ONLY" envDefault:"true"`
	CookieSameSite string `env:"COOKIE_SAME_SITE" envDefault:"Lax"`

	// OAuth redirect sign-in. A provider is enabled when its client id is set.
	OAuth OAuthConfig

	// OAuthStateTTL bounds how long an authorization redirect may take.
	OAuthStateTTL time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`
	// PostLoginRedirect is where the browser lands after the OAuth callback.
	PostLoginRedirect string `env:"OAUTH_POST_LOGIN_REDIRECT" envDefault:"/home"`
}

// OAuthConfig describes the single generic OAuth2 provider.
type OAuthConfig struct {
	Provider     string   `env:"OAUTH_PROVIDER" envDefault:"google"`
	ClientID     string   `env:"OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"OAUTH_CLIENT_SECRET"`
	AuthURL      string   `env:"OAUTH_AUTH_URL" envDefault:"https://accounts.google.com/o/oauth2/auth"`
	TokenURL     string   `env:"OAUTH_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`
	UserInfoURL  string   `env:"OAUTH_USERINFO_URL" envDefault:"https://openidconnect.googleapis.com/v1/userinfo"`
	RedirectURL  string   `env:"OAUTH_REDIRECT_URL" envDefault:"http://localhost:3000/auth/oauth/callback"`
	Scopes       []string `env:"OAUTH_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
}

// Enabled reports whether OAuth sign-in is configured.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != ""
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load auth configuration from environment: " + err.Error() +
			". Please ensure all required environment variables are set.")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes and checks the configuration.
func (cfg *Config) Validate() error {
	if cfg.JWTSecretKey == "" {
		return errors.New("jwt_secret_key is required")
	}
	if cfg.AccessTokenTTL <= 0 {
		return errors.New("access_token_ttl must be positive")
	}

	sameSite := strings.ToLower(cfg.CookieSameSite)
	switch sameSite {
	case "lax", "strict", "none":
		cfg.CookieSameSite = strings.ToUpper(sameSite[:1]) + sameSite[1:]
	default:
		return errors.New("cookie_same_site must be one of 'Lax', 'Strict', or 'None'")
	}
	return nil
}
