package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds the session projector configuration.
type Config struct {
	// OnboardingDelay is how long after a first sign-in the tour overlay opens.
	OnboardingDelay time.Duration `env:"ONBOARDING_DELAY" envDefault:"1s"`

	LandingRoute string   `env:"ROUTE_LANDING" envDefault:"/"`
	HomeRoute    string   `env:"ROUTE_HOME" envDefault:"/home"`
	PublicRoutes []string `env:"ROUTES_PUBLIC" envSeparator:"," envDefault:"/,/login"`

	// Guard rules are CEL expressions over route, public and authenticated.
	// The first rule that holds decides the redirect.
	HomeRule    string `env:"GUARD_HOME_RULE" envDefault:"authenticated && public"`
	LandingRule string `env:"GUARD_LANDING_RULE" envDefault:"!authenticated && !public"`

	// ProfileTimeout bounds the best-effort profile lookup.
	ProfileTimeout time.Duration `env:"PROFILE_TIMEOUT" envDefault:"5s"`
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load session configuration from environment: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (cfg *Config) Validate() error {
	if cfg.OnboardingDelay < 0 {
		return errors.New("onboarding_delay must not be negative")
	}
	if cfg.LandingRoute == "" || cfg.HomeRoute == "" {
		return errors.New("landing and home routes are required")
	}
	if cfg.HomeRule == "" || cfg.LandingRule == "" {
		return errors.New("guard rules are required")
	}
	return nil
}

// Default returns the configuration LoadConfig yields with an empty environment.
func Default() *Config {
	return &Config{
		OnboardingDelay: time.Second,
		LandingRoute:    "/",
		HomeRoute:       "/home",
		PublicRoutes:    []string{"/", "/login"},
		HomeRule:        "authenticated && public",
		LandingRule:     "!authenticated && !public",
		ProfileTimeout:  5 * time.Second,
	}
}
