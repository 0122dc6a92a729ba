package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"photoshoot-studio/internal/auth/config"
	"photoshoot-studio/internal/auth/domain/repository"

	"golang.org/x/oauth2"
)

var (
	ErrOAuthProviderUnknown = errors.New("oauth provider is not configured")
	ErrOAuthNoEmail         = errors.New("oauth provider returned no email")
)

// OAuthProvider runs the authorization-code flow against one configured provider.
type OAuthProvider struct {
	name        string
	oauth       *oauth2.Config
	userInfoURL string
}

// NewOAuthProvider builds the provider from configuration. It returns nil
// when OAuth is not enabled.
func NewOAuthProvider(cfg config.OAuthConfig) *OAuthProvider {
	if !cfg.Enabled() {
		return nil
	}
	return &OAuthProvider{
		name: strings.ToLower(cfg.Provider),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

func (p *OAuthProvider) lookup(provider string) error {
	if p == nil || !strings.EqualFold(provider, p.name) {
		return fmt.Errorf("%w: %s", ErrOAuthProviderUnknown, provider)
	}
	return nil
}

// AuthCodeURL returns the provider URL the browser is redirected to.
func (p *OAuthProvider) AuthCodeURL(provider, state string) (string, error) {
	if err := p.lookup(provider); err != nil {
		return "", err
	}
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

type userInfo struct {
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// Exchange trades code for a token and reads the account email from the userinfo endpoint.
func (p *OAuthProvider) Exchange(ctx context.Context, provider, code string) (*repository.OAuthIdentity, error) {
	if err := p.lookup(provider); err != nil {
		return nil, err
	}

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth code exchange failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth userinfo returned status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("oauth userinfo decode failed: %w", err)
	}
	if info.Email == "" {
		return nil, ErrOAuthNoEmail
	}
	return &repository.OAuthIdentity{Email: strings.ToLower(info.Email), AvatarURL: info.Picture}, nil
}

var _ repository.OAuthExchanger = (*OAuthProvider)(nil)
