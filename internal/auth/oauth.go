// AngelaMos | 2026
// oauth.go

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/carterperez-dev/ledger-backend/internal/config"
)

var ErrOAuthProfile = errors.New("oauth profile rejected")

const maxUserInfoBytes = 1 << 20

// OAuthClient runs the authorization-code flow with PKCE against a single
// configured identity provider.
type OAuthClient struct {
	name        string
	cfg         *oauth2.Config
	userInfoURL string
}

// NewOAuthClient returns nil when OAuth is not configured.
func NewOAuthClient(cfg config.OAuthConfig) *OAuthClient {
	if !cfg.Enabled() {
		return nil
	}

	return &OAuthClient{
		name: cfg.Provider,
		cfg: &oauth2.Config{
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

func (c *OAuthClient) Name() string {
	return c.name
}

func (c *OAuthClient) AuthCodeURL(state, verifier string) string {
	return c.cfg.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
	)
}

// Exchange trades the authorization code for a token and fetches the
// user-info document with it.
func (c *OAuthClient) Exchange(
	ctx context.Context,
	code, verifier string,
) (*OAuthProfile, error) {
	tok, err := c.cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("oauth exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("oauth userinfo: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth userinfo: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth userinfo: unexpected status %d", resp.StatusCode)
	}

	var info struct {
		Sub           string `json:"sub"`
		ID            any    `json:"id"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		EmailVerified *bool  `json:"email_verified"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBytes)).Decode(&info); err != nil {
		return nil, fmt.Errorf("oauth userinfo: %w", err)
	}

	profile := &OAuthProfile{
		Subject:       info.Sub,
		Email:         strings.ToLower(strings.TrimSpace(info.Email)),
		Name:          strings.TrimSpace(info.Name),
		EmailVerified: info.EmailVerified,
	}
	if profile.Subject == "" && info.ID != nil {
		profile.Subject = fmt.Sprint(info.ID)
	}

	if profile.Email == "" {
		return nil, fmt.Errorf("%w: no email", ErrOAuthProfile)
	}
	if profile.EmailVerified != nil && !*profile.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", ErrOAuthProfile)
	}

	return profile, nil
}
