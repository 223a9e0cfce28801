package line

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/plateping/api/internal/config"
	"github.com/plateping/api/internal/domain"
)

const (
	defaultAuthURL       = "https://access.line.me/oauth2/v2.1/authorize"
	defaultTokenURL      = "https://api.line.me/oauth2/v2.1/token"
	defaultProfileURL    = "https://api.line.me/v2/profile"
	defaultFriendshipURL = "https://api.line.me/friendship/v1/status"
)

// Token is the response of LINE's token endpoint.
type Token struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Profile holds the fields fetched from LINE's profile endpoint.
type Profile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl"`
}

// Client talks to the LINE login platform for one messaging channel.
type Client struct {
	channelID         string
	channelSecret     string
	callbackURL       string
	mobileCallbackURL string

	// Endpoint URLs are overridable for tests.
	AuthURL       string
	TokenURL      string
	ProfileURL    string
	FriendshipURL string

	httpClient *http.Client
}

// NewClient validates the channel configuration up front: a missing channel
// id, secret or callback URL fails construction, not the first request.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.LineChannelID == "" || cfg.LineChannelSecret == "" || cfg.LineCallbackURL == "" {
		return nil, fmt.Errorf("LINE channel id, secret and callback URL are required: %w", domain.ErrBadRequest)
	}
	return &Client{
		channelID:         cfg.LineChannelID,
		channelSecret:     cfg.LineChannelSecret,
		callbackURL:       cfg.LineCallbackURL,
		mobileCallbackURL: cfg.LineMobileCallbackURL,
		AuthURL:           defaultAuthURL,
		TokenURL:          defaultTokenURL,
		ProfileURL:        defaultProfileURL,
		FriendshipURL:     defaultFriendshipURL,
		httpClient:        &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// CallbackURL returns the redirect URI registered for the standard or the
// mobile deep-link flow.
func (c *Client) CallbackURL(mobile bool) string {
	if mobile && c.mobileCallbackURL != "" {
		return c.mobileCallbackURL
	}
	return c.callbackURL
}

// AuthorizeURL builds the provider authorize URL. state is caller-supplied
// CSRF opacity; it is embedded verbatim and verified by the caller on
// round-trip, not stored server-side.
func (c *Client) AuthorizeURL(state string, mobile bool) string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {c.channelID},
		"redirect_uri":  {c.CallbackURL(mobile)},
		"state":         {state},
		"scope":         {"profile openid"},
	}
	return c.AuthURL + "?" + params.Encode()
}

// ExchangeCode swaps an authorization code for tokens. redirectURI must match
// the one used to obtain the code; empty means the standard callback.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*Token, error) {
	if redirectURI == "" {
		redirectURI = c.callbackURL
	}
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"client_id":     {c.channelID},
		"client_secret": {c.channelSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}
	return &tok, nil
}

// FetchProfile fetches the LINE profile for accessToken.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	body, err := c.getJSON(ctx, c.ProfileURL, accessToken)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parse profile response: %w", err)
	}
	if p.UserID == "" {
		return nil, fmt.Errorf("empty userId in profile response")
	}
	return &p, nil
}

// FetchFriendshipStatus reports whether the user has friended the channel's
// official account. Friendship is informational, never a login gate: any
// failure degrades to false.
func (c *Client) FetchFriendshipStatus(ctx context.Context, accessToken string) bool {
	body, err := c.getJSON(ctx, c.FriendshipURL, accessToken)
	if err != nil {
		slog.Warn("LINE friendship lookup failed", "err", err)
		return false
	}
	var out struct {
		FriendFlag bool `json:"friendFlag"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		slog.Warn("LINE friendship response malformed", "err", err)
		return false
	}
	return out.FriendFlag
}

func (c *Client) getJSON(ctx context.Context, endpoint, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
