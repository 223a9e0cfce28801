package line

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/plateping/api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		LineChannelID:         "channel-1",
		LineChannelSecret:     "secret-1",
		LineCallbackURL:       "https://app.example.com/line/callback",
		LineMobileCallbackURL: "https://app.example.com/line/mobile-callback",
	}
}

func TestNewClient_RequiresChannelConfig(t *testing.T) {
	cfg := testConfig()
	cfg.LineChannelSecret = ""
	_, err := NewClient(cfg)
	assert.Error(t, err)
}

func TestAuthorizeURL(t *testing.T) {
	c, err := NewClient(testConfig())
	require.NoError(t, err)

	raw := c.AuthorizeURL("xyz-state", false)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "channel-1", q.Get("client_id"))
	assert.Equal(t, "xyz-state", q.Get("state"))
	assert.Equal(t, "https://app.example.com/line/callback", q.Get("redirect_uri"))

	mobile := c.AuthorizeURL("xyz-state", true)
	assert.Contains(t, mobile, url.QueryEscape("mobile-callback"))
}

func TestExchangeCode(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","id_token":"idt-1","token_type":"Bearer","expires_in":2592000}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig())
	require.NoError(t, err)
	c.TokenURL = srv.URL

	tok, err := c.ExchangeCode(context.Background(), "auth-code", "")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "idt-1", tok.IDToken)

	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "auth-code", gotForm.Get("code"))
	assert.Equal(t, "channel-1", gotForm.Get("client_id"))
	assert.Equal(t, "secret-1", gotForm.Get("client_secret"))
	// Empty redirectURI falls back to the standard callback.
	assert.Equal(t, "https://app.example.com/line/callback", gotForm.Get("redirect_uri"))
}

func TestExchangeCode_ProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig())
	require.NoError(t, err)
	c.TokenURL = srv.URL

	_, err = c.ExchangeCode(context.Background(), "bad-code", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"userId":"U123","displayName":"Mei","pictureUrl":"https://cdn/p.jpg"}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig())
	require.NoError(t, err)
	c.ProfileURL = srv.URL

	p, err := c.FetchProfile(context.Background(), "at-1")
	require.NoError(t, err)
	assert.Equal(t, "U123", p.UserID)
	assert.Equal(t, "Mei", p.DisplayName)
	assert.Equal(t, "https://cdn/p.jpg", p.PictureURL)
}

func TestFetchProfile_EmptyUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig())
	require.NoError(t, err)
	c.ProfileURL = srv.URL

	_, err = c.FetchProfile(context.Background(), "at-1")
	assert.Error(t, err)
}

func TestFetchFriendshipStatus_DegradesToFalse(t *testing.T) {
	c, err := NewClient(testConfig())
	require.NoError(t, err)

	// Endpoint answering an error: degrade, don't fail the login.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	c.FriendshipURL = srv.URL
	assert.False(t, c.FetchFriendshipStatus(context.Background(), "at-1"))
	srv.Close()

	// Endpoint unreachable after Close: still false.
	assert.False(t, c.FetchFriendshipStatus(context.Background(), "at-1"))
}

func TestFetchFriendshipStatus_FriendFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"friendFlag":true}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig())
	require.NoError(t, err)
	c.FriendshipURL = srv.URL

	assert.True(t, c.FetchFriendshipStatus(context.Background(), "at-1"))
}

func TestExchangeCode_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not-json`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig())
	require.NoError(t, err)
	c.TokenURL = srv.URL

	_, err = c.ExchangeCode(context.Background(), "code", "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse token response"))
}
