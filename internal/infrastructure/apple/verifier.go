package apple

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/plateping/api/internal/config"
	"github.com/plateping/api/internal/domain"
)

const (
	issuer         = "https://appleid.apple.com"
	defaultJWKSURL = issuer + "/auth/keys"
	keyCacheTTL    = 24 * time.Hour
)

// Payload holds the verified claims extracted from an Apple identity token.
type Payload struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// Verifier verifies Sign in with Apple identity tokens against Apple's
// rotating JWKS keys for one client id. Keys are cached; an unknown kid
// triggers exactly one forced refresh before the token is rejected.
type Verifier struct {
	clientID string

	// JWKSURL is overridable for tests.
	JWKSURL    string
	httpClient *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewVerifier(cfg *config.Config) (*Verifier, error) {
	if cfg.AppleClientID == "" {
		return nil, fmt.Errorf("apple client id is required: %w", domain.ErrBadRequest)
	}
	return &Verifier{
		clientID:   cfg.AppleClientID,
		JWKSURL:    defaultJWKSURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type appleClaims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"` // Apple sends bool or "true"/"false"
	jwt.RegisteredClaims
}

// Verify checks the token's signature, issuer, audience and expiry. The
// algorithm is pinned to RS256 before the signature is ever inspected; an
// attacker-chosen alg header is never honored. Any failure collapses to
// domain.ErrInvalidToken.
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (*Payload, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &appleClaims{}, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("missing kid header")
		}
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify apple identity token: %v: %w", err, domain.ErrInvalidToken)
	}
	claims, ok := token.Claims.(*appleClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid apple token claims: %w", domain.ErrInvalidToken)
	}
	return &Payload{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: truthy(claims.EmailVerified),
	}, nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x == "true"
	default:
		return false
	}
}

// key returns the cached public key for kid, refreshing the JWKS once when
// the kid is unknown or the cache is stale.
func (v *Verifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if k, ok := v.keys[kid]; ok && time.Since(v.fetchedAt) < keyCacheTTL {
		return k, nil
	}
	if err := v.refreshLocked(ctx); err != nil {
		return nil, err
	}
	k, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no apple public key for kid %q", kid)
	}
	return k, nil
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (v *Verifier) refreshLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.JWKSURL, nil)
	if err != nil {
		return fmt.Errorf("create jwks request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read jwks response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch failed with status %d", resp.StatusCode)
	}

	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.Unmarshal(body, &set); err != nil {
		return fmt.Errorf("parse jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			return fmt.Errorf("parse jwk %q: %w", k.Kid, err)
		}
		keys[k.Kid] = pub
	}
	v.keys = keys
	v.fetchedAt = time.Now()
	return nil
}

func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e == 0 {
		return nil, fmt.Errorf("zero exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
