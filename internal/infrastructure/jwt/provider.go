package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/plateping/api/internal/config"
	"github.com/plateping/api/internal/domain"
)

// Claims is the session token payload. Subject always carries the internal
// user id; exactly one provider key field is set, matching the credential
// path used for this login.
type Claims struct {
	UserID      string `json:"user_id"`
	Phone       string `json:"phone,omitempty"`
	LineUserID  string `json:"line_user_id,omitempty"`
	AppleUserID string `json:"apple_user_id,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 session tokens.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiry     time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	expiry := time.Duration(cfg.JWTExpiryDays) * 24 * time.Hour
	return &Provider{privateKey: privKey, publicKey: pubKey, expiry: expiry}, nil
}

// NewProviderFromKeys builds a provider from in-memory keys. Used by tests.
func NewProviderFromKeys(priv *rsa.PrivateKey, expiry time.Duration) *Provider {
	return &Provider{privateKey: priv, publicKey: &priv.PublicKey, expiry: expiry}
}

// Sign mints a session token for user. The provider key claim is chosen from
// the identity that was verified for this login; plate logins carry the
// user's phone when one is attached.
func (p *Provider) Sign(user *domain.User, identity domain.ProviderIdentity) (string, error) {
	claims := Claims{
		UserID: user.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	switch id := identity.(type) {
	case domain.PhoneIdentity:
		claims.Phone = id.Phone
	case domain.PlateIdentity:
		if user.Phone != nil {
			claims.Phone = *user.Phone
		}
	case domain.LineIdentity:
		claims.LineUserID = id.LineUserID
	case domain.AppleIdentity:
		claims.AppleUserID = id.Subject
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
