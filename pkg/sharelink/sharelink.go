package sharelink

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid share token")
	ErrExpiredToken = errors.New("share token expired")
)

const issuer = "designer"

// Claims identifies the template version a share link previews
type Claims struct {
	TemplateID string `json:"template_id"`
	Version    int64  `json:"version"`
	jwt.RegisteredClaims
}

// Signer issues and parses HS256 share tokens
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a signer; an empty secret is rejected
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("share secret is required")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for templateID at version; version 0 means latest
func (s *Signer) Issue(templateID string, version int64) (string, time.Time, error) {
	if templateID == "" {
		return "", time.Time{}, errors.New("template id is required")
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		TemplateID: templateID,
		Version:    version,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign share token: %w", err)
	}
	return token, expires, nil
}

// Parse validates token and returns its claims
func (s *Signer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TemplateID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
