package security

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptyKey is returned by NewTokenService when no signing key is given.
var ErrEmptyKey = errors.New("token signing key is empty")

// Claims is the payload carried by a session token.
type Claims struct {
	AdminID   int64            `json:"admin_id"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	Username  string           `json:"username"`
}

// TokenService issues and verifies stateless admin session tokens. A token
// is base64url(payload) + "." + base64url(HMAC-SHA256(payload)). The payload
// is JSON with fields in a fixed order, so signing is reproducible.
type TokenService struct {
	key []byte
	now func() time.Time
}

// NewTokenService returns a TokenService that signs with key. The key is
// copied and never changes for the life of the service.
func NewTokenService(key []byte) (*TokenService, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	return &TokenService{
		key: bytes.Clone(key),
		now: time.Now,
	}, nil
}

// IssueToken builds and signs a token for the given admin, valid for ttl.
func (s *TokenService) IssueToken(adminID int64, username string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		AdminID:   adminID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Username:  username,
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	payloadSeg := base64.RawURLEncoding.EncodeToString(payload)

	sig, err := jwt.SigningMethodHS256.Sign(payloadSeg, s.key)
	if err != nil {
		return "", err
	}
	return payloadSeg + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// VerifyToken checks the signature and expiry of token and returns its
// claims. Every failure yields (nil, false) with no further detail.
func (s *TokenService) VerifyToken(token string) (*Claims, bool) {
	payloadSeg, sigSeg, ok := strings.Cut(token, ".")
	if !ok || payloadSeg == "" || sigSeg == "" || strings.Contains(sigSeg, ".") {
		return nil, false
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigSeg)
	if err != nil {
		return nil, false
	}
	if err := jwt.SigningMethodHS256.Verify(payloadSeg, sig, s.key); err != nil {
		return nil, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadSeg)
	if err != nil {
		return nil, false
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, false
	}
	if claims.ExpiresAt == nil || claims.AdminID == 0 {
		return nil, false
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return nil, false
	}
	return &claims, true
}
