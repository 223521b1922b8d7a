package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/videotube/backend/internal/models"
)

// Token kinds. A refresh token presented where an access token is expected
// (or vice versa) is rejected as invalid.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var (
	// ErrInvalidToken indicates the token failed signature, shape, or kind checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates the token was well-formed but past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the JWT payload carried by both token kinds. Refresh tokens
// only populate the registered subject; access tokens also carry the
// username and email so request handling needs no extra lookup.
type Claims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Kind     string `json:"token_kind"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies the signed, time-bound credentials used by
// the session layer. Access tokens are stateless: verification is purely
// cryptographic plus expiry, no storage lookup involved.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer with the provided signing secrets and TTLs.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// IssueAccess signs a short-lived access token for the user.
func (t *TokenIssuer) IssueAccess(user models.User) (string, time.Time, error) {
	expires := t.now().Add(t.accessTTL)
	claims := Claims{
		Username: user.Username,
		Email:    user.Email,
		Kind:     KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(t.now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expires, nil
}

// IssueRefresh signs a long-lived refresh token for the user. It carries only
// the user id; everything else is re-read at refresh time. The jti makes
// every issued token distinct, otherwise two rotations within the same
// second would mint byte-identical tokens and rotation would be a no-op.
func (t *TokenIssuer) IssueRefresh(user models.User) (string, time.Time, error) {
	expires := t.now().Add(t.refreshTTL)
	claims := Claims{
		Kind: KindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(t.now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses the token against the secret for the expected kind and
// returns its claims. Low-level jwt errors are normalized to the package
// sentinels so callers never branch on library internals.
func (t *TokenIssuer) Verify(token, kind string) (Claims, error) {
	secret := t.accessSecret
	if kind == KindRefresh {
		secret = t.refreshSecret
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}

	if !parsed.Valid || claims.Kind != kind || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
