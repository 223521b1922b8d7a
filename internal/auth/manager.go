package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/videotube/backend/internal/models"
)

var (
	// ErrSessionExpired indicates the presented refresh token no longer matches
	// the one stored on the account, i.e. it was rotated or revoked.
	ErrSessionExpired = errors.New("session expired")
)

// UserSource resolves accounts and persists the single current refresh token
// per account. Overwriting that value is the revocation mechanism: there is
// no blacklist, any rotation or clear immediately invalidates every
// outstanding copy of the previous token.
type UserSource interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
}

// Manager orchestrates token pair issuance, refresh rotation, and revocation.
type Manager struct {
	issuer *TokenIssuer
	users  UserSource
}

// NewManager constructs a Manager on top of the token issuer and user store.
func NewManager(issuer *TokenIssuer, users UserSource) *Manager {
	if issuer == nil {
		panic("auth: token issuer must not be nil")
	}
	if users == nil {
		panic("auth: user source must not be nil")
	}
	return &Manager{issuer: issuer, users: users}
}

// Issue mints a fresh token pair for the user and persists the refresh token
// on the account, displacing any previously active session.
func (m *Manager) Issue(ctx context.Context, user models.User) (models.TokenPair, error) {
	access, accessExp, err := m.issuer.IssueAccess(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, refreshExp, err := m.issuer.IssueRefresh(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := m.users.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return models.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return models.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a presented refresh token for a new pair. The token must
// verify cryptographically AND equal the value currently stored on the
// account; a stale copy from before a rotation fails with ErrSessionExpired.
//
// Two concurrent refreshes with the same token can both pass the equality
// check before either write lands. Both succeed, the last write wins, and the
// loser's pair dies on its next refresh. Accepted race.
func (m *Manager) Refresh(ctx context.Context, presented string) (models.User, models.TokenPair, error) {
	if presented == "" {
		return models.User{}, models.TokenPair{}, ErrInvalidToken
	}

	claims, err := m.issuer.Verify(presented, KindRefresh)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	user, err := m.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return models.User{}, models.TokenPair{}, ErrInvalidToken
	}

	if user.RefreshToken == "" || user.RefreshToken != presented {
		return models.User{}, models.TokenPair{}, ErrSessionExpired
	}

	pair, err := m.Issue(ctx, user)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}
	return user, pair, nil
}

// Revoke clears the stored refresh token for the user, ending the active
// session. Revoking an account with no active session is a no-op.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	return m.users.SetRefreshToken(ctx, userID, "")
}

// VerifyAccess validates a stateless access token and returns its claims.
func (m *Manager) VerifyAccess(token string) (Claims, error) {
	return m.issuer.Verify(token, KindAccess)
}
