package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/homedispo/crm-bridge/internal/entity"
	"github.com/homedispo/crm-bridge/internal/infra/integration/ghl"
	"go.uber.org/zap"
)

// TokenManager owns the OAuth state of every connected location and hands
// out access tokens that are valid right now.
//
// Concurrent calls for the same location are not coordinated: two callers
// may both refresh, and the last upsert wins.
//
// A location whose refresh failed is remembered until new tokens are saved
// for it. The operator is mailed at most once per RelinkCooldown for it.
type TokenManager struct {
	Store          ConnectionStore
	Cipher         TokenCipher
	OAuth          OAuthProvider
	Locations      LocationNamer
	Notifier       RelinkNotifier
	Metrics        Recorder
	Logger         *zap.Logger
	Now            func() time.Time
	RelinkCooldown time.Duration

	mu       sync.Mutex
	notified map[string]time.Time
}

const defaultRelinkCooldown = 24 * time.Hour

func NewTokenManager(store ConnectionStore, cipher TokenCipher, oauth OAuthProvider, logger *zap.Logger) *TokenManager {
	return &TokenManager{
		Store:          store,
		Cipher:         cipher,
		OAuth:          oauth,
		Metrics:        nopRecorder{},
		Logger:         logger.Named("tokens"),
		Now:            time.Now,
		RelinkCooldown: defaultRelinkCooldown,
	}
}

type AuthorizationResult struct {
	LocationID   string `json:"location_id"`
	LocationName string `json:"location_name"`
	ExpiresAt    int64  `json:"expires_at"`
}

// GetValidToken returns the stored access token while it is valid and
// refreshes it (one provider call, one write) once it has expired.
func (m *TokenManager) GetValidToken(ctx context.Context, locationID string) (string, error) {
	if strings.TrimSpace(locationID) == "" {
		return "", &entity.ValidationError{Field: "location_id", Message: "is required"}
	}

	conn, err := m.Store.Get(ctx, locationID)
	if err != nil {
		return "", err
	}

	now := m.Now()
	if !conn.Expired(now) {
		token, err := m.Cipher.Decrypt(conn.AccessToken)
		if err != nil {
			return "", fmt.Errorf("decrypt access token for %s: %w", locationID, err)
		}
		return token, nil
	}

	m.Logger.Info("access token expired, refreshing",
		zap.String("location_id", locationID),
		zap.Int64("expired_at", conn.ExpiresAt))
	return m.refresh(ctx, conn)
}

func (m *TokenManager) refresh(ctx context.Context, conn *entity.Connection) (string, error) {
	refreshToken, err := m.Cipher.Decrypt(conn.RefreshToken)
	if err != nil {
		return "", m.refreshFailed(ctx, conn.LocationID, "stored refresh token could not be decrypted", err)
	}

	grant, err := m.OAuth.Refresh(ctx, refreshToken)
	if err != nil {
		return "", m.refreshFailed(ctx, conn.LocationID, grantDetail(err), err)
	}

	if grant.RefreshToken == "" {
		grant.RefreshToken = refreshToken
	}
	if err := m.save(ctx, conn.LocationID, grant.AccessToken, grant.RefreshToken, grant.ExpiresIn, ""); err != nil {
		m.Metrics.TokenRefresh("store_error")
		return "", err
	}

	m.Metrics.TokenRefresh("success")
	m.Logger.Info("access token refreshed", zap.String("location_id", conn.LocationID))
	return grant.AccessToken, nil
}

func (m *TokenManager) refreshFailed(ctx context.Context, locationID, detail string, cause error) error {
	m.Metrics.TokenRefresh("failure")
	m.Logger.Warn("token refresh failed",
		zap.String("location_id", locationID),
		zap.String("detail", detail))

	if due := m.markRelink(locationID); due && m.Notifier != nil {
		if err := m.Notifier.NotifyRelink(ctx, locationID, detail); err != nil {
			m.Logger.Error("relink notification failed", zap.String("location_id", locationID), zap.Error(err))
		}
	}
	return &entity.TokenRefreshError{LocationID: locationID, Detail: detail, Err: cause}
}

// markRelink flags the location and reports whether a notification is due.
func (m *TokenManager) markRelink(locationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.notified == nil {
		m.notified = make(map[string]time.Time)
	}
	now := m.Now()
	if last, ok := m.notified[locationID]; ok && now.Sub(last) < m.RelinkCooldown {
		return false
	}
	m.notified[locationID] = now
	return true
}

// NeedsRelink reports whether the last refresh for the location failed and
// no new tokens have been saved since.
func (m *TokenManager) NeedsRelink(locationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.notified[locationID]
	return ok
}

func (m *TokenManager) clearRelink(locationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notified, locationID)
}

// UpsertConnection stores fresh tokens for a location, creating the
// connection on first use.
func (m *TokenManager) UpsertConnection(ctx context.Context, locationID, accessToken, refreshToken string, expiresIn int64) error {
	return m.save(ctx, locationID, accessToken, refreshToken, expiresIn, "")
}

func (m *TokenManager) save(ctx context.Context, locationID, accessToken, refreshToken string, expiresIn int64, name string) error {
	encAccess, err := m.Cipher.Encrypt(accessToken)
	if err != nil {
		return err
	}
	encRefresh, err := m.Cipher.Encrypt(refreshToken)
	if err != nil {
		return err
	}

	conn := entity.NewConnection(locationID, encAccess, encRefresh, expiresIn, m.Now())
	conn.LocationName = name
	if err := m.Store.Upsert(ctx, conn); err != nil {
		return err
	}
	m.clearRelink(locationID)
	return nil
}

// ConnectURL is where a tenant admin goes to authorize this app.
func (m *TokenManager) ConnectURL(state string) string {
	return m.OAuth.AuthorizeURL(state)
}

// CompleteAuthorization finishes the OAuth handshake for the code the
// provider redirected back with.
func (m *TokenManager) CompleteAuthorization(ctx context.Context, code string) (*AuthorizationResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, &entity.ValidationError{Field: "code", Message: "is required"}
	}

	grant, err := m.OAuth.Exchange(ctx, code)
	if err != nil {
		m.Logger.Warn("code exchange failed", zap.Error(err))
		return nil, &entity.AuthorizationError{Detail: grantDetail(err), Err: err}
	}
	if grant.LocationID == "" {
		return nil, &entity.AuthorizationError{Detail: "token response carried no locationId"}
	}

	var name string
	if m.Locations != nil {
		name, err = m.Locations.LocationName(ctx, grant.AccessToken, grant.LocationID)
		if err != nil {
			m.Logger.Warn("location lookup failed", zap.String("location_id", grant.LocationID), zap.Error(err))
		}
	}

	if err := m.save(ctx, grant.LocationID, grant.AccessToken, grant.RefreshToken, grant.ExpiresIn, name); err != nil {
		return nil, err
	}

	m.Logger.Info("location connected", zap.String("location_id", grant.LocationID), zap.String("location_name", name))
	return &AuthorizationResult{
		LocationID:   grant.LocationID,
		LocationName: name,
		ExpiresAt:    m.Now().Unix() + grant.ExpiresIn,
	}, nil
}

func grantDetail(err error) string {
	var ge *ghl.GrantError
	if errors.As(err, &ge) && ge.Body != "" {
		return ge.Body
	}
	return err.Error()
}
