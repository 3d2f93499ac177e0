package entity

import "time"

// Connection is the OAuth token state of one CRM location (tenant).
// AccessToken and RefreshToken hold whatever the store holds, which is
// ciphertext when encryption at rest is enabled.
type Connection struct {
	LocationID   string    `json:"location_id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    int64     `json:"expires_at"` // unix seconds, UTC
	LocationName string    `json:"location_name,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired reports whether the access token can no longer be used at now.
// The expiry second itself still counts as valid.
func (c *Connection) Expired(now time.Time) bool {
	return now.Unix() > c.ExpiresAt
}

// NewConnection builds the connection state for a freshly issued token.
func NewConnection(locationID, accessToken, refreshToken string, expiresIn int64, now time.Time) *Connection {
	return &Connection{
		LocationID:   locationID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Unix() + expiresIn,
		UpdatedAt:    now.UTC(),
	}
}
