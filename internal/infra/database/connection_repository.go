package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/homedispo/crm-bridge/internal/entity"
)

// ConnectionRepository is the Postgres backend for connection storage.
type ConnectionRepository struct {
	DB *sql.DB
}

func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{DB: db}
}

func (r *ConnectionRepository) Get(ctx context.Context, locationID string) (*entity.Connection, error) {
	query := `
		SELECT location_id, access_token, refresh_token, expires_at, COALESCE(location_name, ''), updated_at
		FROM connections
		WHERE location_id = $1
	`

	var c entity.Connection
	err := r.DB.QueryRowContext(ctx, query, locationID).Scan(
		&c.LocationID,
		&c.AccessToken,
		&c.RefreshToken,
		&c.ExpiresAt,
		&c.LocationName,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entity.NotFoundError{Resource: "connection", Key: locationID}
	}
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w", locationID, err)
	}
	return &c, nil
}

// Upsert is a single INSERT ... ON CONFLICT statement. A blank location
// name keeps the stored one.
func (r *ConnectionRepository) Upsert(ctx context.Context, c *entity.Connection) error {
	query := `
		INSERT INTO connections (location_id, access_token, refresh_token, expires_at, location_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (location_id)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			location_name = COALESCE(EXCLUDED.location_name, connections.location_name),
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.DB.ExecContext(ctx, query,
		c.LocationID,
		c.AccessToken,
		c.RefreshToken,
		c.ExpiresAt,
		nullString(c.LocationName),
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert connection %s: %w", c.LocationID, err)
	}
	return nil
}

// ListExpired returns the locations whose token expired before the given
// unix second.
func (r *ConnectionRepository) ListExpired(ctx context.Context, before int64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT location_id FROM connections WHERE expires_at < $1 ORDER BY expires_at`, before)
	if err != nil {
		return nil, fmt.Errorf("list expired connections: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired connection: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
