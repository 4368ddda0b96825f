package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// LocationCache serves the read-only location projection from Redis with a
// bounded freshness window. A stale entry is still served, with a refresh
// kicked off in the background so reads never block on the Business Profile
// API once the projection exists.
type LocationCache struct {
	gateway BusinessProfileGateway
	rdb     redis.UniversalClient
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewLocationCache creates a LocationCache with the given freshness window.
func NewLocationCache(gateway BusinessProfileGateway, rdb redis.UniversalClient, ttl time.Duration, logger zerolog.Logger) *LocationCache {
	return &LocationCache{
		gateway: gateway,
		rdb:     rdb,
		ttl:     ttl,
		logger:  logger.With().Str("service", "LocationCache").Logger(),
	}
}

func locationKey(accountID string) string {
	return fmt.Sprintf("locations:{%s}", accountID)
}

// Locations implements LocationDirectory.
func (c *LocationCache) Locations(ctx context.Context, accountID, accessToken string) ([]model.Location, error) {
	cached, err := c.rdb.Get(ctx, locationKey(accountID)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Str("account_id", accountID).Msg("Location cache read failed, falling back to gateway")
	}
	if err == nil {
		var proj model.LocationProjection
		if jsonErr := json.Unmarshal(cached, &proj); jsonErr == nil {
			if time.Since(proj.FetchedAt) > c.ttl {
				// Serve stale, refresh off the request path.
				go c.refresh(accountID, accessToken)
			}
			return proj.Locations, nil
		}
	}
	return c.fetchAndStore(ctx, accountID, accessToken)
}

// Invalidate drops the cached projection for an account.
func (c *LocationCache) Invalidate(ctx context.Context, accountID string) error {
	return c.rdb.Del(ctx, locationKey(accountID)).Err()
}

func (c *LocationCache) refresh(accountID, accessToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := c.fetchAndStore(ctx, accountID, accessToken); err != nil {
		c.logger.Warn().Err(err).Str("account_id", accountID).Msg("Background location refresh failed")
	}
}

func (c *LocationCache) fetchAndStore(ctx context.Context, accountID, accessToken string) ([]model.Location, error) {
	locations, err := c.gateway.Locations(ctx, accountID, accessToken)
	if err != nil {
		return nil, err
	}
	proj := model.LocationProjection{
		AccountID: accountID,
		Locations: locations,
		FetchedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(proj)
	if err != nil {
		return locations, nil
	}
	// Keys outlive the freshness window so stale entries can still be
	// served while a refresh runs.
	if err := c.rdb.Set(ctx, locationKey(accountID), payload, 3*c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("account_id", accountID).Msg("Location cache write failed")
	}
	return locations, nil
}
