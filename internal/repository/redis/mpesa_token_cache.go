package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const mpesaTokenKey = "mpesa:access_token"

// MpesaTokenCache shares the Daraja access token between API instances.
type MpesaTokenCache struct {
	client *redis.Client
}

func NewMpesaTokenCache(client *redis.Client) *MpesaTokenCache {
	return &MpesaTokenCache{
		client: client,
	}
}

// GetAccessToken returns "" without error when no token is cached.
func (c *MpesaTokenCache) GetAccessToken(ctx context.Context) (string, error) {
	token, err := c.client.Get(ctx, mpesaTokenKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read cached access token: %w", err)
	}

	return token, nil
}

func (c *MpesaTokenCache) SetAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	if err := c.client.Set(ctx, mpesaTokenKey, token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache access token: %w", err)
	}

	return nil
}
