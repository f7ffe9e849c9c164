package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"beverageHub/domain"

	"github.com/redis/go-redis/v9"
)

type TokenRepository struct {
	client *redis.Client
}

func NewTokenRepository(client *redis.Client) *TokenRepository {
	return &TokenRepository{
		client: client,
	}
}

var errTokenNotFound = domain.NewError(domain.ErrUnauthorized, "Token is invalid or has been revoked")

func sessionKey(userID string) string {
	return fmt.Sprintf("token:user:%s", userID)
}

func lookupKey(token string) string {
	return fmt.Sprintf("token:lookup:%s", token)
}

// StoreToken records the session and a reverse lookup token -> user id.
func (r *TokenRepository) StoreToken(ctx context.Context, session domain.Session, ttl time.Duration) error {
	jsonData, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.UserID), jsonData, ttl)
		pipe.Set(ctx, lookupKey(session.Token), session.UserID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session in Redis: %w", err)
	}

	return nil
}

// GetSession returns the latest session issued to userID.
func (r *TokenRepository) GetSession(ctx context.Context, userID string) (domain.Session, error) {
	val, err := r.client.Get(ctx, sessionKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Session{}, errTokenNotFound
		}
		return domain.Session{}, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return domain.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return session, nil
}

// ValidateToken returns the user id a live token belongs to.
func (r *TokenRepository) ValidateToken(ctx context.Context, token string) (string, error) {
	userID, err := r.client.Get(ctx, lookupKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errTokenNotFound
		}
		return "", fmt.Errorf("failed to validate token: %w", err)
	}

	return userID, nil
}

// RevokeToken removes the token lookup, and the session record when it still
// points at this token.
func (r *TokenRepository) RevokeToken(ctx context.Context, userID, token string) error {
	if err := r.client.Del(ctx, lookupKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	session, err := r.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil
		}
		return err
	}

	if session.Token == token {
		if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}

	return nil
}
