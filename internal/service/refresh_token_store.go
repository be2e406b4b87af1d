package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const refreshKeyPrefix = "refresh_token_"

// deleteIfMatchScript removes the record only while it still holds the
// expected hash, so two concurrent rotations for the same supplier cannot
// both consume the same refresh token.
var deleteIfMatchScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RefreshTokenStore keeps at most one live refresh record per supplier:
// supplier id -> sha256 hex of the currently valid refresh token, expiring
// together with the token itself.
type RefreshTokenStore struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRefreshTokenStore(client *redis.Client, logger *logrus.Logger) *RefreshTokenStore {
	return &RefreshTokenStore{
		client: client,
		logger: logger,
	}
}

func refreshKey(supplierID int64) string {
	return fmt.Sprintf("%s%d", refreshKeyPrefix, supplierID)
}

// Put overwrites any existing record for the supplier.
func (s *RefreshTokenStore) Put(ctx context.Context, supplierID int64, hash string, ttl time.Duration) error {
	if err := s.client.Set(ctx, refreshKey(supplierID), hash, ttl).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to store refresh record")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RefreshTokenStore) Get(ctx context.Context, supplierID int64) (string, error) {
	hash, err := s.client.Get(ctx, refreshKey(supplierID)).Result()
	if err == redis.Nil {
		return "", ErrRefreshRecordNotFound
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to get refresh record")
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return hash, nil
}

// Delete is idempotent; deleting an absent record is not an error.
func (s *RefreshTokenStore) Delete(ctx context.Context, supplierID int64) error {
	if err := s.client.Del(ctx, refreshKey(supplierID)).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to delete refresh record")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteIfMatch atomically removes the record if it still holds hash.
// Returns false when the record is absent or holds a different hash.
func (s *RefreshTokenStore) DeleteIfMatch(ctx context.Context, supplierID int64, hash string) (bool, error) {
	deleted, err := deleteIfMatchScript.Run(ctx, s.client, []string{refreshKey(supplierID)}, hash).Int64()
	if err != nil {
		s.logger.WithError(err).Error("Failed to compare-and-delete refresh record")
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return deleted == 1, nil
}

// Clear removes every refresh record. Keys are namespaced so nothing else
// sharing the database is touched.
func (s *RefreshTokenStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, refreshKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.WithError(err).Error("Failed to delete refresh record during clear")
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.WithError(err).Error("Failed to scan refresh records")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
