// Package users resolves API keys into principal metadata
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"solace-api/internal/shared"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Manager struct {
	redis *redis.Client
	rdb   *sql.DB
	log   *zap.SugaredLogger
}

func NewManager(redisClient *redis.Client, rdb *sql.DB, log *zap.SugaredLogger) *Manager {
	return &Manager{redis: redisClient, rdb: rdb, log: log}
}

// GetUserMetadataFromKey treats the credential as opaque: any bearer key that
// resolves to a row yields a stable principal. Lookups go through a short-TTL
// redis cache before falling back to the read replica.
func (m *Manager) GetUserMetadataFromKey(ctx context.Context, apiKey string) (*shared.UserMetadata, error) {
	var userMetadata shared.UserMetadata
	userMetadata.APIKey = apiKey

	userInfoCacheKey := fmt.Sprintf("v1:user:apikey:%s", apiKey)
	userInfoCache, err := m.redis.Get(ctx, userInfoCacheKey).Result()
	switch err {
	case nil:
		err = json.Unmarshal([]byte(userInfoCache), &userMetadata)
		if err == nil {
			return &userMetadata, nil
		}
		m.log.Errorw("Error unmarshalling user info cache", "error", err)
		fallthrough
	default:
		m.log.Debugw("User cache miss", "key", userInfoCacheKey)

		err = m.rdb.QueryRowContext(ctx, `
		SELECT
		user.id,
		user.email,
		user.role,
		user.store_data
		FROM user
		INNER JOIN api_key ON user.id = api_key.user_id
		WHERE api_key.id = ? AND api_key.revoked = 0
		`, apiKey).Scan(
			&userMetadata.UserID,
			&userMetadata.Email,
			&userMetadata.Role,
			&userMetadata.StoreData,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				m.log.Warnw("Invalid or revoked API key")
				return nil, shared.ErrUnauthorized
			}
			m.log.Errorw("Database error during API key validation", "error", err)
			return nil, shared.ErrUnauthorized
		}
		go func() {
			userInfoCache, err := json.Marshal(userMetadata)
			if err != nil {
				m.log.Errorw("Error marshalling user info", "error", err)
				return
			}
			m.redis.Set(context.Background(), userInfoCacheKey, userInfoCache, shared.UserInfoCacheTTL)
		}()
		return &userMetadata, nil
	}
}
