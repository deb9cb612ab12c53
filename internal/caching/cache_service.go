package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "schoolhub"

type CacheService interface {
	// School lookup by subdomain, used by tenant resolution
	GetSchool(ctx context.Context, subdomain string) (*models.School, error)
	SetSchool(ctx context.Context, school *models.School, ttl time.Duration) error
	DeleteSchool(ctx context.Context, subdomain string) error

	// AI fee analytics result per school
	GetFeeAnalytics(ctx context.Context, schoolID uuid.UUID) (json.RawMessage, error)
	SetFeeAnalytics(ctx context.Context, schoolID uuid.UUID, result json.RawMessage, ttl time.Duration) error
	InvalidateFeeAnalytics(ctx context.Context, schoolID uuid.UUID) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisClient builds a client for addr, accepting an optional redis:// or
// rediss:// scheme. A failed ping is logged, not fatal.
func NewRedisClient(addr, password string, db int, log logrus.FieldLogger) *redis.Client {
	parsedAddr := addr
	for _, scheme := range []string{"redis://", "rediss://"} {
		parsedAddr = strings.TrimPrefix(parsedAddr, scheme)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.WithError(err).WithField("addr", parsedAddr).Warn("redis ping failed")
	} else {
		log.WithField("addr", parsedAddr).Debug("redis connected")
	}
	return client
}

func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func schoolKey(subdomain string) string {
	return fmt.Sprintf("%s:school:%s", keyPrefix, strings.ToLower(subdomain))
}

func feeAnalyticsKey(schoolID uuid.UUID) string {
	return fmt.Sprintf("%s:fee_analytics:%s", keyPrefix, schoolID.String())
}

func (r *redisCacheService) GetSchool(ctx context.Context, subdomain string) (*models.School, error) {
	data, err := r.client.Get(ctx, schoolKey(subdomain)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var school models.School
	if err := json.Unmarshal(data, &school); err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *redisCacheService) SetSchool(ctx context.Context, school *models.School, ttl time.Duration) error {
	data, err := json.Marshal(school)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, schoolKey(school.Subdomain), data, ttl).Err()
}

func (r *redisCacheService) DeleteSchool(ctx context.Context, subdomain string) error {
	return r.client.Del(ctx, schoolKey(subdomain)).Err()
}

func (r *redisCacheService) GetFeeAnalytics(ctx context.Context, schoolID uuid.UUID) (json.RawMessage, error) {
	data, err := r.client.Get(ctx, feeAnalyticsKey(schoolID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}
	return json.RawMessage(data), nil
}

func (r *redisCacheService) SetFeeAnalytics(ctx context.Context, schoolID uuid.UUID, result json.RawMessage, ttl time.Duration) error {
	return r.client.Set(ctx, feeAnalyticsKey(schoolID), []byte(result), ttl).Err()
}

func (r *redisCacheService) InvalidateFeeAnalytics(ctx context.Context, schoolID uuid.UUID) error {
	return r.client.Del(ctx, feeAnalyticsKey(schoolID)).Err()
}

// IsRateLimited counts a hit against key in a fixed window starting at the
// first hit, and reports whether the count is past limit.
func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("%s:ratelimit:%s", keyPrefix, key)
	// EXPIRE NX in the same transaction leaves no counter without a TTL,
	// including one left behind by an older failed write.
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, cacheKey)
		pipe.ExpireNX(ctx, cacheKey, window)
		return nil
	})
	if err != nil {
		return true, err
	}
	count := incr.Val()

	return count > int64(limit), nil
}
