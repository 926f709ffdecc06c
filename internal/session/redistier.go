package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"retensync.io/internal/rbac"
)

const redisRecordTTL = 7 * 24 * time.Hour

// RedisTier is the durable tier: the record survives process restarts
// for up to the record TTL.
type RedisTier struct {
	client *redis.Client
	key    string
}

func NewRedisTier(client *redis.Client, key string) *RedisTier {
	if key == "" {
		key = "retensync:session"
	}
	return &RedisTier{client: client, key: key}
}

func (t *RedisTier) Name() string { return "redis" }

func (t *RedisTier) Read(ctx context.Context) (Record, error) {
	fields, err := t.client.HGetAll(ctx, t.key).Result()
	if err != nil {
		return Record{}, err
	}
	if len(fields) == 0 {
		return Record{}, ErrNoRecord
	}
	rec := Record{
		Token:  fields["token"],
		UserID: fields["user_id"],
		Email:  fields["email"],
	}
	if role, ok := rbac.Parse(fields["role"]); ok {
		rec.Role = role
	}
	if raw := fields["expires_at"]; raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			rec.ExpiresAt = ts
		}
	}
	return rec, nil
}

func (t *RedisTier) Write(ctx context.Context, rec Record) error {
	fields := map[string]any{
		"token":   rec.Token,
		"role":    string(rec.Role),
		"user_id": rec.UserID,
		"email":   rec.Email,
	}
	if !rec.ExpiresAt.IsZero() {
		fields["expires_at"] = rec.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	pipe := t.client.TxPipeline()
	pipe.Del(ctx, t.key)
	pipe.HSet(ctx, t.key, fields)
	pipe.Expire(ctx, t.key, redisRecordTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (t *RedisTier) Clear(ctx context.Context) error {
	return t.client.Del(ctx, t.key).Err()
}
