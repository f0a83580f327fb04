package cache

import (
	"context"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// TaskStatusKey is where the last upstream poll answer for a task lives.
func TaskStatusKey(taskID string) string { return "status:" + taskID }
