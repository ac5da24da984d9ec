package cache

import (
	"context"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	// SetIfAbsent stores val only when key is unset and reports whether it did.
	SetIfAbsent(ctx context.Context, key string, val string, ttl time.Duration) (bool, error)
	GetString(ctx context.Context, key string) (val string, hit bool, err error)
	Del(ctx context.Context, keys ...string) error
}

// Nop never hits and always accepts writes. Used when Redis is not configured.
type Nop struct{}

func (Nop) GetJSON(context.Context, string, any) (bool, error)        { return false, nil }
func (Nop) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (Nop) SetIfAbsent(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}
func (Nop) GetString(context.Context, string) (string, bool, error) { return "", false, nil }
func (Nop) Del(context.Context, ...string) error                    { return nil }
