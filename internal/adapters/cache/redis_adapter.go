package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/medtravel/directory/internal/domain/providers"
	redisclient "github.com/medtravel/directory/internal/infrastructure/clients/redis"
)

// compressAbove is the value size from which entries are stored gzipped.
// Directory snapshots are large, repetitive JSON and shrink several times over.
const compressAbove = 1024

// RedisAdapter is the shared L2 snapshot store. Large values are gzipped on
// write and transparently inflated on read.
type RedisAdapter struct {
	client *redis.Client
}

var _ providers.CacheProvider = (*RedisAdapter)(nil)

// NewRedisAdapter creates the shared snapshot store
func NewRedisAdapter(client *redisclient.Client) providers.CacheProvider {
	return newRedisAdapter(client.Client())
}

func newRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

// Get returns the stored value, or providers.ErrCacheMiss when absent
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	stored, err := a.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, providers.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	value, err := decodeValue(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to inflate %s: %w", key, err)
	}
	return value, nil
}

// Set stores value for expirationSeconds; zero or less keeps it until deleted
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	stored, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("failed to compress %s: %w", key, err)
	}

	var ttl time.Duration
	if expirationSeconds > 0 {
		ttl = time.Duration(expirationSeconds) * time.Second
	}
	if err := a.client.Set(ctx, key, stored, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	log.Debug().
		Str("key", key).
		Int("bytes", len(value)).
		Int("stored_bytes", len(stored)).
		Dur("ttl", ttl).
		Msg("Stored shared cache entry")
	return nil
}

// Delete removes key; a missing key is not an error
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present
func (a *RedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := a.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return n > 0, nil
}

// encodeValue gzips values above compressAbove. Snapshot JSON never starts
// with the gzip magic bytes, so small values are stored as they are.
func encodeValue(value []byte) ([]byte, error) {
	if len(value) < compressAbove {
		return value, nil
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(value); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeValue(stored []byte) ([]byte, error) {
	if len(stored) < 2 || stored[0] != 0x1f || stored[1] != 0x8b {
		return stored, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(stored))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
