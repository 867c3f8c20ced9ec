package calib

import (
	"context"
	"errors"
	"fmt"

	"github.com/emacontrol/go-ema/geometry"
	"github.com/emacontrol/go-ema/logger"
	backend "github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding the positions section.
const DefaultRedisKey = "ema:calibration:" + Section

// RedisStore keeps calibration positions in a Redis hash, so that several control hosts of a
// beamline share one calibration. Values use the same "x,y,z" format as the INI file.
type RedisStore struct {
	client *backend.Client
	key    string
	logger logger.Logger
}

var _ Store = (*RedisStore)(nil)

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisKey sets the hash key.
func WithRedisKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithRedisLogger sets the logger of the store.
func WithRedisLogger(l logger.Logger) RedisOption {
	return func(s *RedisStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewRedisStore connects to the Redis server at address.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient creates a store from an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		key:    DefaultRedisKey,
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Key returns the hash key.
func (s *RedisStore) Key() string { return s.key }

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Position(ctx context.Context, name string) (geometry.Position, error) {
	v, err := s.client.HGet(ctx, s.key, name).Result()
	if errors.Is(err, backend.Nil) {
		return geometry.Position{}, missing(name)
	}
	if err != nil {
		return geometry.Position{}, fmt.Errorf("calib: read %s from %s: %w", name, s.key, err)
	}

	return ParsePosition(v)
}

func (s *RedisStore) SetPosition(ctx context.Context, name string, p geometry.Position) error {
	if err := s.client.HSet(ctx, s.key, name, FormatPosition(p)).Err(); err != nil {
		return fmt.Errorf("calib: write %s to %s: %w", name, s.key, err)
	}

	s.logger.Info("calibration position stored", "redis_key", s.key, "name", name, "position", p.String())

	return nil
}

func (s *RedisStore) Positions(ctx context.Context) (map[string]geometry.Position, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("calib: read %s: %w", s.key, err)
	}

	out := make(map[string]geometry.Position, len(values))
	for name, v := range values {
		p, err := ParsePosition(v)
		if err != nil {
			return nil, fmt.Errorf("calib: key %q: %w", name, err)
		}
		out[name] = p
	}

	return out, nil
}
