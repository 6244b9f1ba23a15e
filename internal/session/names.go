package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const savedNameKeyPrefix = "reservas:saved_name:"

// ErrNoDevice is returned when a name is read or written without a device id.
var ErrNoDevice = errors.New("session: device id is required")

// NameStore persists the saved user name per device.
type NameStore interface {
	GetName(ctx context.Context, deviceID string) (string, error)
	SetName(ctx context.Context, deviceID, name string) error
}

// MemoryNameStore keeps saved names for the process lifetime.
type MemoryNameStore struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewMemoryNameStore creates an empty in-memory store.
func NewMemoryNameStore() *MemoryNameStore {
	return &MemoryNameStore{names: make(map[string]string)}
}

func (s *MemoryNameStore) GetName(_ context.Context, deviceID string) (string, error) {
	if strings.TrimSpace(deviceID) == "" {
		return "", ErrNoDevice
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names[deviceID], nil
}

func (s *MemoryNameStore) SetName(_ context.Context, deviceID, name string) error {
	if strings.TrimSpace(deviceID) == "" {
		return ErrNoDevice
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[deviceID] = name
	return nil
}

// RedisNameStore persists saved names in Redis so they survive reconnects
// and restarts. A zero ttl keeps names forever.
type RedisNameStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisNameStore creates a Redis-backed store.
func NewRedisNameStore(client *redis.Client, ttl time.Duration) *RedisNameStore {
	return &RedisNameStore{client: client, ttl: ttl}
}

func (s *RedisNameStore) key(deviceID string) string {
	return savedNameKeyPrefix + deviceID
}

func (s *RedisNameStore) GetName(ctx context.Context, deviceID string) (string, error) {
	if strings.TrimSpace(deviceID) == "" {
		return "", ErrNoDevice
	}
	name, err := s.client.Get(ctx, s.key(deviceID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("saved name: get: %w", err)
	}
	return name, nil
}

func (s *RedisNameStore) SetName(ctx context.Context, deviceID, name string) error {
	if strings.TrimSpace(deviceID) == "" {
		return ErrNoDevice
	}
	if err := s.client.Set(ctx, s.key(deviceID), name, s.ttl).Err(); err != nil {
		return fmt.Errorf("saved name: set: %w", err)
	}
	return nil
}
