package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/todo-assistant/internal/models"
	"github.com/redis/go-redis/v9"
)

// StateStore holds per-session client state. Load of a missing key yields
// an empty transcript; Save always overwrites the whole value.
type StateStore interface {
	Load(ctx context.Context, sessionID string) (*models.Transcript, error)
	Save(ctx context.Context, sessionID string, transcript *models.Transcript) error
	Clear(ctx context.Context, sessionID string) error
}

const transcriptKeyPrefix = "todo:chat:"

// RedisStateStore keeps transcripts as JSON strings in Redis
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStateStore creates a Redis-backed store. A ttl of zero keeps
// transcripts until cleared.
func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: ttl}
}

func transcriptKey(sessionID string) string {
	return transcriptKeyPrefix + sessionID
}

// Load implements StateStore
func (s *RedisStateStore) Load(ctx context.Context, sessionID string) (*models.Transcript, error) {
	raw, err := s.client.Get(ctx, transcriptKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &models.Transcript{}, nil
		}
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	transcript := &models.Transcript{}
	if err := json.Unmarshal(raw, transcript); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return transcript, nil
}

// Save implements StateStore
func (s *RedisStateStore) Save(ctx context.Context, sessionID string, transcript *models.Transcript) error {
	raw, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	if err := s.client.Set(ctx, transcriptKey(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// Clear implements StateStore
func (s *RedisStateStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, transcriptKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear transcript: %w", err)
	}
	return nil
}

// MemoryStateStore keeps transcripts in process memory
type MemoryStateStore struct {
	mu    sync.RWMutex
	state map[string][]byte
}

// NewMemoryStateStore creates an empty in-memory store
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{state: make(map[string][]byte)}
}

// Load implements StateStore. Values are stored encoded so callers never
// share slices with the store.
func (s *MemoryStateStore) Load(_ context.Context, sessionID string) (*models.Transcript, error) {
	s.mu.RLock()
	raw, ok := s.state[sessionID]
	s.mu.RUnlock()

	transcript := &models.Transcript{}
	if !ok {
		return transcript, nil
	}
	if err := json.Unmarshal(raw, transcript); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return transcript, nil
}

// Save implements StateStore
func (s *MemoryStateStore) Save(_ context.Context, sessionID string, transcript *models.Transcript) error {
	raw, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	s.mu.Lock()
	s.state[sessionID] = raw
	s.mu.Unlock()
	return nil
}

// Clear implements StateStore
func (s *MemoryStateStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.state, sessionID)
	s.mu.Unlock()
	return nil
}

var (
	_ StateStore = (*RedisStateStore)(nil)
	_ StateStore = (*MemoryStateStore)(nil)
)
