package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoCredentials is returned when no credential document has been stored
// yet, i.e. the one-time OAuth exchange has not been performed.
var ErrNoCredentials = errors.New("auth: no stored credentials")

// TokenDocument is the persisted credential set for both upstream APIs.
// It lives as a single JSON document so a refresh updates all fields
// atomically.
type TokenDocument struct {
	AccessToken    string    `json:"access_token"`
	AccessTokenExp time.Time `json:"access_token_exp"`
	RefreshToken   string    `json:"refresh_token"`
	InventoryToken string    `json:"inventory_token"`
}

// TokenStore persists the credential document.
type TokenStore interface {
	Load(ctx context.Context) (*TokenDocument, error)
	Save(ctx context.Context, doc *TokenDocument) error
}

// RedisTokenStore keeps the credential document under a single Redis key.
type RedisTokenStore struct {
	client *redis.Client
	key    string
}

// NewRedisTokenStore creates a RedisTokenStore.
func NewRedisTokenStore(client *redis.Client, key string) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: key}
}

// Load reads the credential document, returning ErrNoCredentials when the
// key does not exist.
func (s *RedisTokenStore) Load(ctx context.Context) (*TokenDocument, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load token document: %w", err)
	}

	var doc TokenDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode token document: %w", err)
	}
	return &doc, nil
}

// Save writes the credential document. Tokens never expire on the Redis
// side; rotation is driven by the APIs themselves.
func (s *RedisTokenStore) Save(ctx context.Context, doc *TokenDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode token document: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("save token document: %w", err)
	}
	return nil
}

var _ TokenStore = (*RedisTokenStore)(nil)
