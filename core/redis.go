package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionKeyPrefix namespaces session bindings in Redis.
const SessionKeyPrefix = "forum:session:"

// RedisSessionClient is the subset of go-redis used by RedisSessionStore.
type RedisSessionClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// redisSession is the JSON document stored per session key.
type redisSession struct {
	Login        string   `json:"login"`
	PasswordHash string   `json:"password_hash"`
	FirstName    string   `json:"first_name,omitempty"`
	LastName     string   `json:"last_name,omitempty"`
	Roles        []string `json:"roles"`
}

// RedisSessionStore keeps session bindings in Redis so several API processes can share them.
type RedisSessionStore struct {
	client RedisSessionClient
	ttl    time.Duration
}

// NewRedisSessionStore wraps a redis client; ttl 0 keeps keys until deleted.
func NewRedisSessionStore(client RedisSessionClient, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (Account, error) {
	val, err := s.client.Get(ctx, SessionKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return Account{}, ErrSessionNotFound
	}
	if err != nil {
		return Account{}, err
	}
	var doc redisSession
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return Account{}, err
	}
	return Account{
		Login:        doc.Login,
		PasswordHash: doc.PasswordHash,
		FirstName:    doc.FirstName,
		LastName:     doc.LastName,
		Roles:        NewRoleSet(doc.Roles...),
	}, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, sessionID string, account Account) error {
	payload, err := json.Marshal(redisSession{
		Login:        account.Login,
		PasswordHash: account.PasswordHash,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		Roles:        account.Roles.Strings(),
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, SessionKeyPrefix+sessionID, payload, s.ttl).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, SessionKeyPrefix+sessionID).Err()
}
