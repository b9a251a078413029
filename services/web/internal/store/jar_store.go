package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrJarNotFound indicates no cookies are stored for a visitor.
var ErrJarNotFound = errors.New("cookie jar not found")

const (
	defaultJarPrefix = "dailyreport:web:jar"
	redisTimeout     = 3 * time.Second
)

// StoredCookie is the persisted form of one backend cookie.
type StoredCookie struct {
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"httpOnly,omitempty"`
}

// JarStore persists each visitor's backend cookies.
type JarStore interface {
	Load(ctx context.Context, visitorID string) ([]StoredCookie, error)
	Save(ctx context.Context, visitorID string, cookies []StoredCookie, ttl time.Duration) error
	Delete(ctx context.Context, visitorID string) error
}

type memoryJar struct {
	cookies []StoredCookie
	expiry  time.Time
}

// MemoryJarStore keeps jars in process memory. Used when Redis is not configured.
type MemoryJarStore struct {
	mu   sync.Mutex
	jars map[string]memoryJar
	now  func() time.Time
}

func NewMemoryJarStore() *MemoryJarStore {
	return &MemoryJarStore{jars: make(map[string]memoryJar), now: time.Now}
}

func (s *MemoryJarStore) Load(_ context.Context, visitorID string) ([]StoredCookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jar, ok := s.jars[visitorID]
	if !ok {
		return nil, ErrJarNotFound
	}
	if !jar.expiry.IsZero() && s.now().After(jar.expiry) {
		delete(s.jars, visitorID)
		return nil, ErrJarNotFound
	}
	return append([]StoredCookie(nil), jar.cookies...), nil
}

func (s *MemoryJarStore) Save(_ context.Context, visitorID string, cookies []StoredCookie, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiry time.Time
	if ttl > 0 {
		expiry = s.now().Add(ttl)
	}
	s.jars[visitorID] = memoryJar{cookies: append([]StoredCookie(nil), cookies...), expiry: expiry}
	return nil
}

func (s *MemoryJarStore) Delete(_ context.Context, visitorID string) error {
	s.mu.Lock()
	delete(s.jars, visitorID)
	s.mu.Unlock()
	return nil
}

// RedisJarStore stores each jar as one JSON value with a TTL.
type RedisJarStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisJarStore(client redis.UniversalClient, prefix string) *RedisJarStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultJarPrefix
	}
	return &RedisJarStore{client: client, prefix: prefix}
}

func (s *RedisJarStore) key(visitorID string) string {
	return s.prefix + ":" + visitorID
}

func (s *RedisJarStore) Load(ctx context.Context, visitorID string) ([]StoredCookie, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	data, err := s.client.Get(ctx, s.key(visitorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load jar: %w", err)
	}
	var cookies []StoredCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("decode jar: %w", err)
	}
	return cookies, nil
}

func (s *RedisJarStore) Save(ctx context.Context, visitorID string, cookies []StoredCookie, ttl time.Duration) error {
	data, err := json.Marshal(cookies)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key(visitorID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save jar: %w", err)
	}
	return nil
}

func (s *RedisJarStore) Delete(ctx context.Context, visitorID string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return s.client.Del(ctx, s.key(visitorID)).Err()
}
