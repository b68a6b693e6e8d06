package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/bundlecrypt"
	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/platform/sentinel"
)

const bundleKeyPrefix = "rgpd:export:bundle:"

// BundleRedis keeps encrypted bundles as JSON envelopes with a TTL matching
// the export expiry. Redis never sees plaintext.
type BundleRedis struct {
	client *redis.Client
}

func NewBundleRedis(client *redis.Client) *BundleRedis {
	return &BundleRedis{client: client}
}

func (s *BundleRedis) Put(ctx context.Context, id domain.ExportID, env bundlecrypt.Envelope, ttl time.Duration) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal bundle envelope: %w", err)
	}
	return s.client.Set(ctx, bundleKeyPrefix+id.String(), raw, ttl).Err()
}

func (s *BundleRedis) Get(ctx context.Context, id domain.ExportID) (bundlecrypt.Envelope, error) {
	var env bundlecrypt.Envelope
	raw, err := s.client.Get(ctx, bundleKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return env, sentinel.ErrNotFound
	}
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("unmarshal bundle envelope: %w", err)
	}
	return env, nil
}

// Delete is idempotent.
func (s *BundleRedis) Delete(ctx context.Context, ids ...domain.ExportID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, bundleKeyPrefix+id.String())
	}
	return s.client.Del(ctx, keys...).Err()
}

type storedBundle struct {
	env       bundlecrypt.Envelope
	expiresAt time.Time
}

// BundleInMemory honours the TTL against its clock.
type BundleInMemory struct {
	mu      sync.Mutex
	clock   clock.Clock
	bundles map[domain.ExportID]storedBundle
}

func NewBundleInMemory(c clock.Clock) *BundleInMemory {
	if c == nil {
		c = clock.System{}
	}
	return &BundleInMemory{clock: c, bundles: make(map[domain.ExportID]storedBundle)}
}

func (s *BundleInMemory) Put(_ context.Context, id domain.ExportID, env bundlecrypt.Envelope, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[id] = storedBundle{env: env, expiresAt: s.clock.Now().Add(ttl)}
	return nil
}

func (s *BundleInMemory) Get(_ context.Context, id domain.ExportID) (bundlecrypt.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bundles[id]
	if !ok {
		return bundlecrypt.Envelope{}, sentinel.ErrNotFound
	}
	if s.clock.Now().After(b.expiresAt) {
		delete(s.bundles, id)
		return bundlecrypt.Envelope{}, sentinel.ErrNotFound
	}
	return b.env, nil
}

func (s *BundleInMemory) Delete(_ context.Context, ids ...domain.ExportID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.bundles, id)
	}
	return nil
}

// Len reports how many bundles are held, expired or not.
func (s *BundleInMemory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bundles)
}
