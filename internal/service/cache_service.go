package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

// Cache keys shared by the services that read and invalidate them.
const (
	CacheKeySettings      = "settings:all"
	CacheKeyHomepage      = "home:composed"
	CacheKeyAdminOverview = "dash:admin"
	CacheKeySurahList     = "surahs:all"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type localEntry struct {
	payload []byte
	expires time.Time
}

// CacheService is a keyed cache with request de-duplication. Entries live in Redis when a
// repository is configured and in process memory otherwise.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool

	group singleflight.Group
	mu    sync.Mutex
	local map[string]localEntry
	gens  map[string]uint64
	now   func() time.Time
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:       repo,
		metrics:    metrics,
		defaultTTL: defaultTTL,
		logger:     logger,
		enabled:    enabled,
		local:      make(map[string]localEntry),
		gens:       make(map[string]uint64),
		now:        time.Now,
	}
}

// Enabled indicates whether the shared (Redis) store is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s == nil {
		return false, nil
	}
	start := time.Now()
	var err error
	if s.Enabled() {
		err = s.repo.Get(ctx, key, dest)
	} else {
		err = s.localGet(key, dest)
	}
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	var err error
	if s.Enabled() {
		err = s.repo.Set(ctx, key, value, ttl)
	} else {
		err = s.localSet(key, value, ttl)
	}
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Fetch fills dest from the cache or, on a miss, from loader. Concurrent misses for the
// same key share one loader call. Cache errors degrade to calling loader; loader errors are
// returned and nothing is cached. A load that overlaps an Invalidate of its key is
// returned to its callers but never left in the cache.
func (s *CacheService) Fetch(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(context.Context) (interface{}, error)) (bool, error) {
	if s == nil {
		value, err := loader(ctx)
		if err != nil {
			return false, err
		}
		return false, assign(value, dest)
	}
	if hit, err := s.Get(ctx, key, dest); err == nil && hit {
		return true, nil
	}

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		gen := s.generation(key)
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(loaded)
		if err != nil {
			return nil, err
		}
		if s.generation(key) != gen {
			s.logger.Debug("cache fill skipped after invalidate", zap.String("key", key))
			return payload, nil
		}
		_ = s.Set(ctx, key, json.RawMessage(payload), ttl)
		// An Invalidate may have landed between the check and the write.
		if s.generation(key) != gen {
			s.drop(ctx, key)
		}
		return payload, nil
	})
	if err != nil {
		return false, err
	}
	return false, json.Unmarshal(value.([]byte), dest)
}

// Invalidate removes the given keys. Failures are logged and returned; the local copy is
// always dropped.
func (s *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if s == nil || len(keys) == 0 {
		return nil
	}
	s.mu.Lock()
	for _, key := range keys {
		s.gens[key]++
		delete(s.local, key)
	}
	s.mu.Unlock()
	for _, key := range keys {
		s.group.Forget(key)
	}
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}

func (s *CacheService) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[key]
}

// drop removes a single key without bumping its generation.
func (s *CacheService) drop(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.local, key)
	s.mu.Unlock()
	if !s.Enabled() {
		return
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		s.logger.Warn("cache drop failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *CacheService) localGet(key string, dest interface{}) error {
	s.mu.Lock()
	entry, ok := s.local[key]
	if ok && !s.now().Before(entry.expires) {
		delete(s.local, key)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(entry.payload, dest)
}

func (s *CacheService) localSet(key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.local[key] = localEntry{payload: payload, expires: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func assign(value, dest interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}
