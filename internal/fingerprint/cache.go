package fingerprint

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/formpipe/formpipe/constants"
	"github.com/formpipe/formpipe/internal/common"
	"github.com/formpipe/formpipe/internal/entity"
	"github.com/formpipe/formpipe/internal/repository"
)

// DefaultTTL is the validity window for cached results.
const DefaultTTL = 24 * time.Hour

// Cache fronts the cache repository with fingerprinting and a time-based
// validity window. Every failure mode degrades: a read error is a miss, a
// write error is a dropped write, and neither aborts the pipeline.
type Cache struct {
	repo   repository.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewCache(repo repository.CacheRepository, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{repo: repo, ttl: ttl, logger: logger, now: time.Now}
}

// Lookup returns the cached result for the given content and form type, or
// (nil, false) when no entry exists, the entry is stale, or the store
// misbehaves. Stale entries are left in place for the next Store to
// overwrite.
func (c *Cache) Lookup(ctx context.Context, content []byte, formType string) (*entity.ProcessedResult, bool) {
	key := Compute(content, formType)
	row, err := c.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			c.logger.Warn("cache.lookup.io_error", "fingerprint", key, "error", err)
		}
		return nil, false
	}

	age := c.now().Sub(row.CreatedAt)
	if age > c.ttl {
		c.logger.Info("cache.lookup.expired", "fingerprint", key, "age", age.String())
		return nil, false
	}

	var result entity.ProcessedResult
	if err := json.Unmarshal(row.Payload, &result); err != nil {
		c.logger.Warn("cache.lookup.decode_error", "fingerprint", key, "error", err)
		return nil, false
	}
	c.logger.Info("cache.lookup.hit", "fingerprint", key, "age", age.String())
	return &result, true
}

// Store writes the processed result under the content fingerprint,
// replacing any previous entry wholesale. Errors are logged and dropped.
func (c *Cache) Store(ctx context.Context, content []byte, formType string, result *entity.ProcessedResult) {
	key := Compute(content, formType)
	payload, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache.store.encode_error", "fingerprint", key, "error", err)
		return
	}
	row := &repository.CacheRow{
		Fingerprint: key,
		FormType:    constants.NormalizeFormType(formType),
		Payload:     payload,
		CreatedAt:   c.now(),
	}
	if err := c.repo.Put(ctx, row); err != nil {
		c.logger.Warn("cache.store.io_error", "fingerprint", key, "error", err)
		return
	}
	c.logger.Info("cache.store.ok", "fingerprint", key, "bytes", len(payload))
}
