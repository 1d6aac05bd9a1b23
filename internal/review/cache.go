package review

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// cacheVersion is bumped whenever the verdict encoding or the decision rules change.
const cacheVersion = 1

// CachingClassifier classifies each distinct commit once. Verdicts are kept in memory and,
// when a store is given, persisted across runs.
type CachingClassifier struct {
	inner contract.ReviewClassifier
	store contract.CacheStore

	group singleflight.Group
	mu    sync.RWMutex
	memo  map[string]schema.CommitReviewVerdict
}

var _ contract.ReviewClassifier = &CachingClassifier{} // Compile-time check

// NewCachingClassifier wraps inner. A nil store keeps verdicts in memory only.
func NewCachingClassifier(inner contract.ReviewClassifier, store contract.CacheStore) *CachingClassifier {
	return &CachingClassifier{inner: inner, store: store, memo: map[string]schema.CommitReviewVerdict{}}
}

// Classify returns the cached verdict or asks the wrapped classifier.
// Concurrent requests for the same commit share one call.
func (c *CachingClassifier) Classify(ctx context.Context, req schema.ReviewRequest) (schema.CommitReviewVerdict, error) {
	key := cacheKey(req)
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		if v, ok := c.load(key); ok {
			c.remember(key, v)
			return v, nil
		}
		v, err := c.inner.Classify(ctx, req)
		if err != nil {
			return schema.CommitReviewVerdict{}, err
		}
		c.remember(key, v)
		c.save(key, v)
		return v, nil
	})
	if err != nil {
		return schema.CommitReviewVerdict{}, err
	}
	return res.(schema.CommitReviewVerdict), nil
}

func cacheKey(req schema.ReviewRequest) string {
	return req.RepositoryURL + "@" + req.Commit
}

func (c *CachingClassifier) lookup(key string) (schema.CommitReviewVerdict, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.memo[key]
	return v, ok
}

func (c *CachingClassifier) remember(key string, v schema.CommitReviewVerdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memo[key] = v
}

func (c *CachingClassifier) load(key string) (schema.CommitReviewVerdict, bool) {
	if c.store == nil {
		return schema.CommitReviewVerdict{}, false
	}
	data, version, _, err := c.store.Get(key)
	if err != nil || data == nil || version != cacheVersion {
		return schema.CommitReviewVerdict{}, false
	}
	var v schema.CommitReviewVerdict
	if err := json.Unmarshal(data, &v); err != nil {
		contract.LogWarn("Cannot decode cached verdict", err)
		return schema.CommitReviewVerdict{}, false
	}
	return v, true
}

func (c *CachingClassifier) save(key string, v schema.CommitReviewVerdict) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		contract.LogWarn("Cannot encode verdict", err)
		return
	}
	if err := c.store.Set(key, data, cacheVersion, time.Now().Unix()); err != nil {
		contract.LogWarn("Cannot cache verdict", err)
	}
}
