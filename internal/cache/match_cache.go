package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
)

const defaultTTL = 10 * time.Minute

// entry is what gets stored; the property itself is re-attached on lookup.
type entry struct {
	MatchScore   int                    `json:"matchScore"`
	MatchReasons []string               `json:"matchReasons"`
	Breakdown    []domain.CategoryScore `json:"breakdown,omitempty"`
}

// MatchCache caches scored results under
// match:<scoringVersion>:<propertyID>:<propertyVersion>, so a change to the
// weights, the preferences or the listing produces a new key.
type MatchCache struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

func NewMatchCache(kv KVStore, ttl time.Duration, logger *zap.Logger) *MatchCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchCache{kv: kv, ttl: ttl, logger: logger}
}

// Key addresses one scored listing. scoringVersion covers the weights and the
// preferences, so a change to either misses.
func Key(scoringVersion string, p domain.Property) string {
	return fmt.Sprintf("match:%s:%s:%s", scoringVersion, p.ID, p.Version())
}

// Lookup returns the cached result for p, if any. A miss is not an error.
func (c *MatchCache) Lookup(ctx context.Context, scoringVersion string, p domain.Property) (domain.MatchResult, bool, error) {
	key := Key(scoringVersion, p)
	raw, err := c.kv.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return domain.MatchResult{}, false, nil
	}
	if err != nil {
		return domain.MatchResult{}, false, fmt.Errorf("get %s: %w", key, err)
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return domain.MatchResult{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	if e.MatchReasons == nil {
		e.MatchReasons = []string{}
	}

	c.logger.Debug("match cache hit", zap.String("key", key))
	return domain.MatchResult{
		Property:     p,
		MatchScore:   e.MatchScore,
		MatchReasons: e.MatchReasons,
		Breakdown:    e.Breakdown,
	}, true, nil
}

func (c *MatchCache) Store(ctx context.Context, scoringVersion string, res domain.MatchResult) error {
	key := Key(scoringVersion, res.Property)
	b, err := json.Marshal(entry{
		MatchScore:   res.MatchScore,
		MatchReasons: res.MatchReasons,
		Breakdown:    res.Breakdown,
	})
	if err != nil {
		return fmt.Errorf("marshal match result: %w", err)
	}
	if err := c.kv.Set(ctx, key, string(b), c.ttl); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
