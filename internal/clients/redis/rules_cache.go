package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/glowlab/glowlab-backend/internal/logger"
)

// CachedRule is the per-pair lookup result kept in redis. Found=false
// entries cache the absence of a rule, which is the common case and the
// whole point of the cache.
type CachedRule struct {
	Found          bool      `json:"found"`
	RuleID         uuid.UUID `json:"rule_id,omitempty"`
	IngredientA    string    `json:"ingredient_a,omitempty"`
	IngredientB    string    `json:"ingredient_b,omitempty"`
	Severity       string    `json:"severity,omitempty"`
	Description    string    `json:"description,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
}

// RulesCache is a read-through cache for unordered ingredient-pair rule
// lookups. All methods are best-effort: errors surface to the caller, who
// treats them as misses.
type RulesCache interface {
	GetPairs(ctx context.Context, keys []string) (map[string]CachedRule, error)
	SetPairs(ctx context.Context, entries map[string]CachedRule) error
	Close() error
}

// PairKey builds a canonical cache key for an unordered ingredient pair.
func PairKey(a, b uuid.UUID) string {
	lo, hi := a.String(), b.String()
	if lo > hi {
		lo, hi = hi, lo
	}
	return "conflict:" + lo + ":" + hi
}

type rulesCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewRulesCache(log *logger.Logger) (RulesCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	ttl := 10 * time.Minute
	if raw := strings.TrimSpace(os.Getenv("CONFLICT_CACHE_TTL_SECONDS")); raw != "" {
		var seconds int
		if _, err := fmt.Sscanf(raw, "%d", &seconds); err == nil && seconds > 0 {
			ttl = time.Duration(seconds) * time.Second
		}
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &rulesCache{
		log: log.With("service", "RulesCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (c *rulesCache) GetPairs(ctx context.Context, keys []string) (map[string]CachedRule, error) {
	if c == nil || c.rdb == nil {
		return nil, fmt.Errorf("rules cache not initialized")
	}
	if len(keys) == 0 {
		return map[string]CachedRule{}, nil
	}
	raw, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]CachedRule, len(keys))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var entry CachedRule
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			c.log.Debug("Dropping unparseable cache entry", "key", keys[i], "error", err)
			continue
		}
		out[keys[i]] = entry
	}
	return out, nil
}

func (c *rulesCache) SetPairs(ctx context.Context, entries map[string]CachedRule) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("rules cache not initialized")
	}
	if len(entries) == 0 {
		return nil
	}
	pipe := c.rdb.Pipeline()
	for key, entry := range entries {
		raw, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		pipe.Set(ctx, key, raw, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *rulesCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
