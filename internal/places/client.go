package places

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ssongk/daytrip/internal/types"
)

// Client fronts the knowledge store for the planner. It splits the free-form
// slot query into a category plus preference terms, caches results for a
// short TTL (concurrent slot searches of one wave hit identical queries),
// and retries transient store failures with a small backoff.
type Client struct {
	repo       Repository
	cache      *cache.Cache
	logger     *slog.Logger
	maxRetries int
}

func NewClient(repo Repository, cacheTTL time.Duration, maxRetries int, logger *slog.Logger) *Client {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		repo:       repo,
		cache:      cache.New(cacheTTL, 2*cacheTTL),
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Search satisfies the planner's place lookup contract. The leading query
// term is the category; any remaining terms are preference tags. The anchor
// is accepted for interface compatibility but ranking here is by rating,
// proximity is the caller's concern.
func (c *Client) Search(ctx context.Context, query, regionFilter string, anchor types.Coordinate, limit int) ([]types.Place, error) {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return nil, fmt.Errorf("search places: empty query")
	}
	category := fields[0]
	terms := fields[1:]

	key := cacheKey(category, terms, regionFilter, limit)
	if cached, ok := c.cache.Get(key); ok {
		return clonePlaces(cached.([]types.Place)), nil
	}

	places, err := c.searchWithRetry(ctx, category, regionFilter, terms, limit)
	if err != nil {
		return nil, fmt.Errorf("search places %q in %q: %w", query, regionFilter, err)
	}

	c.cache.Set(key, clonePlaces(places), cache.DefaultExpiration)
	return places, nil
}

func (c *Client) searchWithRetry(ctx context.Context, category, region string, terms []string, limit int) ([]types.Place, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 200 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			c.logger.DebugContext(ctx, "retrying place search",
				slog.Int("attempt", attempt), slog.String("category", category))
		}

		places, err := c.repo.SearchPlaces(ctx, category, region, terms, limit)
		if err == nil {
			return places, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func cacheKey(category string, terms []string, region string, limit int) string {
	return category + "|" + strings.Join(terms, ",") + "|" + strings.ToLower(region) + "|" + strconv.Itoa(limit)
}

// Cached slices are shared across goroutines, so hand out copies.
func clonePlaces(places []types.Place) []types.Place {
	out := make([]types.Place, len(places))
	copy(out, places)
	return out
}
