package catalog

import (
	"context"
	"strconv"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"plotcypher/internal/cache"
	"plotcypher/internal/daily"
	"plotcypher/internal/models"
	"plotcypher/internal/util"
)

// Service is the data-access layer the rest of the server talks to. It
// composes a Source with the cache, retry policy and circuit breaker, and
// derives the daily puzzle from whatever catalog it manages to serve.
type Service struct {
	source    Source
	cache     *cache.Cache
	breaker   *cache.Breaker
	retry     cache.RetryPolicy
	startDate time.Time
}

func NewService(src Source, c *cache.Cache, b *cache.Breaker, p cache.RetryPolicy, startDate time.Time) *Service {
	return &Service{
		source:    src,
		cache:     c,
		breaker:   b,
		retry:     p,
		startDate: startDate,
	}
}

func catalogKey(cat models.Category) string {
	return "catalog:" + string(cat)
}

func itemKey(cat models.Category, id int) string {
	return string(cat) + ":" + strconv.Itoa(id)
}

// Catalog returns the normalized catalog for a category, from cache when
// fresh, from the source otherwise. After retries are exhausted a stale
// cached catalog is served as a degraded fallback; only when no fallback
// exists does the error propagate.
func (s *Service) Catalog(ctx context.Context, cat models.Category) ([]models.MediaItem, error) {
	key := catalogKey(cat)
	if v, ok := s.cache.Get(key); ok {
		return v.([]models.MediaItem), nil
	}

	var items []models.MediaItem
	err := s.breaker.Execute(func() error {
		return s.retry.Do(ctx, func() error {
			loaded, loadErr := s.source.Load(ctx, cat)
			if loadErr != nil {
				return loadErr
			}
			items = loaded
			return nil
		})
	})
	if err != nil {
		if v, ok := s.cache.GetStale(key); ok {
			util.LogWarn("Serving stale %s catalog after load failure: %v", cat, err)
			return v.([]models.MediaItem), nil
		}
		return nil, err
	}

	s.cache.Set(key, items)
	return items, nil
}

// ItemByID returns the matching item from the loaded catalog. Absence is
// reported through the bool, not an error.
func (s *Service) ItemByID(ctx context.Context, cat models.Category, id int) (models.MediaItem, bool, error) {
	if v, ok := s.cache.Get(itemKey(cat, id)); ok {
		return v.(models.MediaItem), true, nil
	}

	items, err := s.Catalog(ctx, cat)
	if err != nil {
		return models.MediaItem{}, false, err
	}
	item, found := lo.Find(items, func(it models.MediaItem) bool { return it.ID == id })
	if !found {
		return models.MediaItem{}, false, nil
	}
	s.cache.Set(itemKey(cat, id), item)
	return item, true, nil
}

// DailyPuzzle resolves the single active puzzle for a category at the
// given instant. Stable for repeated calls within the same UTC day.
func (s *Service) DailyPuzzle(ctx context.Context, cat models.Category, now time.Time) (models.DailyPuzzle, error) {
	items, err := s.Catalog(ctx, cat)
	if err != nil {
		return models.DailyPuzzle{}, err
	}
	id := daily.PuzzleID(s.startDate, now, len(items))
	if id == 0 {
		return models.DailyPuzzle{}, ErrNoPuzzle
	}

	item, found, err := s.ItemByID(ctx, cat, id)
	if err != nil {
		return models.DailyPuzzle{}, err
	}
	if !found {
		// Catalog ids are expected to be contiguous from 1; fall back to
		// positional selection when a record was dropped in validation.
		util.LogWarn("Daily id %d missing from %s catalog, selecting by position", id, cat)
		item = items[(id-1)%len(items)]
	}
	return models.DailyPuzzle{Category: cat, ItemID: item.ID, Item: item}, nil
}

// Suggestions returns the catalog names for autocomplete, minus today's
// answer.
func (s *Service) Suggestions(ctx context.Context, cat models.Category, now time.Time) ([]string, error) {
	items, err := s.Catalog(ctx, cat)
	if err != nil {
		return nil, err
	}
	puzzle, err := s.DailyPuzzle(ctx, cat, now)
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(items, func(it models.MediaItem, _ int) (string, bool) {
		return it.Name, it.ID != puzzle.ItemID
	}), nil
}

// Warm fans out across all categories and loads each catalog once. A
// failing category is logged and skipped so it cannot block the others.
func (s *Service) Warm(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	for _, cat := range models.Categories {
		cat := cat
		g.Go(func() error {
			items, err := s.Catalog(ctx, cat)
			if err != nil {
				util.LogWarn("Failed to warm %s catalog: %v", cat, err)
				return nil
			}
			util.LogInfo("Warmed %s catalog with %d items", cat, len(items))
			return nil
		})
	}
	_ = g.Wait()
}

// Sizes reports the cached catalog length per category, for the health
// endpoint. Categories that were never loaded report zero.
func (s *Service) Sizes() map[models.Category]int {
	sizes := make(map[models.Category]int, len(models.Categories))
	for _, cat := range models.Categories {
		if v, ok := s.cache.GetStale(catalogKey(cat)); ok {
			sizes[cat] = len(v.([]models.MediaItem))
		}
	}
	return sizes
}
