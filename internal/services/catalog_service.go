package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/casanoova/compass/internal/models"
)

// BaseLanguage is the language the catalog's own labels are written in.
const BaseLanguage = "en"

type CatalogStore interface {
	ListPairs(ctx context.Context) ([]*models.AdjectivePair, error)
	ListPairTranslations(ctx context.Context, language string) ([]*models.PairTranslation, error)
}

// CatalogCache stores rendered catalog views. Implementations may be remote; a
// miss or a failure only costs a store read.
type CatalogCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type CatalogService struct {
	store CatalogStore
	cache CatalogCache
	ttl   time.Duration
}

func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

// WithCache enables caching of localized views for ttl.
func (s *CatalogService) WithCache(cache CatalogCache, ttl time.Duration) *CatalogService {
	s.cache = cache
	s.ttl = ttl
	return s
}

// Pairs returns the catalog in display order.
func (s *CatalogService) Pairs(ctx context.Context) ([]*models.AdjectivePair, error) {
	pairs, err := s.store.ListPairs(ctx)
	if err != nil {
		return nil, err
	}
	sortPairs(pairs)
	return pairs, nil
}

// NormalizeLanguage reduces a locale such as "de-AT" to its base tag "de".
func NormalizeLanguage(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	if l == "" {
		return BaseLanguage
	}
	return l
}

// Localized resolves labels for locale. The base language always gets the
// catalog's own labels; other languages fall back per pair when a translation
// row is missing.
func (s *CatalogService) Localized(ctx context.Context, locale string) ([]AdjectiveView, error) {
	lang := NormalizeLanguage(locale)
	key := "catalog:v1:" + lang
	if views, ok := s.cached(ctx, key); ok {
		return views, nil
	}

	pairs, err := s.Pairs(ctx)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, NewNotFoundError("no adjectives found")
	}

	byPair := map[string]*models.PairTranslation{}
	if lang != BaseLanguage {
		translations, err := s.store.ListPairTranslations(ctx, strings.ToUpper(lang))
		if err != nil {
			return nil, err
		}
		for _, tr := range translations {
			byPair[tr.PairID] = tr
		}
	}

	views := make([]AdjectiveView, 0, len(pairs))
	for _, p := range pairs {
		v := AdjectiveView{
			ID:                p.ID,
			PositiveAdjective: p.PositiveAdjective,
			NegativeAdjective: p.NegativeAdjective,
			DisplayOrder:      p.DisplayOrder,
		}
		if tr, ok := byPair[p.ID]; ok {
			if tr.PositiveAdjective != "" {
				v.PositiveAdjective = tr.PositiveAdjective
			}
			if tr.NegativeAdjective != "" {
				v.NegativeAdjective = tr.NegativeAdjective
			}
		}
		views = append(views, v)
	}
	s.remember(ctx, key, views)
	return views, nil
}

func (s *CatalogService) cached(ctx context.Context, key string) ([]AdjectiveView, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Default().WarnContext(ctx, "catalog cache read failed", "module", "catalog", "key", key, "error", err.Error())
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var views []AdjectiveView
	if err := json.Unmarshal(raw, &views); err != nil {
		return nil, false
	}
	return views, true
}

func (s *CatalogService) remember(ctx context.Context, key string, views []AdjectiveView) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(views)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		slog.Default().WarnContext(ctx, "catalog cache write failed", "module", "catalog", "key", key, "error", err.Error())
	}
}

func sortPairs(pairs []*models.AdjectivePair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].DisplayOrder != pairs[j].DisplayOrder {
			return pairs[i].DisplayOrder < pairs[j].DisplayOrder
		}
		return pairs[i].ID < pairs[j].ID
	})
}
