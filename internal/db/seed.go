package db

import (
	"context"
	"fmt"

	"github.com/casanoova/compass/internal/models"
)

// CatalogWriter is the subset of a store the seed needs.
type CatalogWriter interface {
	UpsertPair(ctx context.Context, p *models.AdjectivePair) error
	UpsertPairTranslation(ctx context.Context, tr *models.PairTranslation) error
}

const quadrantBoss = "BOSS"

// CatalogPairs is the BOSS quadrant reference catalog.
func CatalogPairs() []*models.AdjectivePair {
	return []*models.AdjectivePair{
		{ID: "pair-1", PositiveAdjective: "convincing", NegativeAdjective: "unconvincing", PositiveX: -1.50, PositiveY: 2.00, NegativeX: -0.75, NegativeY: -3.00, Quadrant: quadrantBoss, AuthorityFocus: true, DisplayOrder: 1},
		{ID: "pair-2", PositiveAdjective: "direct", NegativeAdjective: "evasive", PositiveX: -2.00, PositiveY: 1.50, NegativeX: 4.00, NegativeY: -1.00, Quadrant: quadrantBoss, AuthorityFocus: true, DisplayOrder: 2},
		{ID: "pair-3", PositiveAdjective: "controlling", NegativeAdjective: "indecisive", PositiveX: -2.25, PositiveY: 3.00, NegativeX: 3.00, NegativeY: -2.25, Quadrant: quadrantBoss, AuthorityFocus: true, DisplayOrder: 3},
		{ID: "pair-4", PositiveAdjective: "precise", NegativeAdjective: "erratic", PositiveX: -2.00, PositiveY: -1.50, NegativeX: 4.00, NegativeY: 3.00, Quadrant: quadrantBoss, AuthorityFocus: false, DisplayOrder: 4},
		{ID: "pair-5", PositiveAdjective: "straightforward", NegativeAdjective: "cautious", PositiveX: -2.00, PositiveY: 0.50, NegativeX: -0.50, NegativeY: -2.00, Quadrant: quadrantBoss, AuthorityFocus: true, DisplayOrder: 5},
		{ID: "pair-6", PositiveAdjective: "commanding", NegativeAdjective: "supportive", PositiveX: -0.75, PositiveY: 3.00, NegativeX: 0.50, NegativeY: -2.00, Quadrant: quadrantBoss, AuthorityFocus: true, DisplayOrder: 6},
		{ID: "pair-7", PositiveAdjective: "effective", NegativeAdjective: "ineffective", PositiveX: -2.00, PositiveY: 1.50, NegativeX: 3.00, NegativeY: 0.75, Quadrant: quadrantBoss, AuthorityFocus: false, DisplayOrder: 7},
		{ID: "pair-8", PositiveAdjective: "goal-oriented", NegativeAdjective: "following", PositiveX: -2.25, PositiveY: 3.00, NegativeX: 0.75, NegativeY: -3.00, Quadrant: quadrantBoss, AuthorityFocus: true, DisplayOrder: 8},
	}
}

// CatalogTranslations holds the German labels. Language codes are stored uppercase.
func CatalogTranslations() []*models.PairTranslation {
	de := func(id, pos, neg string) *models.PairTranslation {
		return &models.PairTranslation{PairID: id, Language: "DE", PositiveAdjective: pos, NegativeAdjective: neg}
	}
	return []*models.PairTranslation{
		de("pair-1", "überzeugend", "nicht überzeugend"),
		de("pair-2", "direkt", "ausweichend"),
		de("pair-3", "kontrollierend", "unentschlossen"),
		de("pair-4", "präzise", "unberechenbar"),
		de("pair-5", "geradlinig", "vorsichtig"),
		de("pair-6", "befehlend", "unterstützend"),
		de("pair-7", "effektiv", "ineffektiv"),
		de("pair-8", "zielorientiert", "folgend"),
	}
}

// SeedCatalog upserts the catalog; running it twice leaves the same rows.
func SeedCatalog(ctx context.Context, w CatalogWriter) (pairs, translations int, err error) {
	for _, p := range CatalogPairs() {
		if err := w.UpsertPair(ctx, p); err != nil {
			return pairs, translations, fmt.Errorf("seed pair %s: %w", p.ID, err)
		}
		pairs++
	}
	for _, tr := range CatalogTranslations() {
		if err := w.UpsertPairTranslation(ctx, tr); err != nil {
			return pairs, translations, fmt.Errorf("seed translation %s/%s: %w", tr.PairID, tr.Language, err)
		}
		translations++
	}
	return pairs, translations, nil
}
