package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/tender"
)

//go:embed products.json
var seedData []byte

type seeder interface {
	SeedProducts(ctx context.Context, products []tender.Product) (int, error)
}

// Load returns the built-in product catalog.
func Load() ([]tender.Product, error) {
	var products []tender.Product
	if err := json.Unmarshal(seedData, &products); err != nil {
		return nil, fmt.Errorf("decode embedded catalog: %w", err)
	}
	return products, nil
}

// Seed fills an empty store with the built-in catalog. Stores that already
// hold products are left as they are.
func Seed(ctx context.Context, store seeder, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	products, err := Load()
	if err != nil {
		return err
	}

	inserted, err := store.SeedProducts(ctx, products)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	if inserted == 0 {
		logger.Debug("catalog already populated, seeding skipped")
		return nil
	}

	logger.Info("catalog seeded", zap.Int("products", inserted))
	return nil
}
