package catalogseed

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront/internal/products"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Result counts what a seed run wrote.
type Result struct {
	Categories int
	Products   int
}

// Apply writes the catalog in a single transaction.
func Apply(ctx context.Context, db txRunner, repo *product.Repository, catalog *Catalog, logg *logger.Logger) (Result, error) {
	var result Result
	err := db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)

		categoryIDs := make(map[string]uuid.UUID, len(catalog.Categories))
		for _, c := range catalog.Categories {
			row := &models.Category{Slug: c.Slug, Name: c.Name}
			if err := txRepo.UpsertCategory(ctx, row); err != nil {
				return fmt.Errorf("upsert category %s: %w", c.Slug, err)
			}
			categoryIDs[c.Slug] = row.ID
			result.Categories++
		}

		for _, p := range catalog.Products {
			row := productRow(p)
			if id, ok := categoryIDs[p.Category]; ok {
				row.CategoryID = &id
			}
			if err := txRepo.UpsertProduct(ctx, row); err != nil {
				return fmt.Errorf("upsert product %s: %w", p.Slug, err)
			}
			result.Products++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"categories": result.Categories,
			"products":   result.Products,
		}), "catalog seeded")
	}
	return result, nil
}

func productRow(p Product) *models.Product {
	row := &models.Product{
		ID:        p.ID(),
		Name:      p.Name,
		Price:     decimal.RequireFromString(p.Price),
		Stock:     p.Stock,
		Published: p.IsPublished(),
	}
	if p.Description != "" {
		description := p.Description
		row.Description = &description
	}
	if p.ImageURL != "" {
		image := p.ImageURL
		row.ImageURL = &image
	}
	return row
}
