package product

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/db/dbtest"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

func mustCreateCategory(t *testing.T, repo *Repository, slug, name string) *models.Category {
	t.Helper()
	category := &models.Category{Slug: slug, Name: name}
	require.NoError(t, repo.UpsertCategory(context.Background(), category))
	return category
}

func mustCreateProduct(t *testing.T, repo *Repository, category *models.Category, name string, published bool, createdAt time.Time) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:      name,
		Price:     decimal.RequireFromString("49.99"),
		Stock:     10,
		Published: published,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if category != nil {
		product.CategoryID = &category.ID
	}
	require.NoError(t, repo.UpsertProduct(context.Background(), product))
	return product
}

func TestRepositoryFindByID(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	ctx := context.Background()
	mugs := mustCreateCategory(t, repo, "mugs", "Mugs")
	created := mustCreateProduct(t, repo, mugs, "Stoneware Mug", true, time.Now().UTC())

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stoneware Mug", found.Name)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("49.99")))
	assert.Equal(t, 10, found.Stock)

	detail, err := repo.FindDetail(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Category)
	assert.Equal(t, "mugs", detail.Category.Slug)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListPublishedFiltersAndPaginates(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	ctx := context.Background()
	mugs := mustCreateCategory(t, repo, "mugs", "Mugs")
	teas := mustCreateCategory(t, repo, "teas", "Teas")

	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		mustCreateProduct(t, repo, mugs, fmt.Sprintf("Mug %d", i), true, base.Add(time.Duration(i)*time.Minute))
	}
	mustCreateProduct(t, repo, mugs, "Draft Mug", false, base.Add(time.Hour))
	mustCreateProduct(t, repo, teas, "Green Tea", true, base.Add(2*time.Hour))

	all, err := repo.ListPublished(ctx, ListFilter{}, nil)
	require.NoError(t, err)
	assert.Len(t, all, 6, "unpublished products are hidden")
	assert.Equal(t, "Green Tea", all[0].Name, "newest first")

	onlyMugs, err := repo.ListPublished(ctx, ListFilter{CategorySlug: "mugs", Pagination: pagination.Params{Limit: 2}}, nil)
	require.NoError(t, err)
	require.Len(t, onlyMugs, 3, "limit plus one buffer row")
	assert.Equal(t, "Mug 4", onlyMugs[0].Name)

	cursor := &pagination.Cursor{CreatedAt: onlyMugs[1].CreatedAt, ID: onlyMugs[1].ID}
	next, err := repo.ListPublished(ctx, ListFilter{CategorySlug: "mugs", Pagination: pagination.Params{Limit: 2}}, cursor)
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, "Mug 2", next[0].Name)

	searched, err := repo.ListPublished(ctx, ListFilter{Query: "green"}, nil)
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, teas.ID, *searched[0].CategoryID)
	require.NotNil(t, searched[0].Category)
	assert.Equal(t, "Teas", searched[0].Category.Name)
}

func TestRepositoryUpsertsAreIdempotent(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	ctx := context.Background()

	first := mustCreateCategory(t, repo, "mugs", "Mugs")
	renamed := &models.Category{Slug: "mugs", Name: "Coffee Mugs"}
	require.NoError(t, repo.UpsertCategory(ctx, renamed))
	assert.Equal(t, first.ID, renamed.ID)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Coffee Mugs", categories[0].Name)

	product := mustCreateProduct(t, repo, first, "Mug", true, time.Now().UTC())
	product.Stock = 3
	product.Price = decimal.RequireFromString("12.50")
	require.NoError(t, repo.UpsertProduct(ctx, product))

	reloaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Stock)
	assert.True(t, reloaded.Price.Equal(decimal.RequireFromString("12.5")))
}
