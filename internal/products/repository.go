package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront/internal/repo"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

// Repository reads and seeds the product catalog.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// FindByID loads the product without associations, published or not.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindDetail loads a product with its category.
func (r *Repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.DB(ctx).
		Preload("Category").
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListPublished returns up to LimitWithBuffer published products ordered by
// (created_at DESC, id DESC), starting after the cursor when one is given.
func (r *Repository) ListPublished(ctx context.Context, filter ListFilter, cursor *pagination.Cursor) ([]models.Product, error) {
	qb := r.DB(ctx).
		Model(&models.Product{}).
		Preload("Category").
		Where("products.published = ?", true)

	if slug := strings.TrimSpace(filter.CategorySlug); slug != "" {
		qb = qb.Where("products.category_id IN (SELECT id FROM categories WHERE slug = ?)", slug)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(products.name) LIKE ? OR LOWER(COALESCE(products.description, '')) LIKE ?)", pattern, pattern)
	}
	if cursor != nil {
		qb = qb.Where(
			"(products.created_at < ?) OR (products.created_at = ? AND products.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Product
	err := qb.
		Order("products.created_at DESC").
		Order("products.id DESC").
		Limit(pagination.LimitWithBuffer(filter.Pagination.Limit)).
		Find(&rows).
		Error
	return rows, err
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.DB(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// UpsertCategory inserts the category or updates its name when the slug exists.
// The stored row, including its id, is loaded back into category.
func (r *Repository) UpsertCategory(ctx context.Context, category *models.Category) error {
	tx := r.DB(ctx)
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(category).Error
	if err != nil {
		return err
	}
	var stored models.Category
	if err := tx.First(&stored, "slug = ?", category.Slug).Error; err != nil {
		return err
	}
	*category = stored
	return nil
}

// UpsertProduct inserts the product or overwrites the catalog fields of an
// existing row with the same id.
func (r *Repository) UpsertProduct(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category_id", "name", "description", "price", "stock", "published", "image_url", "updated_at",
		}),
	}).Create(product).Error
}
