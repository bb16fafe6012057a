package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/db/models"
)

// ProductDTO is the catalog payload returned to shoppers.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	InStock     bool            `json:"in_stock"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Category    *CategoryDTO    `json:"category,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CategoryDTO is a browsable category.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		InStock:     product.Stock > 0,
		ImageURL:    product.ImageURL,
		CreatedAt:   product.CreatedAt,
	}
	if product.Category != nil {
		category := NewCategoryDTO(product.Category)
		dto.Category = &category
	}
	return dto
}

func NewCategoryDTO(category *models.Category) CategoryDTO {
	return CategoryDTO{
		ID:   category.ID,
		Slug: category.Slug,
		Name: category.Name,
	}
}
