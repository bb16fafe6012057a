package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/db/models"
)

// Product is the catalog snapshot copied into a cart line. Stock is as of the
// moment the snapshot was taken; the order backend revalidates it.
type Product struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Published bool            `json:"published"`
	ImageURL  *string         `json:"image_url,omitempty"`
}

// ProductFromModel snapshots a catalog row.
func ProductFromModel(m *models.Product) Product {
	if m == nil {
		return Product{}
	}
	return Product{
		ID:        m.ID,
		Name:      m.Name,
		Price:     m.Price,
		Stock:     m.Stock,
		Published: m.Published,
		ImageURL:  m.ImageURL,
	}
}

// Line is one product in the cart. Quantity is always >= 1.
type Line struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Total returns price × quantity for the line.
func (l Line) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func cloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
