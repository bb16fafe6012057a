package product

import "github.com/angelmondragon/storefront/pkg/pagination"

// ListFilter describes the browse endpoint knobs.
type ListFilter struct {
	CategorySlug string `json:"category,omitempty"`
	Query        string `json:"q,omitempty"`
	Pagination   pagination.Params
}
