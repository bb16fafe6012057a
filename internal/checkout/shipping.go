package checkout

import (
	"strings"

	"github.com/angelmondragon/storefront/internal/users"
	"github.com/angelmondragon/storefront/pkg/types"
)

// ShippingDetails is what the shopper enters on the checkout form.
type ShippingDetails struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,digits,min=10"`
	Address       string `json:"address" validate:"required"`
	City          string `json:"city" validate:"required"`
	PostalCode    string `json:"postal_code" validate:"required,min=6"`
	SaveToProfile bool   `json:"save_to_profile"`
}

// Normalize trims surrounding whitespace from every field.
func (d ShippingDetails) Normalize() ShippingDetails {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.PostalCode = strings.TrimSpace(d.PostalCode)
	return d
}

func (d ShippingDetails) address() types.ShippingAddress {
	return types.ShippingAddress{
		Name:       d.Name,
		Email:      d.Email,
		Phone:      d.Phone,
		Address:    d.Address,
		City:       d.City,
		PostalCode: d.PostalCode,
	}
}

func (d ShippingDetails) profile() users.ShippingProfile {
	return users.ShippingProfile{
		Name:       d.Name,
		Email:      d.Email,
		Phone:      d.Phone,
		Address:    d.Address,
		City:       d.City,
		PostalCode: d.PostalCode,
	}
}

func shippingFromProfile(p *users.ShippingProfile) *ShippingDetails {
	if p == nil {
		return nil
	}
	return &ShippingDetails{
		Name:       p.Name,
		Email:      p.Email,
		Phone:      p.Phone,
		Address:    p.Address,
		City:       p.City,
		PostalCode: p.PostalCode,
	}
}
