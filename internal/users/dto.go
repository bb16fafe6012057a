package users

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/pkg/db/models"
)

// ShippingProfile holds the shipping fields remembered between checkouts.
type ShippingProfile struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// ToModel maps the profile onto a persistence row.
func (p ShippingProfile) ToModel(userID uuid.UUID) *models.UserProfile {
	return &models.UserProfile{
		UserID:     userID,
		Name:       p.Name,
		Email:      p.Email,
		Phone:      p.Phone,
		Address:    p.Address,
		City:       p.City,
		PostalCode: p.PostalCode,
	}
}

func ProfileFromModel(row *models.UserProfile) ShippingProfile {
	return ShippingProfile{
		Name:       row.Name,
		Email:      row.Email,
		Phone:      row.Phone,
		Address:    row.Address,
		City:       row.City,
		PostalCode: row.PostalCode,
	}
}
