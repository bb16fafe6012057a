package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile stores the shipping fields a shopper opted to remember.
type UserProfile struct {
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Name       string    `gorm:"column:name"`
	Email      string    `gorm:"column:email"`
	Phone      string    `gorm:"column:phone"`
	Address    string    `gorm:"column:address"`
	City       string    `gorm:"column:city"`
	PostalCode string    `gorm:"column:postal_code"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
