package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Product is the catalog/inventory row. Stock is only ever decremented via
// the conditional SQL update in the order service, never read-modify-write.
type Product struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	Description string  `gorm:"type:text" json:"description"`
	Category    string  `gorm:"type:varchar(80);index" json:"category"`
	Price       int64   `gorm:"not null" json:"price" validate:"gte=0"`
	Stock       int     `gorm:"not null;default:0" json:"stock" validate:"gte=0"`
	WeightKg    float64 `gorm:"not null;default:0" json:"weight_kg"`
	Visibility  bool    `gorm:"not null;default:true" json:"visibility"`
	Archived    bool    `gorm:"not null;default:false;index" json:"archived"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) Validate() error {
	v := validator.New()
	return v.Struct(p)
}
