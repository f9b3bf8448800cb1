package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a shared catalog entry. Only active products are listed,
// searched or recommended.
type Product struct {
	ID              string     `gorm:"type:text;primaryKey" json:"id"`
	Name            string     `gorm:"type:text;not null" json:"name"`
	Brand           string     `gorm:"type:text" json:"brand"`
	Description     string     `gorm:"type:text" json:"description,omitempty"`
	Price           float64    `json:"price"`
	PriceUnit       string     `gorm:"type:text" json:"price_unit,omitempty"`
	ImageURL        string     `gorm:"type:text" json:"image_url,omitempty"`
	Rating          float64    `json:"rating"`
	ProductCategory string     `gorm:"type:text;not null;index:idx_products_category" json:"product_category"`
	Attributes      Attributes `gorm:"type:text" json:"attributes"`
	IsActive        bool       `gorm:"not null;default:true;index:idx_products_active" json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string {
	return "products"
}

// BeforeCreate assigns an ID when none is set.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
