package models

import (
	"github.com/google/uuid"
)

// Product is a single bottle listing.
type Product struct {
	BaseModel
	Name           string     `json:"name"`
	CategoryID     *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	Category       *Category  `json:"category,omitempty"`
	Subcategory    string     `json:"subcategory"`
	Price          float64    `json:"price"`
	OriginalPrice  float64    `json:"original_price"`
	Rating         float64    `json:"rating"`
	Reviews        int        `json:"reviews"`
	Image          string     `json:"image"`
	Description    string     `json:"description"`
	Vintage        int        `json:"vintage"`
	Region         string     `json:"region"`
	AlcoholContent float64    `json:"alcohol_content"`
	Volume         string     `json:"volume"`
	StockQuantity  int        `json:"stock_quantity"`
	InStock        bool       `json:"in_stock"`
	Featured       bool       `json:"featured"`
}
