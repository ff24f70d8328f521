package models

// Category groups products on the storefront (wine, whisky, cognac, ...).
type Category struct {
	BaseModel
	Slug        string `gorm:"uniqueIndex" json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
