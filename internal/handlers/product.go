package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/winenation/internal/models"
	"github.com/example/winenation/internal/utils"
)

// ProductHandler manages product endpoints.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// ListProducts returns products with optional filters and pagination.
// Supported query params: category (slug), subcategory, in_stock, featured,
// page, limit.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)

	query := h.db.Model(&models.Product{}).Preload("Category")

	if slug := c.Query("category"); slug != "" {
		query = query.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", slug)
	}
	if sub := c.Query("subcategory"); sub != "" {
		query = query.Where("subcategory = ?", sub)
	}
	if c.Query("in_stock") == "true" {
		query = query.Where("in_stock = ?", true)
	}
	if c.Query("featured") == "true" {
		query = query.Where("featured = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Order("created_at DESC").
		Limit(pagination.Limit).
		Offset(pagination.Offset).
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    products,
		"meta": fiber.Map{
			"page":  pagination.Page,
			"limit": pagination.Limit,
			"total": total,
		},
	})
}

// GetProduct returns a single product by id.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.db.Preload("Category").Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

type productRequest struct {
	Name           string  `json:"name"`
	CategoryID     string  `json:"category_id"`
	Subcategory    string  `json:"subcategory"`
	Price          float64 `json:"price"`
	OriginalPrice  float64 `json:"original_price"`
	Image          string  `json:"image"`
	Description    string  `json:"description"`
	Vintage        int     `json:"vintage"`
	Region         string  `json:"region"`
	AlcoholContent float64 `json:"alcohol_content"`
	Volume         string  `json:"volume"`
	StockQuantity  int     `json:"stock_quantity"`
	Featured       bool    `json:"featured"`
}

// CreateProduct adds a product (admin).
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Price <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "name and a positive price are required")
	}

	product := models.Product{
		Name:           req.Name,
		Subcategory:    req.Subcategory,
		Price:          req.Price,
		OriginalPrice:  req.OriginalPrice,
		Image:          req.Image,
		Description:    req.Description,
		Vintage:        req.Vintage,
		Region:         req.Region,
		AlcoholContent: req.AlcoholContent,
		Volume:         req.Volume,
		StockQuantity:  req.StockQuantity,
		InStock:        req.StockQuantity > 0,
		Featured:       req.Featured,
	}

	if req.CategoryID != "" {
		if id, err := uuid.Parse(req.CategoryID); err == nil {
			product.CategoryID = &id
		}
	}

	if err := h.db.Create(&product).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// UpdateProduct updates a product (admin).
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.db.Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.CategoryID != "" {
		if cid, err := uuid.Parse(req.CategoryID); err == nil {
			product.CategoryID = &cid
		}
	}
	if req.Subcategory != "" {
		product.Subcategory = req.Subcategory
	}
	if req.Price > 0 {
		product.Price = req.Price
	}
	if req.OriginalPrice > 0 {
		product.OriginalPrice = req.OriginalPrice
	}
	if req.Image != "" {
		product.Image = req.Image
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Vintage != 0 {
		product.Vintage = req.Vintage
	}
	if req.Region != "" {
		product.Region = req.Region
	}
	if req.AlcoholContent > 0 {
		product.AlcoholContent = req.AlcoholContent
	}
	if req.Volume != "" {
		product.Volume = req.Volume
	}
	product.Featured = req.Featured

	if err := h.db.Save(&product).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

type stockUpdateRequest struct {
	StockQuantity int `json:"stock_quantity"`
}

// UpdateStock sets a product's stock quantity (admin).
func (h *ProductHandler) UpdateStock(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var req stockUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.StockQuantity < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "stock quantity cannot be negative")
	}

	res := h.db.Model(&models.Product{}).Where("id = ?", id).Updates(map[string]any{
		"stock_quantity": req.StockQuantity,
		"in_stock":       req.StockQuantity > 0,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "product not found")
	}

	return c.JSON(fiber.Map{"success": true})
}

// DeleteProduct removes a product (admin).
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	if err := h.db.Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
