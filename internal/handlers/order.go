package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/winenation/internal/middleware"
	"github.com/example/winenation/internal/models"
	"github.com/example/winenation/internal/payment"
	"github.com/example/winenation/internal/services"
	"github.com/example/winenation/internal/utils"
)

// OrderHandler manages order read endpoints and back-office transitions.
type OrderHandler struct {
	db     *gorm.DB
	orders *services.OrderService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(db *gorm.DB, orders *services.OrderService) *OrderHandler {
	return &OrderHandler{db: db, orders: orders}
}

// ListOrders returns the authenticated user's orders, newest first.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var orders []models.Order
	if err := h.db.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": orders})
}

// GetOrder returns one of the authenticated user's orders.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.db.Preload("Items").
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// ListAllOrders returns every order for the back office, with optional
// status and payment_status filters.
func (h *OrderHandler) ListAllOrders(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)

	query := h.db.Model(&models.Order{}).Preload("Items").Preload("User")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if ps := c.Query("payment_status"); ps != "" {
		query = query.Where("payment_status = ?", ps)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").
		Limit(pagination.Limit).
		Offset(pagination.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"meta": fiber.Map{
			"page":  pagination.Page,
			"limit": pagination.Limit,
			"total": total,
		},
	})
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus applies a fulfillment transition (admin).
func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var req orderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.orders.AdvanceFulfillment(c.Context(), id, req.Status); err != nil {
		switch {
		case errors.Is(err, payment.ErrOrderNotFound):
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		case errors.Is(err, payment.ErrInvalidTransition):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}
