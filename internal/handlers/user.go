package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/winenation/internal/models"
	"github.com/example/winenation/internal/utils"
)

// UserHandler manages back-office user administration.
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// ListUsers returns users with an optional role filter and pagination
// (admin). Supported query params: role, page, limit.
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)

	query := h.db.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var users []models.User
	if err := query.Order("created_at DESC").
		Limit(pagination.Limit).
		Offset(pagination.Offset).
		Find(&users).Error; err != nil {
		return err
	}

	listed := make([]fiber.Map, 0, len(users))
	for i := range users {
		listed = append(listed, publicUser(&users[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    listed,
		"meta": fiber.Map{
			"page":  pagination.Page,
			"limit": pagination.Limit,
			"total": total,
		},
	})
}

type roleUpdateRequest struct {
	Role string `json:"role"`
}

// UpdateUserRole promotes or demotes a user (admin). Demoting the last
// admin re-opens the setup endpoint rather than locking the back office.
func (h *UserHandler) UpdateUserRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	var req roleUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Role != models.RoleCustomer && req.Role != models.RoleAdmin {
		return fiber.NewError(fiber.StatusBadRequest, "role must be customer or admin")
	}

	res := h.db.Model(&models.User{}).Where("id = ?", id).Update("role", req.Role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}

	return c.JSON(fiber.Map{"success": true})
}
