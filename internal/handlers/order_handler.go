package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"digistore/internal/models"
	"digistore/internal/services"
	"digistore/internal/storage"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
	log      *logrus.Entry
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, log *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		log:      log.WithField("handler", "orders"),
	}
}

// RegisterRoutes registers checkout on the public router and order management
// on the admin-guarded router.
func (h *OrderHandler) RegisterRoutes(public, admin fiber.Router) {
	public.Post("/orders", h.HandleCreate)
	admin.Get("/orders", h.HandleList)
	admin.Get("/orders/:id", h.HandleGet)
	admin.Patch("/orders/:id/status", h.HandleUpdateStatus)
}

// HandleList returns one page of orders, filtered and sorted via query
// params: page, limit, search, searchBy, sortBy, sortOrder.
func (h *OrderHandler) HandleList(c *fiber.Ctx) error {
	params := services.OrderListParams{
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 10),
		Search:    c.Query("search"),
		SearchBy:  c.Query("searchBy"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	page, err := h.service.ListOrders(c.Context(), params)
	if err != nil {
		h.log.WithError(err).Error("failed to list orders")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
		})
	}
	return c.JSON(page)
}

// HandleGet returns a single order or 404.
func (h *OrderHandler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("id")
	order, err := h.service.GetOrderByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Order not found",
			})
		}
		h.log.WithError(err).WithField("id", id).Error("failed to get order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve order",
		})
	}
	return c.JSON(order)
}

// HandleCreate validates the checkout payload and creates the order.
// Notification delivery happens off the request path and cannot fail it.
func (h *OrderHandler) HandleCreate(c *fiber.Ctx) error {
	var order models.Order
	if err := c.BodyParser(&order); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(order); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	created, err := h.service.CreateOrder(c.Context(), &order)
	if err != nil {
		h.log.WithError(err).Error("failed to create order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create order",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// statusUpdateRequest is the PATCH body for status transitions.
type statusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=received processing completed cancelled"`
}

// HandleUpdateStatus runs a status transition. Insufficient stock on an
// un-cancel is reported as a 400 with the specific shortage, leaving both the
// order and product stock untouched.
func (h *OrderHandler) HandleUpdateStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var req statusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	order, err := h.service.UpdateOrderStatus(c.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Order not found",
			})
		case errors.Is(err, services.ErrInvalidStatus):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": err.Error(),
			})
		case errors.Is(err, services.ErrInsufficientStock):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Cannot resume order: insufficient stock",
				"error":   err.Error(),
			})
		}
		h.log.WithError(err).WithField("id", id).Error("failed to update order status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update order status",
		})
	}
	return c.JSON(order)
}
