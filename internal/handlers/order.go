package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/charmntreats/internal/middleware"
	"github.com/example/charmntreats/internal/services"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Checkout records an order. Confirmation emails go out in the background
// and do not affect the response.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	var payload services.CheckoutPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.orders.Checkout(c.UserContext(), payload)
	if err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order_id":      order.OrderID,
			"status":        order.Status,
			"subtotal":      order.Subtotal,
			"shipping_cost": order.ShippingCost,
			"total_amount":  order.TotalAmount,
			"order_date":    order.OrderDate,
		},
	})
}

// Track returns an order with its progress indicator.
func (h *OrderHandler) Track(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	order, progress, err := h.orders.Track(c.UserContext(), c.Params("orderId"), email)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order":    order,
			"progress": progress,
		},
	})
}

// ListOrders returns the authenticated customer's orders.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	email, ok := middleware.GetCurrentEmail(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orders := h.orders.CustomerOrders(c.UserContext(), email)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
	})
}
