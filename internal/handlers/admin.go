package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/charmntreats/internal/models"
	"github.com/example/charmntreats/internal/repository"
	"github.com/example/charmntreats/internal/services"
	"github.com/example/charmntreats/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	accounts  *services.AccountService
	orders    *services.OrderService
	customers *repository.CustomerRepository
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(accounts *services.AccountService, orders *services.OrderService, customers *repository.CustomerRepository) *AdminHandler {
	return &AdminHandler{accounts: accounts, orders: orders, customers: customers}
}

// Login issues an admin token for the configured owner credentials.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	token, err := h.accounts.AdminLogin(req.Email, req.Password)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
	})
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.orders.Dashboard(c.UserContext()),
	})
}

// ListAllOrders returns all orders with pagination and an optional status
// filter.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	var status models.OrderStatus
	if v := c.Query("status"); v != "" {
		parsed, err := models.ParseOrderStatus(v)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		status = parsed
	}

	orders := h.orders.AllOrders(c.UserContext(), status)
	total := len(orders)

	start := pg.Offset
	if start < 0 || start > total {
		start = total
	}
	end := total
	if pg.Limit < total-start {
		end = start + pg.Limit
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders[start:end],
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus moves an order along the status state machine.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	order, err := h.orders.UpdateStatus(c.UserContext(), c.Params("orderId"), status)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order_id": order.OrderID,
			"status":   order.Status,
			"progress": models.Progress(order.Status),
		},
	})
}

// ListCustomers returns the known customer profiles.
func (h *AdminHandler) ListCustomers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	profiles, total := h.customers.ListProfiles(c.UserContext(), pg.Offset, pg.Limit)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    profiles,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}
