package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/charmntreats/internal/middleware"
	"github.com/example/charmntreats/internal/services"
)

// ProfileHandler serves the customer's own profile.
type ProfileHandler struct {
	accounts *services.AccountService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(accounts *services.AccountService) *ProfileHandler {
	return &ProfileHandler{accounts: accounts}
}

// GetProfile returns the current customer's profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	email, ok := middleware.GetCurrentEmail(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	view, err := h.accounts.Profile(c.UserContext(), email)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": view})
}

// UpdateProfile changes name, mobile or marketing consent.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	email, ok := middleware.GetCurrentEmail(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req services.ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	view, err := h.accounts.UpdateProfile(c.UserContext(), email, req)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": view})
}
