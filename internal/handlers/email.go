package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/charmntreats/internal/services"
	"github.com/example/charmntreats/internal/services/mail"
)

// EmailHandler exposes the mail chain over HTTP.
type EmailHandler struct {
	orders   *services.OrderService
	notifier *services.Notifier
	chain    *mail.Chain
}

// NewEmailHandler constructs EmailHandler.
func NewEmailHandler(orders *services.OrderService, notifier *services.Notifier, chain *mail.Chain) *EmailHandler {
	return &EmailHandler{orders: orders, notifier: notifier, chain: chain}
}

// SendOrderConfirmation emails the customer and store owner about an order
// without recording it.
func (h *EmailHandler) SendOrderConfirmation(c *fiber.Ctx) error {
	var payload services.CheckoutPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(payload.CustomerInfo.Email) == "" || strings.TrimSpace(payload.CustomerInfo.Name) == "" ||
		len(payload.Items) == 0 || strings.TrimSpace(payload.OrderID) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing required fields")
	}

	order := h.orders.Preview(payload)
	result := h.notifier.SendOrderConfirmation(c.UserContext(), order)
	if !result.Customer {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to send order confirmation email",
			"details": "no email provider accepted the message",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order confirmation emails sent",
	})
}

// MethodNotAllowed answers non-POST requests to POST-only endpoints.
func MethodNotAllowed(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAllow, fiber.MethodPost)
	return fiber.NewError(fiber.StatusMethodNotAllowed, "Method not allowed")
}

type sendEmailRequest struct {
	To          string `json:"to"`
	Email       string `json:"email"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"htmlContent"`
}

// SendEmail delivers an arbitrary HTML email through the provider chain.
func (h *EmailHandler) SendEmail(c *fiber.Ctx) error {
	var req sendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	to := req.To
	if to == "" {
		to = req.Email
	}
	if to == "" || req.Subject == "" || req.HTMLContent == "" {
		return fiber.NewError(fiber.StatusBadRequest, "to, subject and htmlContent are required")
	}

	report := h.chain.Deliver(c.UserContext(), mail.Message{To: to, Subject: req.Subject, HTML: req.HTMLContent})
	if !report.Delivered {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success":  false,
			"error":    "Failed to send email",
			"attempts": report.Attempts,
		})
	}

	body := fiber.Map{"success": true, "provider": report.Provider}
	if report.MessageID != "" {
		body["messageId"] = report.MessageID
	}
	return c.JSON(body)
}
