package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/charmntreats/internal/models"
	"github.com/example/charmntreats/internal/services"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	accounts *services.AccountService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Signup stores an unverified account and emails the signup code.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req services.SignupInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password are required")
	}

	if err := h.accounts.RequestSignup(c.UserContext(), req); err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"message":    "Verification code sent to your email.",
		"expires_in": h.accounts.CodeRemaining(c.UserContext(), req.Email),
	})
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifySignup confirms the emailed code and logs the customer in.
func (h *AuthHandler) VerifySignup(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and code are required")
	}

	result, err := h.accounts.ConfirmSignup(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return otpFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a verified customer.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password are required")
	}

	result, err := h.accounts.Login(c.UserContext(), req.Email, req.Password, services.LoginMeta{
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

type emailRequest struct {
	Email string `json:"email"`
}

// ForgotPassword emails a reset code. The response is the same whether or
// not the account exists.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.accounts.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "If an account exists for this email, a reset code has been sent.",
	})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ResetPassword sets a new password after checking the reset code.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email, code and new_password are required")
	}

	if err := h.accounts.ResetPassword(c.UserContext(), req.Email, req.Code, req.NewPassword); err != nil {
		return otpFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password updated. You can now log in.",
	})
}

// OTPRemaining reports the seconds left on the caller's live code.
func (h *AuthHandler) OTPRemaining(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"remaining_seconds": h.accounts.CodeRemaining(c.UserContext(), email),
		},
	})
}

type sendOTPRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// SendOTP issues and emails a fresh code. The code is always generated on
// the server; a code supplied in the request body is ignored.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	purpose := models.OTPPurposeSignup
	if req.Type == string(models.OTPPurposeReset) || req.Type == "password_reset" {
		purpose = models.OTPPurposeReset
	}

	if err := h.accounts.ResendCode(c.UserContext(), req.Email, purpose); err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"expires_in": h.accounts.CodeRemaining(c.UserContext(), req.Email),
	})
}

// otpFailure reports a rejected code with its typed reason so clients can
// branch without parsing the message.
func otpFailure(c *fiber.Ctx, err error) error {
	var otpErr *services.OTPError
	if !errors.As(err, &otpErr) {
		return serviceError(err)
	}

	body := fiber.Map{
		"success": false,
		"error":   otpErr.Result.Message,
		"reason":  otpErr.Result.Reason,
	}
	if otpErr.Result.Reason == services.VerifyInvalidCode {
		body["remaining_attempts"] = otpErr.Result.Remaining
	}
	return c.Status(otpStatus(otpErr.Result.Reason)).JSON(body)
}
