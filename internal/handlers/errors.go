package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/charmntreats/internal/services"
)

// ErrorHandler renders every error as {"success": false, "error": ...}.
// Unexpected errors are logged and reported without detail.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	} else {
		log.Printf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// serviceError maps service errors onto HTTP errors.
func serviceError(err error) error {
	var otpErr *services.OTPError
	switch {
	case errors.As(err, &otpErr):
		return fiber.NewError(otpStatus(otpErr.Result.Reason), otpErr.Result.Message)
	case errors.Is(err, services.ErrInvalidCheckout),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrOTPWrongPurpose):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrEmailNotVerified):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrAccountExists),
		errors.Is(err, services.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrOrderNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrEmailNotSent):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return err
}

func otpStatus(reason services.VerifyReason) int {
	switch reason {
	case services.VerifyNotFound:
		return fiber.StatusNotFound
	case services.VerifyExpired:
		return fiber.StatusGone
	case services.VerifyAttemptsExceeded:
		return fiber.StatusTooManyRequests
	case services.VerifyUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadRequest
	}
}
