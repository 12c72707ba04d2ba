package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/example/charmntreats/internal/models"
)

const (
	OTPLength        = 6
	OTPTTL           = 10 * time.Minute
	OTPMaxAttempts   = 3
	OTPSweepInterval = 5 * time.Minute
)

// VerifyReason classifies the outcome of an OTP verification.
type VerifyReason string

const (
	VerifyOK               VerifyReason = "ok"
	VerifyNotFound         VerifyReason = "not_found"
	VerifyExpired          VerifyReason = "expired"
	VerifyAttemptsExceeded VerifyReason = "attempts_exceeded"
	VerifyInvalidCode      VerifyReason = "invalid_code"
	VerifyUnavailable      VerifyReason = "unavailable"
)

// VerifyResult is returned by OTPService.Verify.
type VerifyResult struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Reason    VerifyReason      `json:"reason"`
	Remaining int               `json:"remaining_attempts,omitempty"`
	Purpose   models.OTPPurpose `json:"-"`
}

// OTPService issues and checks one-time email codes.
type OTPService struct {
	store OTPStore
	now   func() time.Time
}

// NewOTPService constructs an OTPService over store.
func NewOTPService(store OTPStore) *OTPService {
	return &OTPService{store: store, now: time.Now}
}

// NormalizeEmail lower-cases and trims an address so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Generate issues a new code for email, replacing any live one.
func (s *OTPService) Generate(ctx context.Context, email string, purpose models.OTPPurpose) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", errors.New("email is required")
	}
	if !purpose.IsValid() {
		return "", fmt.Errorf("unknown otp purpose %q", purpose)
	}

	code, err := generateCode(OTPLength)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	now := s.now()
	rec := &models.OTPRecord{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(OTPTTL),
		Attempts:  0,
		CreatedAt: now,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	log.Printf("[OTP] issued %s code for %s", purpose, email)
	return code, nil
}

// Verify checks input against the live code for email. Expired and
// exhausted records are removed; a wrong code costs one attempt.
func (s *OTPService) Verify(ctx context.Context, email, input string) VerifyResult {
	email = NormalizeEmail(email)

	rec, err := s.store.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ErrOTPNotFound) {
			return VerifyResult{Reason: VerifyNotFound, Message: "No OTP found for this email. Please request a new one."}
		}
		log.Printf("[OTP] lookup failed for %s: %v", email, err)
		return VerifyResult{Reason: VerifyUnavailable, Message: "Verification is temporarily unavailable. Please try again."}
	}

	if s.now().After(rec.ExpiresAt) {
		s.delete(ctx, email)
		return VerifyResult{Reason: VerifyExpired, Message: "OTP has expired. Please request a new one."}
	}

	if rec.Attempts >= OTPMaxAttempts {
		s.delete(ctx, email)
		return VerifyResult{Reason: VerifyAttemptsExceeded, Message: "Too many failed attempts. Please request a new OTP."}
	}

	if rec.Code != strings.TrimSpace(input) {
		attempts, err := s.store.AddAttempt(ctx, email, rec.Code, OTPMaxAttempts)
		switch {
		case errors.Is(err, ErrOTPExhausted):
			s.delete(ctx, email)
			return VerifyResult{Reason: VerifyAttemptsExceeded, Message: "Too many failed attempts. Please request a new OTP."}
		case errors.Is(err, ErrOTPNotFound):
			return VerifyResult{Reason: VerifyNotFound, Message: "No OTP found for this email. Please request a new one."}
		case err != nil:
			log.Printf("[OTP] failed to record attempt for %s: %v", email, err)
			attempts = rec.Attempts + 1
		}
		remaining := OTPMaxAttempts - attempts
		return VerifyResult{
			Reason:    VerifyInvalidCode,
			Remaining: remaining,
			Message:   fmt.Sprintf("Invalid OTP. %d attempts remaining.", remaining),
		}
	}

	s.delete(ctx, email)
	return VerifyResult{Success: true, Reason: VerifyOK, Message: "OTP verified successfully.", Purpose: rec.Purpose}
}

// RemainingSeconds reports how long the live code for email stays valid.
func (s *OTPService) RemainingSeconds(ctx context.Context, email string) int {
	rec, err := s.store.Get(ctx, NormalizeEmail(email))
	if err != nil {
		return 0
	}

	left := rec.ExpiresAt.Sub(s.now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// Sweep removes every expired record.
func (s *OTPService) Sweep(ctx context.Context) int64 {
	removed, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		log.Printf("[OTP] sweep failed: %v", err)
		return 0
	}
	if removed > 0 {
		log.Printf("[OTP] sweep removed %d expired codes", removed)
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (s *OTPService) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = OTPSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *OTPService) delete(ctx context.Context, email string) {
	if err := s.store.Delete(ctx, email); err != nil {
		log.Printf("[OTP] failed to delete code for %s: %v", email, err)
	}
}

func generateCode(length int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
