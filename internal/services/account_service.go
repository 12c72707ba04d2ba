package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/example/charmntreats/internal/models"
	"github.com/example/charmntreats/internal/utils"
)

const minPasswordLength = 6

var (
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrAccountExists      = errors.New("an account with this email already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email address is not verified")
	ErrOTPRejected        = errors.New("otp rejected")
	ErrOTPWrongPurpose    = errors.New("this code was issued for a different action, please request a new one")
	ErrEmailNotSent       = errors.New("verification email could not be sent")
)

// OTPError carries the verification outcome of a rejected code.
type OTPError struct {
	Result VerifyResult
}

func (e *OTPError) Error() string { return e.Result.Message }

func (e *OTPError) Is(target error) bool { return target == ErrOTPRejected }

// AccountStore persists accounts, profiles and logins.
type AccountStore interface {
	GetAccount(ctx context.Context, email string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	GetProfile(ctx context.Context, email string) (*models.CustomerProfile, error)
	SaveProfile(ctx context.Context, profile *models.CustomerProfile) error
	RecordLogin(ctx context.Context, event models.LoginEvent) error
}

// OTPSender emails one-time codes.
type OTPSender interface {
	SendOTP(ctx context.Context, email, code string, purpose models.OTPPurpose) bool
}

// AuthConfig holds token and admin credential settings.
type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	AdminEmail        string
	AdminPasswordHash string
}

// AccountService handles customer signup, login and password resets.
type AccountService struct {
	store  AccountStore
	otp    *OTPService
	sender OTPSender
	auth   AuthConfig
	now    func() time.Time
}

// NewAccountService constructs AccountService.
func NewAccountService(store AccountStore, otp *OTPService, sender OTPSender, auth AuthConfig) *AccountService {
	return &AccountService{store: store, otp: otp, sender: sender, auth: auth, now: time.Now}
}

// SignupInput is the data collected by the signup form.
type SignupInput struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FullName         string `json:"full_name"`
	Mobile           string `json:"mobile"`
	MarketingConsent bool   `json:"marketing_consent"`
}

// AuthResult is returned after a successful login or signup.
type AuthResult struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"account"`
}

// LoginMeta describes where a login came from.
type LoginMeta struct {
	IP        string
	UserAgent string
}

// RequestSignup stores an unverified account and emails a signup code.
// Repeating it before verification replaces the password and the code.
func (s *AccountService) RequestSignup(ctx context.Context, in SignupInput) error {
	email, err := validEmail(in.Email)
	if err != nil {
		return err
	}
	if len(in.Password) < minPasswordLength {
		return ErrWeakPassword
	}

	account, err := s.store.GetAccount(ctx, email)
	switch {
	case err == nil && account.EmailVerified:
		return ErrAccountExists
	case err != nil:
		account = &models.Account{Email: email}
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = hash
	account.FullName = strings.TrimSpace(in.FullName)
	account.Mobile = strings.TrimSpace(in.Mobile)

	if err := s.store.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}

	profile, err := s.store.GetProfile(ctx, email)
	if err != nil {
		profile = &models.CustomerProfile{Email: email, SignupDate: s.now()}
	}
	profile.FullName = account.FullName
	profile.Mobile = account.Mobile
	profile.SignupMethod = models.SignupMethodEmailOTP
	profile.MarketingConsent = in.MarketingConsent
	if err := s.store.SaveProfile(ctx, profile); err != nil {
		log.Printf("[Auth] could not record profile for %s: %v", email, err)
	}

	return s.sendCode(ctx, email, models.OTPPurposeSignup)
}

// ResendCode issues a fresh code of purpose for email.
func (s *AccountService) ResendCode(ctx context.Context, email string, purpose models.OTPPurpose) error {
	email, err := validEmail(email)
	if err != nil {
		return err
	}
	if _, err := s.store.GetAccount(ctx, email); err != nil {
		if purpose == models.OTPPurposeReset {
			return nil
		}
		return ErrAccountNotFound
	}
	return s.sendCode(ctx, email, purpose)
}

// ConfirmSignup verifies the signup code and activates the account.
func (s *AccountService) ConfirmSignup(ctx context.Context, email, code string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if err := s.verify(ctx, email, code, models.OTPPurposeSignup); err != nil {
		return nil, err
	}

	account, err := s.store.GetAccount(ctx, email)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	account.EmailVerified = true
	if err := s.store.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	profile, err := s.store.GetProfile(ctx, email)
	if err != nil {
		profile = &models.CustomerProfile{
			Email:        email,
			FullName:     account.FullName,
			Mobile:       account.Mobile,
			SignupDate:   s.now(),
			SignupMethod: models.SignupMethodEmailOTP,
		}
	}
	profile.EmailVerified = true
	if err := s.store.SaveProfile(ctx, profile); err != nil {
		log.Printf("[Auth] could not mark profile verified for %s: %v", email, err)
	}

	log.Printf("[Auth] account %s verified", email)
	return s.issue(account)
}

// Login checks the password of a verified account.
func (s *AccountService) Login(ctx context.Context, email, password string, meta LoginMeta) (*AuthResult, error) {
	email = NormalizeEmail(email)

	account, err := s.store.GetAccount(ctx, email)
	if err != nil || !utils.CheckPassword(account.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !account.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	event := models.LoginEvent{Email: email, Method: "password", IP: meta.IP, UserAgent: meta.UserAgent, At: s.now()}
	if err := s.store.RecordLogin(ctx, event); err != nil {
		log.Printf("[Auth] could not record login for %s: %v", email, err)
	}

	return s.issue(account)
}

// RequestPasswordReset emails a reset code. Unknown addresses succeed
// silently so the endpoint cannot be used to probe for accounts.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := validEmail(email)
	if err != nil {
		return err
	}
	if _, err := s.store.GetAccount(ctx, email); err != nil {
		log.Printf("[Auth] password reset requested for unknown %s", email)
		return nil
	}
	return s.sendCode(ctx, email, models.OTPPurposeReset)
}

// ResetPassword verifies the reset code and stores the new password.
func (s *AccountService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = NormalizeEmail(email)
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	if err := s.verify(ctx, email, code, models.OTPPurposeReset); err != nil {
		return err
	}

	account, err := s.store.GetAccount(ctx, email)
	if err != nil {
		return ErrAccountNotFound
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = hash
	// Receiving the reset code proves ownership of the address.
	account.EmailVerified = true
	if err := s.store.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}

	log.Printf("[Auth] password reset for %s", email)
	return nil
}

// CodeRemaining reports the seconds left on the live code for email.
func (s *AccountService) CodeRemaining(ctx context.Context, email string) int {
	return s.otp.RemainingSeconds(ctx, email)
}

// ProfileView is what a customer sees about themselves.
type ProfileView struct {
	Email            string     `json:"email"`
	FullName         string     `json:"full_name"`
	Mobile           string     `json:"mobile"`
	EmailVerified    bool       `json:"email_verified"`
	SignupDate       time.Time  `json:"signup_date"`
	LastLoginAt      *time.Time `json:"last_login_at"`
	LoginCount       int        `json:"login_count"`
	MarketingConsent bool       `json:"marketing_consent"`
}

// Profile returns the account and profile data for email.
func (s *AccountService) Profile(ctx context.Context, email string) (*ProfileView, error) {
	account, err := s.store.GetAccount(ctx, email)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	view := &ProfileView{
		Email:         account.Email,
		FullName:      account.FullName,
		Mobile:        account.Mobile,
		EmailVerified: account.EmailVerified,
		SignupDate:    account.CreatedAt,
	}
	if profile, err := s.store.GetProfile(ctx, email); err == nil {
		view.SignupDate = profile.SignupDate
		view.LastLoginAt = profile.LastLoginAt
		view.LoginCount = profile.LoginCount
		view.MarketingConsent = profile.MarketingConsent
	}
	return view, nil
}

// ProfileUpdate lists the fields a customer may change. Nil fields are kept.
type ProfileUpdate struct {
	FullName         *string `json:"full_name"`
	Mobile           *string `json:"mobile"`
	MarketingConsent *bool   `json:"marketing_consent"`
}

// UpdateProfile applies update to the account and profile of email.
func (s *AccountService) UpdateProfile(ctx context.Context, email string, update ProfileUpdate) (*ProfileView, error) {
	account, err := s.store.GetAccount(ctx, email)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	if update.FullName != nil {
		account.FullName = strings.TrimSpace(*update.FullName)
	}
	if update.Mobile != nil {
		account.Mobile = strings.TrimSpace(*update.Mobile)
	}
	if err := s.store.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	profile, err := s.store.GetProfile(ctx, email)
	if err != nil {
		profile = &models.CustomerProfile{
			Email:         account.Email,
			SignupDate:    account.CreatedAt,
			EmailVerified: account.EmailVerified,
			SignupMethod:  models.SignupMethodEmailOTP,
		}
	}
	profile.FullName = account.FullName
	profile.Mobile = account.Mobile
	if update.MarketingConsent != nil {
		profile.MarketingConsent = *update.MarketingConsent
	}
	if err := s.store.SaveProfile(ctx, profile); err != nil {
		log.Printf("[Auth] could not update profile for %s: %v", account.Email, err)
	}

	return s.Profile(ctx, email)
}

// AdminLogin checks the configured admin credentials.
func (s *AccountService) AdminLogin(email, password string) (string, error) {
	if s.auth.AdminEmail == "" || s.auth.AdminPasswordHash == "" {
		return "", ErrInvalidCredentials
	}
	if !strings.EqualFold(NormalizeEmail(email), s.auth.AdminEmail) || !utils.CheckPassword(s.auth.AdminPasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	return utils.GenerateToken(s.auth.JWTSecret, NormalizeEmail(email), utils.RoleAdmin, s.auth.TokenTTL)
}

func (s *AccountService) verify(ctx context.Context, email, code string, purpose models.OTPPurpose) error {
	result := s.otp.Verify(ctx, email, code)
	if !result.Success {
		return &OTPError{Result: result}
	}
	if result.Purpose != purpose {
		log.Printf("[Auth] %s code used for %s by %s", result.Purpose, purpose, email)
		return ErrOTPWrongPurpose
	}
	return nil
}

func (s *AccountService) sendCode(ctx context.Context, email string, purpose models.OTPPurpose) error {
	code, err := s.otp.Generate(ctx, email, purpose)
	if err != nil {
		return err
	}
	if !s.sender.SendOTP(ctx, email, code, purpose) {
		return ErrEmailNotSent
	}
	return nil
}

func (s *AccountService) issue(account *models.Account) (*AuthResult, error) {
	token, err := utils.GenerateToken(s.auth.JWTSecret, account.Email, utils.RoleCustomer, s.auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	safe := *account
	safe.PasswordHash = ""
	return &AuthResult{Token: token, Account: &safe}, nil
}

func validEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}
