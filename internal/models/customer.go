package models

import "time"

// Signup methods recorded on customer profiles.
const (
	SignupMethodEmailOTP = "email_otp"
	SignupMethodCheckout = "checkout"
)

// Account holds credentials for a storefront customer.
type Account struct {
	BaseModel
	Email         string `gorm:"uniqueIndex;size:255" json:"email"`
	FullName      string `json:"full_name"`
	Mobile        string `json:"mobile"`
	PasswordHash  string `json:"password_hash,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// TableName keeps the accounts in the shared profiles table.
func (Account) TableName() string {
	return "profiles"
}

// CustomerProfile is the promotional record kept for every known customer.
type CustomerProfile struct {
	BaseModel
	Email            string     `gorm:"uniqueIndex;size:255" json:"email"`
	FullName         string     `json:"full_name"`
	Mobile           string     `json:"mobile"`
	SignupDate       time.Time  `json:"signup_date"`
	EmailVerified    bool       `json:"email_verified"`
	SignupMethod     string     `json:"signup_method"`
	LastLoginAt      *time.Time `json:"last_login_at"`
	LoginCount       int        `json:"login_count"`
	MarketingConsent bool       `json:"marketing_consent"`
}

// LoginEvent is one entry of the login history.
type LoginEvent struct {
	Email     string    `json:"email"`
	Method    string    `json:"method"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	At        time.Time `json:"at"`
}
