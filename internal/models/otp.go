package models

import "time"

// OTPPurpose tells what a one-time code was issued for.
type OTPPurpose string

const (
	OTPPurposeSignup OTPPurpose = "signup"
	OTPPurposeReset  OTPPurpose = "reset"
)

// IsValid reports whether p is a known purpose.
func (p OTPPurpose) IsValid() bool {
	return p == OTPPurposeSignup || p == OTPPurposeReset
}

// OTPRecord is the single live code for an email address.
type OTPRecord struct {
	Email     string     `gorm:"primaryKey;size:255" json:"email"`
	Code      string     `gorm:"size:10;not null" json:"code"`
	Purpose   OTPPurpose `gorm:"size:20;not null" json:"purpose"`
	ExpiresAt time.Time  `gorm:"index;not null" json:"expires_at"`
	Attempts  int        `gorm:"not null;default:0" json:"attempts"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName maps OTP records to otp_codes.
func (OTPRecord) TableName() string {
	return "otp_codes"
}
