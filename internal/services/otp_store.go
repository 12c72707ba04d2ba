package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/charmntreats/internal/models"
)

var (
	// ErrOTPNotFound is returned by OTP stores when no record exists for an email.
	ErrOTPNotFound = errors.New("otp record not found")
	// ErrOTPExhausted is returned by AddAttempt once the attempt ceiling is reached.
	ErrOTPExhausted = errors.New("otp attempts exhausted")
)

// OTPStore keeps at most one live code per email.
type OTPStore interface {
	Get(ctx context.Context, email string) (*models.OTPRecord, error)
	Put(ctx context.Context, rec *models.OTPRecord) error
	// AddAttempt atomically records one failed attempt against the record for
	// email holding code, as long as fewer than ceiling attempts were made, and
	// returns the new count. A record replaced by a newer code counts as absent.
	AddAttempt(ctx context.Context, email, code string, ceiling int) (int, error)
	Delete(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MemoryOTPStore is a process-local store. Codes issued by one instance are
// invisible to others, so use GormOTPStore when running more than one.
type MemoryOTPStore struct {
	mu      sync.RWMutex
	records map[string]models.OTPRecord
}

// NewMemoryOTPStore creates an empty in-memory store.
func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{records: make(map[string]models.OTPRecord)}
}

func (s *MemoryOTPStore) Get(_ context.Context, email string) (*models.OTPRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[email]
	if !ok {
		return nil, ErrOTPNotFound
	}
	return &rec, nil
}

func (s *MemoryOTPStore) Put(_ context.Context, rec *models.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.Email] = *rec
	return nil
}

func (s *MemoryOTPStore) AddAttempt(_ context.Context, email, code string, ceiling int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[email]
	if !ok || rec.Code != code {
		return 0, ErrOTPNotFound
	}
	if rec.Attempts >= ceiling {
		return rec.Attempts, ErrOTPExhausted
	}
	rec.Attempts++
	s.records[email] = rec
	return rec.Attempts, nil
}

func (s *MemoryOTPStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, email)
	return nil
}

func (s *MemoryOTPStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for email, rec := range s.records {
		if now.After(rec.ExpiresAt) {
			delete(s.records, email)
			removed++
		}
	}
	return removed, nil
}

// GormOTPStore keeps codes in the otp_codes table so every instance sees them.
type GormOTPStore struct {
	db *gorm.DB
}

// NewGormOTPStore creates a database-backed OTP store.
func NewGormOTPStore(db *gorm.DB) *GormOTPStore {
	return &GormOTPStore{db: db}
}

func (s *GormOTPStore) Get(ctx context.Context, email string) (*models.OTPRecord, error) {
	var rec models.OTPRecord
	if err := s.db.WithContext(ctx).First(&rec, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOTPNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *GormOTPStore) Put(ctx context.Context, rec *models.OTPRecord) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
}

// AddAttempt increments in a single conditional UPDATE so concurrent wrong
// guesses on different instances cannot push the count past ceiling.
func (s *GormOTPStore) AddAttempt(ctx context.Context, email, code string, ceiling int) (int, error) {
	var attempts int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OTPRecord{}).
			Where("email = ? AND code = ? AND attempts < ?", email, code, ceiling).
			UpdateColumn("attempts", gorm.Expr("attempts + 1"))
		if result.Error != nil {
			return result.Error
		}

		var rec models.OTPRecord
		if err := tx.First(&rec, "email = ? AND code = ?", email, code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOTPNotFound
			}
			return err
		}
		attempts = rec.Attempts
		if result.RowsAffected == 0 {
			return ErrOTPExhausted
		}
		return nil
	})
	return attempts, err
}

func (s *GormOTPStore) Delete(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&models.OTPRecord{}).Error
}

func (s *GormOTPStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.OTPRecord{})
	return result.RowsAffected, result.Error
}
