package repository

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/charmntreats/internal/localstore"
	"github.com/example/charmntreats/internal/models"
)

// LoginHistoryLimit caps the number of login events kept locally.
const LoginHistoryLimit = 200

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrProfileNotFound = errors.New("customer profile not found")
)

// CustomerRepository persists accounts and customer profiles. Like orders,
// it falls back to local storage when the database cannot be reached:
// accounts under customer_data and profiles under permanent_customers.
type CustomerRepository struct {
	db       *gorm.DB
	fallback *localstore.Store
	now      func() time.Time
}

// NewCustomerRepository constructs CustomerRepository. db may be nil, in
// which case only local storage is used.
func NewCustomerRepository(db *gorm.DB, fallback *localstore.Store) *CustomerRepository {
	return &CustomerRepository{db: db, fallback: fallback, now: time.Now}
}

// GetAccount finds the account registered with email.
func (r *CustomerRepository) GetAccount(ctx context.Context, email string) (*models.Account, error) {
	email = normalizeEmail(email)

	if r.db != nil {
		var account models.Account
		err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
		if err == nil {
			return &account, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Customer] account lookup failed for %s: %v", email, err)
		}
	}

	var accounts []models.Account
	if err := r.fallback.Load(localstore.KeyCustomerData, &accounts); err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.Email == email {
			found := a
			return &found, nil
		}
	}
	return nil, ErrAccountNotFound
}

// SaveAccount inserts or updates account, matching on email.
func (r *CustomerRepository) SaveAccount(ctx context.Context, account *models.Account) error {
	account.Email = normalizeEmail(account.Email)
	if account.ID == uuid.Nil {
		if existing, err := r.GetAccount(ctx, account.Email); err == nil {
			account.ID = existing.ID
			account.CreatedAt = existing.CreatedAt
		}
	}

	if r.db != nil {
		err := r.db.WithContext(ctx).Save(account).Error
		if err == nil {
			return nil
		}
		log.Printf("[Customer] account write failed for %s, using local storage: %v", account.Email, err)
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := r.now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	var accounts []models.Account
	return r.fallback.Update(localstore.KeyCustomerData, &accounts, func() error {
		for i := range accounts {
			if accounts[i].Email == account.Email {
				accounts[i] = *account
				return nil
			}
		}
		accounts = append(accounts, *account)
		return nil
	})
}

// GetProfile finds the customer profile for email.
func (r *CustomerRepository) GetProfile(ctx context.Context, email string) (*models.CustomerProfile, error) {
	email = normalizeEmail(email)

	if r.db != nil {
		var profile models.CustomerProfile
		err := r.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error
		if err == nil {
			return &profile, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Customer] profile lookup failed for %s: %v", email, err)
		}
	}

	for _, p := range r.loadProfiles() {
		if p.Email == email {
			found := p
			return &found, nil
		}
	}
	return nil, ErrProfileNotFound
}

// SaveProfile inserts or updates profile, matching on email.
func (r *CustomerRepository) SaveProfile(ctx context.Context, profile *models.CustomerProfile) error {
	profile.Email = normalizeEmail(profile.Email)
	if profile.ID == uuid.Nil {
		if existing, err := r.GetProfile(ctx, profile.Email); err == nil {
			profile.ID = existing.ID
			profile.CreatedAt = existing.CreatedAt
		}
	}

	if r.db != nil {
		err := r.db.WithContext(ctx).Save(profile).Error
		if err == nil {
			return nil
		}
		log.Printf("[Customer] profile write failed for %s, using local storage: %v", profile.Email, err)
	}

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	now := r.now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	var profiles []models.CustomerProfile
	return r.fallback.Update(localstore.KeyPermanentCustomers, &profiles, func() error {
		for i := range profiles {
			if profiles[i].Email == profile.Email {
				profiles[i] = *profile
				return nil
			}
		}
		profiles = append(profiles, *profile)
		return nil
	})
}

// ListProfiles returns one page of profiles, newest signup first, and the
// total count.
func (r *CustomerRepository) ListProfiles(ctx context.Context, offset, limit int) ([]models.CustomerProfile, int64) {
	if r.db != nil {
		var total int64
		var profiles []models.CustomerProfile
		err := r.db.WithContext(ctx).Model(&models.CustomerProfile{}).Count(&total).Error
		if err == nil {
			err = r.db.WithContext(ctx).Order("signup_date DESC").Offset(offset).Limit(limit).Find(&profiles).Error
		}
		if err == nil && total > 0 {
			return profiles, total
		}
		if err != nil {
			log.Printf("[Customer] profile listing failed: %v", err)
		}
	}

	profiles := r.loadProfiles()
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].SignupDate.After(profiles[j].SignupDate)
	})
	total := int64(len(profiles))
	if offset < 0 || offset >= len(profiles) || limit <= 0 {
		return []models.CustomerProfile{}, total
	}
	end := len(profiles)
	if limit < end-offset {
		end = offset + limit
	}
	return profiles[offset:end], total
}

// RecordLogin bumps the login counters on the customer's profile and appends
// event to the local login history.
func (r *CustomerRepository) RecordLogin(ctx context.Context, event models.LoginEvent) error {
	event.Email = normalizeEmail(event.Email)
	if event.At.IsZero() {
		event.At = r.now()
	}

	if profile, err := r.GetProfile(ctx, event.Email); err == nil {
		at := event.At
		profile.LastLoginAt = &at
		profile.LoginCount++
		if err := r.SaveProfile(ctx, profile); err != nil {
			log.Printf("[Customer] login counter update failed for %s: %v", event.Email, err)
		}
	}

	var history []models.LoginEvent
	return r.fallback.Update(localstore.KeyLoginHistory, &history, func() error {
		history = append(history, event)
		if len(history) > LoginHistoryLimit {
			history = history[len(history)-LoginHistoryLimit:]
		}
		return nil
	})
}

// LoginHistory returns the kept login events, oldest first.
func (r *CustomerRepository) LoginHistory() ([]models.LoginEvent, error) {
	var history []models.LoginEvent
	if err := r.fallback.Load(localstore.KeyLoginHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (r *CustomerRepository) loadProfiles() []models.CustomerProfile {
	var profiles []models.CustomerProfile
	if err := r.fallback.Load(localstore.KeyPermanentCustomers, &profiles); err != nil {
		log.Printf("[Customer] local profile read failed: %v", err)
		return []models.CustomerProfile{}
	}
	return profiles
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
