package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// Keys used by the storefront fallback storage.
const (
	KeyOrders             = "orders"
	KeyCustomerData       = "customer_data"
	KeyLoginHistory       = "login_history"
	KeyPermanentCustomers = "permanent_customers"
)

var validKey = regexp.MustCompile(`^[a-z0-9_]+$`)

// Store keeps JSON documents on local disk, one file per key. It stands in
// for browser storage when the primary database is unreachable, so every
// write replaces the whole document and the last writer wins.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates a store rooted at dir, creating the directory when needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("local store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid local store key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Load decodes the document stored under key into v. A missing or empty
// document leaves v untouched.
func (s *Store) Load(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(key, v)
}

// Save replaces the document stored under key.
func (s *Store) Save(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(key, v)
}

// Update loads the document under key into v, applies fn and saves the
// result. Nothing is written when fn returns an error.
func (s *Store) Update(key string, v any, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(key, v); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.save(key, v)
}

// Clear removes the document stored under key.
func (s *Store) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (s *Store) load(key string, v any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) save(key string, v any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}
