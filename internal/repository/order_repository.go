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

// OrderPrimary is the hosted order storage: an orders table and a separate
// order_items table joined by order id.
type OrderPrimary interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertItems(ctx context.Context, items []models.OrderItem) error
	FindByEmail(ctx context.Context, email string) ([]models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	ItemsFor(ctx context.Context, orderID string) ([]models.OrderItem, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (int64, error)
}

type gormOrderPrimary struct {
	db *gorm.DB
}

// NewGormOrderPrimary stores orders through GORM.
func NewGormOrderPrimary(db *gorm.DB) OrderPrimary {
	return &gormOrderPrimary{db: db}
}

func (p *gormOrderPrimary) InsertOrder(ctx context.Context, order *models.Order) error {
	return p.db.WithContext(ctx).Create(order).Error
}

func (p *gormOrderPrimary) InsertItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).Create(&items).Error
}

func (p *gormOrderPrimary) FindByEmail(ctx context.Context, email string) ([]models.Order, error) {
	var orders []models.Order
	err := p.db.WithContext(ctx).
		Where("LOWER(customer_email) = ?", strings.ToLower(email)).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (p *gormOrderPrimary) FindAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := p.db.WithContext(ctx).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (p *gormOrderPrimary) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := p.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (p *gormOrderPrimary) ItemsFor(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := p.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&items).Error
	return items, err
}

func (p *gormOrderPrimary) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (int64, error) {
	result := p.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	return result.RowsAffected, result.Error
}

// OrderRepository writes orders to the primary store and falls back to the
// local store under the orders key whenever the primary fails. Orders are
// never reconciled between the two, so one order can end up in both.
type OrderRepository struct {
	primary  OrderPrimary
	fallback *localstore.Store
}

// NewOrderRepository constructs OrderRepository.
func NewOrderRepository(primary OrderPrimary, fallback *localstore.Store) *OrderRepository {
	return &OrderRepository{primary: primary, fallback: fallback}
}

// Store records order. The order row and its items are written separately;
// if either write fails the whole order is appended to the fallback array.
// It returns false only when the fallback write fails as well.
func (r *OrderRepository) Store(ctx context.Context, order models.Order) bool {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	if err := r.storePrimary(ctx, order); err != nil {
		log.Printf("[Store] primary write failed for order %s, using local storage: %v", order.OrderID, err)
		return r.appendFallback(order)
	}

	log.Printf("[Store] order %s saved to primary store", order.OrderID)
	return true
}

func (r *OrderRepository) storePrimary(ctx context.Context, order models.Order) error {
	if r.primary == nil {
		return errors.New("primary store not configured")
	}

	row := order
	row.Items = nil
	if err := r.primary.InsertOrder(ctx, &row); err != nil {
		return err
	}

	items := make([]models.OrderItem, len(order.Items))
	copy(items, order.Items)
	for i := range items {
		items[i].OrderID = order.OrderID
	}
	return r.primary.InsertItems(ctx, items)
}

func (r *OrderRepository) appendFallback(order models.Order) bool {
	var orders []models.Order
	err := r.fallback.Update(localstore.KeyOrders, &orders, func() error {
		orders = append(orders, order)
		return nil
	})
	if err != nil {
		log.Printf("[Store] local storage write failed for order %s: %v", order.OrderID, err)
		return false
	}
	return true
}

// GetByCustomer lists the orders placed with email, newest first. Orders
// that only reached local storage are merged in with the primary rows.
func (r *OrderRepository) GetByCustomer(ctx context.Context, email string) []models.Order {
	email = strings.ToLower(strings.TrimSpace(email))

	var orders []models.Order
	if r.primary != nil {
		found, err := r.primary.FindByEmail(ctx, email)
		if err != nil {
			log.Printf("[Store] primary lookup failed for %s: %v", email, err)
		} else {
			orders = r.withItems(ctx, found)
		}
	}

	local := make([]models.Order, 0)
	for _, o := range r.loadFallback() {
		if strings.EqualFold(o.CustomerEmail, email) {
			local = append(local, o)
		}
	}
	return mergeOrders(orders, local)
}

// GetAll lists every order, newest first, from both stores.
func (r *OrderRepository) GetAll(ctx context.Context) []models.Order {
	var orders []models.Order
	if r.primary != nil {
		found, err := r.primary.FindAll(ctx)
		if err != nil {
			log.Printf("[Store] primary listing failed: %v", err)
		} else {
			orders = r.withItems(ctx, found)
		}
	}

	return mergeOrders(orders, r.loadFallback())
}

// mergeOrders adds local orders missing from primary. A primary row wins
// over a local copy with the same order id.
func mergeOrders(primary, local []models.Order) []models.Order {
	seen := make(map[string]struct{}, len(primary))
	merged := make([]models.Order, 0, len(primary)+len(local))
	for _, o := range primary {
		seen[o.OrderID] = struct{}{}
		merged = append(merged, o)
	}
	for _, o := range local {
		if _, ok := seen[o.OrderID]; ok {
			continue
		}
		merged = append(merged, o)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

// Get finds a single order by its public order id.
func (r *OrderRepository) Get(ctx context.Context, orderID string) (*models.Order, bool) {
	if r.primary != nil {
		order, err := r.primary.FindByOrderID(ctx, orderID)
		switch {
		case err == nil:
			withItems := r.withItems(ctx, []models.Order{*order})
			return &withItems[0], true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			log.Printf("[Store] primary lookup failed for order %s: %v", orderID, err)
		}
	}

	for _, o := range r.loadFallback() {
		if o.OrderID == orderID {
			found := o
			return &found, true
		}
	}
	return nil, false
}

// UpdateStatus sets the status of orderID. When the primary update fails or
// matches no row, the local copy is rewritten instead. It reports whether
// either store held the order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) bool {
	if r.primary != nil {
		rows, err := r.primary.UpdateStatus(ctx, orderID, status)
		if err == nil && rows > 0 {
			return true
		}
		if err != nil {
			log.Printf("[Store] primary status update failed for order %s: %v", orderID, err)
		}
	}

	var orders []models.Order
	found := false
	err := r.fallback.Update(localstore.KeyOrders, &orders, func() error {
		for i := range orders {
			if orders[i].OrderID == orderID {
				orders[i].Status = status
				orders[i].UpdatedAt = time.Now()
				found = true
			}
		}
		if !found {
			return errOrderNotInFallback
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, errOrderNotInFallback) {
			log.Printf("[Store] local status update failed for order %s: %v", orderID, err)
		}
		return false
	}
	return found
}

var errOrderNotInFallback = errors.New("order not in local storage")

func (r *OrderRepository) withItems(ctx context.Context, orders []models.Order) []models.Order {
	for i := range orders {
		items, err := r.primary.ItemsFor(ctx, orders[i].OrderID)
		if err != nil {
			log.Printf("[Store] item lookup failed for order %s: %v", orders[i].OrderID, err)
			items = nil
		}
		if items == nil {
			items = []models.OrderItem{}
		}
		orders[i].Items = items
	}
	return orders
}

func (r *OrderRepository) loadFallback() []models.Order {
	var orders []models.Order
	if err := r.fallback.Load(localstore.KeyOrders, &orders); err != nil {
		log.Printf("[Store] local storage read failed: %v", err)
		return []models.Order{}
	}
	if orders == nil {
		return []models.Order{}
	}
	return orders
}
