package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/charmntreats/internal/models"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotSaved     = errors.New("order could not be saved")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

// OrderStore is the dual-write order storage used by the service.
type OrderStore interface {
	Store(ctx context.Context, order models.Order) bool
	GetByCustomer(ctx context.Context, email string) []models.Order
	GetAll(ctx context.Context) []models.Order
	Get(ctx context.Context, orderID string) (*models.Order, bool)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) bool
}

// ProfileStore records the customers who placed orders.
type ProfileStore interface {
	GetProfile(ctx context.Context, email string) (*models.CustomerProfile, error)
	SaveProfile(ctx context.Context, profile *models.CustomerProfile) error
	ListProfiles(ctx context.Context, offset, limit int) ([]models.CustomerProfile, int64)
}

// OrderNotifier sends the order confirmation emails.
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, order models.Order) OrderEmailResult
}

// OrderService runs checkout, tracking and the admin order workflow.
type OrderService struct {
	builder  *OrderBuilder
	orders   OrderStore
	profiles ProfileStore
	notifier OrderNotifier
	// dispatch runs confirmation emails off the request path.
	dispatch func(func())
	now      func() time.Time
}

// NewOrderService constructs OrderService. profiles and notifier may be nil.
func NewOrderService(builder *OrderBuilder, orders OrderStore, profiles ProfileStore, notifier OrderNotifier) *OrderService {
	return &OrderService{
		builder:  builder,
		orders:   orders,
		profiles: profiles,
		notifier: notifier,
		dispatch: func(fn func()) { go fn() },
		now:      time.Now,
	}
}

// Checkout validates payload, records the order and queues the
// confirmation emails.
func (s *OrderService) Checkout(ctx context.Context, payload CheckoutPayload) (models.Order, error) {
	if err := ValidateCheckout(payload); err != nil {
		return models.Order{}, err
	}

	order := s.builder.Build(payload)
	if !s.orders.Store(ctx, order) {
		log.Printf("[Order] order %s was not saved anywhere", order.OrderID)
		return models.Order{}, ErrOrderNotSaved
	}
	log.Printf("[Order] order %s placed by %s, total %.2f", order.OrderID, order.CustomerEmail, order.TotalAmount)

	s.rememberCustomer(ctx, order)

	if s.notifier != nil {
		s.dispatch(func() {
			s.notifier.SendOrderConfirmation(context.Background(), order)
		})
	}

	return order, nil
}

// rememberCustomer keeps a promotional profile for first-time buyers.
func (s *OrderService) rememberCustomer(ctx context.Context, order models.Order) {
	if s.profiles == nil {
		return
	}
	if _, err := s.profiles.GetProfile(ctx, order.CustomerEmail); err == nil {
		return
	}

	profile := &models.CustomerProfile{
		Email:        order.CustomerEmail,
		FullName:     order.CustomerName,
		Mobile:       order.CustomerPhone,
		SignupDate:   s.now(),
		SignupMethod: models.SignupMethodCheckout,
	}
	if err := s.profiles.SaveProfile(ctx, profile); err != nil {
		log.Printf("[Order] could not record customer %s: %v", order.CustomerEmail, err)
	}
}

// Preview builds the order record for payload without storing it.
func (s *OrderService) Preview(payload CheckoutPayload) models.Order {
	return s.builder.Build(payload)
}

// Track returns an order and its progress. The email must match the one
// the order was placed with.
func (s *OrderService) Track(ctx context.Context, orderID, email string) (*models.Order, models.OrderProgress, error) {
	order, ok := s.orders.Get(ctx, strings.TrimSpace(orderID))
	if !ok || !strings.EqualFold(order.CustomerEmail, NormalizeEmail(email)) {
		return nil, models.OrderProgress{}, ErrOrderNotFound
	}
	return order, models.Progress(order.Status), nil
}

// CustomerOrders lists the orders placed with email.
func (s *OrderService) CustomerOrders(ctx context.Context, email string) []models.Order {
	return s.orders.GetByCustomer(ctx, NormalizeEmail(email))
}

// AllOrders lists every order, optionally only those in status.
func (s *OrderService) AllOrders(ctx context.Context, status models.OrderStatus) []models.Order {
	all := s.orders.GetAll(ctx)
	if status == "" {
		return all
	}

	filtered := make([]models.Order, 0, len(all))
	for _, o := range all {
		if o.Status == status {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// UpdateStatus moves an order to next when the transition is allowed.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, next models.OrderStatus) (*models.Order, error) {
	order, ok := s.orders.Get(ctx, orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, next)
	}

	if !s.orders.UpdateStatus(ctx, orderID, next) {
		return nil, ErrOrderNotFound
	}

	log.Printf("[Order] order %s moved from %s to %s", orderID, order.Status, next)
	order.Status = next
	return order, nil
}

// DashboardStats summarises the order book for the admin dashboard.
type DashboardStats struct {
	TotalOrders   int                        `json:"total_orders"`
	ByStatus      map[models.OrderStatus]int `json:"by_status"`
	TotalRevenue  float64                    `json:"total_revenue"`
	TodayOrders   int                        `json:"today_orders"`
	TodayRevenue  float64                    `json:"today_revenue"`
	CustomerCount int64                      `json:"customer_count"`
}

// Dashboard computes order counts and revenue. Cancelled and returned
// orders count towards their status but not towards revenue.
func (s *OrderService) Dashboard(ctx context.Context) DashboardStats {
	orders := s.orders.GetAll(ctx)
	stats := DashboardStats{
		TotalOrders: len(orders),
		ByStatus:    make(map[models.OrderStatus]int),
	}

	now := s.now()
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	for _, o := range orders {
		stats.ByStatus[o.Status]++
		counted := !o.Status.IsTerminal()
		if counted {
			stats.TotalRevenue += o.TotalAmount
		}
		if !o.OrderDate.Before(startOfDay) {
			stats.TodayOrders++
			if counted {
				stats.TodayRevenue += o.TotalAmount
			}
		}
	}

	if s.profiles != nil {
		_, stats.CustomerCount = s.profiles.ListProfiles(ctx, 0, 1)
	}
	return stats
}
