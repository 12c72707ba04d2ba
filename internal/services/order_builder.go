package services

import (
	"errors"
	"strings"
	"time"

	"github.com/example/charmntreats/internal/models"
)

// ShippingPolicy decides the shipping surcharge. Both the stored order and
// the confirmation emails use the same policy value.
type ShippingPolicy struct {
	FreeThreshold float64
	FlatFee       float64
}

// DefaultShippingPolicy is free shipping from 500, otherwise a flat 50.
var DefaultShippingPolicy = ShippingPolicy{FreeThreshold: 500, FlatFee: 50}

// Cost returns the shipping surcharge for subtotal.
func (p ShippingPolicy) Cost(subtotal float64) float64 {
	if subtotal >= p.FreeThreshold {
		return 0
	}
	return p.FlatFee
}

// CustomerInfo is the contact and delivery block of a checkout.
type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// CartItem is one cart line as submitted by the storefront.
type CartItem struct {
	ProductID     string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	CatalogNumber string  `json:"catalog_number"`
	Price         float64 `json:"price"`
	Quantity      int     `json:"quantity"`
	ImageURL      string  `json:"image"`
}

// CheckoutPayload is the body posted when a customer places an order.
type CheckoutPayload struct {
	OrderID       string       `json:"orderId"`
	CustomerInfo  CustomerInfo `json:"customerInfo"`
	Items         []CartItem   `json:"items"`
	TotalAmount   float64      `json:"totalAmount"`
	PaymentMethod string       `json:"paymentMethod"`
	OrderDate     time.Time    `json:"orderDate"`
}

// Subtotal sums price times quantity over the cart.
func (p CheckoutPayload) Subtotal() float64 {
	var subtotal float64
	for _, item := range p.Items {
		subtotal += item.Price * float64(item.Quantity)
	}
	return subtotal
}

// ErrInvalidCheckout wraps every checkout validation failure.
var ErrInvalidCheckout = errors.New("invalid checkout")

// ValidateCheckout reports the first missing required field.
func ValidateCheckout(p CheckoutPayload) error {
	required := []struct {
		value string
		field string
	}{
		{p.OrderID, "orderId"},
		{p.CustomerInfo.Name, "customer name"},
		{p.CustomerInfo.Email, "customer email"},
		{p.CustomerInfo.Phone, "customer phone"},
		{p.CustomerInfo.Address, "customer address"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return errors.Join(ErrInvalidCheckout, errors.New(r.field+" is required"))
		}
	}
	if len(p.Items) == 0 {
		return errors.Join(ErrInvalidCheckout, errors.New("at least one item is required"))
	}
	for _, item := range p.Items {
		if item.Quantity <= 0 {
			return errors.Join(ErrInvalidCheckout, errors.New("item quantity must be positive"))
		}
	}
	return nil
}

// OrderBuilder turns a checkout payload into an order record.
type OrderBuilder struct {
	shipping ShippingPolicy
	now      func() time.Time
}

// NewOrderBuilder creates a builder using policy for shipping.
func NewOrderBuilder(policy ShippingPolicy) *OrderBuilder {
	return &OrderBuilder{shipping: policy, now: time.Now}
}

// Shipping exposes the builder's policy.
func (b *OrderBuilder) Shipping() ShippingPolicy {
	return b.shipping
}

// Build normalises payload into an order. It does not validate: blank
// fields are copied as they are. A caller supplied total is kept even when
// it differs from subtotal plus shipping.
func (b *OrderBuilder) Build(p CheckoutPayload) models.Order {
	now := b.now()
	subtotal := p.Subtotal()
	shipping := b.shipping.Cost(subtotal)

	total := p.TotalAmount
	if total == 0 {
		total = subtotal + shipping
	}

	orderDate := p.OrderDate
	if orderDate.IsZero() {
		orderDate = now
	}

	order := models.Order{
		OrderID:         p.OrderID,
		CustomerName:    p.CustomerInfo.Name,
		CustomerEmail:   NormalizeEmail(p.CustomerInfo.Email),
		CustomerPhone:   p.CustomerInfo.Phone,
		CustomerAddress: p.CustomerInfo.Address,
		CustomerCity:    p.CustomerInfo.City,
		CustomerState:   p.CustomerInfo.State,
		CustomerPincode: p.CustomerInfo.Pincode,
		Subtotal:        subtotal,
		ShippingCost:    shipping,
		TotalAmount:     total,
		PaymentMethod:   p.PaymentMethod,
		Status:          models.StatusConfirmed,
		OrderDate:       orderDate,
		Items:           make([]models.OrderItem, 0, len(p.Items)),
	}
	order.CreatedAt = now

	for _, item := range p.Items {
		order.Items = append(order.Items, models.OrderItem{
			OrderID:       p.OrderID,
			ProductID:     item.ProductID,
			ProductName:   item.Name,
			Category:      item.Category,
			CatalogNumber: item.CatalogNumber,
			Quantity:      item.Quantity,
			UnitPrice:     item.Price,
			LineTotal:     item.Price * float64(item.Quantity),
			ImageURL:      item.ImageURL,
		})
	}

	return order
}
