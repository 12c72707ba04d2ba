package models

import "time"

// Payment methods accepted at checkout.
const (
	PaymentCOD    = "cod"
	PaymentOnline = "online"
)

// Order is a placed order. Line items are joined by OrderID value, not by
// a database relation, so an order row may exist without its items.
type Order struct {
	BaseModel
	OrderID         string      `gorm:"uniqueIndex;size:64" json:"order_id"`
	CustomerName    string      `json:"customer_name"`
	CustomerEmail   string      `gorm:"index" json:"customer_email"`
	CustomerPhone   string      `json:"customer_phone"`
	CustomerAddress string      `json:"customer_address"`
	CustomerCity    string      `json:"customer_city"`
	CustomerState   string      `json:"customer_state"`
	CustomerPincode string      `json:"customer_pincode"`
	Subtotal        float64     `json:"subtotal"`
	ShippingCost    float64     `json:"shipping_cost"`
	TotalAmount     float64     `json:"total_amount"`
	PaymentMethod   string      `json:"payment_method"`
	Status          OrderStatus `gorm:"size:32;index" json:"status"`
	OrderDate       time.Time   `json:"order_date"`
	Items           []OrderItem `gorm:"-" json:"items"`
}

// OrderItem is a single product line belonging to an order.
type OrderItem struct {
	BaseModel
	OrderID       string  `gorm:"index;size:64" json:"order_id"`
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Category      string  `json:"category"`
	CatalogNumber string  `json:"catalog_number"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	LineTotal     float64 `json:"line_total"`
	ImageURL      string  `json:"image_url"`
}
