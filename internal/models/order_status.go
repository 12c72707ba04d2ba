package models

import (
	"fmt"
	"strings"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	StatusConfirmed      OrderStatus = "confirmed"
	StatusProcessing     OrderStatus = "processing"
	StatusPacked         OrderStatus = "packed"
	StatusShipped        OrderStatus = "shipped"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
	StatusReturned       OrderStatus = "returned"
)

// OrderedStatuses is the normal fulfilment path, in order.
var OrderedStatuses = []OrderStatus{
	StatusConfirmed,
	StatusProcessing,
	StatusPacked,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
}

var statusLabels = map[OrderStatus]string{
	StatusConfirmed:      "Order Confirmed",
	StatusProcessing:     "Processing",
	StatusPacked:         "Packed",
	StatusShipped:        "Shipped",
	StatusOutForDelivery: "Out for Delivery",
	StatusDelivered:      "Delivered",
	StatusCancelled:      "Cancelled",
	StatusReturned:       "Returned",
}

// ParseOrderStatus normalises s and rejects unknown statuses.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return status, nil
}

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusReturned
}

// Label returns the human readable name.
func (s OrderStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func (s OrderStatus) index() int {
	for i, st := range OrderedStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

// CanTransitionTo checks whether an admin may move an order from s to next.
// Any move between known statuses is allowed, backwards corrections included,
// until the order is cancelled or returned.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s.IsValid() && next.IsValid() && s != next && !s.IsTerminal()
}

// ProgressStep is one step of the tracking indicator.
type ProgressStep struct {
	Status   OrderStatus `json:"status"`
	Label    string      `json:"label"`
	Complete bool        `json:"complete"`
	Current  bool        `json:"current"`
}

// OrderProgress drives the tracking page.
type OrderProgress struct {
	Steps        []ProgressStep `json:"steps"`
	Percent      int            `json:"percent"`
	Halted       bool           `json:"halted"`
	HaltedStatus OrderStatus    `json:"halted_status,omitempty"`
	HaltedLabel  string         `json:"halted_label,omitempty"`
}

// Progress marks every step up to and including the current status as
// complete. Cancelled and returned orders are not on the ordered path, so
// they report a halted indicator with no completed steps.
func Progress(status OrderStatus) OrderProgress {
	current := status.index()
	progress := OrderProgress{Steps: make([]ProgressStep, 0, len(OrderedStatuses))}

	for i, st := range OrderedStatuses {
		progress.Steps = append(progress.Steps, ProgressStep{
			Status:   st,
			Label:    st.Label(),
			Complete: current >= 0 && i <= current,
			Current:  i == current,
		})
	}

	if current < 0 {
		progress.Halted = true
		progress.HaltedStatus = status
		progress.HaltedLabel = status.Label()
		return progress
	}

	progress.Percent = (current + 1) * 100 / len(OrderedStatuses)
	return progress
}
