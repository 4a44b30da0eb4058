// Package queue defines the domain events exchanged over RabbitMQ together
// with the publisher and the logging consumer.
package queue

import "fmt"

// Queue names. Each event type has its own durable queue.
const (
	QueueOrderPlaced           = "order.placed"
	QueueOrderStatusChanged    = "order.status_changed"
	QueuePharmacyStatusChanged = "pharmacy.status_changed"
)

// AllQueues lists every queue the consumer subscribes to.
var AllQueues = []string{QueueOrderPlaced, QueueOrderStatusChanged, QueuePharmacyStatusChanged}

type OrderPlacedItem struct {
	InventoryID uint64 `json:"inventory_id"`
	DrugID      uint64 `json:"drug_id"`
	Quantity    int    `json:"quantity"`
}

// OrderPlacedEvent is published after an order and its stock decrements
// have been committed.
type OrderPlacedEvent struct {
	OrderID     uint64            `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	PatientID   uint64            `json:"patient_id"`
	PharmacyID  uint64            `json:"pharmacy_id"`
	Items       []OrderPlacedItem `json:"items"`
	FinalAmount string            `json:"final_amount"`
	PlacedAt    string            `json:"placed_at"`
}

type OrderStatusChangedEvent struct {
	OrderID     uint64 `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	ChangedBy   uint64 `json:"changed_by"`
	ChangedAt   string `json:"changed_at"`
}

type PharmacyStatusChangedEvent struct {
	PharmacyID      uint64 `json:"pharmacy_id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	ChangedBy       uint64 `json:"changed_by"`
	ChangedAt       string `json:"changed_at"`
}

func (e OrderPlacedEvent) describe() string {
	return fmt.Sprintf("[%s] Order placed | order=%s | order_id=%d | patient_id=%d | pharmacy_id=%d | items=%d | final=%s",
		e.PlacedAt, e.OrderNumber, e.OrderID, e.PatientID, e.PharmacyID, len(e.Items), e.FinalAmount)
}

func (e OrderStatusChangedEvent) describe() string {
	return fmt.Sprintf("[%s] Order status | order=%s | order_id=%d | status=%s | by=%d",
		e.ChangedAt, e.OrderNumber, e.OrderID, e.Status, e.ChangedBy)
}

func (e PharmacyStatusChangedEvent) describe() string {
	line := fmt.Sprintf("[%s] Pharmacy status | pharmacy_id=%d | name=%q | status=%s | by=%d",
		e.ChangedAt, e.PharmacyID, e.Name, e.Status, e.ChangedBy)
	if e.RejectionReason != "" {
		line += fmt.Sprintf(" | reason=%q", e.RejectionReason)
	}
	return line
}
