package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending         OrderStatus = "pending"
	OrderConfirmed       OrderStatus = "confirmed"
	OrderProcessing      OrderStatus = "processing"
	OrderReadyForPickup  OrderStatus = "ready_for_pickup"
	OrderOutForDelivery  OrderStatus = "out_for_delivery"
	OrderDelivered       OrderStatus = "delivered"
	OrderCancelled       OrderStatus = "cancelled"
	OrderRefunded        OrderStatus = "refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderReadyForPickup,
		OrderOutForDelivery, OrderDelivered, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PayCash      PaymentMethod = "cash"
	PayMpesa     PaymentMethod = "mpesa"
	PayCard      PaymentMethod = "card"
	PayInsurance PaymentMethod = "insurance"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCash, PayMpesa, PayCard, PayInsurance:
		return true
	}
	return false
}

type DeliveryOption string

const (
	DeliveryPickup   DeliveryOption = "pickup"
	DeliveryDelivery DeliveryOption = "delivery"
)

// OrderItem is one line. Price is the unit price captured at placement;
// Discount is a percentage in [0,100].
type OrderItem struct {
	ID          uint64          `json:"id"`
	OrderID     uint64          `json:"-"`
	DrugID      uint64          `json:"drugId"`
	InventoryID uint64          `json:"inventoryId"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
}

// Order straddles a patient and a pharmacy. Totals are computed once at
// placement and not reconciled afterwards.
type Order struct {
	ID                 uint64          `json:"id"`
	OrderNumber        string          `json:"orderNumber"`
	PatientID          uint64          `json:"patientId"`
	PharmacyID         uint64          `json:"pharmacyId"`
	Items              []OrderItem     `json:"items"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	FinalAmount        decimal.Decimal `json:"finalAmount"`
	Status             OrderStatus     `json:"status"`
	PaymentStatus      PaymentStatus   `json:"paymentStatus"`
	PaymentMethod      PaymentMethod   `json:"paymentMethod"`
	DeliveryOption     DeliveryOption  `json:"deliveryOption"`
	DeliveryAddress    string          `json:"deliveryAddress,omitempty"`
	PatientNotes       string          `json:"patientNotes,omitempty"`
	PharmacyNotes      string          `json:"pharmacyNotes,omitempty"`
	CancellationReason string          `json:"cancellationReason,omitempty"`
	ActualDelivery     *time.Time      `json:"actualDelivery,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}
