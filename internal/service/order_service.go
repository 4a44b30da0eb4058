package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/orders"
	"github.com/pharmapin/pharmapin/internal/queue"
)

// maxOrderNumberAttempts bounds retries on order-number collisions.
const maxOrderNumberAttempts = 3

type OrderLineInput struct {
	InventoryID uint64          `json:"inventoryId"`
	Quantity    int             `json:"quantity"`
	Discount    decimal.Decimal `json:"discount"`
}

type PlaceOrderInput struct {
	PharmacyID      uint64               `json:"pharmacyId"`
	Items           []OrderLineInput     `json:"items"`
	DeliveryOption  model.DeliveryOption `json:"deliveryOption"`
	DeliveryAddress string               `json:"deliveryAddress"`
	PaymentMethod   model.PaymentMethod  `json:"paymentMethod"`
	PatientNotes    string               `json:"patientNotes"`
	DiscountAmount  decimal.Decimal      `json:"discountAmount"`
}

type StatusInput struct {
	Status             model.OrderStatus `json:"status"`
	PharmacyNotes      *string           `json:"pharmacyNotes"`
	CancellationReason string            `json:"cancellationReason"`
}

type OrderService struct {
	Orders     OrderStore
	Pharmacies PharmacyStore
	Events     EventPublisher
	Numbers    orders.NumberGenerator
	Now        func() time.Time
}

func NewOrderService(o OrderStore, p PharmacyStore, events EventPublisher) *OrderService {
	if o == nil || p == nil {
		panic("nil store passed to NewOrderService")
	}
	return &OrderService{Orders: o, Pharmacies: p, Events: orNop(events), Now: time.Now}
}

// Place validates the request, then inside one transaction decrements stock
// for every line with a conditional update and inserts the order. Any
// failure rolls back all decrements made so far.
func (s *OrderService) Place(ctx context.Context, a Actor, in PlaceOrderInput) (*model.Order, error) {
	if a.Role != model.RolePatient {
		return nil, apperr.New(apperr.CodeForbidden, "only patients place orders")
	}
	if err := validatePlacement(&in); err != nil {
		return nil, err
	}
	ph, err := s.Pharmacies.GetByID(ctx, in.PharmacyID)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	if !ph.Searchable() {
		return nil, apperr.New(apperr.CodeConflict, "pharmacy is not accepting orders")
	}

	var placed *model.Order
	err = s.Orders.InTx(ctx, func(tx OrderTx) error {
		items := make([]model.OrderItem, 0, len(in.Items))
		for i, line := range in.Items {
			inv, err := tx.GetInventory(ctx, line.InventoryID)
			if err != nil {
				if apperr.CodeOf(err) == apperr.CodeNotFound {
					return apperr.Validation(map[string]string{
						"items[" + itoa(i) + "].inventoryId": "inventory not found",
					})
				}
				return err
			}
			if inv.PharmacyID != in.PharmacyID {
				return apperr.Validation(map[string]string{
					"items[" + itoa(i) + "].inventoryId": "inventory belongs to another pharmacy",
				})
			}
			if !inv.IsAvailable || inv.Quantity < line.Quantity {
				return apperr.Newf(apperr.CodeInsufficientStock,
					"insufficient stock for inventory %d: %d on hand, %d requested", inv.ID, inv.Quantity, line.Quantity)
			}
			if err := tx.DecrementStock(ctx, inv.ID, line.Quantity); err != nil {
				return err
			}
			items = append(items, model.OrderItem{
				DrugID:      inv.DrugID,
				InventoryID: inv.ID,
				Quantity:    line.Quantity,
				Price:       inv.Price,
				Discount:    line.Discount,
			})
		}
		totals, err := orders.Compute(items, in.DiscountAmount)
		if err != nil {
			return err
		}
		o := &model.Order{
			PatientID:       a.UserID,
			PharmacyID:      in.PharmacyID,
			Items:           items,
			TotalAmount:     totals.Total,
			DiscountAmount:  totals.Discount,
			FinalAmount:     totals.Final,
			Status:          model.OrderPending,
			PaymentStatus:   model.PaymentPending,
			PaymentMethod:   in.PaymentMethod,
			DeliveryOption:  in.DeliveryOption,
			DeliveryAddress: in.DeliveryAddress,
			PatientNotes:    in.PatientNotes,
		}
		for attempt := 1; ; attempt++ {
			o.OrderNumber = s.Numbers.Next()
			err = tx.InsertOrder(ctx, o)
			if err == nil || apperr.CodeOf(err) != apperr.CodeDuplicateEntry || attempt == maxOrderNumberAttempts {
				break
			}
		}
		if err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	s.publishPlaced(ctx, placed)
	return placed, nil
}

func validatePlacement(in *PlaceOrderInput) error {
	f := map[string]string{}
	if in.PharmacyID == 0 {
		f["pharmacyId"] = "pharmacy is required"
	}
	if len(in.Items) == 0 {
		f["items"] = "at least one item is required"
	}
	seen := map[uint64]bool{}
	for i, it := range in.Items {
		key := "items[" + itoa(i) + "]"
		if it.InventoryID == 0 {
			f[key+".inventoryId"] = "inventory is required"
		} else if seen[it.InventoryID] {
			f[key+".inventoryId"] = "inventory listed twice"
		}
		seen[it.InventoryID] = true
		if it.Quantity < 1 {
			f[key+".quantity"] = "quantity must be at least 1"
		}
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = model.PayCash
	} else if !in.PaymentMethod.Valid() {
		f["paymentMethod"] = "unknown payment method"
	}
	switch in.DeliveryOption {
	case "":
		in.DeliveryOption = model.DeliveryPickup
	case model.DeliveryPickup:
	case model.DeliveryDelivery:
		if strings.TrimSpace(in.DeliveryAddress) == "" {
			f["deliveryAddress"] = "delivery address is required for delivery"
		}
	default:
		f["deliveryOption"] = "unknown delivery option"
	}
	in.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	in.PatientNotes = strings.TrimSpace(in.PatientNotes)
	return apperr.Validation(f)
}

func (s *OrderService) ListMine(ctx context.Context, a Actor, status model.OrderStatus, pg Page) ([]model.Order, int64, error) {
	if a.Role != model.RolePatient {
		return nil, 0, apperr.New(apperr.CodeForbidden, "only patients have orders")
	}
	return s.list(ctx, OrderQuery{PatientID: a.UserID, Status: status, Page: pg})
}

// ListForPharmacy lists orders placed with the caller's pharmacy.
func (s *OrderService) ListForPharmacy(ctx context.Context, a Actor, status model.OrderStatus, pg Page) ([]model.Order, int64, error) {
	if a.Role != model.RolePharmacist {
		return nil, 0, apperr.New(apperr.CodeForbidden, "only pharmacists have pharmacy orders")
	}
	p, err := s.Pharmacies.GetByOwner(ctx, a.UserID)
	if err != nil {
		return nil, 0, apperr.Unavailable(err)
	}
	return s.list(ctx, OrderQuery{PharmacyID: p.ID, Status: status, Page: pg})
}

func (s *OrderService) list(ctx context.Context, q OrderQuery) ([]model.Order, int64, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, apperr.Newf(apperr.CodeInvalidInput, "unknown status %q", q.Status)
	}
	items, total, err := s.Orders.List(ctx, q)
	return items, total, apperr.Unavailable(err)
}

// Get returns an order to its patient, the owning pharmacist or an admin.
func (s *OrderService) Get(ctx context.Context, a Actor, id uint64) (*model.Order, error) {
	o, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	if _, err := s.relation(ctx, a, o); err != nil {
		return nil, err
	}
	return o, nil
}

type orderRelation int

const (
	relAdmin orderRelation = iota
	relPharmacy
	relPatient
)

func (s *OrderService) relation(ctx context.Context, a Actor, o *model.Order) (orderRelation, error) {
	switch {
	case a.IsAdmin():
		return relAdmin, nil
	case a.Role == model.RolePatient && o.PatientID == a.UserID:
		return relPatient, nil
	case a.Role == model.RolePharmacist:
		p, err := s.Pharmacies.GetByOwner(ctx, a.UserID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return 0, apperr.Unavailable(err)
		}
		if err == nil && p.ID == o.PharmacyID {
			return relPharmacy, nil
		}
	}
	return 0, apperr.New(apperr.CodeForbidden, "not your order")
}

// UpdateStatus sets any enum status as admin or owning pharmacist. A patient
// may only cancel their own pending order.
func (s *OrderService) UpdateStatus(ctx context.Context, a Actor, id uint64, in StatusInput) (*model.Order, error) {
	if !in.Status.Valid() {
		return nil, apperr.Validation(map[string]string{"status": "unknown order status"})
	}
	o, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	rel, err := s.relation(ctx, a, o)
	if err != nil {
		return nil, err
	}
	if rel == relPatient {
		if in.Status != model.OrderCancelled {
			return nil, apperr.New(apperr.CodeForbidden, "patients may only cancel orders")
		}
		if o.Status != model.OrderPending {
			return nil, apperr.New(apperr.CodeConflict, "only pending orders can be cancelled")
		}
	}
	now := s.Now().UTC()
	o.Status = in.Status
	if in.Status == model.OrderDelivered {
		o.ActualDelivery = &now
	}
	if in.Status == model.OrderCancelled {
		o.CancellationReason = strings.TrimSpace(in.CancellationReason)
	}
	if in.PharmacyNotes != nil && rel != relPatient {
		o.PharmacyNotes = strings.TrimSpace(*in.PharmacyNotes)
	}
	if err := s.Orders.UpdateStatus(ctx, o); err != nil {
		return nil, apperr.Unavailable(err)
	}
	_ = s.Events.Publish(ctx, queue.QueueOrderStatusChanged, queue.OrderStatusChangedEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
		ChangedBy:   a.UserID,
		ChangedAt:   now.Format(time.RFC3339),
	})
	return o, nil
}

func (s *OrderService) publishPlaced(ctx context.Context, o *model.Order) {
	items := make([]queue.OrderPlacedItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, queue.OrderPlacedItem{InventoryID: it.InventoryID, DrugID: it.DrugID, Quantity: it.Quantity})
	}
	_ = s.Events.Publish(ctx, queue.QueueOrderPlaced, queue.OrderPlacedEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		PatientID:   o.PatientID,
		PharmacyID:  o.PharmacyID,
		Items:       items,
		FinalAmount: o.FinalAmount.StringFixed(2),
		PlacedAt:    s.Now().UTC().Format(time.RFC3339),
	})
}
