package orders

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
)

func item(price, qty, discount int64) model.OrderItem {
	return model.OrderItem{
		Price:    decimal.NewFromInt(price),
		Quantity: int(qty),
		Discount: decimal.NewFromInt(discount),
	}
}

func TestComputeReferenceOrder(t *testing.T) {
	tot, err := Compute([]model.OrderItem{item(100, 2, 10), item(50, 1, 0)}, decimal.Zero)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !tot.Total.Equal(decimal.NewFromInt(230)) {
		t.Fatalf("total = %s, want 230", tot.Total)
	}
	if !tot.Final.Equal(decimal.NewFromInt(230)) {
		t.Fatalf("final = %s, want 230", tot.Final)
	}
}

func TestComputeOrderDiscount(t *testing.T) {
	tot, err := Compute([]model.OrderItem{item(100, 2, 10), item(50, 1, 0)}, decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !tot.Final.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("final = %s, want 200", tot.Final)
	}
}

func TestComputeRejectsBadLines(t *testing.T) {
	cases := map[string][]model.OrderItem{
		"zero quantity":  {item(10, 0, 0)},
		"over discount":  {item(10, 1, 101)},
		"negative price": {item(-1, 1, 0)},
	}
	for name, items := range cases {
		if _, err := Compute(items, decimal.Zero); apperr.CodeOf(err) != apperr.CodeValidation {
			t.Fatalf("%s: want validation error, got %v", name, err)
		}
	}
	if _, err := Compute([]model.OrderItem{item(10, 1, 0)}, decimal.NewFromInt(11)); err == nil {
		t.Fatalf("discount above total accepted")
	}
}

func TestNumberFormat(t *testing.T) {
	g := NumberGenerator{
		Now:  func() time.Time { return time.UnixMilli(1_700_000_123_456) },
		Rand: func(int) int { return 7 },
	}
	if got := g.Next(); got != "ORD-123456007" {
		t.Fatalf("got %s", got)
	}
	re := regexp.MustCompile(`^ORD-\d{9}$`)
	for i := 0; i < 50; i++ {
		if n := (NumberGenerator{}).Next(); !re.MatchString(n) {
			t.Fatalf("bad number %s", n)
		}
	}
}
