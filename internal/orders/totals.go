// Package orders holds order arithmetic and order-number generation.
package orders

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
)

var hundred = decimal.NewFromInt(100)

// LineTotal is price * quantity * (1 - discount/100).
func LineTotal(it model.OrderItem) decimal.Decimal {
	gross := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
	factor := decimal.NewFromInt(1).Sub(it.Discount.Div(hundred))
	return gross.Mul(factor)
}

// Totals are the three amounts stored on an order.
type Totals struct {
	Total    decimal.Decimal
	Discount decimal.Decimal
	Final    decimal.Decimal
}

// Compute sums the lines and subtracts the order-level discount. Amounts
// are rounded to cents.
func Compute(items []model.OrderItem, orderDiscount decimal.Decimal) (Totals, error) {
	if orderDiscount.IsNegative() {
		return Totals{}, apperr.Validation(map[string]string{"discountAmount": "discount must not be negative"})
	}
	total := decimal.Zero
	for i, it := range items {
		if it.Quantity < 1 {
			return Totals{}, apperr.Validation(map[string]string{itemField(i, "quantity"): "quantity must be at least 1"})
		}
		if it.Price.IsNegative() {
			return Totals{}, apperr.Validation(map[string]string{itemField(i, "price"): "price must not be negative"})
		}
		if it.Discount.IsNegative() || it.Discount.GreaterThan(hundred) {
			return Totals{}, apperr.Validation(map[string]string{itemField(i, "discount"): "discount must be between 0 and 100"})
		}
		total = total.Add(LineTotal(it))
	}
	total = total.Round(2)
	if orderDiscount.GreaterThan(total) {
		return Totals{}, apperr.Validation(map[string]string{"discountAmount": "discount exceeds order total"})
	}
	return Totals{
		Total:    total,
		Discount: orderDiscount.Round(2),
		Final:    total.Sub(orderDiscount).Round(2),
	}, nil
}

func itemField(i int, name string) string {
	return "items[" + strconv.Itoa(i) + "]." + name
}
