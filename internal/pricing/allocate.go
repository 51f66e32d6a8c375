package pricing

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
)

// Line is one cart position entering allocation.
type Line struct {
	SKU         string
	Description string
	UnitPrice   decimal.Decimal
	Quantity    int
	Party       string
}

// AllocatedLine is a line after its share of the reduction has been applied.
type AllocatedLine struct {
	Line
	GrossTotal decimal.Decimal
	NetTotal   decimal.Decimal
	NetUnit    decimal.Decimal
}

// Allocation is the fully priced receipt body.
type Allocation struct {
	Lines    []AllocatedLine
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	GiftCard decimal.Decimal
	Total    decimal.Decimal
}

var two = int32(2)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(two)
}

// Allocate spreads the discount and gift card amount across the lines in
// proportion to their gross totals. Every line share is rounded to cents and
// the final line absorbs the rounding remainder, so the line nets always sum
// to subtotal minus reduction. The net unit price is the rounded net total
// divided by quantity; that per-unit value is what gets stamped onto sold
// inventory rows.
func Allocate(lines []Line, discount, giftcard decimal.Decimal) (*Allocation, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "no lines to allocate")
	}
	if discount.IsNegative() || giftcard.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reductions cannot be negative")
	}

	subtotal := decimal.Zero
	gross := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive").
				WithDetails(map[string]any{"sku": line.SKU})
		}
		if line.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line price cannot be negative").
				WithDetails(map[string]any{"sku": line.SKU})
		}
		gross[i] = round2(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		subtotal = subtotal.Add(gross[i])
	}

	// the reduction never pushes the total below zero, a too-large
	// discount simply makes the sale free
	reduction := discount.Add(giftcard)
	if reduction.GreaterThan(subtotal) {
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
		giftcard = subtotal.Sub(discount)
		reduction = subtotal
	}

	allocated := make([]AllocatedLine, len(lines))
	assigned := decimal.Zero
	for i, line := range lines {
		var share decimal.Decimal
		if i == len(lines)-1 {
			// last line absorbs the rounding remainder
			share = reduction.Sub(assigned)
		} else if subtotal.IsPositive() {
			share = round2(gross[i].Div(subtotal).Mul(reduction))
			assigned = assigned.Add(share)
		}

		net := gross[i].Sub(share)
		allocated[i] = AllocatedLine{
			Line:       line,
			GrossTotal: gross[i],
			NetTotal:   net,
			NetUnit:    round2(net.Div(decimal.NewFromInt(int64(line.Quantity)))),
		}
	}

	return &Allocation{
		Lines:    allocated,
		Subtotal: subtotal,
		Discount: discount,
		GiftCard: giftcard,
		Total:    subtotal.Sub(reduction),
	}, nil
}
