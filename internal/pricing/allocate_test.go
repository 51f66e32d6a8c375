package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAllocateProportionalDiscount(t *testing.T) {
	// 100 + 50 with a 30 discount: shares are 20 and 10
	lines := []Line{
		{SKU: "A", UnitPrice: dec("100"), Quantity: 1},
		{SKU: "B", UnitPrice: dec("50"), Quantity: 1},
	}

	alloc, err := Allocate(lines, dec("30"), decimal.Zero)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}

	if !alloc.Lines[0].NetTotal.Equal(dec("80")) {
		t.Fatalf("expected net 80 for A, got %s", alloc.Lines[0].NetTotal)
	}
	if !alloc.Lines[1].NetTotal.Equal(dec("40")) {
		t.Fatalf("expected net 40 for B, got %s", alloc.Lines[1].NetTotal)
	}
	if !alloc.Total.Equal(dec("120")) {
		t.Fatalf("expected total 120, got %s", alloc.Total)
	}
}

func TestAllocateLastLineAbsorbsRemainder(t *testing.T) {
	// three equal lines and a 10.00 reduction: 3.33 + 3.33 + 3.34
	lines := []Line{
		{SKU: "A", UnitPrice: dec("20"), Quantity: 1},
		{SKU: "B", UnitPrice: dec("20"), Quantity: 1},
		{SKU: "C", UnitPrice: dec("20"), Quantity: 1},
	}

	alloc, err := Allocate(lines, dec("10"), decimal.Zero)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}

	sum := decimal.Zero
	for _, line := range alloc.Lines {
		sum = sum.Add(line.NetTotal)
	}
	if !sum.Equal(dec("50")) {
		t.Fatalf("net totals must sum to subtotal minus reduction, got %s", sum)
	}
	if !alloc.Lines[0].NetTotal.Equal(dec("16.67")) {
		t.Fatalf("expected 16.67 for first line, got %s", alloc.Lines[0].NetTotal)
	}
	if !alloc.Lines[2].NetTotal.Equal(dec("16.66")) {
		t.Fatalf("expected 16.66 for last line, got %s", alloc.Lines[2].NetTotal)
	}
}

func TestAllocateNetUnitForMultiQuantityLine(t *testing.T) {
	lines := []Line{
		{SKU: "A", UnitPrice: dec("25"), Quantity: 3},
		{SKU: "B", UnitPrice: dec("25"), Quantity: 1},
	}

	alloc, err := Allocate(lines, dec("10"), decimal.Zero)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}

	// line A: gross 75, share 7.50, net 67.50, unit 22.50
	if !alloc.Lines[0].NetTotal.Equal(dec("67.5")) {
		t.Fatalf("unexpected net total %s", alloc.Lines[0].NetTotal)
	}
	if !alloc.Lines[0].NetUnit.Equal(dec("22.5")) {
		t.Fatalf("unexpected net unit %s", alloc.Lines[0].NetUnit)
	}
}

func TestAllocateCombinesDiscountAndGiftCard(t *testing.T) {
	lines := []Line{
		{SKU: "A", UnitPrice: dec("60"), Quantity: 1},
		{SKU: "B", UnitPrice: dec("40"), Quantity: 1},
	}

	alloc, err := Allocate(lines, dec("10"), dec("20"))
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if !alloc.Total.Equal(dec("70")) {
		t.Fatalf("expected total 70, got %s", alloc.Total)
	}
	// 30 total reduction, split 18 / 12
	if !alloc.Lines[0].NetTotal.Equal(dec("42")) {
		t.Fatalf("unexpected net %s", alloc.Lines[0].NetTotal)
	}
	if !alloc.Lines[1].NetTotal.Equal(dec("28")) {
		t.Fatalf("unexpected net %s", alloc.Lines[1].NetTotal)
	}
}

func TestAllocateNoReductionKeepsGross(t *testing.T) {
	lines := []Line{
		{SKU: "A", UnitPrice: dec("12.34"), Quantity: 2},
	}

	alloc, err := Allocate(lines, decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if !alloc.Lines[0].NetTotal.Equal(dec("24.68")) {
		t.Fatalf("unexpected net %s", alloc.Lines[0].NetTotal)
	}
	if !alloc.Lines[0].NetUnit.Equal(dec("12.34")) {
		t.Fatalf("unexpected unit %s", alloc.Lines[0].NetUnit)
	}
}

func TestAllocateRejectsEmptyLines(t *testing.T) {
	_, err := Allocate(nil, decimal.Zero, decimal.Zero)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeEmptyCart {
		t.Fatalf("expected EMPTY_CART, got %v", err)
	}
}

func TestAllocateRejectsBadLine(t *testing.T) {
	_, err := Allocate([]Line{{SKU: "A", UnitPrice: dec("10"), Quantity: 0}}, decimal.Zero, decimal.Zero)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected INVALID_INPUT for zero quantity, got %v", err)
	}

	_, err = Allocate([]Line{{SKU: "A", UnitPrice: dec("-1"), Quantity: 1}}, decimal.Zero, decimal.Zero)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected INVALID_INPUT for negative price, got %v", err)
	}
}
