package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GolfLocker/golf-locker-pos/internal/availability"
	"github.com/GolfLocker/golf-locker-pos/internal/inventory"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
	redisclient "github.com/GolfLocker/golf-locker-pos/pkg/redis"
)

// Line is one cart position. Generated SKUs always carry quantity one.
// ManuallyEdited marks a price the cashier typed in; Refresh leaves those
// lines alone when it pulls fresh store data.
type Line struct {
	SKU            string          `json:"sku"`
	Description    string          `json:"description"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	Party          string          `json:"party,omitempty"`
	Category       enums.Category  `json:"category"`
	ManuallyEdited bool            `json:"manually_edited,omitempty"`
}

// Cart is a register's open basket.
type Cart struct {
	Lines []Line `json:"lines"`
}

// Subtotal sums every line before reductions.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total.Round(2)
}

// Quantity returns how many units of sku are already in the basket.
func (c *Cart) Quantity(sku string) int {
	for _, line := range c.Lines {
		if line.SKU == sku {
			return line.Quantity
		}
	}
	return 0
}

// Store persists baskets between register requests.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(userID string) string
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Store        Store
	Availability availability.Service
	Inventory    inventory.Service
	Logger       *logger.Logger
	TTL          time.Duration
}

// Service manages the per-register basket.
type Service struct {
	store Store
	avail availability.Service
	inv   inventory.Service
	logg  *logger.Logger
	ttl   time.Duration
}

// NewService constructs the cart service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if params.Availability == nil {
		return nil, fmt.Errorf("availability service is required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service is required")
	}
	if params.TTL <= 0 {
		params.TTL = 30 * time.Minute
	}
	return &Service{
		store: params.Store,
		avail: params.Availability,
		inv:   params.Inventory,
		logg:  params.Logger,
		ttl:   params.TTL,
	}, nil
}

// AddInput is one scan at the register. UnitPrice overrides the listed price
// and is required for generated SKUs that have no fixed price, like gift cards.
type AddInput struct {
	SKU       string
	Quantity  int
	UnitPrice *decimal.Decimal
}

// Add puts a SKU in the basket after checking it can still be sold.
func (s *Service) Add(ctx context.Context, userID string, input AddInput) (*Cart, error) {
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	if spec, ok := s.inv.GeneratorFor(sku); ok {
		return s.addGenerated(ctx, userID, sku, spec, qty, input.UnitPrice)
	}

	hit, err := s.avail.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}

	basket, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	free, err := s.freeUnits(ctx, hit.Category, sku)
	if err != nil {
		return nil, err
	}
	if basket.Quantity(sku)+qty > free {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "not enough free units").
			WithDetails(map[string]any{"sku": sku, "free": free})
	}

	price := hit.Entry.ExpectedPrice
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		price = input.UnitPrice.Round(2)
	}

	merged := false
	for i := range basket.Lines {
		if basket.Lines[i].SKU == sku {
			basket.Lines[i].Quantity += qty
			basket.Lines[i].UnitPrice = price
			basket.Lines[i].ManuallyEdited = input.UnitPrice != nil
			merged = true
			break
		}
	}
	if !merged {
		basket.Lines = append(basket.Lines, Line{
			SKU:            sku,
			Description:    hit.Entry.Description,
			UnitPrice:      price,
			Quantity:       qty,
			Party:          hit.Entry.Party,
			Category:       hit.Category,
			ManuallyEdited: input.UnitPrice != nil,
		})
	}

	if err := s.save(ctx, userID, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

// addGenerated mints fresh rows for virtual SKUs, one line per unit.
func (s *Service) addGenerated(ctx context.Context, userID, baseSKU string, spec inventory.GeneratorSpec, qty int, unitPrice *decimal.Decimal) (*Cart, error) {
	price := spec.Price
	if unitPrice != nil {
		if unitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		price = unitPrice.Round(2)
	}
	if !price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a price is required for this sku").
			WithDetails(map[string]any{"sku": baseSKU})
	}

	basket, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := 0; i < qty; i++ {
		row, err := s.inv.CreateGenerated(ctx, baseSKU)
		if err != nil {
			return nil, err
		}
		basket.Lines = append(basket.Lines, Line{
			SKU:            row.SKU,
			Description:    row.Description,
			UnitPrice:      price,
			Quantity:       1,
			Category:       row.Category,
			ManuallyEdited: true,
		})
	}

	if err := s.save(ctx, userID, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

// UpdateQuantity sets the line quantity to qty, re-checking stock for
// increases. Zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, sku string, qty int) (*Cart, error) {
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if qty == 0 {
		return s.Remove(ctx, userID, sku)
	}

	basket, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range basket.Lines {
		if basket.Lines[i].SKU == sku {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not in cart").
			WithDetails(map[string]any{"sku": sku})
	}

	if qty > basket.Lines[idx].Quantity {
		free, err := s.freeUnits(ctx, basket.Lines[idx].Category, sku)
		if err != nil {
			return nil, err
		}
		if qty > free {
			return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "not enough free units").
				WithDetails(map[string]any{"sku": sku, "free": free})
		}
	}
	basket.Lines[idx].Quantity = qty

	if err := s.save(ctx, userID, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

// UpdatePrice overrides the unit price of a line already in the basket.
func (s *Service) UpdatePrice(ctx context.Context, userID, sku string, price decimal.Decimal) (*Cart, error) {
	if price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	basket, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range basket.Lines {
		if basket.Lines[i].SKU == sku {
			basket.Lines[i].UnitPrice = price.Round(2)
			basket.Lines[i].ManuallyEdited = true
			found = true
			break
		}
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not in cart").
			WithDetails(map[string]any{"sku": sku})
	}

	if err := s.save(ctx, userID, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

// Refresh re-reads every line from the store and pushes out the basket's idle
// timeout. Descriptions and prices that changed out-of-band come back in sync;
// lines with a cashier-typed price keep it. Returns how many lines changed.
func (s *Service) Refresh(ctx context.Context, userID string) (*Cart, int, error) {
	basket, err := s.Get(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if len(basket.Lines) == 0 {
		return basket, 0, nil
	}

	changed := 0
	for i := range basket.Lines {
		line := &basket.Lines[i]
		if line.ManuallyEdited {
			continue
		}
		hit, err := s.avail.FindBySKU(ctx, line.SKU)
		if err != nil {
			// a vanished or sold-out line stays as carted, checkout
			// re-validates it anyway
			if code := pkgerrors.CodeOf(err); code == pkgerrors.CodeNotFound ||
				code == pkgerrors.CodeAlreadySold || code == pkgerrors.CodeOutOfStock {
				continue
			}
			return nil, 0, err
		}
		if !line.UnitPrice.Equal(hit.Entry.ExpectedPrice) || line.Description != hit.Entry.Description {
			line.UnitPrice = hit.Entry.ExpectedPrice
			line.Description = hit.Entry.Description
			changed++
		}
	}

	if err := s.save(ctx, userID, basket); err != nil {
		return nil, 0, err
	}
	return basket, changed, nil
}

// Remove drops a SKU's line entirely.
func (s *Service) Remove(ctx context.Context, userID, sku string) (*Cart, error) {
	basket, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := basket.Lines[:0]
	found := false
	for _, line := range basket.Lines {
		if line.SKU == sku {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not in cart").
			WithDetails(map[string]any{"sku": sku})
	}
	basket.Lines = kept

	if err := s.save(ctx, userID, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

// Get loads the basket, returning an empty one when nothing is stored.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	raw, err := s.store.Get(ctx, s.store.CartKey(userID))
	if err != nil {
		if redisclient.IsNil(err) {
			return &Cart{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var basket Cart
	if err := json.Unmarshal([]byte(raw), &basket); err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithUserID(ctx, userID), "dropping corrupt cart")
		}
		_ = s.store.Del(ctx, s.store.CartKey(userID))
		return &Cart{}, nil
	}
	return &basket, nil
}

// Clear empties the basket.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.store.Del(ctx, s.store.CartKey(userID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *Service) freeUnits(ctx context.Context, category enums.Category, sku string) (int, error) {
	idx, err := s.avail.Get(ctx, category)
	if err != nil {
		return 0, err
	}
	free := 0
	for _, entry := range idx[sku] {
		if !entry.Sold {
			free++
		}
	}
	return free, nil
}

func (s *Service) save(ctx context.Context, userID string, basket *Cart) error {
	raw, err := json.Marshal(basket)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	// every write refreshes the idle timeout
	if err := s.store.Set(ctx, s.store.CartKey(userID), string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}
