package codes

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
	redisclient "github.com/GolfLocker/golf-locker-pos/pkg/redis"
)

// codeCharset excludes ambiguous characters (0/O, 1/I/L).
const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 8

const maxCodeAttempts = 5

// Session holds the reductions staged for a register's next checkout. A
// percent discount is stored by its percentage and only becomes an amount
// once a subtotal is known.
type Session struct {
	DiscountCode   string             `json:"discount_code,omitempty"`
	DiscountKind   enums.DiscountKind `json:"discount_kind,omitempty"`
	DiscountValue  decimal.Decimal    `json:"discount_value"`
	GiftCardCode   string             `json:"gift_card_code,omitempty"`
	GiftCardAmount decimal.Decimal    `json:"gift_card_amount"`
}

// DiscountAmount resolves the staged discount against a cart subtotal.
func (s *Session) DiscountAmount(subtotal decimal.Decimal) decimal.Decimal {
	if s.DiscountCode == "" {
		return decimal.Zero
	}
	if s.DiscountKind == enums.DiscountKindPercent {
		return subtotal.Mul(s.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
	}
	return s.DiscountValue.Round(2)
}

// SessionStore persists per-register code sessions.
type SessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CodesKey(userID string) string
}

// ServiceParams bundles the dependencies for NewService.
type ServiceParams struct {
	Repo       Repository
	Store      SessionStore
	Logger     *logger.Logger
	SessionTTL time.Duration
	CardPrefix string
}

// Service manages gift cards and staged discount/gift card sessions.
type Service struct {
	repo       Repository
	store      SessionStore
	log        *logger.Logger
	sessionTTL time.Duration
	cardPrefix string
}

// NewService validates params and constructs a Service.
func NewService(p ServiceParams) (*Service, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("codes: session store is required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("codes: logger is required")
	}
	if p.SessionTTL <= 0 {
		p.SessionTTL = 2 * time.Hour
	}
	if p.CardPrefix == "" {
		p.CardPrefix = "GC"
	}
	return &Service{
		repo:       p.Repo,
		store:      p.Store,
		log:        p.Logger,
		sessionTTL: p.SessionTTL,
		cardPrefix: p.CardPrefix,
	}, nil
}

// Apply stages a code for the register's next checkout. The code is looked up
// as a discount code first and as a gift card second; whichever matches gets
// staged, so one scan field at the register serves both.
func (s *Service) Apply(ctx context.Context, userID, code string) (*Session, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}

	discount, err := s.repo.GetDiscount(ctx, code)
	switch {
	case err == nil:
		return s.applyDiscount(ctx, userID, discount)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.applyGiftCard(ctx, userID, code)
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load discount code")
	}
}

func (s *Service) applyDiscount(ctx context.Context, userID string, discount *models.DiscountCode) (*Session, error) {
	if !discount.Usable(time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is no longer valid").
			WithDetails(map[string]any{"code": discount.Code})
	}
	if !discount.Kind.IsValid() || discount.Value.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is misconfigured").
			WithDetails(map[string]any{"code": discount.Code})
	}

	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	sess.DiscountCode = discount.Code
	sess.DiscountKind = discount.Kind
	sess.DiscountValue = discount.Value
	if err := s.save(ctx, userID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// applyGiftCard stages a gift card for redemption. The staged amount is the
// card's full remaining balance; checkout caps the actual debit at the
// receipt total.
func (s *Service) applyGiftCard(ctx context.Context, userID, code string) (*Session, error) {
	card, err := s.repo.Get(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown code").
				WithDetails(map[string]any{"code": code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load gift card")
	}
	if !card.Balance.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift card has no remaining balance")
	}

	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	sess.GiftCardCode = card.Code
	sess.GiftCardAmount = card.Balance
	if err := s.save(ctx, userID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns the staged session, or an empty one when nothing is staged.
func (s *Service) Get(ctx context.Context, userID string) (*Session, error) {
	return s.session(ctx, userID)
}

// Clear drops the staged session.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.store.Del(ctx, s.store.CodesKey(userID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear codes session")
	}
	return nil
}

// IssueTx creates a new card with the given opening balance inside the
// supplied transaction. Codes are retried on collision.
func (s *Service) IssueTx(tx *gorm.DB, balance decimal.Decimal, receiptNo string) (*models.GiftCard, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate gift card code")
		}
		taken, err := s.repo.ExistsTx(tx, code)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check gift card code")
		}
		if taken {
			continue
		}

		card := &models.GiftCard{
			Code:            code,
			InitialBalance:  balance,
			Balance:         balance,
			IssuedReceiptNo: &receiptNo,
			History:         models.GiftCardHistory{fmt.Sprintf("%s | issued €%s", receiptNo, balance.StringFixed(2))},
		}
		if err := s.repo.CreateTx(tx, card); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue gift card")
		}
		return card, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique gift card code")
}

// DebitTx redeems amount from the card inside the supplied transaction.
func (s *Service) DebitTx(tx *gorm.DB, code string, amount decimal.Decimal, receiptNo string) error {
	if err := s.repo.DebitTx(tx, code, amount, receiptNo); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "gift card not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit gift card")
	}
	return nil
}

func (s *Service) generateCode() (string, error) {
	b := make([]byte, codeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		b[i] = codeCharset[n.Int64()]
	}
	return s.cardPrefix + string(b), nil
}

func (s *Service) session(ctx context.Context, userID string) (*Session, error) {
	raw, err := s.store.Get(ctx, s.store.CodesKey(userID))
	if err != nil {
		if redisclient.IsNil(err) {
			return &Session{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load codes session")
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.log.Warn(s.log.WithUserID(ctx, userID), "dropping corrupt codes session")
		_ = s.store.Del(ctx, s.store.CodesKey(userID))
		return &Session{}, nil
	}
	return &sess, nil
}

func (s *Service) save(ctx context.Context, userID string, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode codes session")
	}
	if err := s.store.Set(ctx, s.store.CodesKey(userID), string(raw), s.sessionTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save codes session")
	}
	return nil
}
