package discount

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind - имя правила скидки в БД и в API
type Kind string

const (
	KindPercentage       Kind = "percentage"
	KindFixed            Kind = "fixed"
	KindMinimumPurchase  Kind = "minimum_purchase"
	KindQuantityDiscount Kind = "quantity_discount"
	KindBuyXGetY         Kind = "bogo"
)

var (
	ErrUnknownKind  = errors.New("unknown discount type")
	ErrInvalidRule  = errors.New("invalid discount configuration")
	hundred         = decimal.NewFromInt(100)
	errNeedsPercent = fmt.Errorf("%w: percentage must be greater than 0 and at most 100", ErrInvalidRule)
)

// Rule - одно из пяти правил скидки. Набор закрыт: неэкспортируемые методы
// не дают объявить правило вне пакета, а новое правило обязано реализовать все методы.
type Rule interface {
	Kind() Kind
	Validate() error

	calculate(p Purchase) Result
	displayText() string
}

type Percentage struct {
	Percent decimal.Decimal
}

type Fixed struct {
	Amount decimal.Decimal
}

type MinimumPurchase struct {
	Amount          decimal.Decimal
	MinimumPurchase decimal.Decimal
}

type QuantityDiscount struct {
	Percent         decimal.Decimal
	MinimumQuantity int
}

// BuyXGetY - на каждые BuyQuantity купленных товаров GetQuantity товаров
// получают скидку GetDiscountPercent (100 = бесплатно)
type BuyXGetY struct {
	BuyQuantity        int
	GetQuantity        int
	GetDiscountPercent decimal.Decimal
}

func (Percentage) Kind() Kind       { return KindPercentage }
func (Fixed) Kind() Kind            { return KindFixed }
func (MinimumPurchase) Kind() Kind  { return KindMinimumPurchase }
func (QuantityDiscount) Kind() Kind { return KindQuantityDiscount }
func (BuyXGetY) Kind() Kind         { return KindBuyXGetY }

func (r Percentage) Validate() error {
	if !validPercent(r.Percent) {
		return errNeedsPercent
	}
	return nil
}

func (r Fixed) Validate() error {
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: discount amount must be positive", ErrInvalidRule)
	}
	return nil
}

func (r MinimumPurchase) Validate() error {
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: discount amount must be positive", ErrInvalidRule)
	}
	if !r.MinimumPurchase.IsPositive() {
		return fmt.Errorf("%w: minimum purchase amount is required", ErrInvalidRule)
	}
	return nil
}

func (r QuantityDiscount) Validate() error {
	if !validPercent(r.Percent) {
		return errNeedsPercent
	}
	if r.MinimumQuantity < 1 {
		return fmt.Errorf("%w: minimum quantity is required", ErrInvalidRule)
	}
	return nil
}

func (r BuyXGetY) Validate() error {
	if r.BuyQuantity < 1 {
		return fmt.Errorf("%w: buy quantity is required", ErrInvalidRule)
	}
	if r.GetQuantity < 1 {
		return fmt.Errorf("%w: get quantity is required", ErrInvalidRule)
	}
	if !validPercent(r.GetDiscountPercent) {
		return fmt.Errorf("%w: get discount percentage must be greater than 0 and at most 100", ErrInvalidRule)
	}
	return nil
}

func validPercent(p decimal.Decimal) bool {
	return p.IsPositive() && p.LessThanOrEqual(hundred)
}
