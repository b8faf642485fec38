package discount

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Params - плоское представление правила (колонки offers и поля запроса).
// Заполнены только поля, относящиеся к Kind.
type Params struct {
	Kind                  Kind             `json:"discount_type"`
	Value                 *decimal.Decimal `json:"discount_value,omitempty"`
	MinimumPurchaseAmount *decimal.Decimal `json:"minimum_purchase_amount,omitempty"`
	MinimumQuantity       *int             `json:"minimum_quantity,omitempty"`
	BuyQuantity           *int             `json:"buy_quantity,omitempty"`
	GetQuantity           *int             `json:"get_quantity,omitempty"`
	GetDiscountPercentage *decimal.Decimal `json:"get_discount_percentage,omitempty"`
}

// FromParams - единственное место, где строковый тип превращается в Rule.
// Возвращаемое правило уже прошло Validate.
func FromParams(p Params) (Rule, error) {
	var r Rule
	switch p.Kind {
	case KindPercentage:
		r = Percentage{Percent: dec(p.Value)}
	case KindFixed:
		r = Fixed{Amount: dec(p.Value)}
	case KindMinimumPurchase:
		r = MinimumPurchase{Amount: dec(p.Value), MinimumPurchase: dec(p.MinimumPurchaseAmount)}
	case KindQuantityDiscount:
		r = QuantityDiscount{Percent: dec(p.Value), MinimumQuantity: num(p.MinimumQuantity)}
	case KindBuyXGetY:
		pct := decimal.NewFromInt(100)
		if p.GetDiscountPercentage != nil {
			pct = *p.GetDiscountPercentage
		}
		r = BuyXGetY{BuyQuantity: num(p.BuyQuantity), GetQuantity: num(p.GetQuantity), GetDiscountPercent: pct}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, p.Kind)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func ToParams(r Rule) Params {
	switch v := r.(type) {
	case Percentage:
		return Params{Kind: KindPercentage, Value: &v.Percent}
	case Fixed:
		return Params{Kind: KindFixed, Value: &v.Amount}
	case MinimumPurchase:
		return Params{Kind: KindMinimumPurchase, Value: &v.Amount, MinimumPurchaseAmount: &v.MinimumPurchase}
	case QuantityDiscount:
		return Params{Kind: KindQuantityDiscount, Value: &v.Percent, MinimumQuantity: &v.MinimumQuantity}
	case BuyXGetY:
		return Params{Kind: KindBuyXGetY, BuyQuantity: &v.BuyQuantity, GetQuantity: &v.GetQuantity, GetDiscountPercentage: &v.GetDiscountPercent}
	}
	return Params{}
}

func dec(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func num(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
