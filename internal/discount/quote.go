package discount

import (
	"github.com/shopspring/decimal"
)

// Quote считает выгоду на минимальной покупке, на которой правило срабатывает.
// По нему сохраняется выгода при клейме и строится экран проверки у мерчанта.
func Quote(r Rule, unitPrice decimal.Decimal) Result {
	p := QualifyingPurchase(r, unitPrice)
	res := Calculate(r, p)
	if b, ok := r.(BuyXGetY); ok && res.IsValid && res.DiscountAmount.IsZero() {
		return b.setValue(p)
	}
	return res
}

// QualifyingPurchase - самая маленькая покупка, проходящая условия правила
func QualifyingPurchase(r Rule, unitPrice decimal.Decimal) Purchase {
	price := unitPrice
	qty := 1
	switch r := r.(type) {
	case QuantityDiscount:
		qty = max(r.MinimumQuantity, 1)
	case BuyXGetY:
		qty = max(r.BuyQuantity+r.GetQuantity, 1)
	case MinimumPurchase:
		cart := decimal.Max(price, r.MinimumPurchase)
		return Purchase{Quantity: 1, UnitPrice: &price, CartTotal: &cart}
	}
	cart := price.Mul(decimal.NewFromInt(int64(qty)))
	return Purchase{Quantity: qty, UnitPrice: &price, CartTotal: &cart}
}

// setValue - выгода одного набора buy+get. Нужна, когда после покупной части
// не остается товаров со скидкой (например, при BuyQuantity = 1)
func (r BuyXGetY) setValue(p Purchase) Result {
	total, _ := lineTotal(p)
	d := decimal.NewFromInt(int64(r.GetQuantity)).Mul(*p.UnitPrice).Mul(r.GetDiscountPercent).Div(hundred)
	res := settle(total, d)
	res.Message = r.message(res.DiscountAmount)
	res.Bogo = &BogoDetails{Sets: 1, FreeEligibleItems: r.GetQuantity}
	return res
}
