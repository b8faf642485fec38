package discount

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Purchase - контекст покупки. UnitPrice нужен всем правилам, кроме
// MinimumPurchase, которому нужен CartTotal
type Purchase struct {
	Quantity  int
	UnitPrice *decimal.Decimal
	CartTotal *decimal.Decimal
}

type Result struct {
	IsValid        bool            `json:"is_valid"`
	FinalPrice     decimal.Decimal `json:"final_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	SavingsAmount  decimal.Decimal `json:"savings_amount"`
	Message        string          `json:"message"`
	ErrorReason    string          `json:"error_reason,omitempty"`
	Bogo           *BogoDetails    `json:"bogo_details,omitempty"`
}

type BogoDetails struct {
	Sets              int `json:"sets"`
	FreeEligibleItems int `json:"free_eligible_items"`
	RemainingItems    int `json:"remaining_items"`
}

// Calculate считает скидку по правилу r. Не паникует: nil-правило или неполная
// покупка дают невалидный Result с причиной.
func Calculate(r Rule, p Purchase) Result {
	if r == nil {
		return invalid("Unknown discount type", "Invalid offer type", decimal.Zero)
	}
	if p.Quantity < 1 {
		return invalid("Quantity must be at least 1", "Cannot calculate without a quantity", decimal.Zero)
	}
	return r.calculate(p)
}

func (r Percentage) calculate(p Purchase) Result {
	total, ok := lineTotal(p)
	if !ok {
		return missingPrice("percentage")
	}
	d := total.Mul(r.Percent).Div(hundred)
	res := settle(total, d)
	res.Message = fmt.Sprintf("%s%% off - Save $%s", r.Percent.String(), res.DiscountAmount.StringFixed(2))
	return res
}

func (r Fixed) calculate(p Purchase) Result {
	total, ok := lineTotal(p)
	if !ok {
		return missingPrice("fixed")
	}
	res := settle(total, decimal.Min(r.Amount, total))
	res.Message = fmt.Sprintf("$%s off", res.DiscountAmount.StringFixed(2))
	return res
}

func (r MinimumPurchase) calculate(p Purchase) Result {
	if p.CartTotal == nil || p.CartTotal.IsNegative() {
		return invalid("Cart total required for minimum purchase discount", "Cannot calculate without cart total", decimal.Zero)
	}
	cart := *p.CartTotal
	if cart.LessThan(r.MinimumPurchase) {
		return invalid(
			fmt.Sprintf("Minimum purchase of $%s required", r.MinimumPurchase.StringFixed(2)),
			fmt.Sprintf("Add $%s more to qualify", r.MinimumPurchase.Sub(cart).StringFixed(2)),
			cart,
		)
	}
	res := settle(cart, decimal.Min(r.Amount, cart))
	res.Message = fmt.Sprintf("$%s off orders over $%s", res.DiscountAmount.StringFixed(2), r.MinimumPurchase.StringFixed(2))
	return res
}

func (r QuantityDiscount) calculate(p Purchase) Result {
	total, ok := lineTotal(p)
	if !ok {
		return missingPrice("quantity")
	}
	if p.Quantity < r.MinimumQuantity {
		return invalid(
			fmt.Sprintf("Minimum quantity of %d required", r.MinimumQuantity),
			fmt.Sprintf("Add %d more to qualify for %s%% off", r.MinimumQuantity-p.Quantity, r.Percent.String()),
			total,
		)
	}
	res := settle(total, total.Mul(r.Percent).Div(hundred))
	res.Message = fmt.Sprintf("Buy %d+ get %s%% off each - Save $%s", r.MinimumQuantity, r.Percent.String(), res.DiscountAmount.StringFixed(2))
	return res
}

func (r BuyXGetY) calculate(p Purchase) Result {
	total, ok := lineTotal(p)
	if !ok {
		return missingPrice("BOGO")
	}
	if r.BuyQuantity < 1 || r.GetQuantity < 1 {
		return invalid("Offer is missing buy or get quantity", "Invalid offer configuration", total)
	}
	if p.Quantity < r.BuyQuantity {
		return invalid(
			fmt.Sprintf("Need to buy %d items to qualify", r.BuyQuantity),
			fmt.Sprintf("Add %d more to get %d free", r.BuyQuantity-p.Quantity, r.GetQuantity),
			total,
		)
	}

	sets := p.Quantity / r.BuyQuantity
	free := min(sets*r.GetQuantity, p.Quantity-sets*r.BuyQuantity)
	d := decimal.NewFromInt(int64(free)).Mul(*p.UnitPrice).Mul(r.GetDiscountPercent).Div(hundred)

	res := settle(total, d)
	res.Message = r.message(res.DiscountAmount)
	res.Bogo = &BogoDetails{
		Sets:              sets,
		FreeEligibleItems: free,
		RemainingItems:    p.Quantity - sets*r.BuyQuantity - free,
	}
	return res
}

func (r BuyXGetY) message(saved decimal.Decimal) string {
	if r.GetDiscountPercent.Equal(hundred) {
		return fmt.Sprintf("Buy %d Get %d Free - Save $%s", r.BuyQuantity, r.GetQuantity, saved.StringFixed(2))
	}
	return fmt.Sprintf("Buy %d Get %d at %s%% off - Save $%s", r.BuyQuantity, r.GetQuantity, r.GetDiscountPercent.String(), saved.StringFixed(2))
}

func lineTotal(p Purchase) (decimal.Decimal, bool) {
	if p.UnitPrice == nil || p.UnitPrice.IsNegative() {
		return decimal.Zero, false
	}
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity))), true
}

// Округляем один раз: скидку до центов, итог как остаток,
// чтобы final + discount всегда совпадало с total
func settle(total, d decimal.Decimal) Result {
	d = d.Round(2)
	return Result{
		IsValid:        true,
		DiscountAmount: d,
		SavingsAmount:  d,
		FinalPrice:     total.Sub(d).Round(2),
	}
}

func invalid(reason, message string, final decimal.Decimal) Result {
	return Result{
		IsValid:        false,
		ErrorReason:    reason,
		Message:        message,
		FinalPrice:     final.Round(2),
		DiscountAmount: decimal.Zero,
		SavingsAmount:  decimal.Zero,
	}
}

func missingPrice(kind string) Result {
	return invalid(fmt.Sprintf("Item price required for %s discount", kind), "Cannot calculate without item price", decimal.Zero)
}
