package discount

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const specialOffer = "Special Offer"

// DisplayText - короткая подпись скидки для карточки оффера
func DisplayText(r Rule) string {
	if r == nil {
		return specialOffer
	}
	return r.displayText()
}

// Title - заголовок по умолчанию, если мерчант его не указал
func Title(r Rule, productName string) string {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		productName = "Everything"
	}
	switch v := r.(type) {
	case Percentage:
		return fmt.Sprintf("%s%% off %s", v.Percent.String(), productName)
	case Fixed:
		return fmt.Sprintf("$%s off %s", money(v.Amount), productName)
	case MinimumPurchase:
		return fmt.Sprintf("$%s off orders over $%s", money(v.Amount), money(v.MinimumPurchase))
	case QuantityDiscount:
		return fmt.Sprintf("Buy %d+ %s, get %s%% off", v.MinimumQuantity, productName, v.Percent.String())
	case BuyXGetY:
		if v.GetDiscountPercent.Equal(hundred) {
			return fmt.Sprintf("Buy %d Get %d Free - %s", v.BuyQuantity, v.GetQuantity, productName)
		}
		return fmt.Sprintf("Buy %d Get %d at %s%% off - %s", v.BuyQuantity, v.GetQuantity, v.GetDiscountPercent.String(), productName)
	}
	return specialOffer
}

func (r Percentage) displayText() string {
	return fmt.Sprintf("%s%% Off", r.Percent.String())
}

func (r Fixed) displayText() string {
	return fmt.Sprintf("$%s Off", money(r.Amount))
}

func (r MinimumPurchase) displayText() string {
	return fmt.Sprintf("$%s Off Orders Over $%s", money(r.Amount), money(r.MinimumPurchase))
}

func (r QuantityDiscount) displayText() string {
	return fmt.Sprintf("Buy %d+ Get %s%% Off Each", r.MinimumQuantity, r.Percent.String())
}

func (r BuyXGetY) displayText() string {
	if r.GetDiscountPercent.Equal(hundred) {
		return fmt.Sprintf("Buy %d Get %d Free", r.BuyQuantity, r.GetQuantity)
	}
	return fmt.Sprintf("Buy %d Get %d at %s%% Off", r.BuyQuantity, r.GetQuantity, r.GetDiscountPercent.String())
}

// money: 5 -> "5", 5.5 -> "5.50"
func money(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.Truncate(0).String()
	}
	return d.StringFixed(2)
}
