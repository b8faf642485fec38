package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"offerhub/internal/discount"
)

// CreateOfferRequest - тело POST /api/offers. Параметры скидки лежат
// на верхнем уровне, как колонки offers
type CreateOfferRequest struct {
	discount.Params

	ProductID     *string         `json:"product_id" validate:"omitempty,max=64"`
	ProductName   string          `json:"product_name" validate:"max=200"`
	Title         string          `json:"title" validate:"max=200"`
	Description   string          `json:"description" validate:"max=2000"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	StartDate     time.Time       `json:"start_date" validate:"required"`
	ExpiryDate    time.Time       `json:"expiry_date" validate:"required,gtfield=StartDate"`
	MaxClaims     *int            `json:"max_claims" validate:"omitempty,min=1"`
}

type UpdateOfferStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type CalculateRequest struct {
	Quantity  int              `json:"quantity" validate:"omitempty,min=1,max=10000"`
	ItemPrice *decimal.Decimal `json:"item_price"`
	CartTotal *decimal.Decimal `json:"cart_total"`
}
