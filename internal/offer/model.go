package offer

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"offerhub/internal/discount"
)

var (
	ErrNotFound   = errors.New("offer not found")
	ErrNoBusiness = errors.New("user does not own a business")
	ErrForbidden  = errors.New("offer belongs to another business")
	ErrValidation = errors.New("invalid offer")
)

type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseActive
	PhaseExpired
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseExpired:
		return "expired"
	}
	return "active"
}

type Offer struct {
	ID            string          `json:"id"`
	BusinessID    string          `json:"business_id"`
	ProductID     *string         `json:"product_id,omitempty"`
	ProductName   string          `json:"product_name,omitempty"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Discount      discount.Rule   `json:"-"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	StartDate     time.Time       `json:"start_date"`
	ExpiryDate    time.Time       `json:"expiry_date"`
	MaxClaims     *int            `json:"max_claims,omitempty"`
	CurrentClaims int             `json:"current_claims"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Phase - состояние оффера во времени, не хранится
func (o *Offer) Phase(now time.Time) Phase {
	if now.Before(o.StartDate) {
		return PhaseNotStarted
	}
	if now.After(o.ExpiryDate) {
		return PhaseExpired
	}
	return PhaseActive
}

func (o *Offer) Exhausted() bool {
	return o.MaxClaims != nil && o.CurrentClaims >= *o.MaxClaims
}

func (o *Offer) DisplayText() string {
	return discount.DisplayText(o.Discount)
}

// Quote - выгода по цене оффера на минимальной подходящей покупке
func (o *Offer) Quote() discount.Result {
	return discount.Quote(o.Discount, o.OriginalPrice)
}
