package claim

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeOnline  Type = "online"
	TypeInStore Type = "in_store"
)

func (t Type) Valid() bool {
	return t == TypeOnline || t == TypeInStore
}

// PlaceholderRedirectURL используется, если у бизнеса нет сайта
const PlaceholderRedirectURL = "https://merchant-website-placeholder.com"

type Claim struct {
	ID                  string          `json:"id"`
	OfferID             string          `json:"offer_id"`
	UserID              string          `json:"user_id"`
	Type                Type            `json:"claim_type"`
	Token               string          `json:"claim_id"`
	EncodedPayload      *string         `json:"encoded_payload,omitempty"`
	MerchantRedirectURL *string         `json:"merchant_redirect_url,omitempty"`
	QuotedSavings       decimal.Decimal `json:"quoted_savings"`
	ClaimedAt           time.Time       `json:"claimed_at"`
	IsRedeemed          bool            `json:"is_redeemed"`
	RedeemedAt          *time.Time      `json:"redeemed_at,omitempty"`
	RedemptionNotes     *string         `json:"redemption_notes,omitempty"`
}

// Display - то, что показывается покупателю после claim
type Display struct {
	ClaimID         string    `json:"claim_id"`
	ClaimType       Type      `json:"claim_type"`
	ClaimedAt       time.Time `json:"claimed_at"`
	EncodedPayload  string    `json:"encoded_payload,omitempty"`
	VerificationURL string    `json:"verification_url,omitempty"`
	RedirectURL     string    `json:"redirect_url,omitempty"`
	Instructions    string    `json:"instructions"`
	ManualEntryText string    `json:"manual_entry_text,omitempty"`
}

// Filter - выборка claim'ов бизнеса для истории и статистики
type Filter struct {
	OfferID      string
	RedeemedOnly bool
	From         *time.Time
	To           *time.Time
}

func (f Filter) Match(c *Claim) bool {
	if f.OfferID != "" && c.OfferID != f.OfferID {
		return false
	}
	if f.RedeemedOnly && !c.IsRedeemed {
		return false
	}
	if f.From != nil && c.ClaimedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && c.ClaimedAt.After(*f.To) {
		return false
	}
	return true
}
