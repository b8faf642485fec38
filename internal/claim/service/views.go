package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"offerhub/internal/claim"
	"offerhub/internal/offer"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ListFilter struct {
	Redeemed *bool
	Type     claim.Type
	Page     int
	Size     int
}

type ClaimedOffer struct {
	Claim       *claim.Claim  `json:"claim"`
	OfferTitle  string        `json:"offer_title"`
	DisplayText string        `json:"display_text"`
	Display     claim.Display `json:"claim_display"`
}

type ListSummary struct {
	TotalClaims    int `json:"total_claims"`
	InStoreClaims  int `json:"in_store_claims"`
	OnlineClaims   int `json:"online_claims"`
	RedeemedClaims int `json:"redeemed_claims"`
	PendingClaims  int `json:"pending_claims"`
}

type ClaimList struct {
	Items   []ClaimedOffer `json:"claimed_offers"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	Size    int            `json:"size"`
	HasNext bool           `json:"has_next"`
	Summary ListSummary    `json:"summary"`
}

// ListMine - claim'ы покупателя с фильтрами и сводкой по всем подходящим
func (s *Service) ListMine(ctx context.Context, userID string, f ListFilter) (*ClaimList, error) {
	log := s.Log.WithField("user_id", userID)
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown claim_type %q", claim.ErrValidation, f.Type)
	}
	page, size := normalizePage(f.Page, f.Size, DefaultPageSize)

	var all []*claim.Claim
	err := withRetry(ctx, log, "list_user_claims", func() error {
		var err error
		all, err = s.Claims.ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	list := &ClaimList{Page: page, Size: size, Items: []ClaimedOffer{}}
	var matched []*claim.Claim
	for _, c := range all {
		if f.Redeemed != nil && c.IsRedeemed != *f.Redeemed {
			continue
		}
		if f.Type != "" && c.Type != f.Type {
			continue
		}
		matched = append(matched, c)

		list.Summary.TotalClaims++
		if c.Type == claim.TypeInStore {
			list.Summary.InStoreClaims++
		} else {
			list.Summary.OnlineClaims++
		}
		if c.IsRedeemed {
			list.Summary.RedeemedClaims++
		} else {
			list.Summary.PendingClaims++
		}
	}
	list.Total = len(matched)
	list.HasNext = page*size < list.Total

	offers := make(map[string]*offer.Offer)
	for _, c := range paginate(matched, page, size) {
		item := ClaimedOffer{Claim: c, Display: s.display(c)}
		o, ok := offers[c.OfferID]
		if !ok {
			o, err = s.Offers.GetByID(ctx, c.OfferID)
			if err != nil && !errors.Is(err, offer.ErrNotFound) {
				log.WithError(err).WithField("offer_id", c.OfferID).Warn("failed to load offer for claim list")
			}
			offers[c.OfferID] = o
		}
		if o != nil {
			item.OfferTitle = o.Title
			item.DisplayText = o.DisplayText()
		}
		list.Items = append(list.Items, item)
	}
	return list, nil
}

// Code отдает QR для in-store claim'а; если при claim'е его не удалось
// сгенерировать, генерирует и сохраняет сейчас.
func (s *Service) Code(ctx context.Context, userID, tok string) (*claim.Display, error) {
	log := s.Log.WithFields(logrus.Fields{"user_id": userID, "token": tok})

	var c *claim.Claim
	err := withRetry(ctx, log, "get_claim", func() error {
		var err error
		c, err = s.Claims.GetByToken(ctx, tok)
		return err
	})
	if err != nil {
		return nil, err
	}
	// чужой claim не раскрываем
	if c.UserID != userID {
		return nil, claim.ErrNotFound
	}
	if c.Type != claim.TypeInStore {
		return nil, claim.ErrNotInStore
	}
	if c.IsRedeemed {
		return nil, redeemedError(c)
	}

	if c.EncodedPayload == nil {
		code, err := s.Encoder.Encode(c.Token)
		if err != nil {
			log.WithError(err).Error("failed to encode redemption code")
			return nil, fmt.Errorf("%w: %w", claim.ErrInternal, err)
		}
		err = withRetry(ctx, log, "set_payload", func() error {
			return s.Claims.SetEncodedPayload(ctx, c.ID, code.Image)
		})
		if err != nil {
			return nil, err
		}
		c.EncodedPayload = &code.Image
		log.Info("redemption code regenerated")
	}

	d := s.display(c)
	return &d, nil
}

type Status struct {
	OfferID     string         `json:"offer_id"`
	IsAvailable bool           `json:"is_available"`
	IsClaimed   bool           `json:"is_claimed"`
	CanClaim    bool           `json:"can_claim"`
	Reason      string         `json:"reason,omitempty"`
	IsRedeemed  bool           `json:"is_redeemed"`
	Claimed     *claim.Display `json:"claimed_info,omitempty"`
}

// Status - может ли пользователь забрать оффер сейчас
func (s *Service) Status(ctx context.Context, offerID, userID string) (*Status, error) {
	log := s.Log.WithFields(logrus.Fields{"offer_id": offerID, "user_id": userID})

	o, err := s.activeOffer(ctx, log, offerID)
	if err != nil {
		return nil, err
	}

	st := &Status{OfferID: o.ID, IsAvailable: true, CanClaim: true}
	switch o.Phase(s.Now()) {
	case offer.PhaseNotStarted:
		st.CanClaim = false
		st.Reason = "Offer has not started yet"
	case offer.PhaseExpired:
		st.IsAvailable = false
		st.CanClaim = false
		st.Reason = "Offer has expired"
	default:
		if o.Exhausted() {
			st.CanClaim = false
			st.Reason = "Maximum claims reached"
		}
	}

	var c *claim.Claim
	err = withRetry(ctx, log, "get_claim", func() error {
		var err error
		c, err = s.Claims.GetByOfferAndUser(ctx, o.ID, userID)
		return err
	})
	if errors.Is(err, claim.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}

	d := s.display(c)
	st.IsClaimed = true
	st.CanClaim = false
	st.Reason = "Already claimed"
	st.IsRedeemed = c.IsRedeemed
	st.Claimed = &d
	return st, nil
}

func normalizePage(page, size, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = def
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func paginate[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := min(start+size, len(items))
	return items[start:end]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
