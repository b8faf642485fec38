package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"offerhub/internal/business"
	"offerhub/internal/claim"
	"offerhub/internal/discount"
	"offerhub/internal/metrics"
	"offerhub/internal/offer"
	"offerhub/internal/redemptioncode"
	"offerhub/internal/user"
)

type IdentifierKind string

const (
	IdentifierToken IdentifierKind = "token"
	IdentifierScan  IdentifierKind = "scan"
)

type Verification struct {
	Claim        *claim.Claim    `json:"claim"`
	Offer        *offer.Offer    `json:"offer"`
	Customer     *user.User      `json:"customer,omitempty"`
	CustomerName string          `json:"customer_name"`
	BusinessName string          `json:"business_name"`
	Discount     discount.Result `json:"discount"`
	DisplayText  string          `json:"display_text"`
}

// Verifier - проверка и погашение claim'ов мерчантом
type Verifier struct {
	Offers     OfferRepository
	Claims     ClaimRepository
	Businesses BusinessRepository
	Users      UserRepository
	Log        *logrus.Entry
	Now        func() time.Time
}

func NewVerifier(offers OfferRepository, claims ClaimRepository, businesses BusinessRepository, users UserRepository, log *logrus.Logger) *Verifier {
	return &Verifier{
		Offers:     offers,
		Claims:     claims,
		Businesses: businesses,
		Users:      users,
		Log:        log.WithField("component", "redemption_verifier"),
		Now:        time.Now,
	}
}

// Verify проверяет claim без изменения состояния
func (v *Verifier) Verify(ctx context.Context, identifier string, kind IdentifierKind, businessID string) (*Verification, error) {
	log := v.Log.WithFields(logrus.Fields{"business_id": businessID, "identifier_kind": kind})

	res, err := v.verify(ctx, log, identifier, kind, businessID)
	metrics.VerificationsTotal.WithLabelValues(metrics.Result(claim.Code(err))).Inc()
	if err != nil && !claim.IsDomain(err) {
		log.WithError(err).Error("verification failed")
	}
	return res, err
}

func (v *Verifier) verify(ctx context.Context, log *logrus.Entry, identifier string, kind IdentifierKind, businessID string) (*Verification, error) {
	tok, err := normalize(identifier, kind)
	if err != nil {
		return nil, err
	}

	c, o, err := v.check(ctx, log, tok, businessID)
	if err != nil {
		return nil, err
	}

	res := &Verification{
		Claim:       c,
		Offer:       o,
		Discount:    o.Quote(),
		DisplayText: o.DisplayText(),
	}

	// профиль покупателя не обязателен
	var u *user.User
	err = withRetry(ctx, log, "get_user", func() error {
		var err error
		u, err = v.Users.GetByID(ctx, c.UserID)
		return err
	})
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}
	res.Customer = u
	res.CustomerName = u.DisplayName()

	b, err := v.business(ctx, log, businessID)
	if err != nil {
		return nil, err
	}
	res.BusinessName = b.Name
	return res, nil
}

// Redeem заново выполняет все проверки и гасит claim условной записью.
// Из параллельных Redeem успешен ровно один.
func (v *Verifier) Redeem(ctx context.Context, tok, businessID, notes string) (*claim.Claim, error) {
	log := v.Log.WithFields(logrus.Fields{"business_id": businessID, "token": tok})

	c, err := v.redeem(ctx, log, tok, businessID, notes)
	metrics.RedemptionsTotal.WithLabelValues(metrics.Result(claim.Code(err))).Inc()
	if err != nil {
		if claim.IsDomain(err) {
			log.WithError(err).Info("redemption rejected")
		} else {
			log.WithError(err).Error("redemption failed")
		}
		return nil, err
	}

	log.WithField("claim_id", c.ID).Info("claim redeemed")
	return c, nil
}

func (v *Verifier) redeem(ctx context.Context, log *logrus.Entry, tok, businessID, notes string) (*claim.Claim, error) {
	tok, err := normalize(tok, IdentifierToken)
	if err != nil {
		return nil, err
	}

	c, _, err := v.check(ctx, log, tok, businessID)
	if err != nil {
		return nil, err
	}

	if notes = strings.TrimSpace(notes); notes == "" {
		b, err := v.business(ctx, log, businessID)
		if err != nil {
			return nil, err
		}
		notes = fmt.Sprintf("Redeemed by %s", b.Name)
	}

	now := v.Now()
	var ok bool
	err = withRetry(ctx, log, "mark_redeemed", func() error {
		var err error
		ok, err = v.Claims.MarkRedeemed(ctx, c.ID, now, notes)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !ok {
		// проиграли гонку: отдаем данные первого погашения
		var first *claim.Claim
		err = withRetry(ctx, log, "get_claim", func() error {
			var err error
			first, err = v.Claims.GetByToken(ctx, tok)
			return err
		})
		if err != nil {
			return nil, err
		}
		return nil, redeemedError(first)
	}

	c.IsRedeemed = true
	c.RedeemedAt = &now
	c.RedemptionNotes = &notes
	return c, nil
}

// check: claim существует, принадлежит бизнесу, не погашен, оффер не истек
func (v *Verifier) check(ctx context.Context, log *logrus.Entry, tok, businessID string) (*claim.Claim, *offer.Offer, error) {
	var c *claim.Claim
	err := withRetry(ctx, log, "get_claim", func() error {
		var err error
		c, err = v.Claims.GetByToken(ctx, tok)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	var o *offer.Offer
	err = withRetry(ctx, log, "get_offer", func() error {
		var err error
		o, err = v.Offers.GetByID(ctx, c.OfferID)
		return err
	})
	if errors.Is(err, offer.ErrNotFound) {
		return nil, nil, claim.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	if o.BusinessID != businessID {
		return nil, nil, claim.ErrWrongBusiness
	}
	if c.IsRedeemed {
		return nil, nil, redeemedError(c)
	}
	if v.Now().After(o.ExpiryDate) {
		return nil, nil, &claim.BoundaryError{Err: claim.ErrOfferExpired, At: o.ExpiryDate}
	}
	return c, o, nil
}

func (v *Verifier) business(ctx context.Context, log *logrus.Entry, id string) (*business.Business, error) {
	var b *business.Business
	err := withRetry(ctx, log, "get_business", func() error {
		var err error
		b, err = v.Businesses.GetByID(ctx, id)
		return err
	})
	if errors.Is(err, business.ErrNotFound) {
		return nil, claim.ErrWrongBusiness
	}
	return b, err
}

func normalize(identifier string, kind IdentifierKind) (string, error) {
	var tok string
	switch kind {
	case IdentifierScan:
		tok = redemptioncode.Decode(identifier)
	case IdentifierToken, "":
		tok = strings.ToUpper(strings.TrimSpace(identifier))
	default:
		return "", fmt.Errorf("%w: identifier_kind must be token or scan", claim.ErrValidation)
	}
	if tok == "" {
		return "", claim.ErrInvalidIdentifier
	}
	return tok, nil
}

func redeemedError(c *claim.Claim) error {
	e := &claim.RedeemedError{Notes: deref(c.RedemptionNotes)}
	if c.RedeemedAt != nil {
		e.At = *c.RedeemedAt
	}
	return e
}
