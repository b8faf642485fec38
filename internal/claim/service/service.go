package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"offerhub/internal/business"
	"offerhub/internal/claim"
	"offerhub/internal/metrics"
	"offerhub/internal/offer"
	"offerhub/internal/redemptioncode"
	"offerhub/internal/token"
	"offerhub/internal/user"
)

// tokenRetakes - сколько раз выдаем новый токен, если вставка упала на уникальности token
const tokenRetakes = 3

const (
	inStoreInstructions = "Show this QR code or claim ID to the merchant for redemption"
	onlineInstructions  = "You will be redirected to the merchant's website to complete your purchase"
	manualEntryFormat   = "If QR code doesn't work, provide this ID: %s"
)

type OfferRepository interface {
	GetByID(ctx context.Context, id string) (*offer.Offer, error)
}

type ClaimRepository interface {
	Create(ctx context.Context, c *claim.Claim) error
	TokenExists(ctx context.Context, token string) (bool, error)
	GetByToken(ctx context.Context, token string) (*claim.Claim, error)
	GetByOfferAndUser(ctx context.Context, offerID, userID string) (*claim.Claim, error)
	MarkRedeemed(ctx context.Context, id string, at time.Time, notes string) (bool, error)
	SetEncodedPayload(ctx context.Context, id, payload string) error
	ListByUser(ctx context.Context, userID string) ([]*claim.Claim, error)
	ListByBusiness(ctx context.Context, businessID string, f claim.Filter) ([]*claim.Claim, error)
}

type BusinessRepository interface {
	GetByID(ctx context.Context, id string) (*business.Business, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type Request struct {
	OfferID     string
	UserID      string
	Type        claim.Type
	RedirectURL string
}

type Result struct {
	Claim   *claim.Claim
	Display claim.Display
}

// Service - выдача claim'ов покупателям
type Service struct {
	Offers     OfferRepository
	Claims     ClaimRepository
	Businesses BusinessRepository
	Tokens     *token.Generator
	Encoder    *redemptioncode.Encoder
	Log        *logrus.Entry
	Now        func() time.Time

	MaxTokenAttempts int
}

func NewService(offers OfferRepository, claims ClaimRepository, businesses BusinessRepository,
	tokens *token.Generator, encoder *redemptioncode.Encoder, log *logrus.Logger, maxTokenAttempts int) *Service {
	return &Service{
		Offers:           offers,
		Claims:           claims,
		Businesses:       businesses,
		Tokens:           tokens,
		Encoder:          encoder,
		Log:              log.WithField("component", "claim_service"),
		Now:              time.Now,
		MaxTokenAttempts: maxTokenAttempts,
	}
}

func (s *Service) Claim(ctx context.Context, req Request) (*Result, error) {
	log := s.Log.WithFields(logrus.Fields{
		"offer_id":   req.OfferID,
		"user_id":    req.UserID,
		"claim_type": req.Type,
	})

	res, err := s.claim(ctx, req, log)
	metrics.ClaimsTotal.WithLabelValues(string(req.Type), metrics.Result(claim.Code(err))).Inc()
	if err != nil {
		if claim.IsDomain(err) {
			log.WithError(err).Info("claim rejected")
		} else {
			log.WithError(err).Error("claim failed")
		}
		return nil, err
	}

	log.WithField("token", res.Claim.Token).Info("offer claimed")
	return res, nil
}

func (s *Service) claim(ctx context.Context, req Request, log *logrus.Entry) (*Result, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: claim_type must be online or in_store", claim.ErrValidation)
	}
	if req.UserID == "" || req.OfferID == "" {
		return nil, fmt.Errorf("%w: offer and user are required", claim.ErrValidation)
	}

	// Загружаем оффер
	o, err := s.activeOffer(ctx, log, req.OfferID)
	if err != nil {
		return nil, err
	}

	// Проверяем окно действия и лимит
	now := s.Now()
	if err := checkWindow(o, now); err != nil {
		return nil, err
	}
	if o.Exhausted() {
		return nil, claim.ErrCapacityExhausted
	}

	// Проверяем, не забирал ли пользователь оффер ранее
	err = withRetry(ctx, log, "get_claim", func() error {
		_, err := s.Claims.GetByOfferAndUser(ctx, o.ID, req.UserID)
		return err
	})
	switch {
	case err == nil:
		return nil, claim.ErrAlreadyClaimed
	case !errors.Is(err, claim.ErrNotFound):
		return nil, err
	}

	c := &claim.Claim{
		ID:            uuid.NewString(),
		OfferID:       o.ID,
		UserID:        req.UserID,
		Type:          req.Type,
		QuotedSavings: decimal.Zero,
		ClaimedAt:     now,
	}
	if q := o.Quote(); q.IsValid {
		c.QuotedSavings = q.SavingsAmount
	}
	if req.Type == claim.TypeOnline {
		redirect, err := s.redirectURL(ctx, log, o, req.RedirectURL)
		if err != nil {
			return nil, err
		}
		c.MerchantRedirectURL = &redirect
	}

	// Выдаем токен и сохраняем; при гонке за токен берем новый
	for attempt := 0; ; attempt++ {
		if attempt == tokenRetakes {
			return nil, claim.ErrTokenGenerationExhausted
		}

		tok, err := s.Tokens.EnsureUnique(ctx, s.tokenExists(log), s.MaxTokenAttempts)
		if err != nil {
			if errors.Is(err, token.ErrGenerationExhausted) {
				return nil, claim.ErrTokenGenerationExhausted
			}
			return nil, err
		}
		c.Token = tok
		c.EncodedPayload = nil

		if req.Type == claim.TypeInStore {
			// без QR claim все равно выдаем, код догенерируется при запросе
			if code, err := s.Encoder.Encode(tok); err != nil {
				log.WithError(err).Warn("failed to encode redemption code")
			} else {
				c.EncodedPayload = &code.Image
			}
		}

		err = withRetry(ctx, log, "create_claim", func() error {
			return s.Claims.Create(ctx, c)
		})
		if errors.Is(err, claim.ErrTokenTaken) {
			metrics.TokenCollisionsTotal.Inc()
			log.WithField("token", tok).Warn("claim token taken concurrently, regenerating")
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	return &Result{Claim: c, Display: s.display(c)}, nil
}

func (s *Service) activeOffer(ctx context.Context, log *logrus.Entry, offerID string) (*offer.Offer, error) {
	var o *offer.Offer
	err := withRetry(ctx, log, "get_offer", func() error {
		var err error
		o, err = s.Offers.GetByID(ctx, offerID)
		return err
	})
	if errors.Is(err, offer.ErrNotFound) {
		return nil, claim.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !o.IsActive {
		return nil, claim.ErrNotFound
	}
	return o, nil
}

func (s *Service) tokenExists(log *logrus.Entry) token.ExistsFunc {
	return func(ctx context.Context, tok string) (bool, error) {
		var taken bool
		err := withRetry(ctx, log, "token_exists", func() error {
			var err error
			taken, err = s.Claims.TokenExists(ctx, tok)
			return err
		})
		return taken, err
	}
}

// redirectURL: явный адрес, затем сайт бизнеса, затем заглушка
func (s *Service) redirectURL(ctx context.Context, log *logrus.Entry, o *offer.Offer, explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}

	var b *business.Business
	err := withRetry(ctx, log, "get_business", func() error {
		var err error
		b, err = s.Businesses.GetByID(ctx, o.BusinessID)
		return err
	})
	if errors.Is(err, business.ErrNotFound) {
		return claim.PlaceholderRedirectURL, nil
	}
	if err != nil {
		return "", err
	}
	if b.Website != nil && strings.TrimSpace(*b.Website) != "" {
		return strings.TrimSpace(*b.Website), nil
	}
	return claim.PlaceholderRedirectURL, nil
}

func (s *Service) display(c *claim.Claim) claim.Display {
	d := claim.Display{
		ClaimID:   c.Token,
		ClaimType: c.Type,
		ClaimedAt: c.ClaimedAt,
	}
	switch c.Type {
	case claim.TypeInStore:
		d.Instructions = inStoreInstructions
		d.VerificationURL = s.Encoder.VerificationURL(c.Token)
		d.ManualEntryText = fmt.Sprintf(manualEntryFormat, c.Token)
		if c.EncodedPayload != nil {
			d.EncodedPayload = *c.EncodedPayload
		}
	case claim.TypeOnline:
		d.Instructions = onlineInstructions
		if c.MerchantRedirectURL != nil {
			d.RedirectURL = *c.MerchantRedirectURL
		}
	}
	return d
}

func checkWindow(o *offer.Offer, now time.Time) error {
	switch o.Phase(now) {
	case offer.PhaseNotStarted:
		return &claim.BoundaryError{Err: claim.ErrNotStarted, At: o.StartDate}
	case offer.PhaseExpired:
		return &claim.BoundaryError{Err: claim.ErrExpired, At: o.ExpiryDate}
	}
	return nil
}
