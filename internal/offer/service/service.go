package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"offerhub/internal/business"
	"offerhub/internal/discount"
	"offerhub/internal/offer"
)

var validate = validator.New()

type OfferRepository interface {
	Create(ctx context.Context, o *offer.Offer) error
	GetByID(ctx context.Context, id string) (*offer.Offer, error)
	ListByBusiness(ctx context.Context, businessID string) ([]*offer.Offer, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type BusinessRepository interface {
	GetByOwner(ctx context.Context, ownerUserID string) (*business.Business, error)
}

// Input - данные для создания оффера
type Input struct {
	ProductID     *string         `validate:"omitempty,max=64"`
	ProductName   string          `validate:"max=200"`
	Title         string          `validate:"max=200"`
	Description   string          `validate:"max=2000"`
	Discount      discount.Params `validate:"-"`
	OriginalPrice decimal.Decimal `validate:"-"`
	StartDate     time.Time       `validate:"required"`
	ExpiryDate    time.Time       `validate:"required,gtfield=StartDate"`
	MaxClaims     *int            `validate:"omitempty,min=1"`
}

type Service struct {
	Repo       OfferRepository
	Businesses BusinessRepository
	Log        *logrus.Entry
	Now        func() time.Time
}

func NewService(repo OfferRepository, businesses BusinessRepository, log *logrus.Logger) *Service {
	return &Service{
		Repo:       repo,
		Businesses: businesses,
		Log:        log.WithField("component", "offer_service"),
		Now:        time.Now,
	}
}

// Create создает оффер от имени владельца бизнеса
func (s *Service) Create(ctx context.Context, ownerUserID string, in Input) (*offer.Offer, error) {
	b, err := s.businessOf(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", offer.ErrValidation, describe(err))
	}
	if !in.OriginalPrice.IsPositive() {
		return nil, fmt.Errorf("%w: original_price must be positive", offer.ErrValidation)
	}
	rule, err := discount.FromParams(in.Discount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", offer.ErrValidation, err)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = discount.Title(rule, in.ProductName)
	}

	now := s.Now()
	o := &offer.Offer{
		ID:            uuid.NewString(),
		BusinessID:    b.ID,
		ProductID:     in.ProductID,
		ProductName:   strings.TrimSpace(in.ProductName),
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		Discount:      rule,
		OriginalPrice: in.OriginalPrice,
		StartDate:     in.StartDate,
		ExpiryDate:    in.ExpiryDate,
		MaxClaims:     in.MaxClaims,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Repo.Create(ctx, o); err != nil {
		s.Log.WithError(err).WithField("business_id", b.ID).Error("failed to create offer")
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"business_id":   b.ID,
		"offer_id":      o.ID,
		"discount_type": rule.Kind(),
	}).Info("offer created")
	return o, nil
}

// Get - только активные офферы
func (s *Service) Get(ctx context.Context, id string) (*offer.Offer, error) {
	o, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsActive {
		return nil, offer.ErrNotFound
	}
	return o, nil
}

func (s *Service) ListByBusiness(ctx context.Context, ownerUserID string) ([]*offer.Offer, error) {
	b, err := s.businessOf(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListByBusiness(ctx, b.ID)
}

func (s *Service) SetActive(ctx context.Context, ownerUserID, offerID string, active bool) (*offer.Offer, error) {
	b, err := s.businessOf(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	o, err := s.Repo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o.BusinessID != b.ID {
		return nil, offer.ErrForbidden
	}
	if err := s.Repo.SetActive(ctx, o.ID, active); err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{"offer_id": o.ID, "is_active": active}).Info("offer status changed")
	o.IsActive = active
	o.UpdatedAt = s.Now()
	return o, nil
}

// Calculate считает цену для покупателя. Без цены берется цена оффера,
// без суммы корзины - цена, умноженная на количество.
func (s *Service) Calculate(ctx context.Context, offerID string, p discount.Purchase) (*discount.Result, error) {
	o, err := s.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if p.Quantity == 0 {
		p.Quantity = 1
	}
	if p.UnitPrice == nil {
		price := o.OriginalPrice
		p.UnitPrice = &price
	}
	if p.CartTotal == nil {
		total := p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
		p.CartTotal = &total
	}
	res := discount.Calculate(o.Discount, p)
	return &res, nil
}

func (s *Service) businessOf(ctx context.Context, ownerUserID string) (*business.Business, error) {
	b, err := s.Businesses.GetByOwner(ctx, ownerUserID)
	if errors.Is(err, business.ErrNotFound) {
		return nil, offer.ErrNoBusiness
	}
	return b, err
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
