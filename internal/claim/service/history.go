package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"offerhub/internal/claim"
	"offerhub/internal/offer"
	"offerhub/internal/user"
)

const (
	DefaultHistoryLimit = 50
	DefaultStatsDays    = 30
	MaxStatsDays        = 365
	chartDays           = 7
)

type HistoryFilter struct {
	claim.Filter
	Page  int
	Limit int
}

type HistoryEntry struct {
	ClaimID         string          `json:"claim_id"`
	ClaimType       claim.Type      `json:"claim_type"`
	OfferID         string          `json:"offer_id"`
	OfferTitle      string          `json:"offer_title"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	Savings         decimal.Decimal `json:"savings_amount"`
	ClaimedAt       time.Time       `json:"claimed_at"`
	IsRedeemed      bool            `json:"is_redeemed"`
	RedeemedAt      *time.Time      `json:"redeemed_at,omitempty"`
	RedemptionNotes *string         `json:"redemption_notes,omitempty"`
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

type HistorySummary struct {
	TotalClaims    int             `json:"total_claims"`
	RedeemedClaims int             `json:"redeemed_claims"`
	PendingClaims  int             `json:"pending_claims"`
	TotalSavings   decimal.Decimal `json:"total_savings_provided"`
	RedemptionRate float64         `json:"redemption_rate"`
}

type HistoryPage struct {
	Redemptions []HistoryEntry `json:"redemptions"`
	Pagination  Pagination     `json:"pagination"`
	Summary     HistorySummary `json:"summary"`
}

type DailyStats struct {
	Date        string `json:"date"`
	Claims      int    `json:"claims"`
	Redemptions int    `json:"redemptions"`
}

type Stats struct {
	PeriodDays         int             `json:"period_days"`
	From               string          `json:"from"`
	To                 string          `json:"to"`
	TotalClaims        int             `json:"total_claims"`
	TotalRedemptions   int             `json:"total_redemptions"`
	PendingRedemptions int             `json:"pending_redemptions"`
	RedemptionRate     float64         `json:"redemption_rate"`
	TotalSavings       decimal.Decimal `json:"total_savings_provided"`
	ClaimTypes         map[string]int  `json:"claim_types"`
	Daily              []DailyStats    `json:"daily_breakdown"`
}

// History - отчеты мерчанта по выданным и погашенным claim'ам
type History struct {
	Offers OfferRepository
	Claims ClaimRepository
	Users  UserRepository
	Log    *logrus.Entry
	Now    func() time.Time
}

func NewHistory(offers OfferRepository, claims ClaimRepository, users UserRepository, log *logrus.Logger) *History {
	return &History{
		Offers: offers,
		Claims: claims,
		Users:  users,
		Log:    log.WithField("component", "redemption_history"),
		Now:    time.Now,
	}
}

// List - страница истории. Сводка считается по всей выборке, не только по странице.
func (h *History) List(ctx context.Context, businessID string, f HistoryFilter) (*HistoryPage, error) {
	log := h.Log.WithField("business_id", businessID)
	page, limit := normalizePage(f.Page, f.Limit, DefaultHistoryLimit)

	all, err := h.list(ctx, log, businessID, f.Filter)
	if err != nil {
		return nil, err
	}

	res := &HistoryPage{Redemptions: []HistoryEntry{}}
	res.Summary = summarize(all)

	total := len(all)
	pages := (total + limit - 1) / limit
	res.Pagination = Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}

	offers := make(map[string]*offer.Offer)
	users := make(map[string]*user.User)
	for _, c := range paginate(all, page, limit) {
		e := HistoryEntry{
			ClaimID:         c.Token,
			ClaimType:       c.Type,
			OfferID:         c.OfferID,
			Savings:         c.QuotedSavings,
			ClaimedAt:       c.ClaimedAt,
			IsRedeemed:      c.IsRedeemed,
			RedeemedAt:      c.RedeemedAt,
			RedemptionNotes: c.RedemptionNotes,
		}

		o, ok := offers[c.OfferID]
		if !ok {
			o, err = h.Offers.GetByID(ctx, c.OfferID)
			if err != nil && !errors.Is(err, offer.ErrNotFound) {
				return nil, err
			}
			offers[c.OfferID] = o
		}
		if o != nil {
			e.OfferTitle = o.Title
		}

		u, ok := users[c.UserID]
		if !ok {
			u, err = h.Users.GetByID(ctx, c.UserID)
			if err != nil && !errors.Is(err, user.ErrNotFound) {
				return nil, err
			}
			users[c.UserID] = u
		}
		e.CustomerName = u.DisplayName()
		if u != nil {
			e.CustomerEmail = u.Email
		}

		res.Redemptions = append(res.Redemptions, e)
	}
	return res, nil
}

// Stats - статистика за последние days дней с разбивкой по дням за последнюю неделю
func (h *History) Stats(ctx context.Context, businessID string, days int) (*Stats, error) {
	log := h.Log.WithField("business_id", businessID)
	if days < 1 {
		days = DefaultStatsDays
	}
	if days > MaxStatsDays {
		days = MaxStatsDays
	}

	now := h.Now().UTC()
	from := now.AddDate(0, 0, -days)
	claims, err := h.list(ctx, log, businessID, claim.Filter{From: &from, To: &now})
	if err != nil {
		return nil, err
	}

	sum := summarize(claims)
	st := &Stats{
		PeriodDays:         days,
		From:               from.Format(time.DateOnly),
		To:                 now.Format(time.DateOnly),
		TotalClaims:        sum.TotalClaims,
		TotalRedemptions:   sum.RedeemedClaims,
		PendingRedemptions: sum.PendingClaims,
		RedemptionRate:     sum.RedemptionRate,
		TotalSavings:       sum.TotalSavings,
		ClaimTypes:         map[string]int{string(claim.TypeInStore): 0, string(claim.TypeOnline): 0},
	}
	for _, c := range claims {
		st.ClaimTypes[string(c.Type)]++
	}

	// по дням, от старых к новым
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for i := min(chartDays, days) - 1; i >= 0; i-- {
		dayStart := today.AddDate(0, 0, -i)
		dayEnd := dayStart.AddDate(0, 0, 1)
		d := DailyStats{Date: dayStart.Format(time.DateOnly)}
		for _, c := range claims {
			at := c.ClaimedAt.UTC()
			if at.Before(dayStart) || !at.Before(dayEnd) {
				continue
			}
			d.Claims++
			if c.IsRedeemed {
				d.Redemptions++
			}
		}
		st.Daily = append(st.Daily, d)
	}
	return st, nil
}

func (h *History) list(ctx context.Context, log *logrus.Entry, businessID string, f claim.Filter) ([]*claim.Claim, error) {
	var out []*claim.Claim
	err := withRetry(ctx, log, "list_business_claims", func() error {
		var err error
		out, err = h.Claims.ListByBusiness(ctx, businessID, f)
		return err
	})
	return out, err
}

// summarize: экономия считается только по погашенным claim'ам
func summarize(claims []*claim.Claim) HistorySummary {
	s := HistorySummary{TotalClaims: len(claims), TotalSavings: decimal.Zero}
	for _, c := range claims {
		if !c.IsRedeemed {
			s.PendingClaims++
			continue
		}
		s.RedeemedClaims++
		s.TotalSavings = s.TotalSavings.Add(c.QuotedSavings)
	}
	if s.TotalClaims > 0 {
		rate := decimal.NewFromInt(int64(s.RedeemedClaims * 100)).Div(decimal.NewFromInt(int64(s.TotalClaims)))
		s.RedemptionRate = rate.Round(1).InexactFloat64()
	}
	s.TotalSavings = s.TotalSavings.Round(2)
	return s
}
