package memory

import (
	"context"
	"sort"
	"time"

	"offerhub/internal/business"
	"offerhub/internal/claim"
	"offerhub/internal/offer"
	"offerhub/internal/user"
)

type UserRepository struct{ s *Store }

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type BusinessRepository struct{ s *Store }

func (r *BusinessRepository) GetByID(ctx context.Context, id string) (*business.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.businesses[id]
	if !ok {
		return nil, business.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *BusinessRepository) GetByOwner(ctx context.Context, ownerUserID string) (*business.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.businesses {
		if b.OwnerUserID == ownerUserID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, business.ErrNotFound
}

type OfferRepository struct{ s *Store }

func (r *OfferRepository) Create(ctx context.Context, o *offer.Offer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.offers[o.ID] = copyOffer(o)
	return nil
}

func (r *OfferRepository) GetByID(ctx context.Context, id string) (*offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[id]
	if !ok {
		return nil, offer.ErrNotFound
	}
	return copyOffer(o), nil
}

func (r *OfferRepository) ListByBusiness(ctx context.Context, businessID string) ([]*offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*offer.Offer
	for _, o := range r.s.offers {
		if o.BusinessID == businessID {
			out = append(out, copyOffer(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *OfferRepository) SetActive(ctx context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[id]
	if !ok {
		return offer.ErrNotFound
	}
	o.IsActive = active
	o.UpdatedAt = time.Now()
	return nil
}

type ClaimRepository struct{ s *Store }

// Create проверяет уникальность и лимит и пишет claim под одним локом
func (r *ClaimRepository) Create(ctx context.Context, c *claim.Claim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.offers[c.OfferID]
	if !ok {
		return claim.ErrNotFound
	}
	if _, dup := r.s.pairs[pairKey(c.OfferID, c.UserID)]; dup {
		return claim.ErrAlreadyClaimed
	}
	if _, dup := r.s.tokens[c.Token]; dup {
		return claim.ErrTokenTaken
	}
	if o.Exhausted() {
		return claim.ErrCapacityExhausted
	}

	o.CurrentClaims++
	r.s.claims[c.ID] = copyClaim(c)
	r.s.tokens[c.Token] = c.ID
	r.s.pairs[pairKey(c.OfferID, c.UserID)] = c.ID
	return nil
}

func (r *ClaimRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.tokens[token]
	return ok, nil
}

func (r *ClaimRepository) GetByToken(ctx context.Context, token string) (*claim.Claim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.tokens[token]
	if !ok {
		return nil, claim.ErrNotFound
	}
	return copyClaim(r.s.claims[id]), nil
}

func (r *ClaimRepository) GetByOfferAndUser(ctx context.Context, offerID, userID string) (*claim.Claim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.pairs[pairKey(offerID, userID)]
	if !ok {
		return nil, claim.ErrNotFound
	}
	return copyClaim(r.s.claims[id]), nil
}

func (r *ClaimRepository) MarkRedeemed(ctx context.Context, id string, at time.Time, notes string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.claims[id]
	if !ok {
		return false, claim.ErrNotFound
	}
	if c.IsRedeemed {
		return false, nil
	}
	c.IsRedeemed = true
	c.RedeemedAt = &at
	c.RedemptionNotes = &notes
	return true, nil
}

func (r *ClaimRepository) SetEncodedPayload(ctx context.Context, id, payload string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.claims[id]
	if !ok {
		return claim.ErrNotFound
	}
	if c.EncodedPayload == nil {
		c.EncodedPayload = &payload
	}
	return nil
}

func (r *ClaimRepository) ListByUser(ctx context.Context, userID string) ([]*claim.Claim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*claim.Claim
	for _, c := range r.s.claims {
		if c.UserID == userID {
			out = append(out, copyClaim(c))
		}
	}
	sortByClaimedAt(out)
	return out, nil
}

func (r *ClaimRepository) ListByBusiness(ctx context.Context, businessID string, f claim.Filter) ([]*claim.Claim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*claim.Claim
	for _, c := range r.s.claims {
		o, ok := r.s.offers[c.OfferID]
		if !ok || o.BusinessID != businessID || !f.Match(c) {
			continue
		}
		out = append(out, copyClaim(c))
	}
	sortByClaimedAt(out)
	return out, nil
}

func sortByClaimedAt(claims []*claim.Claim) {
	sort.Slice(claims, func(i, j int) bool { return claims[i].ClaimedAt.After(claims[j].ClaimedAt) })
}
