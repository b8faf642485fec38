// Package memory - хранилище в памяти с той же семантикой, что и Postgres:
// уникальность (offer, user) и token, атомарный счетчик claim'ов, условное погашение.
// Используется для локального запуска (STORE_DRIVER=memory) и в тестах.
package memory

import (
	"sync"

	"offerhub/internal/business"
	"offerhub/internal/claim"
	"offerhub/internal/offer"
	"offerhub/internal/user"
)

type Store struct {
	mu sync.Mutex

	users      map[string]*user.User
	businesses map[string]*business.Business
	offers     map[string]*offer.Offer
	claims     map[string]*claim.Claim
	tokens     map[string]string
	pairs      map[string]string
}

func New() *Store {
	return &Store{
		users:      make(map[string]*user.User),
		businesses: make(map[string]*business.Business),
		offers:     make(map[string]*offer.Offer),
		claims:     make(map[string]*claim.Claim),
		tokens:     make(map[string]string),
		pairs:      make(map[string]string),
	}
}

func (s *Store) Users() *UserRepository          { return &UserRepository{s: s} }
func (s *Store) Businesses() *BusinessRepository { return &BusinessRepository{s: s} }
func (s *Store) Offers() *OfferRepository        { return &OfferRepository{s: s} }
func (s *Store) Claims() *ClaimRepository        { return &ClaimRepository{s: s} }

func (s *Store) PutUser(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

func (s *Store) PutBusiness(b *business.Business) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.businesses[b.ID] = &cp
}

func pairKey(offerID, userID string) string {
	return offerID + "\x00" + userID
}

func copyClaim(c *claim.Claim) *claim.Claim {
	cp := *c
	return &cp
}

func copyOffer(o *offer.Offer) *offer.Offer {
	cp := *o
	if o.MaxClaims != nil {
		n := *o.MaxClaims
		cp.MaxClaims = &n
	}
	return &cp
}
