package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerhub/internal/claim"
	"offerhub/internal/offer"
)

func TestListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addOffer(t, nil)
	b := f.addOffer(t, func(o *offer.Offer) { o.Title = "Second" })
	c := f.addOffer(t, func(o *offer.Offer) { o.Title = "Third" })

	ra := claimFor(t, f, a, customer, claim.TypeInStore)
	claimFor(t, f, b, customer, claim.TypeOnline)
	claimFor(t, f, c, customer, claim.TypeOnline)
	claimFor(t, f, c, "someone-else", claim.TypeOnline)

	_, err := f.verifier.Redeem(ctx, ra.Claim.Token, bizCafe, "")
	require.NoError(t, err)

	list, err := f.svc.ListMine(ctx, customer, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, ListSummary{TotalClaims: 3, InStoreClaims: 1, OnlineClaims: 2, RedeemedClaims: 1, PendingClaims: 2}, list.Summary)
	assert.Len(t, list.Items, 3)
	assert.Equal(t, DefaultPageSize, list.Size)
	assert.False(t, list.HasNext)

	redeemed := true
	list, err = f.svc.ListMine(ctx, customer, ListFilter{Redeemed: &redeemed})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "20% off Latte", list.Items[0].OfferTitle)
	assert.Equal(t, "20% Off", list.Items[0].DisplayText)
	assert.Equal(t, ra.Claim.Token, list.Items[0].Display.ClaimID)

	list, err = f.svc.ListMine(ctx, customer, ListFilter{Type: claim.TypeOnline, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Items, 1)
	assert.True(t, list.HasNext)

	_, err = f.svc.ListMine(ctx, customer, ListFilter{Type: "drive_through"})
	assert.ErrorIs(t, err, claim.ErrValidation)
}

func TestCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.addOffer(t, nil)
	inStore := claimFor(t, f, o, customer, claim.TypeInStore)
	online := claimFor(t, f, f.addOffer(t, nil), customer, claim.TypeOnline)

	d, err := f.svc.Code(ctx, customer, inStore.Claim.Token)
	require.NoError(t, err)
	assert.Equal(t, inStore.Display.EncodedPayload, d.EncodedPayload)

	_, err = f.svc.Code(ctx, "stranger", inStore.Claim.Token)
	assert.ErrorIs(t, err, claim.ErrNotFound)

	_, err = f.svc.Code(ctx, customer, online.Claim.Token)
	assert.ErrorIs(t, err, claim.ErrNotInStore)

	_, err = f.verifier.Redeem(ctx, inStore.Claim.Token, bizCafe, "")
	require.NoError(t, err)
	_, err = f.svc.Code(ctx, customer, inStore.Claim.Token)
	assert.ErrorIs(t, err, claim.ErrAlreadyRedeemed)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	open := f.addOffer(t, nil)
	st, err := f.svc.Status(ctx, open.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, &Status{OfferID: open.ID, IsAvailable: true, CanClaim: true}, st)

	claimFor(t, f, open, customer, claim.TypeInStore)
	st, err = f.svc.Status(ctx, open.ID, customer)
	require.NoError(t, err)
	assert.True(t, st.IsClaimed)
	assert.False(t, st.CanClaim)
	assert.Equal(t, "Already claimed", st.Reason)
	require.NotNil(t, st.Claimed)
	assert.NotEmpty(t, st.Claimed.EncodedPayload)

	future := f.addOffer(t, func(o *offer.Offer) {
		o.StartDate = f.now.AddDate(0, 0, 1)
		o.ExpiryDate = f.now.AddDate(0, 0, 2)
	})
	st, err = f.svc.Status(ctx, future.ID, customer)
	require.NoError(t, err)
	assert.True(t, st.IsAvailable)
	assert.Equal(t, "Offer has not started yet", st.Reason)

	expired := f.addOffer(t, func(o *offer.Offer) {
		o.StartDate = f.now.AddDate(0, 0, -2)
		o.ExpiryDate = f.now.AddDate(0, 0, -1)
	})
	st, err = f.svc.Status(ctx, expired.ID, customer)
	require.NoError(t, err)
	assert.False(t, st.IsAvailable)
	assert.Equal(t, "Offer has expired", st.Reason)

	full := f.addOffer(t, func(o *offer.Offer) {
		o.MaxClaims = intp(1)
		o.CurrentClaims = 1
	})
	st, err = f.svc.Status(ctx, full.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, "Maximum claims reached", st.Reason)

	_, err = f.svc.Status(ctx, "missing", customer)
	assert.ErrorIs(t, err, claim.ErrNotFound)
}
