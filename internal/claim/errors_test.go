package claim

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := map[string]error{
		"VALIDATION_ERROR":           fmt.Errorf("bad claim type: %w", ErrValidation),
		"INVALID_IDENTIFIER":         ErrInvalidIdentifier,
		"NOT_FOUND":                  ErrNotFound,
		"NOT_STARTED":                &BoundaryError{Err: ErrNotStarted, At: at},
		"EXPIRED":                    &BoundaryError{Err: ErrExpired, At: at},
		"CAPACITY_EXHAUSTED":         ErrCapacityExhausted,
		"ALREADY_CLAIMED":            fmt.Errorf("insert: %w", ErrAlreadyClaimed),
		"ALREADY_REDEEMED":           &RedeemedError{At: at, Notes: "done"},
		"WRONG_BUSINESS":             ErrWrongBusiness,
		"OFFER_EXPIRED":              &BoundaryError{Err: ErrOfferExpired, At: at},
		"TOKEN_GENERATION_EXHAUSTED": ErrTokenGenerationExhausted,
		"INTERNAL_ERROR":             errors.New("pq: connection refused"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Code(err), err.Error())
	}
	assert.Equal(t, "", Code(nil))
}

func TestTypedErrorsUnwrap(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	var be *BoundaryError
	err := fmt.Errorf("claim: %w", &BoundaryError{Err: ErrExpired, At: at})
	assert.True(t, errors.As(err, &be))
	assert.Equal(t, at, be.At)
	assert.Contains(t, err.Error(), "2024-01-02T03:04:05Z")

	var re *RedeemedError
	err = fmt.Errorf("redeem: %w", &RedeemedError{At: at, Notes: "Redeemed by Cafe"})
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
	assert.True(t, errors.As(err, &re))
	assert.Equal(t, "Redeemed by Cafe", re.Notes)
}

func TestFilterMatch(t *testing.T) {
	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	c := &Claim{OfferID: "o1", ClaimedAt: at}

	assert.True(t, Filter{}.Match(c))
	assert.False(t, Filter{OfferID: "o2"}.Match(c))
	assert.False(t, Filter{RedeemedOnly: true}.Match(c))

	from := at.Add(time.Hour)
	assert.False(t, Filter{From: &from}.Match(c))
	to := at.Add(-time.Hour)
	assert.False(t, Filter{To: &to}.Match(c))
}
