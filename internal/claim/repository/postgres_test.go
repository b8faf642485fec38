package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerhub/internal/claim"
	"offerhub/pkg/db"
)

var (
	insertClaim    = regexp.QuoteMeta(`INSERT INTO claims (id, offer_id, user_id, claim_type, token, encoded_payload,`)
	incrementGuard = regexp.QuoteMeta(`WHERE id = $1 AND (max_claims IS NULL OR current_claims < max_claims)`)
	redeemGuard    = regexp.QuoteMeta(`WHERE id = $3 AND is_redeemed = FALSE`)
)

func newMockRepo(t *testing.T) (*PostgresClaimRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		conn.Close()
	})
	return NewPostgresClaimRepository(conn), mock
}

func sampleClaim() *claim.Claim {
	return &claim.Claim{
		ID:            "c-1",
		OfferID:       "o-1",
		UserID:        "u-1",
		Type:          claim.TypeInStore,
		Token:         "AB12CD34",
		QuotedSavings: decimal.RequireFromString("3.2"),
		ClaimedAt:     time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
	}
}

func expectInsert(mock sqlmock.Sqlmock) *sqlmock.ExpectedExec {
	args := make([]driver.Value, 9)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return mock.ExpectExec(insertClaim).WithArgs(args...)
}

func TestCreateCommits(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	expectInsert(mock).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(incrementGuard).WithArgs("o-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), sampleClaim()))
}

func TestCreateRollsBackWhenCapacityIsTaken(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	expectInsert(mock).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(incrementGuard).WithArgs("o-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleClaim())
	assert.ErrorIs(t, err, claim.ErrCapacityExhausted)
}

func TestCreateTranslatesUniqueViolations(t *testing.T) {
	boom := errors.New("connection reset")
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"same user twice", &pq.Error{Code: uniqueViolation, Constraint: db.ConstraintClaimOfferUser}, claim.ErrAlreadyClaimed},
		{"token taken", &pq.Error{Code: uniqueViolation, Constraint: db.ConstraintClaimToken}, claim.ErrTokenTaken},
		{"other constraint", &pq.Error{Code: uniqueViolation, Constraint: "claims_pkey"}, nil},
		{"not a unique violation", &pq.Error{Code: "23503", Constraint: db.ConstraintClaimToken}, nil},
		{"driver error", boom, boom},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectBegin()
			expectInsert(mock).WillReturnError(tc.err)
			mock.ExpectRollback()

			err := repo.Create(context.Background(), sampleClaim())
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
				return
			}
			assert.False(t, claim.IsDomain(err), "raw store errors must stay retryable")
		})
	}
}

func TestMarkRedeemed(t *testing.T) {
	at := time.Date(2024, 6, 10, 13, 0, 0, 0, time.UTC)

	t.Run("first redemption", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(redeemGuard).WithArgs(sqlmock.AnyArg(), "Redeemed by Corner Cafe", "c-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.MarkRedeemed(context.Background(), "c-1", at, "Redeemed by Corner Cafe")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("already redeemed", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(redeemGuard).WithArgs(sqlmock.AnyArg(), "", "c-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.MarkRedeemed(context.Background(), "c-1", at, "")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestGetByTokenNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM claims c WHERE c.token = $1`)).WithArgs("ZZ99YY88").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByToken(context.Background(), "ZZ99YY88")
	assert.ErrorIs(t, err, claim.ErrNotFound)
}
