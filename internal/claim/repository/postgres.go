package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"offerhub/internal/claim"
	"offerhub/pkg/db"
)

const uniqueViolation = "23505"

const claimColumns = `c.id, c.offer_id, c.user_id, c.claim_type, c.token, c.encoded_payload,
        c.merchant_redirect_url, c.quoted_savings, c.claimed_at, c.is_redeemed,
        c.redeemed_at, c.redemption_notes`

type PostgresClaimRepository struct {
	db *sql.DB
}

func NewPostgresClaimRepository(db *sql.DB) *PostgresClaimRepository {
	return &PostgresClaimRepository{db: db}
}

// Create вставляет claim и увеличивает current_claims оффера в одной транзакции.
// Если лимит уже выбран, транзакция откатывается с ErrCapacityExhausted.
func (r *PostgresClaimRepository) Create(ctx context.Context, c *claim.Claim) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txRepo := newTxClaimRepository(tx)

	if err := txRepo.Insert(ctx, c); err != nil {
		tx.Rollback()
		return translate(err)
	}

	ok, err := txRepo.IncrementClaims(ctx, c.OfferID)
	if err != nil {
		tx.Rollback()
		return err
	}
	if !ok {
		tx.Rollback()
		return claim.ErrCapacityExhausted
	}

	return tx.Commit()
}

func (r *PostgresClaimRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM claims WHERE token = $1)`
	err := r.db.QueryRowContext(ctx, query, token).Scan(&exists)
	return exists, err
}

func (r *PostgresClaimRepository) GetByToken(ctx context.Context, token string) (*claim.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims c WHERE c.token = $1`
	return one(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresClaimRepository) GetByOfferAndUser(ctx context.Context, offerID, userID string) (*claim.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims c WHERE c.offer_id = $1 AND c.user_id = $2`
	return one(r.db.QueryRowContext(ctx, query, offerID, userID))
}

// MarkRedeemed - условная запись: false, если claim уже погашен
func (r *PostgresClaimRepository) MarkRedeemed(ctx context.Context, id string, at time.Time, notes string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE claims SET is_redeemed = TRUE, redeemed_at = $1, redemption_notes = $2
         WHERE id = $3 AND is_redeemed = FALSE`,
		at, notes, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresClaimRepository) SetEncodedPayload(ctx context.Context, id, payload string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE claims SET encoded_payload = $1 WHERE id = $2 AND encoded_payload IS NULL`,
		payload, id)
	return err
}

func (r *PostgresClaimRepository) ListByUser(ctx context.Context, userID string) ([]*claim.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims c WHERE c.user_id = $1 ORDER BY c.claimed_at DESC`
	return r.list(ctx, query, userID)
}

func (r *PostgresClaimRepository) ListByBusiness(ctx context.Context, businessID string, f claim.Filter) ([]*claim.Claim, error) {
	var (
		where = []string{"o.business_id = $1"}
		args  = []any{businessID}
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.OfferID != "" {
		add("c.offer_id = $%d", f.OfferID)
	}
	if f.RedeemedOnly {
		where = append(where, "c.is_redeemed = TRUE")
	}
	if f.From != nil {
		add("c.claimed_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("c.claimed_at <= $%d", *f.To)
	}

	query := `SELECT ` + claimColumns + ` FROM claims c JOIN offers o ON o.id = c.offer_id
        WHERE ` + strings.Join(where, " AND ") + ` ORDER BY c.claimed_at DESC`
	return r.list(ctx, query, args...)
}

func (r *PostgresClaimRepository) list(ctx context.Context, query string, args ...any) ([]*claim.Claim, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []*claim.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func one(row *sql.Row) (*claim.Claim, error) {
	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, claim.ErrNotFound
	}
	return c, err
}

func scanClaim(row scanner) (*claim.Claim, error) {
	c := &claim.Claim{}
	var claimType string
	err := row.Scan(
		&c.ID,
		&c.OfferID,
		&c.UserID,
		&claimType,
		&c.Token,
		&c.EncodedPayload,
		&c.MerchantRedirectURL,
		&c.QuotedSavings,
		&c.ClaimedAt,
		&c.IsRedeemed,
		&c.RedeemedAt,
		&c.RedemptionNotes,
	)
	if err != nil {
		return nil, err
	}
	c.Type = claim.Type(claimType)
	return c, nil
}

// translate разбирает нарушения уникальности по имени ограничения
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case db.ConstraintClaimOfferUser:
		return claim.ErrAlreadyClaimed
	case db.ConstraintClaimToken:
		return claim.ErrTokenTaken
	}
	return err
}
