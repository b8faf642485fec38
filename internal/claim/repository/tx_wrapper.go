package repository

import (
	"context"
	"database/sql"

	"offerhub/internal/claim"
)

// txClaimRepository - запись claim'а и счетчика оффера в транзакции
type txClaimRepository struct {
	tx *sql.Tx
}

func newTxClaimRepository(tx *sql.Tx) *txClaimRepository {
	return &txClaimRepository{tx: tx}
}

func (r *txClaimRepository) Insert(ctx context.Context, c *claim.Claim) error {
	query := `
        INSERT INTO claims (id, offer_id, user_id, claim_type, token, encoded_payload,
            merchant_redirect_url, quoted_savings, claimed_at, is_redeemed)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE)`

	_, err := r.tx.ExecContext(ctx, query,
		c.ID, c.OfferID, c.UserID, string(c.Type), c.Token, c.EncodedPayload,
		c.MerchantRedirectURL, c.QuotedSavings, c.ClaimedAt)
	return err
}

// IncrementClaims возвращает false, если лимит оффера уже выбран
func (r *txClaimRepository) IncrementClaims(ctx context.Context, offerID string) (bool, error) {
	query := `UPDATE offers SET current_claims = current_claims + 1, updated_at = NOW()
              WHERE id = $1 AND (max_claims IS NULL OR current_claims < max_claims)`

	res, err := r.tx.ExecContext(ctx, query, offerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
