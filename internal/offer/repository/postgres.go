package repository

import (
	"context"
	"database/sql"
	"errors"

	"offerhub/internal/discount"
	"offerhub/internal/offer"
)

type PostgresOfferRepository struct {
	db *sql.DB
}

func NewPostgresOfferRepository(db *sql.DB) *PostgresOfferRepository {
	return &PostgresOfferRepository{db: db}
}

const offerColumns = `id, business_id, product_id, product_name, title, description,
        discount_type, discount_value, minimum_purchase_amount, minimum_quantity,
        buy_quantity, get_quantity, get_discount_percentage,
        original_price, start_date, expiry_date, max_claims, current_claims,
        is_active, created_at, updated_at`

func (r *PostgresOfferRepository) Create(ctx context.Context, o *offer.Offer) error {
	p := discount.ToParams(o.Discount)
	query := `
        INSERT INTO offers (id, business_id, product_id, product_name, title, description,
            discount_type, discount_value, minimum_purchase_amount, minimum_quantity,
            buy_quantity, get_quantity, get_discount_percentage,
            original_price, start_date, expiry_date, max_claims, current_claims,
            is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	_, err := r.db.ExecContext(ctx, query,
		o.ID, o.BusinessID, o.ProductID, o.ProductName, o.Title, o.Description,
		string(p.Kind), p.Value, p.MinimumPurchaseAmount, p.MinimumQuantity,
		p.BuyQuantity, p.GetQuantity, p.GetDiscountPercentage,
		o.OriginalPrice, o.StartDate, o.ExpiryDate, o.MaxClaims, o.CurrentClaims,
		o.IsActive, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (r *PostgresOfferRepository) GetByID(ctx context.Context, id string) (*offer.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`
	o, err := scanOffer(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, offer.ErrNotFound
	}
	return o, err
}

func (r *PostgresOfferRepository) ListByBusiness(ctx context.Context, businessID string) ([]*offer.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE business_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []*offer.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (r *PostgresOfferRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE offers SET is_active = $1, updated_at = NOW() WHERE id = $2`,
		active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return offer.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOffer(row scanner) (*offer.Offer, error) {
	o := &offer.Offer{}
	var (
		p    discount.Params
		kind string
	)
	err := row.Scan(
		&o.ID,
		&o.BusinessID,
		&o.ProductID,
		&o.ProductName,
		&o.Title,
		&o.Description,
		&kind,
		&p.Value,
		&p.MinimumPurchaseAmount,
		&p.MinimumQuantity,
		&p.BuyQuantity,
		&p.GetQuantity,
		&p.GetDiscountPercentage,
		&o.OriginalPrice,
		&o.StartDate,
		&o.ExpiryDate,
		&o.MaxClaims,
		&o.CurrentClaims,
		&o.IsActive,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// неизвестный тип оставляет Discount = nil, расчет вернет невалидный результат
	p.Kind = discount.Kind(kind)
	if rule, err := discount.FromParams(p); err == nil {
		o.Discount = rule
	}
	return o, nil
}
