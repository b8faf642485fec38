package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Имена ограничений используются репозиториями для разбора ошибок 23505
const (
	ConstraintClaimOfferUser = "claims_offer_user_key"
	ConstraintClaimToken     = "claims_token_key"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        email TEXT NOT NULL DEFAULT '',
        first_name TEXT NOT NULL DEFAULT '',
        last_name TEXT NOT NULL DEFAULT ''
    )`,
	`CREATE TABLE IF NOT EXISTS businesses (
        id TEXT PRIMARY KEY,
        owner_user_id TEXT NOT NULL UNIQUE,
        name TEXT NOT NULL,
        website TEXT
    )`,
	`CREATE TABLE IF NOT EXISTS offers (
        id TEXT PRIMARY KEY,
        business_id TEXT NOT NULL REFERENCES businesses(id),
        product_id TEXT,
        product_name TEXT NOT NULL DEFAULT '',
        title TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        discount_type TEXT NOT NULL,
        discount_value NUMERIC(12,2),
        minimum_purchase_amount NUMERIC(12,2),
        minimum_quantity INTEGER,
        buy_quantity INTEGER,
        get_quantity INTEGER,
        get_discount_percentage NUMERIC(5,2),
        original_price NUMERIC(12,2) NOT NULL,
        start_date TIMESTAMPTZ NOT NULL,
        expiry_date TIMESTAMPTZ NOT NULL,
        max_claims INTEGER,
        current_claims INTEGER NOT NULL DEFAULT 0,
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        CONSTRAINT offers_window_check CHECK (expiry_date > start_date),
        CONSTRAINT offers_capacity_check CHECK (current_claims >= 0 AND (max_claims IS NULL OR current_claims <= max_claims))
    )`,
	`CREATE INDEX IF NOT EXISTS offers_business_idx ON offers (business_id)`,
	`CREATE TABLE IF NOT EXISTS claims (
        id TEXT PRIMARY KEY,
        offer_id TEXT NOT NULL REFERENCES offers(id),
        user_id TEXT NOT NULL,
        claim_type TEXT NOT NULL CHECK (claim_type IN ('online', 'in_store')),
        token TEXT NOT NULL,
        encoded_payload TEXT,
        merchant_redirect_url TEXT,
        quoted_savings NUMERIC(12,2) NOT NULL DEFAULT 0,
        claimed_at TIMESTAMPTZ NOT NULL,
        is_redeemed BOOLEAN NOT NULL DEFAULT FALSE,
        redeemed_at TIMESTAMPTZ,
        redemption_notes TEXT,
        CONSTRAINT ` + ConstraintClaimOfferUser + ` UNIQUE (offer_id, user_id),
        CONSTRAINT ` + ConstraintClaimToken + ` UNIQUE (token),
        CONSTRAINT claims_redeemed_check CHECK (is_redeemed = (redeemed_at IS NOT NULL))
    )`,
	`CREATE INDEX IF NOT EXISTS claims_user_idx ON claims (user_id, claimed_at DESC)`,
}

// Migrate создает таблицы, если их еще нет
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
