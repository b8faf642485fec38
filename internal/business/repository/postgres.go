package repository

import (
	"context"
	"database/sql"
	"errors"

	"offerhub/internal/business"
)

type PostgresBusinessRepository struct {
	db *sql.DB
}

func NewPostgresBusinessRepository(db *sql.DB) *PostgresBusinessRepository {
	return &PostgresBusinessRepository{db: db}
}

func (r *PostgresBusinessRepository) GetByID(ctx context.Context, id string) (*business.Business, error) {
	query := `SELECT id, owner_user_id, name, website FROM businesses WHERE id = $1`
	return r.scan(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresBusinessRepository) GetByOwner(ctx context.Context, ownerUserID string) (*business.Business, error) {
	query := `SELECT id, owner_user_id, name, website FROM businesses WHERE owner_user_id = $1`
	return r.scan(r.db.QueryRowContext(ctx, query, ownerUserID))
}

func (r *PostgresBusinessRepository) scan(row *sql.Row) (*business.Business, error) {
	b := &business.Business{}
	err := row.Scan(&b.ID, &b.OwnerUserID, &b.Name, &b.Website)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, business.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
