package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sow2grow/ms-go-bestowals/app/entity"
)

type OrchardRepository struct {
	db DBTX
}

func NewOrchardRepository(db DBTX) *OrchardRepository {
	return &OrchardRepository{db: db}
}

func (r *OrchardRepository) FindByID(ctx context.Context, id string) (*entity.Orchard, error) {
	query := `
		SELECT id, sower_user_id, title, status, orchard_type, product_type,
			pocket_price_cents, pockets_total, courier_cost_cents, currency,
			created_at, updated_at
		FROM orchards
		WHERE id = ?
	`

	var (
		item             entity.Orchard
		courierCostCents sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.SowerUserID,
		&item.Title,
		&item.Status,
		&item.OrchardType,
		&item.ProductType,
		&item.PocketPriceCents,
		&item.PocketsTotal,
		&courierCostCents,
		&item.Currency,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	item.CourierCostCents = int64PtrFromNull(courierCostCents)
	return &item, nil
}
