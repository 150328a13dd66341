package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sow2grow/ms-go-bestowals/app/entity"
)

type WalletRepository struct {
	db DBTX
}

func NewWalletRepository(db DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

// FindOrganizationWallet returns the operator-configured wallet for a purpose,
// or nil if none is provisioned.
func (r *WalletRepository) FindOrganizationWallet(ctx context.Context, purpose string) (*entity.OrganizationWallet, error) {
	var item entity.OrganizationWallet
	err := r.db.QueryRowContext(ctx, `
		SELECT id, purpose, address, currency
		FROM organization_wallets
		WHERE purpose = ?
	`, purpose).Scan(&item.ID, &item.Purpose, &item.Address, &item.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindPrimaryUserWallet returns the user's registered payout wallet, preferring
// the one marked primary.
func (r *WalletRepository) FindPrimaryUserWallet(ctx context.Context, userID string) (*entity.UserWallet, error) {
	var item entity.UserWallet
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, address, is_primary, created_at
		FROM user_wallets
		WHERE user_id = ?
		ORDER BY is_primary DESC, created_at ASC
		LIMIT 1
	`, userID).Scan(&item.ID, &item.UserID, &item.Address, &item.IsPrimary, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
