package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sow2grow/ms-go-bestowals/app/entity"
)

var ErrInsufficientPendingBalance = errors.New("insufficient pending balance")

// WalletBalanceRepository mutates the per-recipient ledger. Every mutation is a
// relative delta applied in a single statement so concurrent distributions to
// the same recipient never lose updates.
type WalletBalanceRepository struct {
	db DBTX
}

func NewWalletBalanceRepository(db DBTX) *WalletBalanceRepository {
	return &WalletBalanceRepository{db: db}
}

// AddAvailable credits the available balance and total earned, creating the
// balance row on first touch.
func (r *WalletBalanceRepository) AddAvailable(ctx context.Context, userID, walletAddress string, deltaCents int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_balances (user_id, wallet_address, available_cents, pending_cents, total_earned_cents, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			available_cents = available_cents + VALUES(available_cents),
			total_earned_cents = total_earned_cents + VALUES(total_earned_cents),
			updated_at = VALUES(updated_at)
	`, userID, walletAddress, deltaCents, deltaCents, now, now)
	return err
}

// AddPending credits the pending (escrow-held) balance. Total earned is not
// bumped until release.
func (r *WalletBalanceRepository) AddPending(ctx context.Context, userID, walletAddress string, deltaCents int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_balances (user_id, wallet_address, available_cents, pending_cents, total_earned_cents, created_at, updated_at)
		VALUES (?, ?, 0, ?, 0, ?, ?)
		ON DUPLICATE KEY UPDATE
			pending_cents = pending_cents + VALUES(pending_cents),
			updated_at = VALUES(updated_at)
	`, userID, walletAddress, deltaCents, now, now)
	return err
}

// ReleasePending moves an amount from pending to available and bumps total
// earned in one statement. The pending guard refuses to release more than is
// held.
func (r *WalletBalanceRepository) ReleasePending(ctx context.Context, userID, walletAddress string, amountCents int64, now time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE wallet_balances SET
			pending_cents = pending_cents - ?,
			available_cents = available_cents + ?,
			total_earned_cents = total_earned_cents + ?,
			updated_at = ?
		WHERE user_id = ? AND wallet_address = ? AND pending_cents >= ?
	`, amountCents, amountCents, amountCents, now, userID, walletAddress, amountCents)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientPendingBalance
	}
	return nil
}

func (r *WalletBalanceRepository) Find(ctx context.Context, userID, walletAddress string) (*entity.WalletBalance, error) {
	var item entity.WalletBalance
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, wallet_address, available_cents, pending_cents, total_earned_cents, created_at, updated_at
		FROM wallet_balances
		WHERE user_id = ? AND wallet_address = ?
	`, userID, walletAddress).Scan(
		&item.ID,
		&item.UserID,
		&item.WalletAddress,
		&item.AvailableCents,
		&item.PendingCents,
		&item.TotalEarnedCents,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
