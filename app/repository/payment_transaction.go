package repository

import (
	"context"

	"github.com/sow2grow/ms-go-bestowals/app/entity"
)

type PaymentTransactionRepository struct {
	db DBTX
}

func NewPaymentTransactionRepository(db DBTX) *PaymentTransactionRepository {
	return &PaymentTransactionRepository{db: db}
}

func (r *PaymentTransactionRepository) Create(ctx context.Context, tx *entity.PaymentTransaction) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_transactions (bestowal_id, provider, event_type, old_status, new_status, reported_amount_cents, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.BestowalID,
		tx.Provider,
		tx.EventType,
		tx.OldStatus,
		tx.NewStatus,
		nullableInt64Value(tx.ReportedAmountCents),
		nullableStringValue(tx.PayloadJSON),
		tx.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	tx.ID = uint64(id)
	return nil
}
