package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sow2grow/ms-go-bestowals/app/entity"
)

var ErrTransferAlreadyExists = errors.New("transfer already exists")

// TransferRepository is the per-recipient transfer ledger that makes a
// distribution run resumable: unique on (bestowal_id, recipient_role).
type TransferRepository struct {
	db DBTX
}

func NewTransferRepository(db DBTX) *TransferRepository {
	return &TransferRepository{db: db}
}

func (r *TransferRepository) Find(ctx context.Context, bestowalID uint64, recipientRole string) (*entity.TransferRecord, error) {
	var (
		item               entity.TransferRecord
		providerTransferID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, bestowal_id, recipient_role, request_id, wallet_address, amount_cents, provider_transfer_id, created_at
		FROM bestowal_transfers
		WHERE bestowal_id = ? AND recipient_role = ?
	`, bestowalID, recipientRole).Scan(
		&item.ID,
		&item.BestowalID,
		&item.RecipientRole,
		&item.RequestID,
		&item.WalletAddress,
		&item.AmountCents,
		&providerTransferID,
		&item.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.ProviderTransferID = stringPtrFromNull(providerTransferID)
	return &item, nil
}

func (r *TransferRepository) Create(ctx context.Context, record *entity.TransferRecord) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO bestowal_transfers (bestowal_id, recipient_role, request_id, wallet_address, amount_cents, provider_transfer_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		record.BestowalID,
		record.RecipientRole,
		record.RequestID,
		record.WalletAddress,
		record.AmountCents,
		nullableStringValue(record.ProviderTransferID),
		record.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrTransferAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)
	return nil
}
