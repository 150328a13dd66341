package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sow2grow/ms-go-bestowals/app/entity"
)

var ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")

// IdempotencyRepository backs at-most-once order creation. A key is first
// reserved with an empty response (the first durable write of the flow), then
// completed with the cached payload, or deleted if the attempt failed so the
// caller can safely resubmit.
type IdempotencyRepository struct {
	db DBTX
}

func NewIdempotencyRepository(db DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

func (r *IdempotencyRepository) Find(ctx context.Context, userID, key string) (*entity.IdempotencyRecord, error) {
	var item entity.IdempotencyRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, idempotency_key, response_json, created_at
		FROM idempotency_records
		WHERE user_id = ? AND idempotency_key = ?
	`, userID, key).Scan(&item.ID, &item.UserID, &item.IdempotencyKey, &item.ResponseJSON, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Reserve claims the key. The unique key on (user_id, idempotency_key) makes
// concurrent duplicate submissions collapse: losers get
// ErrIdempotencyKeyAlreadyExists.
func (r *IdempotencyRepository) Reserve(ctx context.Context, record *entity.IdempotencyRecord) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO idempotency_records (user_id, idempotency_key, response_json, created_at)
		VALUES (?, ?, '', ?)
	`, record.UserID, record.IdempotencyKey, record.CreatedAt)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrIdempotencyKeyAlreadyExists
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

func (r *IdempotencyRepository) Complete(ctx context.Context, id uint64, responseJSON string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE idempotency_records SET response_json = ? WHERE id = ?
	`, responseJSON, id)
	return err
}

func (r *IdempotencyRepository) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM idempotency_records WHERE id = ?
	`, id)
	return err
}
