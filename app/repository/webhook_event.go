package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sow2grow/ms-go-bestowals/app/entity"
)

var ErrWebhookEventAlreadyExists = errors.New("webhook event already exists")

type WebhookEventRepository struct {
	db DBTX
}

func NewWebhookEventRepository(db DBTX) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Create inserts the dedup record. The unique key on (provider, webhook_id)
// makes this the at-most-once gate: losers of a delivery race get
// ErrWebhookEventAlreadyExists before any side effect runs.
func (r *WebhookEventRepository) Create(ctx context.Context, event *entity.WebhookEvent) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_events (provider, webhook_id, event_type, payload_hash, payload_json, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.Provider,
		event.WebhookID,
		event.EventType,
		event.PayloadHash,
		event.PayloadJSON,
		event.Status,
		nullableStringValue(event.Error),
		event.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrWebhookEventAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)
	return nil
}

func (r *WebhookEventRepository) Find(ctx context.Context, provider int32, webhookID string) (*entity.WebhookEvent, error) {
	var (
		item     entity.WebhookEvent
		errField sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, provider, webhook_id, event_type, payload_hash, payload_json, status, error, created_at
		FROM webhook_events
		WHERE provider = ? AND webhook_id = ?
	`, provider, webhookID).Scan(
		&item.ID,
		&item.Provider,
		&item.WebhookID,
		&item.EventType,
		&item.PayloadHash,
		&item.PayloadJSON,
		&item.Status,
		&errField,
		&item.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.Error = stringPtrFromNull(errField)
	return &item, nil
}

func (r *WebhookEventRepository) UpdateStatus(ctx context.Context, id uint64, status string, errMessage *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE webhook_events SET status = ?, error = ? WHERE id = ?
	`, status, nullableStringValue(errMessage), id)
	return err
}
