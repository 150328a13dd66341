package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sow2grow/ms-go-bestowals/app/entity"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, message *entity.NotificationMessage) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_messages (bestowal_id, kind, recipient_user_id, sender_user_id, body, status, attempts, next_attempt_at, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		message.BestowalID,
		message.Kind,
		message.RecipientUserID,
		message.SenderUserID,
		message.Body,
		message.Status,
		message.Attempts,
		nullableTimeValue(message.NextAttemptAt),
		nullableStringValue(message.LastError),
		message.CreatedAt,
		message.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	message.ID = uint64(id)
	return nil
}

func (r *NotificationRepository) Update(ctx context.Context, message *entity.NotificationMessage) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notification_messages SET
			status = ?,
			attempts = ?,
			next_attempt_at = ?,
			last_error = ?,
			updated_at = ?
		WHERE id = ?
	`,
		message.Status,
		message.Attempts,
		nullableTimeValue(message.NextAttemptAt),
		nullableStringValue(message.LastError),
		message.UpdatedAt,
		message.ID,
	)
	return err
}

func (r *NotificationRepository) ListDue(ctx context.Context, now time.Time, limit int32) ([]*entity.NotificationMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, bestowal_id, kind, recipient_user_id, sender_user_id, body, status, attempts, next_attempt_at, last_error, created_at, updated_at
		FROM notification_messages
		WHERE status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
		ORDER BY created_at ASC
		LIMIT ?
	`, entity.NotificationStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.NotificationMessage, 0)
	for rows.Next() {
		var (
			item          entity.NotificationMessage
			nextAttemptAt sql.NullTime
			lastError     sql.NullString
		)
		if err := rows.Scan(
			&item.ID,
			&item.BestowalID,
			&item.Kind,
			&item.RecipientUserID,
			&item.SenderUserID,
			&item.Body,
			&item.Status,
			&item.Attempts,
			&nextAttemptAt,
			&lastError,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.NextAttemptAt = timePtrFromNull(nextAttemptAt)
		item.LastError = stringPtrFromNull(lastError)
		items = append(items, &item)
	}
	return items, rows.Err()
}
