package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sow2grow/ms-go-bestowals/app/entity"
)

var (
	ErrBestowalNotFound      = errors.New("bestowal not found")
	ErrBestowalAlreadyExists = errors.New("bestowal already exists")
)

const bestowalColumns = `
	id, order_ref, orchard_id, sower_user_id, contributor_user_id, grower_user_id,
	amount_cents, currency, pocket_count, message,
	payment_method, provider, status,
	provider_order_id, checkout_url, distribution_json,
	release_status, released_at, distributed_at,
	created_at, updated_at
`

// BestowalRepository persists bestowals. Orchard and product bestowals live in
// separate tables with an identical shape; the kind picks the table.
type BestowalRepository struct {
	db DBTX
}

func NewBestowalRepository(db DBTX) *BestowalRepository {
	return &BestowalRepository{db: db}
}

func tableFor(kind string) (string, error) {
	switch kind {
	case entity.BestowalKindOrchard:
		return "bestowals", nil
	case entity.BestowalKindProduct:
		return "product_bestowals", nil
	default:
		return "", fmt.Errorf("unknown bestowal kind %q", kind)
	}
}

func (r *BestowalRepository) Create(ctx context.Context, bestowal *entity.Bestowal) error {
	table, err := tableFor(bestowal.Kind)
	if err != nil {
		return err
	}
	distributionJSON, err := serializeDistribution(bestowal.Distribution)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ` + table + ` (
			order_ref, orchard_id, sower_user_id, contributor_user_id, grower_user_id,
			amount_cents, currency, pocket_count, message,
			payment_method, provider, status,
			provider_order_id, checkout_url, distribution_json,
			release_status, released_at, distributed_at,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		bestowal.OrderRef,
		bestowal.OrchardID,
		bestowal.SowerUserID,
		bestowal.ContributorUserID,
		nullableStringValue(bestowal.GrowerUserID),
		bestowal.AmountCents,
		bestowal.Currency,
		bestowal.PocketCount,
		nullableStringValue(bestowal.Message),
		bestowal.PaymentMethod,
		bestowal.Provider,
		bestowal.Status,
		nullableStringValue(bestowal.ProviderOrderID),
		nullableStringValue(bestowal.CheckoutURL),
		distributionJSON,
		bestowal.ReleaseStatus,
		nullableTimeValue(bestowal.ReleasedAt),
		nullableTimeValue(bestowal.DistributedAt),
		bestowal.CreatedAt,
		bestowal.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrBestowalAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	bestowal.ID = uint64(id)
	return nil
}

func (r *BestowalRepository) Update(ctx context.Context, bestowal *entity.Bestowal) error {
	table, err := tableFor(bestowal.Kind)
	if err != nil {
		return err
	}
	distributionJSON, err := serializeDistribution(bestowal.Distribution)
	if err != nil {
		return err
	}

	query := `
		UPDATE ` + table + ` SET
			status = ?,
			provider_order_id = ?,
			checkout_url = ?,
			distribution_json = ?,
			release_status = ?,
			released_at = ?,
			distributed_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		bestowal.Status,
		nullableStringValue(bestowal.ProviderOrderID),
		nullableStringValue(bestowal.CheckoutURL),
		distributionJSON,
		bestowal.ReleaseStatus,
		nullableTimeValue(bestowal.ReleasedAt),
		nullableTimeValue(bestowal.DistributedAt),
		bestowal.UpdatedAt,
		bestowal.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBestowalNotFound
	}
	return nil
}

func (r *BestowalRepository) FindByID(ctx context.Context, kind string, id uint64) (*entity.Bestowal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+bestowalColumns+` FROM `+table+` WHERE id = ?`, id)
	return scanBestowal(row, kind)
}

// FindByOrderRef looks the order reference up in both bestowal tables; the
// reference is a UUID so collisions across tables do not happen.
func (r *BestowalRepository) FindByOrderRef(ctx context.Context, orderRef string) (*entity.Bestowal, error) {
	for _, kind := range []string{entity.BestowalKindOrchard, entity.BestowalKindProduct} {
		table, err := tableFor(kind)
		if err != nil {
			return nil, err
		}
		row := r.db.QueryRowContext(ctx, `SELECT `+bestowalColumns+` FROM `+table+` WHERE order_ref = ?`, orderRef)
		item, err := scanBestowal(row, kind)
		if err != nil {
			return nil, err
		}
		if item != nil {
			return item, nil
		}
	}
	return nil, nil
}

// MarkReleased flips held to released and reports whether this call won the
// transition. The status guard makes concurrent releases collapse to one.
func (r *BestowalRepository) MarkReleased(ctx context.Context, kind string, id uint64, at time.Time) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE `+table+` SET release_status = ?, released_at = ?, updated_at = ?
		WHERE id = ? AND release_status = ?
	`, entity.ReleaseStatusReleased, at, at, id, entity.ReleaseStatusHeld)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListStalePending returns pending bestowals from both tables untouched since
// the cutoff, for provider-side reconciliation.
func (r *BestowalRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Bestowal, error) {
	items := make([]*entity.Bestowal, 0)
	for _, kind := range []string{entity.BestowalKindOrchard, entity.BestowalKindProduct} {
		table, err := tableFor(kind)
		if err != nil {
			return nil, err
		}

		remaining := limit - int32(len(items))
		if remaining <= 0 {
			break
		}

		query := `
			SELECT ` + bestowalColumns + `
			FROM ` + table + `
			WHERE status = ? AND provider_order_id IS NOT NULL AND updated_at <= ?
			ORDER BY updated_at ASC
			LIMIT ?
		`
		rows, err := r.db.QueryContext(ctx, query, entity.BestowalStatusPending, cutoff, remaining)
		if err != nil {
			return nil, err
		}

		for rows.Next() {
			item, err := scanBestowalRows(rows, kind)
			if err != nil {
				rows.Close()
				return nil, err
			}
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return items, nil
}

func scanBestowal(row *sql.Row, kind string) (*entity.Bestowal, error) {
	item, err := scanBestowalFrom(row.Scan, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

func scanBestowalRows(rows *sql.Rows, kind string) (*entity.Bestowal, error) {
	return scanBestowalFrom(rows.Scan, kind)
}

func scanBestowalFrom(scan func(dest ...interface{}) error, kind string) (*entity.Bestowal, error) {
	var (
		item             entity.Bestowal
		growerUserID     sql.NullString
		message          sql.NullString
		providerOrderID  sql.NullString
		checkoutURL      sql.NullString
		distributionJSON string
		releasedAt       sql.NullTime
		distributedAt    sql.NullTime
	)

	err := scan(
		&item.ID,
		&item.OrderRef,
		&item.OrchardID,
		&item.SowerUserID,
		&item.ContributorUserID,
		&growerUserID,
		&item.AmountCents,
		&item.Currency,
		&item.PocketCount,
		&message,
		&item.PaymentMethod,
		&item.Provider,
		&item.Status,
		&providerOrderID,
		&checkoutURL,
		&distributionJSON,
		&item.ReleaseStatus,
		&releasedAt,
		&distributedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Kind = kind
	item.GrowerUserID = stringPtrFromNull(growerUserID)
	item.Message = stringPtrFromNull(message)
	item.ProviderOrderID = stringPtrFromNull(providerOrderID)
	item.CheckoutURL = stringPtrFromNull(checkoutURL)
	item.ReleasedAt = timePtrFromNull(releasedAt)
	item.DistributedAt = timePtrFromNull(distributedAt)

	snapshot, err := parseDistribution(distributionJSON)
	if err != nil {
		return nil, err
	}
	item.Distribution = snapshot

	return &item, nil
}
