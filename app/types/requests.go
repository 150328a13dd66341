package types

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const IdempotencyKeyHeader = "X-Idempotency-Key"

const maxMessageLength = 500

type CreateBestowalRequest struct {
	OrchardID   string `json:"orchardId"`
	AmountCents int64  `json:"amountCents"`
	PocketCount int32  `json:"pocketCount"`
	Message     string `json:"message"`
	GrowerID    string `json:"growerId"`
	Provider    string `json:"provider"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`

	// Filled from the request envelope, not the body.
	ContributorID  string `json:"-"`
	IdempotencyKey string `json:"-"`
}

func NewCreateBestowalRequestFromContext(ctx echo.Context) (*CreateBestowalRequest, error) {
	var body CreateBestowalRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.OrchardID = strings.TrimSpace(body.OrchardID)
	body.Message = strings.TrimSpace(body.Message)
	body.GrowerID = strings.TrimSpace(body.GrowerID)
	body.Provider = strings.ToLower(strings.TrimSpace(body.Provider))
	body.ReturnURL = strings.TrimSpace(body.ReturnURL)
	body.CancelURL = strings.TrimSpace(body.CancelURL)
	body.IdempotencyKey = strings.TrimSpace(ctx.Request().Header.Get(IdempotencyKeyHeader))

	return &body, nil
}

// Validate reports every violated field, not just the first one.
func (r *CreateBestowalRequest) Validate() error {
	var violations []string

	if r.OrchardID == "" {
		violations = append(violations, "orchardId is required")
	} else if _, err := uuid.Parse(r.OrchardID); err != nil {
		violations = append(violations, "orchardId must be a valid uuid")
	}
	if r.AmountCents <= 0 {
		violations = append(violations, "amountCents must be > 0")
	}
	if r.PocketCount <= 0 {
		violations = append(violations, "pocketCount must be a positive integer")
	}
	if len(r.Message) > maxMessageLength {
		violations = append(violations, fmt.Sprintf("message must be at most %d characters", maxMessageLength))
	}
	if r.GrowerID != "" {
		if _, err := uuid.Parse(r.GrowerID); err != nil {
			violations = append(violations, "growerId must be a valid uuid")
		}
	}
	if r.IdempotencyKey == "" {
		violations = append(violations, "x-idempotency-key header is required")
	}

	if len(violations) > 0 {
		return errors.New(strings.Join(violations, "; "))
	}
	return nil
}

type GetBestowalRequest struct {
	OrderRef string
}

func NewGetBestowalRequestFromContext(ctx echo.Context) (*GetBestowalRequest, error) {
	return &GetBestowalRequest{OrderRef: strings.TrimSpace(ctx.Param("orderRef"))}, nil
}

func (r *GetBestowalRequest) Validate() error {
	if r.OrderRef == "" {
		return errors.New("order reference is required")
	}
	if _, err := uuid.Parse(r.OrderRef); err != nil {
		return errors.New("order reference must be a valid uuid")
	}
	return nil
}

type EscrowReleaseRequest struct {
	BestowalID         uint64 `json:"bestowalId"`
	BestowalType       string `json:"bestowalType"`
	CourierID          string `json:"courierId"`
	PickupConfirmation string `json:"pickupConfirmation"`

	ActorUserID string `json:"-"`
	ActorRole   string `json:"-"`
}

func NewEscrowReleaseRequestFromContext(ctx echo.Context) (*EscrowReleaseRequest, error) {
	var body EscrowReleaseRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.BestowalType = strings.ToLower(strings.TrimSpace(body.BestowalType))
	body.CourierID = strings.TrimSpace(body.CourierID)
	body.PickupConfirmation = strings.TrimSpace(body.PickupConfirmation)
	return &body, nil
}

func (r *EscrowReleaseRequest) Validate() error {
	var violations []string

	if r.BestowalID == 0 {
		violations = append(violations, "bestowalId is required")
	}
	if r.BestowalType != "orchard" && r.BestowalType != "product" {
		violations = append(violations, `bestowalType must be "orchard" or "product"`)
	}

	if len(violations) > 0 {
		return errors.New(strings.Join(violations, "; "))
	}
	return nil
}
