package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sow2grow/ms-go-bestowals/app/auth"
	"github.com/sow2grow/ms-go-bestowals/app/entity"
	"github.com/sow2grow/ms-go-bestowals/app/types"
)

func escrowReleaseContext(t *testing.T, verifier *auth.Verifier, role, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/escrow/release", bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearerToken(t, verifier, "actor-1", role))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReleaseEscrowCourierSucceeds(t *testing.T) {
	stored := manualPendingBestowal("7e9a315e-21a3-4a3c-8c54-1ad2b32d3b11")
	stored.Status = entity.BestowalStatusCompleted
	repo := &controllerBestowalRepo{findByIDFn: func(_ context.Context, kind string, id uint64) (*entity.Bestowal, error) {
		if kind != entity.BestowalKindOrchard || id != stored.ID {
			return nil, nil
		}
		return stored, nil
	}}
	ctrl := NewEscrowController(newBestowalServiceForTest(repo, activeOrchardRepo(), &controllerProvider{}))
	verifier := auth.NewVerifier("test-secret")

	ctx, rec := escrowReleaseContext(t, verifier, auth.RoleCourier, `{"bestowalId":42,"bestowalType":"orchard","pickupConfirmation":"signed"}`)
	handler := verifier.RequireBearer()(ctrl.ReleaseEscrow)
	if err := handler(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.EscrowReleaseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !payload.Success || payload.Status != "released" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if stored.ReleaseStatus != entity.ReleaseStatusReleased {
		t.Fatalf("expected release status flipped, got %s", stored.ReleaseStatus)
	}
}

func TestReleaseEscrowMemberForbidden(t *testing.T) {
	ctrl := NewEscrowController(newBestowalServiceForTest(&controllerBestowalRepo{}, activeOrchardRepo(), &controllerProvider{}))
	verifier := auth.NewVerifier("test-secret")

	ctx, rec := escrowReleaseContext(t, verifier, auth.RoleMember, `{"bestowalId":42,"bestowalType":"orchard"}`)
	handler := verifier.RequireBearer()(ctrl.ReleaseEscrow)
	_ = handler(ctx)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestReleaseEscrowUnknownBestowal(t *testing.T) {
	ctrl := NewEscrowController(newBestowalServiceForTest(&controllerBestowalRepo{}, activeOrchardRepo(), &controllerProvider{}))
	verifier := auth.NewVerifier("test-secret")

	ctx, rec := escrowReleaseContext(t, verifier, auth.RoleGosat, `{"bestowalId":99,"bestowalType":"orchard"}`)
	handler := verifier.RequireBearer()(ctrl.ReleaseEscrow)
	_ = handler(ctx)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestReleaseEscrowBadType(t *testing.T) {
	ctrl := NewEscrowController(newBestowalServiceForTest(&controllerBestowalRepo{}, activeOrchardRepo(), &controllerProvider{}))
	verifier := auth.NewVerifier("test-secret")

	ctx, rec := escrowReleaseContext(t, verifier, auth.RoleAdmin, `{"bestowalId":42,"bestowalType":"basket"}`)
	handler := verifier.RequireBearer()(ctrl.ReleaseEscrow)
	_ = handler(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
