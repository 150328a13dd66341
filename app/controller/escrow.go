package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sow2grow/ms-go-bestowals/app/auth"
	"github.com/sow2grow/ms-go-bestowals/app/factory"
	"github.com/sow2grow/ms-go-bestowals/app/service"
	"github.com/sow2grow/ms-go-bestowals/app/types"
)

type EscrowController struct {
	bestowalService *service.BestowalService
	logger          logrus.FieldLogger
}

func NewEscrowController(bestowalService *service.BestowalService) *EscrowController {
	return &EscrowController{
		bestowalService: bestowalService,
		logger:          factory.NewModuleLogger("escrow-controller"),
	}
}

func (c *EscrowController) ReleaseEscrow(ctx echo.Context) error {
	req, err := types.NewEscrowReleaseRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	claims := auth.ClaimsFromContext(ctx)
	if claims == nil {
		return c.writeError(ctx, http.StatusUnauthorized, "bearer token is required")
	}
	req.ActorUserID = claims.UserID
	req.ActorRole = claims.Role

	resp, err := c.bestowalService.ReleaseEscrow(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return c.writeError(ctx, http.StatusForbidden, "insufficient role")
		case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidState):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotFound):
			return c.writeError(ctx, http.StatusNotFound, "bestowal not found")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Release escrow failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, resp)
}

func (c *EscrowController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
