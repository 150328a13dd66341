package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sow2grow/ms-go-bestowals/app/auth"
	"github.com/sow2grow/ms-go-bestowals/app/factory"
	"github.com/sow2grow/ms-go-bestowals/app/mapper"
	"github.com/sow2grow/ms-go-bestowals/app/service"
	"github.com/sow2grow/ms-go-bestowals/app/types"
)

type BestowalController struct {
	bestowalService *service.BestowalService
	logger          logrus.FieldLogger
}

func NewBestowalController(bestowalService *service.BestowalService) *BestowalController {
	return &BestowalController{
		bestowalService: bestowalService,
		logger:          factory.NewModuleLogger("bestowals-controller"),
	}
}

func (c *BestowalController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *BestowalController) CreateBestowal(ctx echo.Context) error {
	req, err := types.NewCreateBestowalRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	claims := auth.ClaimsFromContext(ctx)
	if claims == nil {
		return c.writeError(ctx, http.StatusUnauthorized, "bearer token is required")
	}
	req.ContributorID = claims.UserID

	resp, err := c.bestowalService.CreateBestowal(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrProviderUnsupported), errors.Is(err, service.ErrInvalidState):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotFound):
			return c.writeError(ctx, http.StatusNotFound, "orchard not found")
		case errors.Is(err, service.ErrRequestInFlight):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrWalletResolution), errors.Is(err, service.ErrConfiguration):
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create bestowal unprocessable")
			return c.writeError(ctx, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrPaymentProvider):
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create bestowal provider failure")
			return c.writeError(ctx, http.StatusBadGateway, "payment provider request failed")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create bestowal failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, resp)
}

func (c *BestowalController) GetBestowal(ctx echo.Context) error {
	req, err := types.NewGetBestowalRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}

	item, err := c.bestowalService.GetBestowal(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotFound):
			return c.writeError(ctx, http.StatusNotFound, "bestowal not found")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get bestowal failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.BestowalEnvelopeResponse{Bestowal: mapper.BestowalToView(item)})
}

func (c *BestowalController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
