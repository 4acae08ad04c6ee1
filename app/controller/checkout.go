package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-topups/app/entity"
	"github.com/vibast-solutions/ms-go-topups/app/factory"
	"github.com/vibast-solutions/ms-go-topups/app/mapper"
	"github.com/vibast-solutions/ms-go-topups/app/service"
	"github.com/vibast-solutions/ms-go-topups/app/types"
)

type checkoutService interface {
	CreateCheckout(ctx context.Context, req service.CreateCheckoutRequest) (*entity.Checkout, error)
	GetCheckout(ctx context.Context, req service.CheckoutRequest) (*entity.Checkout, error)
	ListCheckouts(ctx context.Context, req service.ListCheckoutsRequest) ([]*entity.Checkout, error)
	CheckCheckout(ctx context.Context, req service.CheckoutRequest) (entity.CheckoutStatus, error)
}

type CheckoutController struct {
	checkoutService checkoutService
	logger          logrus.FieldLogger
}

func NewCheckoutController(checkoutService checkoutService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
		logger:          factory.NewModuleLogger("checkouts-controller"),
	}
}

func (c *CheckoutController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *CheckoutController) CreateCheckout(ctx echo.Context) error {
	req, err := types.NewCreateCheckoutRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.checkoutService.CreateCheckout(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "Create checkout failed", err)
	}

	return ctx.JSON(http.StatusCreated, &types.CheckoutResponse{Checkout: mapper.CheckoutToResponse(item)})
}

func (c *CheckoutController) GetCheckout(ctx echo.Context) error {
	req, err := types.NewGetCheckoutRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.checkoutService.GetCheckout(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "Get checkout failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.CheckoutResponse{Checkout: mapper.CheckoutToResponse(item)})
}

func (c *CheckoutController) ListCheckouts(ctx echo.Context) error {
	req, err := types.NewListCheckoutsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.checkoutService.ListCheckouts(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "List checkouts failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.ListCheckoutsResponse{Checkouts: mapper.CheckoutsToResponse(items)})
}

func (c *CheckoutController) CheckCheckout(ctx echo.Context) error {
	req, err := types.NewCheckCheckoutRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	status, err := c.checkoutService.CheckCheckout(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "Check checkout failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.CheckCheckoutResponse{Status: string(status)})
}

func (c *CheckoutController) writeServiceError(ctx echo.Context, message string, err error) error {
	switch {
	case errors.Is(err, service.ErrFeatureDisabled):
		return c.writeError(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidArgument):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPendingCheckoutAlreadyExists), errors.Is(err, service.ErrCheckoutAlreadyExists):
		return c.writeError(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return c.writeError(ctx, http.StatusNotFound, "checkout not found")
	case errors.Is(err, service.ErrUnauthorized):
		return c.writeError(ctx, http.StatusForbidden, "not allowed")
	case errors.Is(err, service.ErrGatewayTimeout):
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Warn(message)
		return c.writeError(ctx, http.StatusGatewayTimeout, "payment gateway timeout")
	case errors.Is(err, service.ErrGatewayError):
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Warn(message)
		return c.writeError(ctx, http.StatusBadGateway, "payment gateway error")
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(message)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *CheckoutController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
