package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-topups/app/entity"
	"github.com/vibast-solutions/ms-go-topups/app/mapper"
	"github.com/vibast-solutions/ms-go-topups/app/service"
	"github.com/vibast-solutions/ms-go-topups/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type checkoutService interface {
	CreateCheckout(ctx context.Context, req service.CreateCheckoutRequest) (*entity.Checkout, error)
	GetCheckout(ctx context.Context, req service.CheckoutRequest) (*entity.Checkout, error)
	ListCheckouts(ctx context.Context, req service.ListCheckoutsRequest) ([]*entity.Checkout, error)
	CheckCheckout(ctx context.Context, req service.CheckoutRequest) (entity.CheckoutStatus, error)
}

type Server struct {
	checkoutService checkoutService
}

func NewServer(checkoutService checkoutService) *Server {
	return &Server{checkoutService: checkoutService}
}

func (s *Server) Health(_ context.Context, _ *types.HealthRequest) (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

func (s *Server) CreateCheckout(ctx context.Context, req *types.CreateCheckoutRequest) (*types.CheckoutResponse, error) {
	l := loggerWithContext(ctx)
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Create checkout validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.checkoutService.CreateCheckout(ctx, req)
	if err != nil {
		return nil, toStatus(ctx, "Create checkout failed", err)
	}

	return &types.CheckoutResponse{Checkout: mapper.CheckoutToResponse(item)}, nil
}

func (s *Server) GetCheckout(ctx context.Context, req *types.GetCheckoutRequest) (*types.CheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.checkoutService.GetCheckout(ctx, req)
	if err != nil {
		return nil, toStatus(ctx, "Get checkout failed", err)
	}

	return &types.CheckoutResponse{Checkout: mapper.CheckoutToResponse(item)}, nil
}

func (s *Server) ListCheckouts(ctx context.Context, req *types.ListCheckoutsRequest) (*types.ListCheckoutsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	items, err := s.checkoutService.ListCheckouts(ctx, req)
	if err != nil {
		return nil, toStatus(ctx, "List checkouts failed", err)
	}

	return &types.ListCheckoutsResponse{Checkouts: mapper.CheckoutsToResponse(items)}, nil
}

func (s *Server) CheckCheckout(ctx context.Context, req *types.CheckCheckoutRequest) (*types.CheckCheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.checkoutService.CheckCheckout(ctx, req)
	if err != nil {
		return nil, toStatus(ctx, "Check checkout failed", err)
	}

	return &types.CheckCheckoutResponse{Status: string(result)}, nil
}

func toStatus(ctx context.Context, message string, err error) error {
	switch {
	case errors.Is(err, service.ErrFeatureDisabled):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrPendingCheckoutAlreadyExists), errors.Is(err, service.ErrCheckoutAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, "checkout not found")
	case errors.Is(err, service.ErrUnauthorized):
		return status.Error(codes.PermissionDenied, "not allowed")
	case errors.Is(err, service.ErrGatewayTimeout):
		loggerWithContext(ctx).WithError(err).Warn(message)
		return status.Error(codes.DeadlineExceeded, "payment gateway timeout")
	case errors.Is(err, service.ErrGatewayError):
		loggerWithContext(ctx).WithError(err).Warn(message)
		return status.Error(codes.Unavailable, "payment gateway error")
	default:
		loggerWithContext(ctx).WithError(err).Error(message)
		return status.Error(codes.Internal, "internal server error")
	}
}
