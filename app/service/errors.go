package service

import (
	"errors"

	"github.com/vibast-solutions/ms-go-topups/app/provider"
)

var (
	ErrInvalidArgument              = errors.New("invalid argument")
	ErrFeatureDisabled              = errors.New("online top-ups are disabled")
	ErrNotFound                     = errors.New("not found")
	ErrUnauthorized                 = errors.New("unauthorized")
	ErrPendingCheckoutAlreadyExists = errors.New("a pending checkout already exists")
	ErrCheckoutAlreadyExists        = errors.New("checkout already exists")
	ErrConsistencyFault             = errors.New("stored checkout does not match gateway checkout")
	ErrMisconfigured                = errors.New("top-up configuration incomplete")

	ErrGatewayError   = provider.ErrGatewayError
	ErrGatewayTimeout = provider.ErrGatewayTimeout
)
