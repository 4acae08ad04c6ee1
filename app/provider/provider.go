package provider

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-topups/app/entity"
)

var (
	ErrGatewayError   = errors.New("payment gateway error")
	ErrGatewayTimeout = errors.New("payment gateway timeout")
)

type CreateCheckoutInput struct {
	CheckoutReference uuid.UUID
	Amount            decimal.Decimal
	Currency          string
	MerchantCode      string
	Description       string
	ReturnURL         string
	CustomerID        string
}

// Checkout is the gateway's authoritative view of a checkout.
type Checkout struct {
	ID                string
	CheckoutReference uuid.UUID
	Amount            decimal.Decimal
	Currency          string
	MerchantCode      string
	Description       string
	ReturnURL         string
	CustomerID        string
	PayToEmail        string

	Status     entity.CheckoutStatus
	Date       time.Time
	ValidUntil *time.Time

	TransactionCode *string
	TransactionID   *string
	Transactions    []entity.CheckoutTransaction
}

type Gateway interface {
	Login(ctx context.Context) error
	CreateCheckout(ctx context.Context, input *CreateCheckoutInput) (*Checkout, error)
	GetCheckout(ctx context.Context, checkoutID string) (*Checkout, error)
}
