package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutStatus string

const (
	CheckoutStatusPending CheckoutStatus = "PENDING"
	CheckoutStatusPaid    CheckoutStatus = "PAID"
	CheckoutStatusFailed  CheckoutStatus = "FAILED"
	CheckoutStatusExpired CheckoutStatus = "EXPIRED"
)

func (s CheckoutStatus) Valid() bool {
	switch s {
	case CheckoutStatusPending, CheckoutStatusPaid, CheckoutStatusFailed, CheckoutStatusExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status can no longer change.
func (s CheckoutStatus) Terminal() bool {
	return s == CheckoutStatusPaid || s == CheckoutStatusFailed || s == CheckoutStatusExpired
}

type Checkout struct {
	ID                string
	CheckoutReference uuid.UUID
	CustomerAccountID uint64

	Amount       decimal.Decimal
	Currency     string
	MerchantCode string
	Description  string
	ReturnURL    string

	Status     CheckoutStatus
	Date       time.Time
	ValidUntil *time.Time

	TransactionCode *string
	TransactionID   *string
	Transactions    []CheckoutTransaction

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CheckoutTransaction is the gateway-side audit record of a payment attempt.
// It is stored for operators only.
type CheckoutTransaction struct {
	ID              string          `json:"id"`
	TransactionCode string          `json:"transaction_code"`
	MerchantCode    string          `json:"merchant_code"`
	Amount          decimal.Decimal `json:"amount"`
	VatAmount       decimal.Decimal `json:"vat_amount"`
	TipAmount       decimal.Decimal `json:"tip_amount"`
	Currency        string          `json:"currency"`
	Timestamp       time.Time       `json:"timestamp"`
	Status          string          `json:"status"`
	PaymentType     string          `json:"payment_type"`
	EntryMode       string          `json:"entry_mode"`
	InstallmentsCnt int32           `json:"installments_count"`
	AuthCode        string          `json:"auth_code"`
	InternalID      int64           `json:"internal_id"`
}
