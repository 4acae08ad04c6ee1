package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderTypeTopUp           = "top_up"
	PaymentMethodSumUpOnline = "sumup_online"
)

type Order struct {
	ID                uint64
	UUID              uuid.UUID
	OrderType         string
	PaymentMethod     string
	CustomerAccountID *uint64
	CreatedAt         time.Time
}

type LineItem struct {
	OrderID      uint64
	ItemID       int32
	ProductID    uint64
	Quantity     int32
	ProductPrice decimal.Decimal
	TaxRate      decimal.Decimal
	TaxName      string
}

// Total is quantity times unit price.
func (l LineItem) Total() decimal.Decimal {
	return l.ProductPrice.Mul(decimal.NewFromInt32(l.Quantity))
}

type Transfer struct {
	OrderID         uint64
	SourceAccountID uint64
	TargetAccountID uint64
	Amount          decimal.Decimal
}
