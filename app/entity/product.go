package entity

import "github.com/shopspring/decimal"

type Product struct {
	ID      uint64
	Name    string
	TaxName string
	TaxRate decimal.Decimal
}
