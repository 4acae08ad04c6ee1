package entity

import "github.com/shopspring/decimal"

type AccountType string

const (
	AccountTypePrivate          AccountType = "private"
	AccountTypeSumUpOnlineEntry AccountType = "sumup_online_entry"
)

type Account struct {
	ID         uint64
	Type       AccountType
	Balance    decimal.Decimal
	UserTagUID *string
}

// IsCustomer reports whether the account is owned by a customer and therefore
// bound by the maximum account balance.
func (a *Account) IsCustomer() bool {
	return a.Type == AccountTypePrivate
}
