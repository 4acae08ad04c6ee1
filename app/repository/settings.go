package repository

import (
	"context"
	"database/sql"
)

const (
	SettingTopUpEnabled       = "sumup_topup_enabled"
	SettingCurrencyIdentifier = "currency_identifier"
	SettingMaxAccountBalance  = "max_account_balance"
)

type SettingsRepository struct {
	db DBTX
}

func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the raw value stored under key. The bool is false when the key
// is not set.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM settings WHERE ` + "`key`" + ` = ?`

	var value string
	err := conn(ctx, r.db).QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
