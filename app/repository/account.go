package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-topups/app/entity"
)

type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) FindByID(ctx context.Context, id uint64) (*entity.Account, error) {
	query := `SELECT id, type, balance, user_tag_uid FROM accounts WHERE id = ?`
	return r.findOne(ctx, query, id)
}

// FindByType returns the lowest-id account of the given type. System accounts
// such as the online top-up funding account exist exactly once.
func (r *AccountRepository) FindByType(ctx context.Context, accountType entity.AccountType) (*entity.Account, error) {
	query := `SELECT id, type, balance, user_tag_uid FROM accounts WHERE type = ? ORDER BY id ASC LIMIT 1`
	return r.findOne(ctx, query, accountType)
}

// LockByIDs locks the given accounts in ascending id order. Accounts that do
// not exist are absent from the result.
func (r *AccountRepository) LockByIDs(ctx context.Context, ids []uint64) (map[uint64]*entity.Account, error) {
	result := make(map[uint64]*entity.Account, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT id, type, balance, user_tag_uid
		FROM accounts
		WHERE id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY id ASC
		FOR UPDATE
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		account := &entity.Account{}
		if err := scanAccount(rows, account); err != nil {
			return nil, err
		}
		result[account.ID] = account
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateBalance is only called for accounts locked by LockByIDs in the same
// transaction.
func (r *AccountRepository) UpdateBalance(ctx context.Context, id uint64, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = ? WHERE id = ?`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, balance, id)
	return err
}

func (r *AccountRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Account, error) {
	account := &entity.Account{}
	if err := scanAccount(conn(ctx, r.db).QueryRowContext(ctx, query, args...), account); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return account, nil
}

func scanAccount(scan rowScanner, account *entity.Account) error {
	var userTagUID sql.NullString
	if err := scan.Scan(&account.ID, &account.Type, &account.Balance, &userTagUID); err != nil {
		return err
	}
	account.UserTagUID = stringPtrFromNull(userTagUID)
	return nil
}
