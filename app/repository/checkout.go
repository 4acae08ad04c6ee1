package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-topups/app/entity"
)

var (
	ErrCheckoutAlreadyExists = errors.New("checkout already exists")
	ErrPendingCheckoutExists = errors.New("pending checkout already exists for customer")
	ErrCheckoutNotPending    = errors.New("checkout is no longer pending")
)

const (
	keyPendingCustomer = "uq_checkouts_pending_customer"

	checkoutColumns = `
		id, checkout_reference, customer_account_id,
		amount, currency, merchant_code, description, return_url,
		status, date, valid_until,
		transaction_code, transaction_id, transactions_json,
		created_at, updated_at`
)

type CheckoutRepository struct {
	db DBTX
}

func NewCheckoutRepository(db DBTX) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

// Create inserts a checkout. A second PENDING checkout for the same customer
// is rejected by the uq_checkouts_pending_customer key.
func (r *CheckoutRepository) Create(ctx context.Context, checkout *entity.Checkout) error {
	transactionsJSON, err := serializeTransactions(checkout.Transactions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO checkouts (` + checkoutColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = conn(ctx, r.db).ExecContext(ctx, query,
		checkout.ID,
		checkout.CheckoutReference,
		checkout.CustomerAccountID,
		checkout.Amount,
		checkout.Currency,
		checkout.MerchantCode,
		checkout.Description,
		checkout.ReturnURL,
		checkout.Status,
		checkout.Date.UTC(),
		nullableTimeValue(checkout.ValidUntil),
		nullableStringValue(checkout.TransactionCode),
		nullableStringValue(checkout.TransactionID),
		transactionsJSON,
		checkout.CreatedAt.UTC(),
		checkout.UpdatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateKey(err, keyPendingCustomer) {
			return ErrPendingCheckoutExists
		}
		if isDuplicateEntryError(err) {
			return ErrCheckoutAlreadyExists
		}
		return err
	}

	return nil
}

// UpdateStatus persists the reconciled fields. Only PENDING rows are updated,
// so a terminal status is never overwritten.
func (r *CheckoutRepository) UpdateStatus(ctx context.Context, checkout *entity.Checkout) error {
	transactionsJSON, err := serializeTransactions(checkout.Transactions)
	if err != nil {
		return err
	}

	query := `
		UPDATE checkouts SET
			status = ?,
			valid_until = ?,
			transaction_code = ?,
			transaction_id = ?,
			transactions_json = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		checkout.Status,
		nullableTimeValue(checkout.ValidUntil),
		nullableStringValue(checkout.TransactionCode),
		nullableStringValue(checkout.TransactionID),
		transactionsJSON,
		checkout.UpdatedAt.UTC(),
		checkout.ID,
		entity.CheckoutStatusPending,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCheckoutNotPending
	}

	return nil
}

func (r *CheckoutRepository) FindByID(ctx context.Context, id string) (*entity.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE id = ?`
	return r.findOne(ctx, query, id)
}

// FindByIDForUpdate locks the checkout row until the surrounding transaction
// ends. It must be called with a transactional context.
func (r *CheckoutRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE id = ? FOR UPDATE`
	return r.findOne(ctx, query, id)
}

func (r *CheckoutRepository) ExistsPendingForCustomer(ctx context.Context, customerAccountID uint64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM checkouts WHERE customer_account_id = ? AND status = ?)`

	var exists bool
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, customerAccountID, entity.CheckoutStatusPending).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *CheckoutRepository) ExistsByReference(ctx context.Context, reference uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM checkouts WHERE checkout_reference = ?)`

	var exists bool
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, reference).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByStatus returns up to limit checkouts with the given status whose id
// sorts after afterID, in id order. An empty afterID starts from the first.
func (r *CheckoutRepository) ListByStatus(ctx context.Context, status entity.CheckoutStatus, afterID string, limit int32) ([]*entity.Checkout, error) {
	query := `
		SELECT ` + checkoutColumns + `
		FROM checkouts
		WHERE status = ? AND id > ?
		ORDER BY id ASC
		LIMIT ?
	`
	return r.findMany(ctx, query, status, afterID, limit)
}

func (r *CheckoutRepository) ListByCustomer(ctx context.Context, customerAccountID uint64, limit, offset int32) ([]*entity.Checkout, error) {
	query := `
		SELECT ` + checkoutColumns + `
		FROM checkouts
		WHERE customer_account_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	return r.findMany(ctx, query, customerAccountID, limit, offset)
}

func (r *CheckoutRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Checkout, error) {
	checkout := &entity.Checkout{}
	if err := scanCheckout(conn(ctx, r.db).QueryRowContext(ctx, query, args...), checkout); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return checkout, nil
}

func (r *CheckoutRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Checkout, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checkouts := make([]*entity.Checkout, 0)
	for rows.Next() {
		item := &entity.Checkout{}
		if err := scanCheckout(rows, item); err != nil {
			return nil, err
		}
		checkouts = append(checkouts, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return checkouts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCheckout(scan rowScanner, checkout *entity.Checkout) error {
	var validUntil sql.NullTime
	var transactionCode sql.NullString
	var transactionID sql.NullString
	var transactionsJSON string

	err := scan.Scan(
		&checkout.ID,
		&checkout.CheckoutReference,
		&checkout.CustomerAccountID,
		&checkout.Amount,
		&checkout.Currency,
		&checkout.MerchantCode,
		&checkout.Description,
		&checkout.ReturnURL,
		&checkout.Status,
		&checkout.Date,
		&validUntil,
		&transactionCode,
		&transactionID,
		&transactionsJSON,
		&checkout.CreatedAt,
		&checkout.UpdatedAt,
	)
	if err != nil {
		return err
	}

	checkout.Date = checkout.Date.UTC()
	checkout.CreatedAt = checkout.CreatedAt.UTC()
	checkout.UpdatedAt = checkout.UpdatedAt.UTC()
	checkout.ValidUntil = timePtrFromNull(validUntil)
	checkout.TransactionCode = stringPtrFromNull(transactionCode)
	checkout.TransactionID = stringPtrFromNull(transactionID)

	transactions, err := parseTransactions(transactionsJSON)
	if err != nil {
		return err
	}
	checkout.Transactions = transactions

	return nil
}
