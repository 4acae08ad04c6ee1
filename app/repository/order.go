package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-topups/app/entity"
)

var ErrOrderAlreadyExists = errors.New("order already exists")

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindIDByUUID returns the id of the order booked under orderUUID. The
// locking read sees orders committed by concurrent transactions.
func (r *OrderRepository) FindIDByUUID(ctx context.Context, orderUUID uuid.UUID) (uint64, bool, error) {
	query := `SELECT id FROM orders WHERE uuid = ? LOCK IN SHARE MODE`

	var id uint64
	err := conn(ctx, r.db).QueryRowContext(ctx, query, orderUUID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	query := `
		INSERT INTO orders (uuid, order_type, payment_method, customer_account_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		order.UUID,
		order.OrderType,
		order.PaymentMethod,
		nullableUint64Value(order.CustomerAccountID),
		order.CreatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrOrderAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = uint64(id)

	return nil
}

func (r *OrderRepository) CreateLineItems(ctx context.Context, orderID uint64, items []entity.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	values := make([]string, 0, len(items))
	args := make([]interface{}, 0, len(items)*7)
	for _, item := range items {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, orderID, item.ItemID, item.ProductID, item.Quantity, item.ProductPrice, item.TaxRate, item.TaxName)
	}

	query := `
		INSERT INTO line_items (order_id, item_id, product_id, quantity, product_price, tax_rate, tax_name)
		VALUES ` + strings.Join(values, ", ")

	_, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	return err
}

func (r *OrderRepository) CreateTransfers(ctx context.Context, orderID uint64, transfers []entity.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	values := make([]string, 0, len(transfers))
	args := make([]interface{}, 0, len(transfers)*4)
	for _, transfer := range transfers {
		values = append(values, "(?, ?, ?, ?)")
		args = append(args, orderID, transfer.SourceAccountID, transfer.TargetAccountID, transfer.Amount)
	}

	query := `
		INSERT INTO transactions (order_id, source_account_id, target_account_id, amount)
		VALUES ` + strings.Join(values, ", ")

	_, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	return err
}
