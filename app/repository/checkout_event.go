package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-topups/app/entity"
)

type CheckoutEventRepository struct {
	db DBTX
}

func NewCheckoutEventRepository(db DBTX) *CheckoutEventRepository {
	return &CheckoutEventRepository{db: db}
}

func (r *CheckoutEventRepository) Create(ctx context.Context, event *entity.CheckoutEvent) error {
	query := `
		INSERT INTO checkout_events (
			checkout_id, event_type, old_status, new_status, order_id, detail, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var oldStatus interface{}
	if event.OldStatus != nil {
		oldStatus = string(*event.OldStatus)
	}

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		event.CheckoutID,
		event.EventType,
		oldStatus,
		event.NewStatus,
		nullableUint64Value(event.OrderID),
		nullableStringValue(event.Detail),
		event.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}
