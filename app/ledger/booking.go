package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-topups/app/entity"
	"github.com/vibast-solutions/ms-go-topups/app/factory"
	"github.com/vibast-solutions/ms-go-topups/app/metrics"
	"github.com/vibast-solutions/ms-go-topups/app/repository"
)

var (
	ErrInvalidBooking       = errors.New("invalid booking")
	ErrUnbalancedBooking    = errors.New("transfers do not match line items")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountLimitExceeded = errors.New("account balance limit exceeded")
	ErrInsufficientBalance  = errors.New("insufficient account balance")
)

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AccountStore interface {
	LockByIDs(ctx context.Context, ids []uint64) (map[uint64]*entity.Account, error)
	UpdateBalance(ctx context.Context, id uint64, balance decimal.Decimal) error
}

type OrderStore interface {
	FindIDByUUID(ctx context.Context, orderUUID uuid.UUID) (uint64, bool, error)
	Create(ctx context.Context, order *entity.Order) error
	CreateLineItems(ctx context.Context, orderID uint64, items []entity.LineItem) error
	CreateTransfers(ctx context.Context, orderID uint64, transfers []entity.Transfer) error
}

// LimitSource supplies the ceiling for customer account balances.
type LimitSource interface {
	MaxAccountBalance(ctx context.Context) (decimal.Decimal, error)
}

type BookingRequest struct {
	Reference         uuid.UUID
	OrderType         string
	PaymentMethod     string
	CustomerAccountID *uint64
	LineItems         []entity.LineItem
	Transfers         []entity.Transfer
}

type BookingResult struct {
	OrderID uint64
	// Existing is true when the reference had already been booked.
	Existing bool
}

type Booker struct {
	transactor Transactor
	accounts   AccountStore
	orders     OrderStore
	limits     LimitSource
	now        func() time.Time
	logger     logrus.FieldLogger
}

func NewBooker(transactor Transactor, accounts AccountStore, orders OrderStore, limits LimitSource) *Booker {
	return &Booker{
		transactor: transactor,
		accounts:   accounts,
		orders:     orders,
		limits:     limits,
		now:        time.Now,
		logger:     factory.NewModuleLogger("ledger"),
	}
}

// Book applies the request atomically and at most once per reference. When
// ctx already carries a transaction the booking joins it, so the caller's
// commit or rollback decides the outcome.
func (b *Booker) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	if err := req.validate(); err != nil {
		metrics.Bookings.WithLabelValues("rejected").Inc()
		return nil, err
	}

	result := &BookingResult{}
	err := b.transactor.WithinTx(ctx, func(ctx context.Context) error {
		orderID, found, err := b.orders.FindIDByUUID(ctx, req.Reference)
		if err != nil {
			return err
		}
		if found {
			result.OrderID = orderID
			result.Existing = true
			return nil
		}

		balances, err := b.applyTransfers(ctx, req.Transfers)
		if err != nil {
			return err
		}

		order := &entity.Order{
			UUID:              req.Reference,
			OrderType:         req.OrderType,
			PaymentMethod:     req.PaymentMethod,
			CustomerAccountID: req.CustomerAccountID,
			CreatedAt:         b.now().UTC(),
		}
		if err := b.orders.Create(ctx, order); err != nil {
			if !errors.Is(err, repository.ErrOrderAlreadyExists) {
				return err
			}
			// Lost an insert race for the same reference.
			orderID, found, findErr := b.orders.FindIDByUUID(ctx, req.Reference)
			if findErr != nil {
				return findErr
			}
			if !found {
				return err
			}
			result.OrderID = orderID
			result.Existing = true
			return nil
		}

		items := make([]entity.LineItem, len(req.LineItems))
		for i, item := range req.LineItems {
			item.OrderID = order.ID
			item.ItemID = int32(i)
			items[i] = item
		}
		if err := b.orders.CreateLineItems(ctx, order.ID, items); err != nil {
			return err
		}

		transfers := make([]entity.Transfer, len(req.Transfers))
		for i, transfer := range req.Transfers {
			transfer.OrderID = order.ID
			transfers[i] = transfer
		}
		if err := b.orders.CreateTransfers(ctx, order.ID, transfers); err != nil {
			return err
		}

		for _, id := range sortedIDs(balances) {
			if err := b.accounts.UpdateBalance(ctx, id, balances[id]); err != nil {
				return err
			}
		}

		result.OrderID = order.ID
		return nil
	})
	if err != nil {
		metrics.Bookings.WithLabelValues("failed").Inc()
		return nil, err
	}

	if result.Existing {
		metrics.Bookings.WithLabelValues("existing").Inc()
		b.logger.WithFields(logrus.Fields{
			"reference": req.Reference.String(),
			"order_id":  result.OrderID,
		}).Info("Booking already applied")
	} else {
		metrics.Bookings.WithLabelValues("booked").Inc()
	}

	return result, nil
}

// applyTransfers locks every involved account and returns the resulting
// balances after checking the customer account bounds.
func (b *Booker) applyTransfers(ctx context.Context, transfers []entity.Transfer) (map[uint64]decimal.Decimal, error) {
	deltas := make(map[uint64]decimal.Decimal)
	for _, transfer := range transfers {
		deltas[transfer.SourceAccountID] = deltas[transfer.SourceAccountID].Sub(transfer.Amount)
		deltas[transfer.TargetAccountID] = deltas[transfer.TargetAccountID].Add(transfer.Amount)
	}

	ids := sortedIDs(deltas)
	accounts, err := b.accounts.LockByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var maxBalance *decimal.Decimal
	balances := make(map[uint64]decimal.Decimal, len(ids))
	for _, id := range ids {
		account, ok := accounts[id]
		if !ok || account == nil {
			return nil, fmt.Errorf("%w: %d", ErrAccountNotFound, id)
		}

		newBalance := account.Balance.Add(deltas[id])
		if account.IsCustomer() {
			if newBalance.IsNegative() {
				return nil, fmt.Errorf("%w: account %d", ErrInsufficientBalance, id)
			}
			if maxBalance == nil {
				limit, err := b.limits.MaxAccountBalance(ctx)
				if err != nil {
					return nil, err
				}
				maxBalance = &limit
			}
			if newBalance.GreaterThan(*maxBalance) {
				return nil, fmt.Errorf("%w: account %d would reach %s, max is %s",
					ErrAccountLimitExceeded, id, newBalance.StringFixed(2), maxBalance.StringFixed(2))
			}
		}
		balances[id] = newBalance
	}

	return balances, nil
}

func (r BookingRequest) validate() error {
	if r.Reference == uuid.Nil {
		return fmt.Errorf("%w: reference is required", ErrInvalidBooking)
	}
	if len(r.LineItems) == 0 || len(r.Transfers) == 0 {
		return fmt.Errorf("%w: line items and transfers are required", ErrInvalidBooking)
	}

	itemsTotal := decimal.Zero
	for _, item := range r.LineItems {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", ErrInvalidBooking)
		}
		itemsTotal = itemsTotal.Add(item.Total())
	}

	transfersTotal := decimal.Zero
	for _, transfer := range r.Transfers {
		if !transfer.Amount.IsPositive() {
			return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidBooking)
		}
		if transfer.SourceAccountID == transfer.TargetAccountID {
			return fmt.Errorf("%w: transfer source and target must differ", ErrInvalidBooking)
		}
		transfersTotal = transfersTotal.Add(transfer.Amount)
	}

	if !itemsTotal.Equal(transfersTotal) {
		return fmt.Errorf("%w: line items %s, transfers %s",
			ErrUnbalancedBooking, itemsTotal.StringFixed(2), transfersTotal.StringFixed(2))
	}
	return nil
}

func sortedIDs(m map[uint64]decimal.Decimal) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
