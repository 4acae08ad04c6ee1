package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-topups/app/entity"
)

func TestAccountLockByIDsLocksInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	repo := NewAccountRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id IN (?, ?)")+"(?s).*ORDER BY id ASC.*FOR UPDATE").
		WithArgs(uint64(1), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "balance", "user_tag_uid"}).
			AddRow(int64(1), "sumup_online_entry", "-50.00", nil).
			AddRow(int64(7), "private", "20.00", "04A2B3C4"))

	accounts, err := repo.LockByIDs(context.Background(), []uint64{1, 7})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	customer := accounts[7]
	if !customer.IsCustomer() || !customer.Balance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected customer account: %+v", customer)
	}
	if customer.UserTagUID == nil || *customer.UserTagUID != "04A2B3C4" {
		t.Fatalf("unexpected user tag uid: %v", customer.UserTagUID)
	}
	if accounts[1].IsCustomer() {
		t.Fatal("funding account must not be a customer account")
	}
}

func TestAccountLockByIDsEmpty(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	accounts, err := NewAccountRepository(db).LockByIDs(context.Background(), nil)
	if err != nil || len(accounts) != 0 {
		t.Fatalf("expected empty result, got %v %v", accounts, err)
	}
}

func TestOrderCreateMapsDuplicateUUID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO orders").WillReturnError(&mysqlDriver.MySQLError{
		Number:  1062,
		Message: "Duplicate entry for key 'orders.uq_orders_uuid'",
	})

	err = NewOrderRepository(db).Create(context.Background(), &entity.Order{
		UUID:          uuid.New(),
		OrderType:     entity.OrderTypeTopUp,
		PaymentMethod: entity.PaymentMethodSumUpOnline,
		CreatedAt:     time.Now(),
	})
	if !errors.Is(err, ErrOrderAlreadyExists) {
		t.Fatalf("expected ErrOrderAlreadyExists, got %v", err)
	}
}

func TestOrderCreateAssignsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	customerID := uint64(7)
	order := &entity.Order{
		UUID:              uuid.New(),
		OrderType:         entity.OrderTypeTopUp,
		PaymentMethod:     entity.PaymentMethodSumUpOnline,
		CustomerAccountID: &customerID,
		CreatedAt:         time.Now(),
	}
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(order.UUID.String(), "top_up", "sumup_online", uint64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	if err := NewOrderRepository(db).Create(context.Background(), order); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if order.ID != 42 {
		t.Fatalf("expected order id 42, got %d", order.ID)
	}
}

func TestOrderFindIDByUUID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	ref := uuid.New()
	mock.ExpectQuery("SELECT id FROM orders WHERE uuid").WithArgs(ref.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, found, err := NewOrderRepository(db).FindIDByUUID(context.Background(), ref)
	if err != nil || found {
		t.Fatalf("expected not found, got found=%v err=%v", found, err)
	}
}

func TestOrderCreateLineItemsAndTransfers(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	repo := NewOrderRepository(db)
	mock.ExpectExec("INSERT INTO line_items").
		WithArgs(uint64(42), int32(0), uint64(1), int32(1), "50", "0", "none").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(uint64(42), uint64(1), uint64(7), "50").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.CreateLineItems(context.Background(), 42, []entity.LineItem{{
		ItemID:       0,
		ProductID:    1,
		Quantity:     1,
		ProductPrice: decimal.NewFromInt(50),
		TaxRate:      decimal.Zero,
		TaxName:      "none",
	}})
	if err != nil {
		t.Fatalf("line items: %v", err)
	}
	err = repo.CreateTransfers(context.Background(), 42, []entity.Transfer{{
		SourceAccountID: 1,
		TargetAccountID: 7,
		Amount:          decimal.NewFromInt(50),
	}})
	if err != nil {
		t.Fatalf("transfers: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSettingsGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	repo := NewSettingsRepository(db)
	mock.ExpectQuery("SELECT value FROM settings").WithArgs(SettingTopUpEnabled).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("true"))
	mock.ExpectQuery("SELECT value FROM settings").WithArgs(SettingCurrencyIdentifier).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	value, ok, err := repo.Get(context.Background(), SettingTopUpEnabled)
	if err != nil || !ok || value != "true" {
		t.Fatalf("unexpected result: %q %v %v", value, ok, err)
	}
	_, ok, err = repo.Get(context.Background(), SettingCurrencyIdentifier)
	if err != nil || ok {
		t.Fatalf("expected missing setting, got ok=%v err=%v", ok, err)
	}
}

func TestTransactorRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
		if !InTx(ctx) {
			t.Fatal("expected transactional context")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
