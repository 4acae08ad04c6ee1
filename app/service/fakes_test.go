package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-topups/app/entity"
	"github.com/vibast-solutions/ms-go-topups/app/ledger"
	"github.com/vibast-solutions/ms-go-topups/app/provider"
	"github.com/vibast-solutions/ms-go-topups/app/repository"
	"github.com/vibast-solutions/ms-go-topups/config"
)

type memTxKey struct{}

// memDB is a serializing in-memory store. A transaction holds the single
// lock for its whole duration, which stands in for row locks, and failed
// transactions restore the state they started from.
type memDB struct {
	mu          sync.Mutex
	checkouts   map[string]*entity.Checkout
	events      []entity.CheckoutEvent
	accounts    map[uint64]*entity.Account
	orders      map[uuid.UUID]uint64
	lineItems   []entity.LineItem
	transfers   []entity.Transfer
	product     *entity.Product
	nextOrderID uint64
}

type memSnapshot struct {
	checkouts map[string]entity.Checkout
	events    int
	accounts  map[uint64]entity.Account
	orders    map[uuid.UUID]uint64
	lineItems int
	transfers int
}

func newMemDB() *memDB {
	tagUID := "04A2B3C4"
	return &memDB{
		checkouts: map[string]*entity.Checkout{},
		accounts: map[uint64]*entity.Account{
			1:  {ID: 1, Type: entity.AccountTypeSumUpOnlineEntry},
			7:  {ID: 7, Type: entity.AccountTypePrivate, UserTagUID: &tagUID},
			8:  {ID: 8, Type: entity.AccountTypePrivate},
			9:  {ID: 9, Type: entity.AccountTypePrivate},
			20: {ID: 20, Type: entity.AccountType("cashier")},
		},
		orders:  map[uuid.UUID]uint64{},
		product: &entity.Product{ID: 1, Name: "Top Up", TaxName: "none", TaxRate: decimal.Zero},
	}
}

func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	snap := db.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

// run executes fn under the lock unless ctx already holds it.
func (db *memDB) run(ctx context.Context, fn func()) {
	if ctx.Value(memTxKey{}) != nil {
		fn()
		return
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	fn()
}

func (db *memDB) snapshot() memSnapshot {
	snap := memSnapshot{
		checkouts: make(map[string]entity.Checkout, len(db.checkouts)),
		events:    len(db.events),
		accounts:  make(map[uint64]entity.Account, len(db.accounts)),
		orders:    make(map[uuid.UUID]uint64, len(db.orders)),
		lineItems: len(db.lineItems),
		transfers: len(db.transfers),
	}
	for id, item := range db.checkouts {
		snap.checkouts[id] = *item
	}
	for id, item := range db.accounts {
		snap.accounts[id] = *item
	}
	for k, v := range db.orders {
		snap.orders[k] = v
	}
	return snap
}

func (db *memDB) restore(snap memSnapshot) {
	db.checkouts = make(map[string]*entity.Checkout, len(snap.checkouts))
	for id, item := range snap.checkouts {
		copyItem := item
		db.checkouts[id] = &copyItem
	}
	db.accounts = make(map[uint64]*entity.Account, len(snap.accounts))
	for id, item := range snap.accounts {
		copyItem := item
		db.accounts[id] = &copyItem
	}
	db.orders = snap.orders
	db.events = db.events[:snap.events]
	db.lineItems = db.lineItems[:snap.lineItems]
	db.transfers = db.transfers[:snap.transfers]
}

func (db *memDB) balance(id uint64) decimal.Decimal {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.accounts[id].Balance
}

func (db *memDB) setBalance(id uint64, balance decimal.Decimal) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.accounts[id].Balance = balance
}

func (db *memDB) checkout(id string) *entity.Checkout {
	db.mu.Lock()
	defer db.mu.Unlock()
	item, ok := db.checkouts[id]
	if !ok {
		return nil
	}
	copyItem := *item
	return &copyItem
}

func (db *memDB) counts() (checkouts, orders, events int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.checkouts), len(db.orders), len(db.events)
}

func (db *memDB) eventTypes(checkoutID string) []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	types := make([]string, 0)
	for _, event := range db.events {
		if event.CheckoutID == checkoutID {
			types = append(types, event.EventType)
		}
	}
	return types
}

type memCheckoutRepo struct{ db *memDB }

func (r *memCheckoutRepo) Create(ctx context.Context, checkout *entity.Checkout) error {
	var err error
	r.db.run(ctx, func() {
		if _, ok := r.db.checkouts[checkout.ID]; ok {
			err = repository.ErrCheckoutAlreadyExists
			return
		}
		for _, item := range r.db.checkouts {
			if item.CheckoutReference == checkout.CheckoutReference {
				err = repository.ErrCheckoutAlreadyExists
				return
			}
			if checkout.Status == entity.CheckoutStatusPending &&
				item.Status == entity.CheckoutStatusPending &&
				item.CustomerAccountID == checkout.CustomerAccountID {
				err = repository.ErrPendingCheckoutExists
				return
			}
		}
		copyItem := *checkout
		r.db.checkouts[checkout.ID] = &copyItem
	})
	return err
}

func (r *memCheckoutRepo) UpdateStatus(ctx context.Context, checkout *entity.Checkout) error {
	var err error
	r.db.run(ctx, func() {
		item, ok := r.db.checkouts[checkout.ID]
		if !ok || item.Status != entity.CheckoutStatusPending {
			err = repository.ErrCheckoutNotPending
			return
		}
		copyItem := *checkout
		r.db.checkouts[checkout.ID] = &copyItem
	})
	return err
}

func (r *memCheckoutRepo) FindByID(ctx context.Context, id string) (*entity.Checkout, error) {
	var found *entity.Checkout
	r.db.run(ctx, func() {
		if item, ok := r.db.checkouts[id]; ok {
			copyItem := *item
			found = &copyItem
		}
	})
	return found, nil
}

func (r *memCheckoutRepo) FindByIDForUpdate(ctx context.Context, id string) (*entity.Checkout, error) {
	if ctx.Value(memTxKey{}) == nil {
		return nil, fmt.Errorf("FindByIDForUpdate called outside a transaction")
	}
	return r.FindByID(ctx, id)
}

func (r *memCheckoutRepo) ExistsPendingForCustomer(ctx context.Context, customerAccountID uint64) (bool, error) {
	exists := false
	r.db.run(ctx, func() {
		for _, item := range r.db.checkouts {
			if item.CustomerAccountID == customerAccountID && item.Status == entity.CheckoutStatusPending {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r *memCheckoutRepo) ExistsByReference(ctx context.Context, reference uuid.UUID) (bool, error) {
	exists := false
	r.db.run(ctx, func() {
		for _, item := range r.db.checkouts {
			if item.CheckoutReference == reference {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r *memCheckoutRepo) ListByStatus(ctx context.Context, status entity.CheckoutStatus, afterID string, limit int32) ([]*entity.Checkout, error) {
	return r.list(ctx, func(item *entity.Checkout) bool { return item.Status == status && item.ID > afterID }, limit, 0), nil
}

func (r *memCheckoutRepo) ListByCustomer(ctx context.Context, customerAccountID uint64, limit, offset int32) ([]*entity.Checkout, error) {
	return r.list(ctx, func(item *entity.Checkout) bool { return item.CustomerAccountID == customerAccountID }, limit, offset), nil
}

func (r *memCheckoutRepo) list(ctx context.Context, match func(*entity.Checkout) bool, limit, offset int32) []*entity.Checkout {
	items := make([]*entity.Checkout, 0)
	r.db.run(ctx, func() {
		for _, item := range r.db.checkouts {
			if match(item) {
				copyItem := *item
				items = append(items, &copyItem)
			}
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	start := int(offset)
	if start > len(items) {
		return []*entity.Checkout{}
	}
	end := start + int(limit)
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type memEventRepo struct{ db *memDB }

func (r *memEventRepo) Create(ctx context.Context, event *entity.CheckoutEvent) error {
	r.db.run(ctx, func() {
		event.ID = uint64(len(r.db.events) + 1)
		r.db.events = append(r.db.events, *event)
	})
	return nil
}

type memAccountRepo struct{ db *memDB }

func (r *memAccountRepo) FindByID(ctx context.Context, id uint64) (*entity.Account, error) {
	var found *entity.Account
	r.db.run(ctx, func() {
		if item, ok := r.db.accounts[id]; ok {
			copyItem := *item
			found = &copyItem
		}
	})
	return found, nil
}

func (r *memAccountRepo) FindByType(ctx context.Context, accountType entity.AccountType) (*entity.Account, error) {
	var found *entity.Account
	r.db.run(ctx, func() {
		for _, item := range r.db.accounts {
			if item.Type == accountType && (found == nil || item.ID < found.ID) {
				copyItem := *item
				found = &copyItem
			}
		}
	})
	return found, nil
}

func (r *memAccountRepo) LockByIDs(ctx context.Context, ids []uint64) (map[uint64]*entity.Account, error) {
	result := map[uint64]*entity.Account{}
	r.db.run(ctx, func() {
		for _, id := range ids {
			if item, ok := r.db.accounts[id]; ok {
				copyItem := *item
				result[id] = &copyItem
			}
		}
	})
	return result, nil
}

func (r *memAccountRepo) UpdateBalance(ctx context.Context, id uint64, balance decimal.Decimal) error {
	r.db.run(ctx, func() {
		r.db.accounts[id].Balance = balance
	})
	return nil
}

type memOrderRepo struct{ db *memDB }

func (r *memOrderRepo) FindIDByUUID(ctx context.Context, orderUUID uuid.UUID) (uint64, bool, error) {
	var id uint64
	var ok bool
	r.db.run(ctx, func() {
		id, ok = r.db.orders[orderUUID]
	})
	return id, ok, nil
}

func (r *memOrderRepo) Create(ctx context.Context, order *entity.Order) error {
	var err error
	r.db.run(ctx, func() {
		if _, ok := r.db.orders[order.UUID]; ok {
			err = repository.ErrOrderAlreadyExists
			return
		}
		r.db.nextOrderID++
		order.ID = r.db.nextOrderID
		r.db.orders[order.UUID] = order.ID
	})
	return err
}

func (r *memOrderRepo) CreateLineItems(ctx context.Context, _ uint64, items []entity.LineItem) error {
	r.db.run(ctx, func() {
		r.db.lineItems = append(r.db.lineItems, items...)
	})
	return nil
}

func (r *memOrderRepo) CreateTransfers(ctx context.Context, _ uint64, transfers []entity.Transfer) error {
	r.db.run(ctx, func() {
		r.db.transfers = append(r.db.transfers, transfers...)
	})
	return nil
}

type memProductRepo struct{ db *memDB }

func (r *memProductRepo) FindTopUpProduct(ctx context.Context) (*entity.Product, error) {
	var found *entity.Product
	r.db.run(ctx, func() {
		if r.db.product != nil {
			copyItem := *r.db.product
			found = &copyItem
		}
	})
	return found, nil
}

type fakeSettings struct {
	mu       sync.Mutex
	enabled  bool
	currency string
	max      decimal.Decimal
}

func (s *fakeSettings) TopUpEnabled(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled, nil
}

func (s *fakeSettings) CurrencyIdentifier(context.Context) (string, error) {
	return s.currency, nil
}

func (s *fakeSettings) MaxAccountBalance(context.Context) (decimal.Decimal, error) {
	return s.max, nil
}

func (s *fakeSettings) setEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

var gatewayDate = time.Date(2026, 5, 1, 10, 0, 0, 123456789, time.UTC)

type fakeGateway struct {
	mu          sync.Mutex
	checkouts   map[string]*provider.Checkout
	nextID      int
	createErr   error
	getErrFor   map[string]error
	createHook  func(*provider.Checkout)
	created     []provider.CreateCheckoutInput
	createCalls int
	getCalls    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		checkouts: map[string]*provider.Checkout{},
		getErrFor: map[string]error{},
	}
}

func (g *fakeGateway) Login(context.Context) error {
	return nil
}

func (g *fakeGateway) CreateCheckout(_ context.Context, input *provider.CreateCheckoutInput) (*provider.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.createCalls++
	g.created = append(g.created, *input)
	if g.createErr != nil {
		return nil, g.createErr
	}

	g.nextID++
	checkout := &provider.Checkout{
		ID:                fmt.Sprintf("c%d", g.nextID),
		CheckoutReference: input.CheckoutReference,
		Amount:            input.Amount,
		Currency:          input.Currency,
		MerchantCode:      input.MerchantCode,
		Description:       input.Description,
		ReturnURL:         input.ReturnURL,
		CustomerID:        input.CustomerID,
		Status:            entity.CheckoutStatusPending,
		Date:              gatewayDate,
	}
	g.checkouts[checkout.ID] = checkout

	response := *checkout
	if g.createHook != nil {
		g.createHook(&response)
	}
	return &response, nil
}

func (g *fakeGateway) GetCheckout(_ context.Context, checkoutID string) (*provider.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.getCalls++
	if err := g.getErrFor[checkoutID]; err != nil {
		return nil, err
	}
	checkout, ok := g.checkouts[checkoutID]
	if !ok {
		return nil, fmt.Errorf("%w: status=404", provider.ErrGatewayError)
	}
	response := *checkout
	return &response, nil
}

func (g *fakeGateway) update(checkoutID string, fn func(*provider.Checkout)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.checkouts[checkoutID])
}

func (g *fakeGateway) calls() (create, get int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createCalls, g.getCalls
}

type createReq struct {
	customer uint64
	amount   decimal.Decimal
}

func (r createReq) GetCustomerAccountId() uint64 { return r.customer }
func (r createReq) GetAmount() decimal.Decimal   { return r.amount }

type checkReq struct {
	customer uint64
	id       string
}

func (r checkReq) GetCustomerAccountId() uint64 { return r.customer }
func (r checkReq) GetCheckoutId() string        { return r.id }

type listReq struct {
	customer      uint64
	limit, offset int32
}

func (r listReq) GetCustomerAccountId() uint64 { return r.customer }
func (r listReq) GetLimit() int32              { return r.limit }
func (r listReq) GetOffset() int32             { return r.offset }

type testEnv struct {
	db       *memDB
	gateway  *fakeGateway
	settings *fakeSettings
	svc      *CheckoutService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newMemDB()
	gateway := newFakeGateway()
	settings := &fakeSettings{enabled: true, currency: "EUR", max: decimal.NewFromInt(500)}
	accounts := &memAccountRepo{db: db}
	booker := ledger.NewBooker(db, accounts, &memOrderRepo{db: db}, settings)

	cfg := &config.Config{
		SumUp: config.SumUpConfig{
			MerchantCode: "MC1",
			ReturnURL:    "https://portal.example/return",
		},
		TopUps: config.TopUpsConfig{DescriptionPrefix: "Online TopUp"},
		Jobs:   config.JobsConfig{BatchSize: 100},
	}

	svc := NewCheckoutService(
		db,
		&memCheckoutRepo{db: db},
		&memEventRepo{db: db},
		accounts,
		&memProductRepo{db: db},
		booker,
		gateway,
		settings,
		cfg,
	)

	return &testEnv{db: db, gateway: gateway, settings: settings, svc: svc}
}

func (e *testEnv) create(t *testing.T, customer uint64, amount int64) *entity.Checkout {
	t.Helper()
	checkout, err := e.svc.CreateCheckout(context.Background(), createReq{customer: customer, amount: decimal.NewFromInt(amount)})
	if err != nil {
		t.Fatalf("create checkout failed: %v", err)
	}
	return checkout
}
