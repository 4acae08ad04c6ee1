package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-topups/app/entity"
	"github.com/vibast-solutions/ms-go-topups/app/factory"
	"github.com/vibast-solutions/ms-go-topups/app/ledger"
	"github.com/vibast-solutions/ms-go-topups/app/metrics"
	"github.com/vibast-solutions/ms-go-topups/app/provider"
	"github.com/vibast-solutions/ms-go-topups/app/repository"
	"github.com/vibast-solutions/ms-go-topups/config"
)

const (
	defaultListLimit     = int32(50)
	defaultBatchSize     = int32(100)
	maxReferenceAttempts = 5
)

type CreateCheckoutRequest interface {
	GetCustomerAccountId() uint64
	GetAmount() decimal.Decimal
}

type CheckoutRequest interface {
	GetCustomerAccountId() uint64
	GetCheckoutId() string
}

type ListCheckoutsRequest interface {
	GetCustomerAccountId() uint64
	GetLimit() int32
	GetOffset() int32
}

type checkoutRepository interface {
	Create(ctx context.Context, checkout *entity.Checkout) error
	UpdateStatus(ctx context.Context, checkout *entity.Checkout) error
	FindByID(ctx context.Context, id string) (*entity.Checkout, error)
	FindByIDForUpdate(ctx context.Context, id string) (*entity.Checkout, error)
	ExistsPendingForCustomer(ctx context.Context, customerAccountID uint64) (bool, error)
	ExistsByReference(ctx context.Context, reference uuid.UUID) (bool, error)
	ListByStatus(ctx context.Context, status entity.CheckoutStatus, afterID string, limit int32) ([]*entity.Checkout, error)
	ListByCustomer(ctx context.Context, customerAccountID uint64, limit, offset int32) ([]*entity.Checkout, error)
}

type checkoutEventRepository interface {
	Create(ctx context.Context, event *entity.CheckoutEvent) error
}

type accountRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Account, error)
	FindByType(ctx context.Context, accountType entity.AccountType) (*entity.Account, error)
}

type productRepository interface {
	FindTopUpProduct(ctx context.Context) (*entity.Product, error)
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type booker interface {
	Book(ctx context.Context, req ledger.BookingRequest) (*ledger.BookingResult, error)
}

type topUpSettings interface {
	TopUpEnabled(ctx context.Context) (bool, error)
	CurrencyIdentifier(ctx context.Context) (string, error)
	MaxAccountBalance(ctx context.Context) (decimal.Decimal, error)
}

type CheckoutService struct {
	transactor   transactor
	checkoutRepo checkoutRepository
	eventRepo    checkoutEventRepository
	accountRepo  accountRepository
	productRepo  productRepository
	booker       booker
	gateway      provider.Gateway
	settings     topUpSettings
	sumupCfg     config.SumUpConfig
	topUpsCfg    config.TopUpsConfig
	jobsCfg      config.JobsConfig
	newReference func() uuid.UUID
	now          func() time.Time
	logger       logrus.FieldLogger
}

func NewCheckoutService(
	transactor transactor,
	checkoutRepo checkoutRepository,
	eventRepo checkoutEventRepository,
	accountRepo accountRepository,
	productRepo productRepository,
	booker booker,
	gateway provider.Gateway,
	settings topUpSettings,
	cfg *config.Config,
) *CheckoutService {
	return &CheckoutService{
		transactor:   transactor,
		checkoutRepo: checkoutRepo,
		eventRepo:    eventRepo,
		accountRepo:  accountRepo,
		productRepo:  productRepo,
		booker:       booker,
		gateway:      gateway,
		settings:     settings,
		sumupCfg:     cfg.SumUp,
		topUpsCfg:    cfg.TopUps,
		jobsCfg:      cfg.Jobs,
		newReference: uuid.New,
		now:          time.Now,
		logger:       factory.NewModuleLogger("checkout-service"),
	}
}

// CreateCheckout registers a checkout with the gateway and stores the
// gateway's record. No transaction is held during the gateway call; the
// pending-per-customer unique key settles concurrent creations.
func (s *CheckoutService) CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (*entity.Checkout, error) {
	var customer *entity.Account
	if err := runGuards(ctx,
		s.requireTopUpEnabled(),
		s.requireCustomer(req.GetCustomerAccountId(), &customer),
	); err != nil {
		return nil, err
	}

	pending, err := s.checkoutRepo.ExistsPendingForCustomer(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrPendingCheckoutAlreadyExists
	}

	currency, err := s.settings.CurrencyIdentifier(ctx)
	if err != nil {
		return nil, err
	}

	amount := req.GetAmount().Round(2)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidArgument)
	}

	maxBalance, err := s.settings.MaxAccountBalance(ctx)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(maxBalance.Sub(customer.Balance)) {
		return nil, fmt.Errorf("%w: account balance cannot become more than %s", ErrInvalidArgument, maxBalance.StringFixed(2))
	}
	if !amount.IsInteger() {
		return nil, fmt.Errorf("%w: amount must be an integer", ErrInvalidArgument)
	}

	reference, err := s.uniqueReference(ctx)
	if err != nil {
		return nil, err
	}

	remote, err := s.gateway.CreateCheckout(ctx, &provider.CreateCheckoutInput{
		CheckoutReference: reference,
		Amount:            amount,
		Currency:          currency,
		MerchantCode:      s.sumupCfg.MerchantCode,
		Description:       s.checkoutDescription(customer, amount),
		ReturnURL:         s.sumupCfg.ReturnURL,
		CustomerID:        strconv.FormatUint(customer.ID, 10),
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"customer_account_id": customer.ID,
			"checkout_reference":  reference.String(),
		}).Error("Gateway checkout creation failed")
		return nil, err
	}

	if remote.CheckoutReference != reference ||
		(remote.CustomerID != "" && remote.CustomerID != strconv.FormatUint(customer.ID, 10)) {
		metrics.ConsistencyFaults.Inc()
		s.logger.WithFields(logrus.Fields{
			"checkout_id":         remote.ID,
			"checkout_reference":  reference.String(),
			"customer_account_id": customer.ID,
		}).Error("Gateway returned a checkout for a different reference or customer")
		return nil, fmt.Errorf("%w: created checkout %s does not match the request", ErrConsistencyFault, remote.ID)
	}

	now := s.now().UTC()
	checkout := &entity.Checkout{
		ID:                remote.ID,
		CheckoutReference: remote.CheckoutReference,
		CustomerAccountID: customer.ID,
		Amount:            remote.Amount,
		Currency:          remote.Currency,
		MerchantCode:      remote.MerchantCode,
		Description:       remote.Description,
		ReturnURL:         remote.ReturnURL,
		// Funds are only ever applied by reconciliation, so a new checkout
		// always starts out PENDING.
		Status:          entity.CheckoutStatusPending,
		Date:            storedTime(remote.Date),
		TransactionCode: remote.TransactionCode,
		TransactionID:   remote.TransactionID,
		Transactions:    remote.Transactions,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.checkoutRepo.Create(ctx, checkout); err != nil {
			return err
		}
		return s.eventRepo.Create(ctx, &entity.CheckoutEvent{
			CheckoutID: checkout.ID,
			EventType:  entity.CheckoutEventCreated,
			NewStatus:  checkout.Status,
			CreatedAt:  now,
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPendingCheckoutExists):
			return nil, ErrPendingCheckoutAlreadyExists
		case errors.Is(err, repository.ErrCheckoutAlreadyExists):
			return nil, ErrCheckoutAlreadyExists
		}
		return nil, err
	}

	metrics.CheckoutsCreated.Inc()
	s.logger.WithFields(logrus.Fields{
		"checkout_id":         checkout.ID,
		"customer_account_id": customer.ID,
		"amount":              checkout.Amount.StringFixed(2),
	}).Info("Checkout created")

	return checkout, nil
}

// CheckCheckout reconciles a checkout on behalf of its owner.
func (s *CheckoutService) CheckCheckout(ctx context.Context, req CheckoutRequest) (entity.CheckoutStatus, error) {
	var customer *entity.Account
	if err := runGuards(ctx,
		s.requireTopUpEnabled(),
		s.requireCustomer(req.GetCustomerAccountId(), &customer),
	); err != nil {
		return "", err
	}

	if _, err := s.ownedCheckout(ctx, customer.ID, req.GetCheckoutId()); err != nil {
		return "", err
	}

	return s.CheckAndUpdate(ctx, req.GetCheckoutId())
}

func (s *CheckoutService) GetCheckout(ctx context.Context, req CheckoutRequest) (*entity.Checkout, error) {
	var customer *entity.Account
	if err := runGuards(ctx, s.requireCustomer(req.GetCustomerAccountId(), &customer)); err != nil {
		return nil, err
	}
	return s.ownedCheckout(ctx, customer.ID, req.GetCheckoutId())
}

func (s *CheckoutService) ListCheckouts(ctx context.Context, req ListCheckoutsRequest) ([]*entity.Checkout, error) {
	var customer *entity.Account
	if err := runGuards(ctx, s.requireCustomer(req.GetCustomerAccountId(), &customer)); err != nil {
		return nil, err
	}

	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := req.GetOffset()
	if offset < 0 {
		offset = 0
	}

	return s.checkoutRepo.ListByCustomer(ctx, customer.ID, limit, offset)
}

func (s *CheckoutService) ownedCheckout(ctx context.Context, customerAccountID uint64, checkoutID string) (*entity.Checkout, error) {
	if checkoutID == "" {
		return nil, fmt.Errorf("%w: checkout id is required", ErrInvalidArgument)
	}

	checkout, err := s.checkoutRepo.FindByID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if checkout == nil {
		return nil, fmt.Errorf("%w: checkout %s", ErrNotFound, checkoutID)
	}
	if checkout.CustomerAccountID != customerAccountID {
		return nil, fmt.Errorf("%w: checkout does not belong to customer", ErrUnauthorized)
	}
	return checkout, nil
}

func (s *CheckoutService) uniqueReference(ctx context.Context) (uuid.UUID, error) {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		reference := s.newReference()
		exists, err := s.checkoutRepo.ExistsByReference(ctx, reference)
		if err != nil {
			return uuid.Nil, err
		}
		if !exists {
			return reference, nil
		}
	}
	return uuid.Nil, fmt.Errorf("%w: could not generate a unique checkout reference", ErrCheckoutAlreadyExists)
}

func (s *CheckoutService) checkoutDescription(customer *entity.Account, amount decimal.Decimal) string {
	tagUID := "none"
	if customer.UserTagUID != nil && *customer.UserTagUID != "" {
		tagUID = *customer.UserTagUID
	}
	return fmt.Sprintf("%s, Tag UID: %s, amount: %s", s.topUpsCfg.DescriptionPrefix, tagUID, amount.StringFixed(2))
}

func (s *CheckoutService) batchSize() int32 {
	if s.jobsCfg.BatchSize > 0 {
		return s.jobsCfg.BatchSize
	}
	return defaultBatchSize
}

// storedTime matches the precision of DATETIME(6) columns.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
