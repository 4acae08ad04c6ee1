package service

import (
	"context"
	"fmt"

	"github.com/vibast-solutions/ms-go-topups/app/entity"
)

// guard is a precondition checked before an operation runs.
type guard func(ctx context.Context) error

func runGuards(ctx context.Context, guards ...guard) error {
	for _, g := range guards {
		if err := g(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *CheckoutService) requireTopUpEnabled() guard {
	return func(ctx context.Context) error {
		enabled, err := s.settings.TopUpEnabled(ctx)
		if err != nil {
			return err
		}
		if !enabled {
			return ErrFeatureDisabled
		}
		return nil
	}
}

// requireCustomer loads the customer account into dst.
func (s *CheckoutService) requireCustomer(customerAccountID uint64, dst **entity.Account) guard {
	return func(ctx context.Context) error {
		if customerAccountID == 0 {
			return fmt.Errorf("%w: customer_account_id is required", ErrInvalidArgument)
		}
		account, err := s.accountRepo.FindByID(ctx, customerAccountID)
		if err != nil {
			return err
		}
		if account == nil || !account.IsCustomer() {
			return fmt.Errorf("%w: customer account %d", ErrNotFound, customerAccountID)
		}
		*dst = account
		return nil
	}
}
