package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-topups/app/entity"
	"github.com/vibast-solutions/ms-go-topups/app/ledger"
	"github.com/vibast-solutions/ms-go-topups/app/metrics"
	"github.com/vibast-solutions/ms-go-topups/app/provider"
)

// CheckAndUpdate aligns a stored checkout with the gateway. The checkout row
// stays locked for the whole check, so concurrent callers for the same id run
// one after another and later ones see the terminal status.
func (s *CheckoutService) CheckAndUpdate(ctx context.Context, checkoutID string) (entity.CheckoutStatus, error) {
	var (
		status    entity.CheckoutStatus
		oldStatus entity.CheckoutStatus
		orderID   *uint64
		changed   bool
	)

	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		stored, err := s.checkoutRepo.FindByIDForUpdate(ctx, checkoutID)
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("%w: checkout %s", ErrNotFound, checkoutID)
		}
		if stored.Status.Terminal() {
			status = stored.Status
			return nil
		}

		remote, err := s.gateway.GetCheckout(ctx, stored.ID)
		if err != nil {
			return err
		}
		if mismatches := compareCheckout(stored, remote); len(mismatches) > 0 {
			return fmt.Errorf("%w: checkout %s differs in %s", ErrConsistencyFault, stored.ID, strings.Join(mismatches, ", "))
		}

		if remote.Status == entity.CheckoutStatusPaid {
			result, err := s.bookTopUp(ctx, stored)
			if err != nil {
				return err
			}
			orderID = &result.OrderID
		}

		oldStatus = stored.Status
		stored.Status = remote.Status
		stored.ValidUntil = remote.ValidUntil
		stored.TransactionCode = remote.TransactionCode
		stored.TransactionID = remote.TransactionID
		stored.Transactions = remote.Transactions
		stored.UpdatedAt = s.now().UTC()

		if err := s.checkoutRepo.UpdateStatus(ctx, stored); err != nil {
			return err
		}

		status = stored.Status
		changed = stored.Status != oldStatus
		if !changed {
			return nil
		}

		return s.eventRepo.Create(ctx, &entity.CheckoutEvent{
			CheckoutID: stored.ID,
			EventType:  entity.CheckoutEventReconciled,
			OldStatus:  &oldStatus,
			NewStatus:  stored.Status,
			OrderID:    orderID,
			CreatedAt:  stored.UpdatedAt,
		})
	})
	if err != nil {
		if errors.Is(err, ErrConsistencyFault) {
			s.recordConsistencyFault(ctx, checkoutID, err)
		}
		return "", err
	}

	if changed {
		metrics.CheckoutTransitions.WithLabelValues(string(status)).Inc()
		fields := logrus.Fields{
			"checkout_id": checkoutID,
			"old_status":  string(oldStatus),
			"new_status":  string(status),
		}
		if orderID != nil {
			fields["order_id"] = *orderID
		}
		s.logger.WithFields(fields).Info("Checkout status updated")
	}

	return status, nil
}

// RunReconcileBatch checks every pending checkout once, paging through them
// by id. Errors are logged per checkout and do not stop the pass; the first
// one is returned.
func (s *CheckoutService) RunReconcileBatch(ctx context.Context) error {
	enabled, err := s.settings.TopUpEnabled(ctx)
	if err != nil {
		metrics.ReconcilePasses.WithLabelValues("error").Inc()
		return err
	}
	if !enabled {
		metrics.ReconcilePasses.WithLabelValues("disabled").Inc()
		return nil
	}

	var (
		firstErr error
		afterID  string
		limit    = s.batchSize()
	)
pages:
	for {
		items, err := s.checkoutRepo.ListByStatus(ctx, entity.CheckoutStatusPending, afterID, limit)
		if err != nil {
			if afterID == "" {
				metrics.ReconcilePasses.WithLabelValues("error").Inc()
				return err
			}
			firstErr = keepFirstErr(firstErr, err)
			break
		}

		for _, checkout := range items {
			if checkout == nil {
				continue
			}
			if ctx.Err() != nil {
				firstErr = keepFirstErr(firstErr, ctx.Err())
				break pages
			}

			afterID = checkout.ID
			if _, err := s.CheckAndUpdate(ctx, checkout.ID); err != nil {
				entry := s.logger.WithError(err).WithField("checkout_id", checkout.ID)
				if errors.Is(err, ErrConsistencyFault) {
					entry.Error("Checkout requires operator attention")
				} else {
					entry.Warn("Checkout reconciliation failed")
				}
				firstErr = keepFirstErr(firstErr, err)
			}
		}

		if int32(len(items)) < limit {
			break
		}
	}

	if firstErr != nil {
		metrics.ReconcilePasses.WithLabelValues("partial").Inc()
	} else {
		metrics.ReconcilePasses.WithLabelValues("ok").Inc()
	}
	return firstErr
}

func (s *CheckoutService) bookTopUp(ctx context.Context, checkout *entity.Checkout) (*ledger.BookingResult, error) {
	product, err := s.productRepo.FindTopUpProduct(ctx)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: top-up product missing", ErrMisconfigured)
	}

	funding, err := s.accountRepo.FindByType(ctx, entity.AccountTypeSumUpOnlineEntry)
	if err != nil {
		return nil, err
	}
	if funding == nil {
		return nil, fmt.Errorf("%w: %s account missing", ErrMisconfigured, entity.AccountTypeSumUpOnlineEntry)
	}

	customerID := checkout.CustomerAccountID
	return s.booker.Book(ctx, ledger.BookingRequest{
		Reference:         checkout.CheckoutReference,
		OrderType:         entity.OrderTypeTopUp,
		PaymentMethod:     entity.PaymentMethodSumUpOnline,
		CustomerAccountID: &customerID,
		LineItems: []entity.LineItem{{
			ProductID:    product.ID,
			Quantity:     1,
			ProductPrice: checkout.Amount,
			TaxRate:      product.TaxRate,
			TaxName:      product.TaxName,
		}},
		Transfers: []entity.Transfer{{
			SourceAccountID: funding.ID,
			TargetAccountID: customerID,
			Amount:          checkout.Amount,
		}},
	})
}

// recordConsistencyFault runs after the check rolled back, so the event is
// written on its own.
func (s *CheckoutService) recordConsistencyFault(ctx context.Context, checkoutID string, cause error) {
	metrics.ConsistencyFaults.Inc()
	s.logger.WithError(cause).WithField("checkout_id", checkoutID).Error("Checkout consistency fault")

	detail := cause.Error()
	if err := s.eventRepo.Create(ctx, &entity.CheckoutEvent{
		CheckoutID: checkoutID,
		EventType:  entity.CheckoutEventConsistencyFault,
		NewStatus:  entity.CheckoutStatusPending,
		Detail:     &detail,
		CreatedAt:  s.now().UTC(),
	}); err != nil {
		s.logger.WithError(err).WithField("checkout_id", checkoutID).Warn("Failed to record consistency fault event")
	}
}

// compareCheckout lists the immutable fields that differ between the stored
// and the gateway checkout.
func compareCheckout(stored *entity.Checkout, remote *provider.Checkout) []string {
	mismatches := make([]string, 0)
	if remote.ID != stored.ID {
		mismatches = append(mismatches, "id")
	}
	if remote.CheckoutReference != stored.CheckoutReference {
		mismatches = append(mismatches, "checkout_reference")
	}
	if !remote.Amount.Equal(stored.Amount) {
		mismatches = append(mismatches, "amount")
	}
	if remote.Currency != stored.Currency {
		mismatches = append(mismatches, "currency")
	}
	if remote.MerchantCode != stored.MerchantCode {
		mismatches = append(mismatches, "merchant_code")
	}
	if remote.Description != stored.Description {
		mismatches = append(mismatches, "description")
	}
	if remote.ReturnURL != stored.ReturnURL {
		mismatches = append(mismatches, "return_url")
	}
	if !storedTime(remote.Date).Equal(storedTime(stored.Date)) {
		mismatches = append(mismatches, "date")
	}
	if remote.CustomerID != "" && remote.CustomerID != strconv.FormatUint(stored.CustomerAccountID, 10) {
		mismatches = append(mismatches, "customer_id")
	}
	return mismatches
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
