package entity

import "time"

const (
	CheckoutEventCreated          = "checkout_created"
	CheckoutEventReconciled       = "checkout_reconciled"
	CheckoutEventConsistencyFault = "checkout_consistency_fault"
)

type CheckoutEvent struct {
	ID uint64

	CheckoutID string

	EventType string

	OldStatus *CheckoutStatus
	NewStatus CheckoutStatus

	OrderID *uint64
	Detail  *string

	CreatedAt time.Time
}
