package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-topups/app/entity"
	"github.com/vibast-solutions/ms-go-topups/app/types"
)

func CheckoutToResponse(item *entity.Checkout) *types.Checkout {
	if item == nil {
		return nil
	}

	return &types.Checkout{
		Id:                item.ID,
		CheckoutReference: item.CheckoutReference.String(),
		CustomerAccountId: item.CustomerAccountID,
		Amount:            item.Amount.StringFixed(2),
		Currency:          item.Currency,
		MerchantCode:      item.MerchantCode,
		Description:       item.Description,
		ReturnUrl:         item.ReturnURL,
		Status:            string(item.Status),
		Date:              formatTime(item.Date),
		ValidUntil:        formatOptionalTime(item.ValidUntil),
		TransactionCode:   derefString(item.TransactionCode),
		TransactionId:     derefString(item.TransactionID),
		CreatedAt:         formatTime(item.CreatedAt),
		UpdatedAt:         formatTime(item.UpdatedAt),
	}
}

func CheckoutsToResponse(items []*entity.Checkout) []*types.Checkout {
	result := make([]*types.Checkout, 0, len(items))
	for _, item := range items {
		result = append(result, CheckoutToResponse(item))
	}
	return result
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
