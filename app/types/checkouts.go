package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultListLimit = int32(50)
	MaxListLimit     = int32(500)
)

func NewCreateCheckoutRequestFromContext(ctx echo.Context) (*CreateCheckoutRequest, error) {
	customerID, err := parseCustomerID(ctx)
	if err != nil {
		return nil, err
	}

	req := &CreateCheckoutRequest{}
	if err := ctx.Bind(req); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	req.CustomerAccountId = customerID

	return req, nil
}

func (r *CreateCheckoutRequest) Validate() error {
	if r.GetCustomerAccountId() == 0 {
		return errors.New("customer_account_id is required")
	}
	return nil
}

func NewGetCheckoutRequestFromContext(ctx echo.Context) (*GetCheckoutRequest, error) {
	customerID, err := parseCustomerID(ctx)
	if err != nil {
		return nil, err
	}
	return &GetCheckoutRequest{
		CustomerAccountId: customerID,
		CheckoutId:        strings.TrimSpace(ctx.Param("id")),
	}, nil
}

func (r *GetCheckoutRequest) Validate() error {
	return validateCheckoutRef(r.GetCustomerAccountId(), r.GetCheckoutId())
}

func NewCheckCheckoutRequestFromContext(ctx echo.Context) (*CheckCheckoutRequest, error) {
	customerID, err := parseCustomerID(ctx)
	if err != nil {
		return nil, err
	}
	return &CheckCheckoutRequest{
		CustomerAccountId: customerID,
		CheckoutId:        strings.TrimSpace(ctx.Param("id")),
	}, nil
}

func (r *CheckCheckoutRequest) Validate() error {
	return validateCheckoutRef(r.GetCustomerAccountId(), r.GetCheckoutId())
}

func NewListCheckoutsRequestFromContext(ctx echo.Context) (*ListCheckoutsRequest, error) {
	customerID, err := parseCustomerID(ctx)
	if err != nil {
		return nil, err
	}

	req := &ListCheckoutsRequest{
		CustomerAccountId: customerID,
		Limit:             DefaultListLimit,
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListCheckoutsRequest) Validate() error {
	if r.GetCustomerAccountId() == 0 {
		return errors.New("customer_account_id is required")
	}
	if r.Limit == 0 {
		r.Limit = DefaultListLimit
	}
	if r.GetLimit() <= 0 || r.GetLimit() > MaxListLimit {
		return errors.New("limit must be between 1 and 500")
	}
	if r.GetOffset() < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

func parseCustomerID(ctx echo.Context) (uint64, error) {
	raw := strings.TrimSpace(ctx.Param("customer_id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid customer id")
	}
	return id, nil
}

func validateCheckoutRef(customerID uint64, checkoutID string) error {
	if customerID == 0 {
		return errors.New("customer_account_id is required")
	}
	if strings.TrimSpace(checkoutID) == "" {
		return errors.New("checkout id is required")
	}
	return nil
}
