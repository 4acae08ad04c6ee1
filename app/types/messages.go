package types

import "github.com/shopspring/decimal"

// Messages shared by the HTTP API and the gRPC service. The gRPC service
// exchanges them with the JSON codec.

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}

func (r *HealthResponse) GetStatus() string {
	if r == nil {
		return ""
	}
	return r.Status
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateCheckoutRequest struct {
	CustomerAccountId uint64          `json:"customer_account_id"`
	Amount            decimal.Decimal `json:"amount"`
}

func (r *CreateCheckoutRequest) GetCustomerAccountId() uint64 {
	if r == nil {
		return 0
	}
	return r.CustomerAccountId
}

func (r *CreateCheckoutRequest) GetAmount() decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return r.Amount
}

type GetCheckoutRequest struct {
	CustomerAccountId uint64 `json:"customer_account_id"`
	CheckoutId        string `json:"checkout_id"`
}

func (r *GetCheckoutRequest) GetCustomerAccountId() uint64 {
	if r == nil {
		return 0
	}
	return r.CustomerAccountId
}

func (r *GetCheckoutRequest) GetCheckoutId() string {
	if r == nil {
		return ""
	}
	return r.CheckoutId
}

type CheckCheckoutRequest struct {
	CustomerAccountId uint64 `json:"customer_account_id"`
	CheckoutId        string `json:"checkout_id"`
}

func (r *CheckCheckoutRequest) GetCustomerAccountId() uint64 {
	if r == nil {
		return 0
	}
	return r.CustomerAccountId
}

func (r *CheckCheckoutRequest) GetCheckoutId() string {
	if r == nil {
		return ""
	}
	return r.CheckoutId
}

type ListCheckoutsRequest struct {
	CustomerAccountId uint64 `json:"customer_account_id"`
	Limit             int32  `json:"limit"`
	Offset            int32  `json:"offset"`
}

func (r *ListCheckoutsRequest) GetCustomerAccountId() uint64 {
	if r == nil {
		return 0
	}
	return r.CustomerAccountId
}

func (r *ListCheckoutsRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListCheckoutsRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

type Checkout struct {
	Id                string `json:"id"`
	CheckoutReference string `json:"checkout_reference"`
	CustomerAccountId uint64 `json:"customer_account_id"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	MerchantCode      string `json:"merchant_code"`
	Description       string `json:"description"`
	ReturnUrl         string `json:"return_url"`
	Status            string `json:"status"`
	Date              string `json:"date"`
	ValidUntil        string `json:"valid_until,omitempty"`
	TransactionCode   string `json:"transaction_code,omitempty"`
	TransactionId     string `json:"transaction_id,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

func (c *Checkout) GetId() string {
	if c == nil {
		return ""
	}
	return c.Id
}

func (c *Checkout) GetStatus() string {
	if c == nil {
		return ""
	}
	return c.Status
}

type CheckoutResponse struct {
	Checkout *Checkout `json:"checkout"`
}

func (r *CheckoutResponse) GetCheckout() *Checkout {
	if r == nil {
		return nil
	}
	return r.Checkout
}

type ListCheckoutsResponse struct {
	Checkouts []*Checkout `json:"checkouts"`
}

func (r *ListCheckoutsResponse) GetCheckouts() []*Checkout {
	if r == nil {
		return nil
	}
	return r.Checkouts
}

type CheckCheckoutResponse struct {
	Status string `json:"status"`
}

func (r *CheckCheckoutResponse) GetStatus() string {
	if r == nil {
		return ""
	}
	return r.Status
}
