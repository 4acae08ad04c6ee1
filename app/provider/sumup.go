package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-topups/app/entity"
	"github.com/vibast-solutions/ms-go-topups/app/factory"
	"github.com/vibast-solutions/ms-go-topups/app/metrics"
)

type SumUpConfig struct {
	APIURL               string
	AuthURL              string
	ClientID             string
	ClientSecret         string
	HTTPTimeout          time.Duration
	AuthRefreshThreshold time.Duration
}

type SumUpProvider struct {
	cfg    SumUpConfig
	client *http.Client
	tokens *tokenCache
	logger logrus.FieldLogger
}

func NewSumUpProvider(cfg SumUpConfig) *SumUpProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	threshold := cfg.AuthRefreshThreshold
	if threshold <= 0 {
		threshold = 180 * time.Second
	}
	cfg.HTTPTimeout = timeout
	cfg.AuthRefreshThreshold = threshold
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")

	p := &SumUpProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: factory.NewModuleLogger("sumup-provider"),
	}
	p.tokens = newTokenCache(threshold, p.requestToken)
	return p
}

// Login acquires a fresh token regardless of the cached one.
func (p *SumUpProvider) Login(ctx context.Context) error {
	_, err := p.tokens.refresh(ctx, true)
	return err
}

func (p *SumUpProvider) CreateCheckout(ctx context.Context, input *CreateCheckoutInput) (*Checkout, error) {
	payload := sumupCreateCheckout{
		CheckoutReference: input.CheckoutReference,
		Amount:            json.Number(input.Amount.StringFixed(2)),
		Currency:          input.Currency,
		MerchantCode:      input.MerchantCode,
		Description:       input.Description,
		ReturnURL:         input.ReturnURL,
		CustomerID:        input.CustomerID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	headers, err := p.authHeaders(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL+"/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header = headers
	req.Header.Set("Content-Type", "application/json")

	respBody, err := p.do("create_checkout", req)
	if err != nil {
		return nil, err
	}
	return decodeCheckout(respBody)
}

func (p *SumUpProvider) GetCheckout(ctx context.Context, checkoutID string) (*Checkout, error) {
	headers, err := p.authHeaders(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.APIURL+"/checkouts/"+url.PathEscape(checkoutID), nil)
	if err != nil {
		return nil, err
	}
	req.Header = headers

	respBody, err := p.do("get_checkout", req)
	if err != nil {
		return nil, err
	}
	return decodeCheckout(respBody)
}

func (p *SumUpProvider) authHeaders(ctx context.Context) (http.Header, error) {
	token, err := p.tokens.get(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("%w: could not authenticate with sumup", ErrGatewayError)
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("Authorization", "Bearer "+token)
	return headers, nil
}

func (p *SumUpProvider) requestToken(ctx context.Context) (*authToken, error) {
	values := url.Values{}
	values.Set("grant_type", "client_credentials")
	values.Set("client_id", p.cfg.ClientID)
	values.Set("client_secret", p.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.AuthURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := p.do("token", req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid token response: %v", ErrGatewayError, err)
	}

	return &authToken{
		accessToken: payload.AccessToken,
		validUntil:  p.tokens.now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}

func (p *SumUpProvider) do(operation string, req *http.Request) ([]byte, error) {
	start := time.Now()
	body, err := p.send(req)
	outcome := "ok"
	switch {
	case errors.Is(err, ErrGatewayTimeout):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	metrics.GatewayRequestDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
	return body, err
}

func (p *SumUpProvider) send(req *http.Request) ([]byte, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			p.logger.WithField("url", req.URL.Redacted()).Error("SumUp API timeout")
			return nil, fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayError, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.WithFields(logrus.Fields{
			"url":    req.URL.Redacted(),
			"status": resp.StatusCode,
			"body":   string(body),
		}).Error("SumUp API returned an error")
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrGatewayError, resp.StatusCode, string(body))
	}

	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type sumupCreateCheckout struct {
	CheckoutReference uuid.UUID   `json:"checkout_reference"`
	Amount            json.Number `json:"amount"`
	Currency          string      `json:"currency"`
	MerchantCode      string      `json:"merchant_code"`
	Description       string      `json:"description"`
	ReturnURL         string      `json:"return_url"`
	CustomerID        string      `json:"customer_id"`
}

type sumupCheckout struct {
	ID                string                       `json:"id"`
	CheckoutReference uuid.UUID                    `json:"checkout_reference"`
	Amount            decimal.Decimal              `json:"amount"`
	Currency          string                       `json:"currency"`
	MerchantCode      string                       `json:"merchant_code"`
	Description       string                       `json:"description"`
	ReturnURL         string                       `json:"return_url"`
	CustomerID        string                       `json:"customer_id"`
	PayToEmail        string                       `json:"pay_to_email"`
	Status            string                       `json:"status"`
	Date              time.Time                    `json:"date"`
	ValidUntil        *time.Time                   `json:"valid_until"`
	TransactionCode   *string                      `json:"transaction_code"`
	TransactionID     *string                      `json:"transaction_id"`
	Transactions      []entity.CheckoutTransaction `json:"transactions"`
}

func decodeCheckout(body []byte) (*Checkout, error) {
	var payload sumupCheckout
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid checkout response: %v", ErrGatewayError, err)
	}

	status := entity.CheckoutStatus(strings.ToUpper(strings.TrimSpace(payload.Status)))
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown checkout status %q", ErrGatewayError, payload.Status)
	}
	if strings.TrimSpace(payload.ID) == "" {
		return nil, fmt.Errorf("%w: checkout id missing", ErrGatewayError)
	}

	return &Checkout{
		ID:                payload.ID,
		CheckoutReference: payload.CheckoutReference,
		Amount:            payload.Amount,
		Currency:          payload.Currency,
		MerchantCode:      payload.MerchantCode,
		Description:       payload.Description,
		ReturnURL:         payload.ReturnURL,
		CustomerID:        payload.CustomerID,
		PayToEmail:        payload.PayToEmail,
		Status:            status,
		Date:              payload.Date.UTC(),
		ValidUntil:        utcPtr(payload.ValidUntil),
		TransactionCode:   payload.TransactionCode,
		TransactionID:     payload.TransactionID,
		Transactions:      payload.Transactions,
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
