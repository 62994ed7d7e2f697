// Package payment talks to the TapPay pay-by-prime API.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrGatewayUnavailable means the gateway could not be reached or did not
	// answer in time.  The charge outcome is unknown to the gateway's client
	// but the order must not be confirmed.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayMalformed means the gateway answered with a non-2xx status or
	// a body that is not the expected JSON.
	ErrGatewayMalformed = errors.New("payment gateway returned a malformed response")
	// ErrPaymentDeclined means the gateway processed the charge and refused
	// it.  The DeclineError carries the gateway's status and message.
	ErrPaymentDeclined = errors.New("payment declined")
)

// DeclineError reports a non-zero gateway status.  It matches
// ErrPaymentDeclined with errors.Is.
type DeclineError struct {
	Status  int
	Message string
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("payment declined (status %d): %s", e.Status, e.Message)
}

func (e *DeclineError) Is(target error) bool { return target == ErrPaymentDeclined }

// Cardholder is the payer identity sent with a charge.
type Cardholder struct {
	Name  string
	Email string
	Phone string
}

// ChargeRequest is a single pay-by-prime charge.
type ChargeRequest struct {
	Prime       string
	Amount      int
	OrderNumber string
	Cardholder  Cardholder
}

// Result is a successful charge.
type Result struct {
	Status     int
	Message    string
	RecTradeID string
}

// Charger charges a prime.  The order workflow depends on this interface so
// tests can substitute the gateway.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (Result, error)
}

// Config describes the gateway endpoint and merchant credentials.
type Config struct {
	URL        string
	PartnerKey string
	MerchantID string
	Details    string
	Timeout    time.Duration
}

// Client is the TapPay implementation of Charger.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient returns a Client whose requests time out after cfg.Timeout
// (30s when unset).
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type cardholderPayload struct {
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

type chargePayload struct {
	Prime       string            `json:"prime"`
	PartnerKey  string            `json:"partner_key"`
	MerchantID  string            `json:"merchant_id"`
	Details     string            `json:"details"`
	Amount      int               `json:"amount"`
	OrderNumber string            `json:"order_number"`
	Cardholder  cardholderPayload `json:"cardholder"`
}

// chargeResponse uses a pointer so an absent status is told apart from 0.
type chargeResponse struct {
	Status     *int   `json:"status"`
	Msg        string `json:"msg"`
	RecTradeID string `json:"rec_trade_id"`
}

// Charge posts the prime to the gateway and classifies the answer:
// transport failures and timeouts are ErrGatewayUnavailable, non-2xx or
// undecodable bodies are ErrGatewayMalformed, any status other than 0 is a
// *DeclineError.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (Result, error) {
	body, err := json.Marshal(chargePayload{
		Prime:       req.Prime,
		PartnerKey:  c.cfg.PartnerKey,
		MerchantID:  c.cfg.MerchantID,
		Details:     c.cfg.Details,
		Amount:      req.Amount,
		OrderNumber: req.OrderNumber,
		Cardholder: cardholderPayload{
			PhoneNumber: req.Cardholder.Phone,
			Name:        req.Cardholder.Name,
			Email:       req.Cardholder.Email,
		},
	})
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.PartnerKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Warn().Err(err).Str("order_number", req.OrderNumber).Dur("elapsed", time.Since(start)).
			Msg("payment: gateway request failed")
		return Result{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("%w: http status %d", ErrGatewayMalformed, resp.StatusCode)
	}

	var out chargeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrGatewayMalformed, err)
	}
	if out.Status == nil {
		return Result{}, &DeclineError{Status: -1, Message: out.Msg}
	}
	if *out.Status != 0 {
		return Result{}, &DeclineError{Status: *out.Status, Message: out.Msg}
	}

	log.Debug().Str("order_number", req.OrderNumber).Str("rec_trade_id", out.RecTradeID).
		Dur("elapsed", time.Since(start)).Msg("payment: charge accepted")
	return Result{Status: 0, Message: out.Msg, RecTradeID: out.RecTradeID}, nil
}
