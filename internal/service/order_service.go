// Package service holds the workflows that span several repositories or
// external systems.  Services return *apperr.Error values so handlers can map
// failures onto HTTP responses without knowing about SQL or the gateway.
package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/payment"
	"github.com/iliyamo/taipei-day-trip/internal/queue"
	"github.com/iliyamo/taipei-day-trip/internal/repository"
)

// PaymentSucceededMessage is the payment message returned for a confirmed
// order.
const PaymentSucceededMessage = "付款成功"

// OrderStore is the part of the order ledger the workflow needs.
type OrderStore interface {
	CreatePendingTx(ctx context.Context, tx *sql.Tx, o *model.Order) error
	ConfirmTx(ctx context.Context, tx *sql.Tx, number string) error
	Reject(ctx context.Context, number string) error
	MarkPaid(ctx context.Context, number, recTradeID string) error
	GetByNumber(ctx context.Context, number string) (model.OrderDetail, error)
}

// ReservationStore is the part of the reservation store consumed at
// confirmation.
type ReservationStore interface {
	DeleteTx(ctx context.Context, tx *sql.Tx, memberID uint64) error
}

// AttractionLookup resolves attraction names for outgoing events.
type AttractionLookup interface {
	GetByID(ctx context.Context, id uint64) (model.Attraction, error)
}

// EventPublisher publishes order events.
type EventPublisher interface {
	PublishOrderConfirmed(ctx context.Context, ev queue.OrderConfirmedEvent) error
}

// OrderService turns a member's trip into a paid order:
// Pending insert, gateway charge, then confirm or reject.
type OrderService struct {
	DB           *sql.DB
	Orders       OrderStore
	Reservations ReservationStore
	Attractions  AttractionLookup
	Gateway      payment.Charger
	Events       EventPublisher // optional
	Now          func() time.Time

	// ConfirmAttempts bounds how often the confirm transaction is tried
	// after a successful charge; RetryDelay grows linearly between tries.
	ConfirmAttempts int
	RetryDelay      time.Duration
}

// storeTimeout bounds each store or broker call made after the charge.
const storeTimeout = 5 * time.Second

// NewOrderService wires an OrderService.  events may be nil.
func NewOrderService(db *sql.DB, orders OrderStore, reservations ReservationStore,
	attractions AttractionLookup, gateway payment.Charger, events EventPublisher) *OrderService {
	return &OrderService{
		DB:           db,
		Orders:       orders,
		Reservations: reservations,
		Attractions:  attractions,
		Gateway:      gateway,
		Events:       events,
		Now:          time.Now,

		ConfirmAttempts: 3,
		RetryDelay:      200 * time.Millisecond,
	}
}

// PlaceOrderInput is a decoded POST /api/order body.
type PlaceOrderInput struct {
	Prime        string
	AttractionID uint64
	Date         string
	Time         string
	Price        int
	Contact      model.Contact
}

// PaymentOutcome is the payment section of a successful response.
type PaymentOutcome struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// PlaceOrderResult is returned for a confirmed order.
type PlaceOrderResult struct {
	Number  string         `json:"number"`
	Payment PaymentOutcome `json:"payment"`
}

// Validate checks the fields the workflow cannot proceed without.
func (in PlaceOrderInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Prime) == "":
		return apperr.New(apperr.KindValidation, "prime is required")
	case in.AttractionID == 0:
		return apperr.New(apperr.KindValidation, "attraction id is required")
	case strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.Time) == "":
		return apperr.New(apperr.KindValidation, "trip date and time are required")
	case in.Price <= 0:
		return apperr.New(apperr.KindValidation, "price must be positive")
	case strings.TrimSpace(in.Contact.Name) == "" ||
		strings.TrimSpace(in.Contact.Email) == "" ||
		strings.TrimSpace(in.Contact.Phone) == "":
		return apperr.New(apperr.KindValidation, "contact name, email and phone are required")
	}
	return nil
}

// PlaceOrder runs the full order workflow for memberID.  The Pending insert
// commits before the gateway is called so no row locks are held during the
// charge.  On a successful charge the order is confirmed and the member's
// reservation consumed in one transaction, retried a few times; if that
// still fails the trade id is recorded so the order sweeper confirms the
// order instead of expiring it.  On any charge failure the order is rejected
// and the failure returned.
func (s *OrderService) PlaceOrder(ctx context.Context, memberID uint64, in PlaceOrderInput) (PlaceOrderResult, error) {
	if err := in.Validate(); err != nil {
		return PlaceOrderResult{}, err
	}

	o := &model.Order{
		MemberID:     memberID,
		AttractionID: in.AttractionID,
		Date:         strings.TrimSpace(in.Date),
		Time:         strings.TrimSpace(in.Time),
		Price:        in.Price,
		Contact: model.Contact{
			Name:  strings.TrimSpace(in.Contact.Name),
			Email: strings.TrimSpace(in.Contact.Email),
			Phone: strings.TrimSpace(in.Contact.Phone),
		},
	}
	if err := s.createPending(ctx, o); err != nil {
		return PlaceOrderResult{}, err
	}
	logger := log.With().Str("order_number", o.Number).Uint64("member_id", memberID).Logger()

	// A client hanging up does not cancel a charge; the gateway client's own
	// timeout bounds it.
	res, chargeErr := s.Gateway.Charge(context.WithoutCancel(ctx), payment.ChargeRequest{
		Prime:       in.Prime,
		Amount:      o.Price,
		OrderNumber: o.Number,
		Cardholder:  payment.Cardholder{Name: o.Contact.Name, Email: o.Contact.Email, Phone: o.Contact.Phone},
	})
	if chargeErr != nil {
		rejectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
		defer cancel()
		if err := s.Orders.Reject(rejectCtx, o.Number); err != nil {
			logger.Error().Err(err).Msg("order: reject after failed charge")
		}
		return PlaceOrderResult{}, classifyChargeError(chargeErr, logger)
	}

	if err := s.confirmWithRetry(ctx, o); err != nil {
		logger.Error().Err(err).Str("rec_trade_id", res.RecTradeID).Msg("order: confirm after successful charge failed")
		markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
		defer cancel()
		if merr := s.Orders.MarkPaid(markCtx, o.Number, res.RecTradeID); merr != nil {
			logger.Error().Err(merr).Str("rec_trade_id", res.RecTradeID).Msg("order: record paid charge failed, refund or confirm manually")
		}
		return PlaceOrderResult{}, apperr.Wrap(apperr.KindStore, "payment captured but order confirmation failed", err)
	}
	logger.Info().Str("rec_trade_id", res.RecTradeID).Int("price", o.Price).Msg("order: confirmed")

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	s.publishConfirmed(pubCtx, o, res)

	return PlaceOrderResult{
		Number:  o.Number,
		Payment: PaymentOutcome{Status: res.Status, Message: PaymentSucceededMessage},
	}, nil
}

func (s *OrderService) createPending(ctx context.Context, o *model.Order) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindStore, "could not create order", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.Orders.CreatePendingTx(ctx, tx, o); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateOrder):
			return apperr.Wrap(apperr.KindConflict, "an identical order already exists", err)
		case errors.Is(err, repository.ErrMemberHasPendingOrder):
			return apperr.Wrap(apperr.KindConflict, "another order is awaiting payment", err)
		case errors.Is(err, repository.ErrNotFound):
			return apperr.Wrap(apperr.KindAuthInvalid, "member no longer exists", err)
		}
		log.Error().Err(err).Uint64("member_id", o.MemberID).Msg("order: create pending")
		return apperr.Wrap(apperr.KindStore, "could not create order", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindStore, "could not create order", err)
	}
	committed = true
	return nil
}

// confirmWithRetry runs confirm up to ConfirmAttempts times.  Errors that
// retrying cannot fix (order gone or no longer Pending) stop it early.
func (s *OrderService) confirmWithRetry(ctx context.Context, o *model.Order) error {
	attempts := s.ConfirmAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(base, storeTimeout)
		err = s.confirm(attemptCtx, o)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrInvalidTransition) || errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if attempt < attempts {
			log.Warn().Err(err).Str("order_number", o.Number).Int("attempt", attempt).Msg("order: retrying confirm")
			time.Sleep(time.Duration(attempt) * s.RetryDelay)
		}
	}
	return err
}

func (s *OrderService) confirm(ctx context.Context, o *model.Order) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.Orders.ConfirmTx(ctx, tx, o.Number); err != nil {
		return err
	}
	if err := s.Reservations.DeleteTx(ctx, tx, o.MemberID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	o.Status = model.OrderStatusConfirmed
	return nil
}

func (s *OrderService) publishConfirmed(ctx context.Context, o *model.Order, res payment.Result) {
	if s.Events == nil {
		return
	}
	ev := queue.OrderConfirmedEvent{
		OrderNumber:  o.Number,
		MemberID:     o.MemberID,
		AttractionID: o.AttractionID,
		Date:         o.Date,
		Time:         o.Time,
		Price:        o.Price,
		ContactEmail: o.Contact.Email,
		RecTradeID:   res.RecTradeID,
		ConfirmedAt:  s.Now().UTC().Format(time.RFC3339),
	}
	if s.Attractions != nil {
		if a, err := s.Attractions.GetByID(ctx, o.AttractionID); err == nil {
			ev.AttractionName = a.Name
		}
	}
	if err := s.Events.PublishOrderConfirmed(ctx, ev); err != nil {
		log.Warn().Err(err).Str("order_number", o.Number).Msg("order: publish order.confirmed failed")
	}
}

func classifyChargeError(err error, logger zerolog.Logger) error {
	var decline *payment.DeclineError
	switch {
	case errors.As(err, &decline):
		logger.Info().Int("gateway_status", decline.Status).Str("gateway_msg", decline.Message).Msg("order: payment declined")
		msg := decline.Message
		if msg == "" {
			msg = "payment declined"
		}
		return apperr.Wrap(apperr.KindPaymentDeclined, msg, err)
	case errors.Is(err, payment.ErrGatewayUnavailable), errors.Is(err, payment.ErrGatewayMalformed):
		logger.Error().Err(err).Msg("order: payment gateway failure")
		return apperr.Wrap(apperr.KindUpstream, "payment gateway unavailable, please retry", err)
	default:
		logger.Error().Err(err).Msg("order: charge failed")
		return apperr.Wrap(apperr.KindInternal, "payment failed", err)
	}
}

// GetOrder returns the order if memberID owns it.  Orders of other members
// are reported as not found so order numbers cannot be probed.
func (s *OrderService) GetOrder(ctx context.Context, memberID uint64, number string) (model.OrderDetail, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return model.OrderDetail{}, apperr.New(apperr.KindValidation, "order number is required")
	}
	d, err := s.Orders.GetByNumber(ctx, number)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && d.MemberID != memberID) {
		return model.OrderDetail{}, apperr.New(apperr.KindNotFound, "order not found")
	}
	if err != nil {
		log.Error().Err(err).Str("order_number", number).Msg("order: lookup")
		return model.OrderDetail{}, apperr.Wrap(apperr.KindStore, "could not load order", err)
	}
	return d, nil
}
