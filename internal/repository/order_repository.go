package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/iliyamo/taipei-day-trip/internal/database"
	"github.com/iliyamo/taipei-day-trip/internal/model"
)

// maxNumberAttempts bounds order-number regeneration after a unique-key
// collision on orderNum.
const maxNumberAttempts = 5

// queryExecer is satisfied by both *sql.DB and *sql.Tx.
type queryExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OrderRepo provides access to the `ordersystem` ledger.  Rows are never
// deleted; every order ends in one of the terminal statuses confirm,
// rejected or expired.
type OrderRepo struct {
	db *sql.DB

	// NewNumber generates candidate order numbers.  Tests replace it.
	NewNumber func(now time.Time) (string, error)
	// Now is the clock used for order numbers and created_at.
	Now func() time.Time
}

// NewOrderRepo returns an OrderRepo bound to db.
func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db, NewNumber: GenerateOrderNumber, Now: time.Now}
}

// GenerateOrderNumber returns the local timestamp at second resolution
// followed by a random 4 digit suffix, e.g. 202410191530070042.
func GenerateOrderNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", now.Local().Format("20060102150405"), n.Int64()), nil
}

// CreatePendingTx inserts o with status Pending inside tx and sets o.Number,
// o.Status and o.CreatedAt.  It first locks the member's row so concurrent
// orders from one member are serialized, then enforces two rules:
//
//   - a member has at most one Pending order (ErrMemberHasPendingOrder);
//   - no two live orders (Pending or confirm) share contact name, date, time
//     and attraction, across all members (ErrDuplicateOrder).
//
// The caller commits or rolls back tx.
func (r *OrderRepo) CreatePendingTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	var lockedID uint64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM membership WHERE id = ? FOR UPDATE`, o.MemberID,
	).Scan(&lockedID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT orderNum FROM ordersystem WHERE memberId = ? AND status = ? LIMIT 1 FOR UPDATE`,
		o.MemberID, model.OrderStatusPending,
	).Scan(&existing)
	switch {
	case err == nil:
		return ErrMemberHasPendingOrder
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	err = tx.QueryRowContext(ctx, `
		SELECT orderNum FROM ordersystem
		WHERE name = ? AND date = ? AND time = ? AND attractionId = ? AND status IN (?, ?)
		LIMIT 1 FOR UPDATE`,
		o.Contact.Name, o.Date, o.Time, o.AttractionID,
		model.OrderStatusPending, model.OrderStatusConfirmed,
	).Scan(&existing)
	switch {
	case err == nil:
		return ErrDuplicateOrder
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	now := r.Now()
	for attempt := 1; ; attempt++ {
		number, err := r.NewNumber(now)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ordersystem
				(orderNum, memberId, attractionId, date, time, price, email, name, phone, status, createdAt)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			number, o.MemberID, o.AttractionID, o.Date, o.Time, o.Price,
			o.Contact.Email, o.Contact.Name, o.Contact.Phone, model.OrderStatusPending, now,
		)
		if err == nil {
			o.Number = number
			o.Status = model.OrderStatusPending
			o.CreatedAt = now
			return nil
		}
		if !database.IsDuplicateKey(err) || attempt >= maxNumberAttempts {
			return err
		}
	}
}

// ConfirmTx moves a Pending order to confirm inside tx.
func (r *OrderRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, number string) error {
	return transition(ctx, tx, number, model.OrderStatusConfirmed)
}

// Reject moves a Pending order to rejected.
func (r *OrderRepo) Reject(ctx context.Context, number string) error {
	return transition(ctx, r.db, number, model.OrderStatusRejected)
}

// transition updates the order's status from Pending to `to`.  When no row
// changes it distinguishes a missing order (ErrNotFound) from one in the
// wrong status (ErrInvalidTransition).
func transition(ctx context.Context, q queryExecer, number, to string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE ordersystem SET status = ? WHERE orderNum = ? AND status = ?`,
		to, number, model.OrderStatusPending,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var status string
	err = q.QueryRowContext(ctx,
		`SELECT status FROM ordersystem WHERE orderNum = ?`, number,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrInvalidTransition
}

// MarkPaid records the gateway trade id on a Pending order whose charge
// succeeded but whose confirmation could not be written.  Such a row is
// skipped by ExpireStalePending and confirmed later by ConfirmPaidPending.
func (r *OrderRepo) MarkPaid(ctx context.Context, number, recTradeID string) error {
	if recTradeID == "" {
		recTradeID = number
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE ordersystem SET recTradeId = ? WHERE orderNum = ? AND status = ?`,
		recTradeID, number, model.OrderStatusPending,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// ConfirmPaidPending confirms every Pending order carrying a trade id and
// consumes the owning member's reservation, one transaction for the batch.
// It returns how many orders were confirmed.
func (r *OrderRepo) ConfirmPaidPending(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT orderNum, memberId FROM ordersystem
		WHERE status = ? AND recTradeId IS NOT NULL FOR UPDATE`,
		model.OrderStatusPending,
	)
	if err != nil {
		return 0, err
	}
	type paid struct {
		number   string
		memberID uint64
	}
	var batch []paid
	for rows.Next() {
		var p paid
		if err := rows.Scan(&p.number, &p.memberID); err != nil {
			rows.Close()
			return 0, err
		}
		batch = append(batch, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()
	if len(batch) == 0 {
		return 0, nil
	}

	for _, p := range batch {
		if err := transition(ctx, tx, p.number, model.OrderStatusConfirmed); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM booking WHERE memberID = ?`, p.memberID); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return int64(len(batch)), nil
}

// ExpireStalePending marks every Pending order created before cutoff as
// expired and returns how many rows changed.  These are orders whose charge
// outcome was never recorded, e.g. because the process stopped mid-payment.
// Orders with a recorded trade id were paid and are never expired.
func (r *OrderRepo) ExpireStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ordersystem SET status = ? WHERE status = ? AND createdAt < ? AND recTradeId IS NULL`,
		model.OrderStatusExpired, model.OrderStatusPending, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetByNumber returns the order joined with its attraction's name, address
// and first image.  The attraction fields are empty when the attraction row
// is gone.
func (r *OrderRepo) GetByNumber(ctx context.Context, number string) (model.OrderDetail, error) {
	var d model.OrderDetail
	err := r.db.QueryRowContext(ctx, `
		SELECT o.orderNum, o.memberId, o.price, o.attractionId,
			COALESCE(a.name, ''), COALESCE(a.address, ''), `+firstImageSQL+`,
			o.date, o.time, o.name, o.email, o.phone, o.status
		FROM ordersystem o
		LEFT JOIN attractions a ON a.id = o.attractionId
		WHERE o.orderNum = ?`,
		number,
	).Scan(&d.Number, &d.MemberID, &d.Price, &d.Trip.Attraction.ID,
		&d.Trip.Attraction.Name, &d.Trip.Attraction.Address, &d.Trip.Attraction.Image,
		&d.Trip.Date, &d.Trip.Time, &d.Contact.Name, &d.Contact.Email, &d.Contact.Phone, &d.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	return d, err
}
