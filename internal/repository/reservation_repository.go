package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/taipei-day-trip/internal/model"
)

// firstImageSQL selects the first image URL of the attraction aliased `a`,
// or an empty string when it has none.
const firstImageSQL = `COALESCE((SELECT i.imageUrl FROM attractionImages i
	WHERE i.attractionRownumber = a.rownumber LIMIT 1), '')`

// ReservationRepo provides access to the `booking` table.  Each member owns
// at most one row; memberID carries a UNIQUE key so this holds even
// when two requests from the same member race.
type ReservationRepo struct{ db *sql.DB }

// NewReservationRepo returns a ReservationRepo bound to db.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// GetDetail returns the member's reservation joined with the attraction's id,
// name, address and first image.  A reservation whose attraction no longer
// exists is reported as ErrNotFound.
func (r *ReservationRepo) GetDetail(ctx context.Context, memberID uint64) (model.ReservationDetail, error) {
	var d model.ReservationDetail
	err := r.db.QueryRowContext(ctx, `
		SELECT a.id, a.name, a.address, `+firstImageSQL+`, b.date, b.time, b.price
		FROM booking b
		JOIN attractions a ON a.id = b.attractionID
		WHERE b.memberID = ?`,
		memberID,
	).Scan(&d.Attraction.ID, &d.Attraction.Name, &d.Attraction.Address, &d.Attraction.Image,
		&d.Date, &d.Time, &d.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	return d, err
}

// Put stores res as the member's only reservation, replacing any previous
// one in a single statement.
func (r *ReservationRepo) Put(ctx context.Context, res model.Reservation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO booking (memberID, attractionID, date, time, price)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			attractionID = VALUES(attractionID),
			date = VALUES(date),
			time = VALUES(time),
			price = VALUES(price)`,
		res.MemberID, res.AttractionID, res.Date, res.Time, res.Price,
	)
	return err
}

// Delete removes the member's reservation.  Deleting when none exists is not
// an error.
func (r *ReservationRepo) Delete(ctx context.Context, memberID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM booking WHERE memberID = ?`, memberID)
	return err
}

// DeleteTx removes the member's reservation inside tx.  Order confirmation
// uses it so the reservation is consumed atomically with the status change.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, memberID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM booking WHERE memberID = ?`, memberID)
	return err
}
