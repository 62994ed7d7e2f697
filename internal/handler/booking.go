package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/repository"
)

// Reservations is the single-slot booking store (repository.ReservationRepo).
type Reservations interface {
	GetDetail(ctx context.Context, memberID uint64) (model.ReservationDetail, error)
	Put(ctx context.Context, res model.Reservation) error
	Delete(ctx context.Context, memberID uint64) error
}

// BookingHandler serves /api/booking.  Every route requires a member.
type BookingHandler struct {
	Reservations Reservations
}

func NewBookingHandler(reservations Reservations) *BookingHandler {
	return &BookingHandler{Reservations: reservations}
}

type bookingReq struct {
	AttractionID uint64 `json:"attractionId"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Price        int    `json:"price"`
}

// Get returns {"data": {attraction, date, time, price}} or {"data": null}.
func (h *BookingHandler) Get(c echo.Context) error {
	memberID, err := currentMemberID(c)
	if err != nil {
		return writeError(c, err)
	}
	d, err := h.Reservations.GetDetail(c.Request().Context(), memberID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"data": nil})
	}
	if err != nil {
		log.Error().Err(err).Uint64("member_id", memberID).Msg("booking: get")
		return writeError(c, apperr.Wrap(apperr.KindStore, "could not load booking", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": d})
}

// Create replaces the member's reservation with the posted trip.  Only the
// JSON shape is checked; the values are stored as sent.
func (h *BookingHandler) Create(c echo.Context) error {
	memberID, err := currentMemberID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperr.Wrap(apperr.KindValidation, "invalid body", err))
	}
	err = h.Reservations.Put(c.Request().Context(), model.Reservation{
		MemberID:     memberID,
		AttractionID: req.AttractionID,
		Date:         req.Date,
		Time:         req.Time,
		Price:        req.Price,
	})
	if err != nil {
		log.Error().Err(err).Uint64("member_id", memberID).Msg("booking: put")
		return writeError(c, apperr.Wrap(apperr.KindStore, "could not save booking", err))
	}
	return ok(c)
}

// Delete clears the member's reservation.  It succeeds when there is none.
func (h *BookingHandler) Delete(c echo.Context) error {
	memberID, err := currentMemberID(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Reservations.Delete(c.Request().Context(), memberID); err != nil {
		log.Error().Err(err).Uint64("member_id", memberID).Msg("booking: delete")
		return writeError(c, apperr.Wrap(apperr.KindStore, "could not delete booking", err))
	}
	return ok(c)
}
