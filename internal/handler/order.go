package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/service"
)

// Orders is the order workflow (service.OrderService).
type Orders interface {
	PlaceOrder(ctx context.Context, memberID uint64, in service.PlaceOrderInput) (service.PlaceOrderResult, error)
	GetOrder(ctx context.Context, memberID uint64, number string) (model.OrderDetail, error)
}

// OrderHandler serves /api/order and /api/order/:orderNumber.
type OrderHandler struct {
	Orders Orders
}

func NewOrderHandler(orders Orders) *OrderHandler {
	return &OrderHandler{Orders: orders}
}

// firstOf decodes either a JSON value or an array of them, keeping the first
// element.  The site's checkout page wraps price, attraction id, date and
// time in one-element arrays.
type firstOf[T any] struct {
	V T
}

func (f *firstOf[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		if len(items) == 0 {
			return errors.New("empty array")
		}
		f.V = items[0]
		return nil
	}
	return json.Unmarshal(b, &f.V)
}

type orderReq struct {
	Prime string `json:"prime"`
	Order struct {
		Price firstOf[int] `json:"price"`
		Trip  struct {
			Attraction struct {
				ID firstOf[uint64] `json:"id"`
			} `json:"attraction"`
			Date firstOf[string] `json:"date"`
			Time firstOf[string] `json:"time"`
		} `json:"trip"`
		Contact model.Contact `json:"contact"`
	} `json:"order"`
}

func (r orderReq) input() service.PlaceOrderInput {
	return service.PlaceOrderInput{
		Prime:        r.Prime,
		AttractionID: r.Order.Trip.Attraction.ID.V,
		Date:         r.Order.Trip.Date.V,
		Time:         r.Order.Trip.Time.V,
		Price:        r.Order.Price.V,
		Contact:      r.Order.Contact,
	}
}

// Create handles POST /api/order.  It charges the card synchronously and
// answers {"data": {"number", "payment": {"status": 0, "message"}}} once the
// order is confirmed.  Declines are 400 with the gateway's message, gateway
// faults 502, duplicates 409.
func (h *OrderHandler) Create(c echo.Context) error {
	memberID, err := currentMemberID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req orderReq
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return writeError(c, apperr.Wrap(apperr.KindValidation, "invalid order body", err))
	}

	res, err := h.Orders.PlaceOrder(c.Request().Context(), memberID, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": res})
}

// Get handles GET /api/order/:orderNumber for the order's owner.
func (h *OrderHandler) Get(c echo.Context) error {
	memberID, err := currentMemberID(c)
	if err != nil {
		return writeError(c, err)
	}
	d, err := h.Orders.GetOrder(c.Request().Context(), memberID, c.Param("orderNumber"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": d})
}
