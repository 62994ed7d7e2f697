package model

import "time"

// Order statuses as stored in ordersystem.status.  Pending and confirm keep
// the spelling the site's frontend already understands.
const (
	OrderStatusPending   = "Pending"
	OrderStatusConfirmed = "confirm"
	OrderStatusRejected  = "rejected"
	OrderStatusExpired   = "expired"
)

// Contact is the traveller contact attached to an order.  It is also the
// cardholder sent to the payment gateway.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Order mirrors a row in the `ordersystem` ledger.
//
// Fields:
//
//	Number       – unique order number (timestamp + random suffix).
//	MemberID     – member who placed the order.
//	AttractionID – attraction booked.
//	Date, Time   – trip date and slot.
//	Price        – amount charged.
//	Contact      – traveller contact.
//	Status       – Pending, confirm, rejected or expired.
//	CreatedAt    – insertion time.
type Order struct {
	Number       string
	MemberID     uint64
	AttractionID uint64
	Date         string
	Time         string
	Price        int
	Contact      Contact
	Status       string
	CreatedAt    time.Time
}

// OrderTrip is the trip section of an order detail.
type OrderTrip struct {
	Attraction AttractionSummary `json:"attraction"`
	Date       string            `json:"date"`
	Time       string            `json:"time"`
}

// OrderDetail is the composed view returned by GET /api/order/:orderNumber.
type OrderDetail struct {
	Number   string    `json:"number"`
	MemberID uint64    `json:"-"`
	Price    int       `json:"price"`
	Trip     OrderTrip `json:"trip"`
	Contact  Contact   `json:"contact"`
	Status   string    `json:"status"`
}
