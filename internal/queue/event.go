// Package queue carries order events over RabbitMQ: the payload types, a
// publisher used by the order workflow and a consumer that writes an audit
// log.
package queue

// OrderConfirmedQueue is the durable queue order.confirmed events go to.
const OrderConfirmedQueue = "order.confirmed"

// OrderConfirmedEvent is published after an order is paid and confirmed.
// It carries enough for downstream consumers to log or notify without
// querying the database.
type OrderConfirmedEvent struct {
	OrderNumber    string `json:"order_number"`
	MemberID       uint64 `json:"member_id"`
	AttractionID   uint64 `json:"attraction_id"`
	AttractionName string `json:"attraction_name"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Price          int    `json:"price"`
	ContactEmail   string `json:"contact_email"`
	RecTradeID     string `json:"rec_trade_id"`
	ConfirmedAt    string `json:"confirmed_at"`
}
