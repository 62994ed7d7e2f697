package queue

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Publisher publishes order events to RabbitMQ.  Each call dials its own
// connection; confirmations are rare enough that a long-lived channel is not
// worth the reconnect bookkeeping.
type Publisher struct {
	URL string
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string) *Publisher { return &Publisher{URL: url} }

// PublishOrderConfirmed sends ev to the order.confirmed queue as a
// persistent message with a fresh message id.  Errors are logged and
// returned; callers treat publishing as best effort.
func (p *Publisher) PublishOrderConfirmed(ctx context.Context, ev OrderConfirmedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("order_number", ev.OrderNumber).Msg("rabbitmq: marshal event failed")
		return err
	}

	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      contextDialer(ctx),
	})
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declareOrderQueue(ch); err != nil {
		log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	if err := ch.PublishWithContext(ctx,
		"",                  // default exchange
		OrderConfirmedQueue, // routing key = queue name
		false,               // mandatory
		false,               // immediate
		newPublishing(body),
	); err != nil {
		log.Warn().Err(err).Str("order_number", ev.OrderNumber).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}

// dialTimeout bounds a dial when ctx carries no deadline.
const dialTimeout = 5 * time.Second

// contextDialer dials the broker under ctx and holds the connection to ctx's
// deadline until the AMQP handshake completes, so a silent broker cannot
// stall the caller past it.
func contextDialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		d := net.Dialer{Timeout: dialTimeout}
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(dialTimeout)
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

func newPublishing(body []byte) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
}

// declareOrderQueue is idempotent; the queue is durable so messages survive
// broker restarts.
func declareOrderQueue(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		OrderConfirmedQueue, // name
		true,                // durable
		false,               // autoDelete
		false,               // exclusive
		false,               // noWait
		nil,                 // args
	)
	return err
}
