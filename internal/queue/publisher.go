package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
)

// Publisher sends seat events to a durable RabbitMQ queue.  The connection
// is opened lazily and reopened after the broker drops it, so the HTTP
// server starts and keeps serving while the broker is unavailable.
type Publisher struct {
	url   string
	queue string

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	nextDial time.Time
}

// A failed dial blocks further dials for redialPause so a down broker does
// not add a connect timeout to every reservation.
const (
	dialTimeout = 3 * time.Second
	redialPause = 5 * time.Second
)

var errBrokerBackoff = errors.New("rabbitmq unavailable, redial pending")

// NewPublisher returns a publisher for queue on the broker at url.
func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

// channel returns an open channel, dialing and declaring the queue when the
// previous connection is gone.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()
	if time.Now().Before(p.nextDial) {
		return nil, errBrokerBackoff
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		p.nextDial = time.Now().Add(redialPause)
		return nil, errors.Wrap(err, "rabbitmq dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "rabbitmq channel")
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "rabbitmq queue declare")
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// PublishSeatEvent marshals ev and publishes it as a persistent message on
// the default exchange, routed by queue name.
func (p *Publisher) PublishSeatEvent(ctx context.Context, ev SeatEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal seat event")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		// Drop the channel so the next publish redials.
		p.closeLocked()
		return errors.Wrap(err, "rabbitmq publish")
	}
	logger.WithContext(ctx).Debug("seat event published", "type", ev.Type, "event_id", ev.EventID)
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}
