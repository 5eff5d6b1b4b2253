// Package events publishes reservation lifecycle events to RabbitMQ. Publish
// failures are reported to the caller, which logs them; a booking never fails
// because the broker is down.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	TypeConfirmed  = "reservation.confirmed"
	TypeRequested  = "reservation.requested"
	TypeCancelled  = "reservation.cancelled"
	TypeReassigned = "reservation.reassigned"
	TypeSeated     = "reservation.seated"
	TypeCompleted  = "reservation.completed"
)

// Event is the message body sent for every committed reservation change.
type Event struct {
	Type          string    `json:"type"`
	ReservationID int64     `json:"reservation_id"`
	CustomerID    int64     `json:"customer_id,omitempty"`
	Datetime      string    `json:"reservation_datetime,omitempty"`
	TableIDs      []int64   `json:"table_ids,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher sends events after the change they describe has committed.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// DefaultDialTimeout bounds connecting to the broker when the caller's
// context has no earlier deadline.
const DefaultDialTimeout = 2 * time.Second

// ErrDialInProgress is returned while another call is connecting. Callers
// drop the event instead of queueing behind the dial.
var ErrDialInProgress = errors.New("rabbitmq: connection attempt in progress")

// AMQPPublisher publishes persistent JSON messages to a durable queue on the
// default exchange. The connection is opened lazily and re-opened after a
// failure. The mutex only guards the connection fields; dialing and
// publishing happen outside it.
type AMQPPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	dialing bool
}

func NewAMQPPublisher(url, queue string) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queue, dialTimeout: DefaultDialTimeout}
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.OccurredAt,
			Type:         e.Type,
			Body:         body,
		})
	if err != nil {
		p.drop(ch)
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}
	return nil
}

// channel returns the open channel, connecting first if there is none. Only
// one caller dials at a time; the others fail fast with ErrDialInProgress.
func (p *AMQPPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	if p.ch != nil && !p.ch.IsClosed() {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	if p.dialing {
		p.mu.Unlock()
		return nil, ErrDialInProgress
	}
	p.dialing = true
	p.mu.Unlock()

	conn, ch, err := p.dial(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialing = false
	if err != nil {
		return nil, err
	}
	p.reset()
	p.conn, p.ch = conn, ch
	log.Printf("rabbitmq: publishing reservation events to queue %q", p.queue)
	return ch, nil
}

func (p *AMQPPublisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	timeout := p.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, nil, fmt.Errorf("rabbitmq: dial failed: %w", context.DeadlineExceeded)
	}

	// DefaultDial also bounds the AMQP handshake, not only the TCP connect.
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: queue declare failed: %w", err)
	}
	return conn, ch, nil
}

// drop forgets ch after a failed publish so the next call reconnects.
func (p *AMQPPublisher) drop(ch *amqp.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		p.reset()
	}
}

// reset must be called with p.mu held.
func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
