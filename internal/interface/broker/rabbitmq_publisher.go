package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"killua-service-provider/internal/domain/entity"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SinkName is how the publisher appears in the delivery log
const SinkName = "rabbitmq"

// ServiceEvent is the message body published for every notification
type ServiceEvent struct {
	NotificationID string           `json:"notificationId"`
	EventType      entity.EventType `json:"eventType"`
	Style          entity.Style     `json:"style"`
	ServiceID      string           `json:"serviceId,omitempty"`
	PackageID      int              `json:"packageId"`
	Message        string           `json:"message"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// NewServiceEvent builds the published body for n
func NewServiceEvent(n *entity.Notification) ServiceEvent {
	return ServiceEvent{
		NotificationID: n.ID,
		EventType:      n.EventType,
		Style:          n.EventType.Style(),
		ServiceID:      n.ServiceID,
		PackageID:      n.PackageID,
		Message:        n.Message,
		CreatedAt:      n.CreatedAt,
	}
}

// RoutingKey is the topic key for an event type, e.g. "service.booked"
func RoutingKey(eventType entity.EventType) string {
	return "service." + string(eventType)
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type connection interface {
	IsClosed() bool
	Close() error
}

// dialFunc opens a connection and a channel with the exchange declared
type dialFunc func() (connection, channel, error)

var errPublisherClosed = errors.New("publisher closed")

// Publisher publishes notifications to a topic exchange. A dropped
// connection is re-dialled on the next delivery.
type Publisher struct {
	mu       sync.Mutex
	dial     dialFunc
	conn     connection
	ch       channel
	closed   bool
	exchange string
	events   entity.EventSet
}

// NewPublisher dials url and declares a durable topic exchange
func NewPublisher(url, exchange string, events entity.EventSet) (*Publisher, error) {
	p := &Publisher{
		dial:     amqpDialer(url, exchange),
		exchange: exchange,
		events:   events,
	}
	if _, err := p.openChannel(); err != nil {
		return nil, err
	}
	return p, nil
}

func amqpDialer(url, exchange string) dialFunc {
	return func() (connection, channel, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open channel: %w", err)
		}
		if err := ch.ExchangeDeclare(
			exchange,
			"topic",
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("declare exchange: %w", err)
		}
		return conn, ch, nil
	}
}

func newPublisherWithDialer(dial dialFunc, exchange string, events entity.EventSet) *Publisher {
	return &Publisher{dial: dial, exchange: exchange, events: events}
}

// openChannel returns an open channel, re-dialling when the previous one is gone
func (p *Publisher) openChannel() (channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errPublisherClosed
	}
	if p.ch != nil && !p.ch.IsClosed() && (p.conn == nil || !p.conn.IsClosed()) {
		return p.ch, nil
	}

	p.release()
	conn, ch, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// drop forgets ch so the next delivery reconnects
func (p *Publisher) drop(ch channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		p.release()
	}
}

// release closes the current channel and connection; callers hold mu
func (p *Publisher) release() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Name implements usecase.NotificationSink
func (p *Publisher) Name() string {
	return SinkName
}

// Accepts implements usecase.NotificationSink
func (p *Publisher) Accepts(eventType entity.EventType) bool {
	return p.events.Matches(eventType)
}

// Deliver publishes n as a persistent JSON message. A publish that fails on a
// closed connection is retried once on a fresh one.
func (p *Publisher) Deliver(ctx context.Context, n *entity.Notification) error {
	body, err := json.Marshal(NewServiceEvent(n))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Timestamp:    time.Now(),
		Type:         string(n.EventType),
	}

	for attempt := 0; ; attempt++ {
		ch, err := p.openChannel()
		if err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}

		err = ch.PublishWithContext(
			ctx,
			p.exchange,
			RoutingKey(n.EventType),
			false, // mandatory
			false, // immediate
			msg,
		)
		if err == nil {
			return nil
		}
		if errors.Is(err, amqp.ErrClosed) || ch.IsClosed() {
			p.drop(ch)
			if attempt == 0 {
				continue
			}
		}
		return fmt.Errorf("failed to publish event: %w", err)
	}
}

// Close closes the channel and the connection. Later deliveries fail.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true

	var err error
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}
