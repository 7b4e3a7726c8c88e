package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/frontdesk/internal/model"
)

// defaultDialTimeout caps connection setup when the caller's context has
// no deadline.
const defaultDialTimeout = 5 * time.Second

// errReconnecting is returned while another publish is re-dialling.
var errReconnecting = errors.New("rabbitmq reconnect in progress")

// AMQPPublisher publishes to a durable RabbitMQ queue through the default
// exchange.  The connection is opened lazily and re-dialled after the
// broker drops it.  Dialling happens outside the lock and is bounded by
// the publish context, so a dead broker costs a publish at most its
// deadline and never stalls concurrent publishers.
type AMQPPublisher struct {
	url   string
	queue string
	log   *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	dialing bool
}

func NewAMQPPublisher(url, queue string, log *slog.Logger) *AMQPPublisher {
	if queue == "" {
		queue = ConfirmedTopic
	}
	if log == nil {
		log = slog.Default()
	}
	return &AMQPPublisher{url: url, queue: queue, log: log}
}

// PublishConfirmed sends a persistent JSON message.  Errors are returned
// so the caller can log and move on.
func (p *AMQPPublisher) PublishConfirmed(ctx context.Context, res *model.Reservation) error {
	body, err := json.Marshal(NewReservationConfirmed(res))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.ensure(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.liveLocked() {
		return errors.New("rabbitmq channel closed")
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		MessageId:    res.ID,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// ensure makes sure a live channel exists, dialling without holding p.mu.
// Only one publish dials at a time; the others give up immediately.
func (p *AMQPPublisher) ensure(ctx context.Context) error {
	p.mu.Lock()
	if p.liveLocked() {
		p.mu.Unlock()
		return nil
	}
	if p.dialing {
		p.mu.Unlock()
		return errReconnecting
	}
	p.dialing = true
	p.reset()
	p.mu.Unlock()

	conn, ch, err := p.dial(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialing = false
	if err != nil {
		return err
	}
	p.conn, p.ch = conn, ch
	p.log.Debug("rabbitmq publisher connected", slog.String("queue", p.queue))
	return nil
}

func (p *AMQPPublisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	timeout := defaultDialTimeout
	if dl, ok := ctx.Deadline(); ok {
		left := time.Until(dl)
		if left <= 0 {
			return nil, nil, fmt.Errorf("rabbitmq dial: %w", context.DeadlineExceeded)
		}
		if left < timeout {
			timeout = left
		}
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := declareQueue(ch, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// liveLocked reports whether the cached channel is usable.  Callers hold p.mu.
func (p *AMQPPublisher) liveLocked() bool {
	return p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed()
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// declareQueue ensures the durable queue exists (idempotent).
func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return q, fmt.Errorf("queue declare: %w", err)
	}
	return q, nil
}

// AMQPConsumer appends one audit line per reservation.confirmed message.
type AMQPConsumer struct {
	url   string
	queue string
	sink  *AuditLog
	log   *slog.Logger
}

func NewAMQPConsumer(url, queue string, sink *AuditLog, log *slog.Logger) *AMQPConsumer {
	if queue == "" {
		queue = ConfirmedTopic
	}
	if log == nil {
		log = slog.Default()
	}
	return &AMQPConsumer{url: url, queue: queue, sink: sink, log: log}
}

// Run consumes until ctx is cancelled, re-dialling with capped exponential
// backoff whenever the broker goes away.
func (c *AMQPConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("audit consumer dial failed", slog.Any("error", err), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("audit consumer loop ended; reconnecting", slog.Any("error", err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *AMQPConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("audit consumer set QoS failed", slog.Any("error", err))
	}
	if _, err := declareQueue(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.sink.Record(d.Body); err != nil {
			c.log.Warn("audit consumer handle message failed", slog.Any("error", err))
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
