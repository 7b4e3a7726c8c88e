package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/iliyamo/frontdesk/internal/model"
)

// KafkaPublisher writes events keyed by restaurant so one restaurant's
// confirmations stay ordered within a partition.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = ConfirmedTopic
	}
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}}
}

func (p *KafkaPublisher) PublishConfirmed(ctx context.Context, res *model.Reservation) error {
	msg, err := confirmedMessage(res)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

func confirmedMessage(res *model.Reservation) (kafka.Message, error) {
	body, err := json.Marshal(NewReservationConfirmed(res))
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(res.RestaurantID),
		Value: body,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ConfirmedTopic)},
		},
	}, nil
}

// KafkaConsumer is the Kafka counterpart of AMQPConsumer.
type KafkaConsumer struct {
	reader *kafka.Reader
	sink   *AuditLog
	log    *slog.Logger
}

func NewKafkaConsumer(brokers []string, groupID, topic string, sink *AuditLog, log *slog.Logger) *KafkaConsumer {
	if topic == "" {
		topic = ConfirmedTopic
	}
	if log == nil {
		log = slog.Default()
	}
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
		sink: sink,
		log:  log,
	}
}

// Run reads until ctx is cancelled.  Offsets are committed by the reader's
// consumer group after each ReadMessage.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("kafka read error", slog.Any("error", err))
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}
		if err := c.sink.Record(m.Value); err != nil {
			c.log.Warn("kafka audit handler error",
				slog.String("topic", m.Topic),
				slog.Int("partition", m.Partition),
				slog.Int64("offset", m.Offset),
				slog.Any("error", err))
		}
	}
}
