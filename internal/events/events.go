package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iliyamo/frontdesk/internal/config"
)

// NewPublisher returns the publisher selected by cfg.Driver, or nil for
// "none".
func NewPublisher(cfg config.EventsConfig, log *slog.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "", config.DriverNone:
		return nil, nil
	case config.DriverAMQP:
		return NewAMQPPublisher(cfg.AMQPURL, cfg.Queue, log), nil
	case config.DriverKafka:
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.Queue), nil
	}
	return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
}

// Consumer runs until its context is cancelled.
type Consumer interface {
	Run(ctx context.Context) error
}

// NewConsumer returns the audit consumer matching cfg.Driver, or nil when
// consuming is disabled.
func NewConsumer(cfg config.EventsConfig, sink *AuditLog, log *slog.Logger) Consumer {
	if !cfg.Consume {
		return nil
	}
	switch cfg.Driver {
	case config.DriverAMQP:
		return NewAMQPConsumer(cfg.AMQPURL, cfg.Queue, sink, log)
	case config.DriverKafka:
		return NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.Queue, sink, log)
	}
	return nil
}
