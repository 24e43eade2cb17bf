package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageReader is the part of *kafka.Reader the consumer drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads ticket events for one consumer group.
type Consumer struct {
	reader messageReader
	logger *logrus.Logger
}

func NewConsumer(brokers []string, groupID, topic string, logger *logrus.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		logger: logger,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume decodes each message into a TicketEvent and passes it to handler.
// An offset is committed only after its event was handled, so a handler error
// stops consumption and the event is read again on restart. Undecodable
// messages are logged and committed.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, TicketEvent) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		var event TicketEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Warn("Skipping undecodable ticket event")
		} else if err := handler(ctx, event); err != nil {
			return fmt.Errorf("handle %s for %s: %w", event.Type, event.Code, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}
