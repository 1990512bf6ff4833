package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher publishes service events to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// NewPublisher builds a RabbitMQ publisher, or a noop publisher when AMQP
// is unreachable or disabled. The service runs fine without the broker.
func NewPublisher(amqpURL, exchange string, logger *zap.Logger) Publisher {
	if amqpURL == "" {
		logger.Info("rabbitmq disabled, using noop", zap.String("reason", "empty amqp url"))
		return noopPublisher{reason: "empty amqp url", log: logger}
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		logger.Warn("rabbitmq disabled, using noop", zap.Error(err))
		return noopPublisher{reason: err.Error(), log: logger}
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Warn("rabbitmq disabled, using noop", zap.Error(err))
		_ = conn.Close()
		return noopPublisher{reason: err.Error(), log: logger}
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		logger.Warn("rabbitmq disabled, using noop", zap.Error(err))
		_ = ch.Close()
		_ = conn.Close()
		return noopPublisher{reason: err.Error(), log: logger}
	}

	logger.Info("rabbitmq connected", zap.String("exchange", exchange))
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange, log: logger}
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *zap.Logger
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		p.log.Warn("rabbitmq publish failed", zap.String("routing_key", routingKey), zap.Error(err))
	}
	return err
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct {
	reason string
	log    *zap.Logger
}

func (n noopPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	n.log.Debug("rabbitmq noop publish", zap.String("routing_key", routingKey))
	return nil
}

func (noopPublisher) Close() error {
	return nil
}

// PublisherMode reports the publisher mode for startup logging.
func PublisherMode(p Publisher) string {
	switch p.(type) {
	case *amqpPublisher:
		return "amqp"
	case noopPublisher:
		return "noop"
	default:
		return "unknown"
	}
}

func PublisherNoopReason(p Publisher) string {
	if publisher, ok := p.(noopPublisher); ok {
		return publisher.reason
	}
	return ""
}
