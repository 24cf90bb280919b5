package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultPushQueueName is the queue device bridges consume from
	DefaultPushQueueName = "reminder_push"
	// DefaultPushExchangeName is the exchange push notifications route through
	DefaultPushExchangeName = "reminder_push_exchange"
)

// AMQPGateway publishes notifications to a RabbitMQ queue consumed by
// device bridge processes (speaker daemons, mobile push relays).
type AMQPGateway struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	queueName    string
	exchangeName string
}

// NewAMQPGateway creates an AMQP push gateway
func NewAMQPGateway(amqpURL string) (*AMQPGateway, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	g := &AMQPGateway{
		conn:         conn,
		channel:      ch,
		queueName:    DefaultPushQueueName,
		exchangeName: DefaultPushExchangeName,
	}

	if err := g.setup(); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to setup push queue: %w", err)
	}

	return g, nil
}

func (g *AMQPGateway) setup() error {
	err := g.channel.ExchangeDeclare(
		g.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = g.channel.QueueDeclare(
		g.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = g.channel.QueueBind(
		g.queueName,
		"push", // routing key
		g.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// Send publishes the notification to the push queue
func (g *AMQPGateway) Send(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return &DeliveryError{Message: fmt.Sprintf("marshal notification: %v", err), Permanent: true}
	}

	err = g.channel.PublishWithContext(
		ctx,
		g.exchangeName,
		"push", // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    n.ReminderID.String(),
			Timestamp:    n.FireTime,
		},
	)
	if err != nil {
		// Broker errors are transient; the dispatcher retries
		return &DeliveryError{Message: err.Error()}
	}

	return nil
}

// HealthCheck verifies the gateway connection is healthy
func (g *AMQPGateway) HealthCheck(_ context.Context) error {
	if g.conn == nil || g.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	if g.channel == nil || g.channel.IsClosed() {
		return fmt.Errorf("rabbitmq channel closed")
	}
	return nil
}

// Close closes the gateway connection
func (g *AMQPGateway) Close() error {
	var err error
	if g.channel != nil {
		err = g.channel.Close()
	}
	if g.conn != nil {
		if closeErr := g.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
