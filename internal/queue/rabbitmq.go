package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultQueueName is the default queue name
	DefaultQueueName = "reminder_events"
	// DefaultDLQName is the default dead letter queue name
	DefaultDLQName = "reminder_events_dlq"
	// DefaultExchangeName is the default exchange name
	DefaultExchangeName = "reminder_lifecycle"
)

// RabbitMQBus implements EventBus using RabbitMQ
type RabbitMQBus struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	queueName    string
	dlqName      string
	exchangeName string
}

// NewRabbitMQBus creates a new RabbitMQ event bus
func NewRabbitMQBus(amqpURL string) (*RabbitMQBus, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			// Log but don't return the close error
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	bus := &RabbitMQBus{
		conn:         conn,
		channel:      ch,
		queueName:    DefaultQueueName,
		dlqName:      DefaultDLQName,
		exchangeName: DefaultExchangeName,
	}

	// Setup exchange and queues
	if err := bus.setup(); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			// Log but don't return the close error
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return bus, nil
}

// setup configures the exchange and queues
func (b *RabbitMQBus) setup() error {
	err := b.channel.ExchangeDeclare(
		b.exchangeName,
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

	// Declare dead letter queue
	_, err = b.channel.QueueDeclare(
		b.dlqName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{},
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	// Bind DLQ to exchange
	err = b.channel.QueueBind(
		b.dlqName,
		"dlq", // routing key
		b.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	// Declare main queue with DLQ
	queueArgs := amqp.Table{
		"x-dead-letter-exchange":    b.exchangeName,
		"x-dead-letter-routing-key": "dlq",
	}
	_, err = b.channel.QueueDeclare(
		b.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		queueArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = b.channel.QueueBind(
		b.queueName,
		"events", // routing key
		b.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	return nil
}

// Publish sends a lifecycle event to the bus
func (b *RabbitMQBus) Publish(ctx context.Context, event *Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         eventJSON,
		DeliveryMode: amqp.Persistent, // Make message persistent
		MessageId:    event.ID.String(),
		Type:         string(event.Type),
		Timestamp:    event.OccurredAt,
	}

	// Calculate TTL from NotAfter if set
	if event.NotAfter != nil {
		ttl := time.Until(*event.NotAfter)
		if ttl > 0 {
			publishing.Expiration = fmt.Sprintf("%d", int(ttl.Milliseconds()))
		}
	}

	err = b.channel.PublishWithContext(
		ctx,
		b.exchangeName,
		"events", // routing key
		false,    // mandatory
		false,    // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Consume returns a channel of messages from the bus using async delivery
// This is the recommended approach for production as it eliminates polling delays
// and provides better load balancing across multiple worker instances
func (b *RabbitMQBus) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	// Create a dedicated channel for consuming (best practice: separate channel for consumers)
	consumeCh, err := b.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	// Set QoS/prefetch to control how many unacknowledged messages this consumer can hold
	// prefetchCount=1 means each worker gets one message at a time (fair dispatch)
	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		if closeErr := consumeCh.Close(); closeErr != nil {
			// Log error but continue with original error
			_ = closeErr
		}
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(
		b.queueName,
		"",    // consumer tag (empty = auto-generate)
		false, // auto-ack (false = manual ack required)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		if closeErr := consumeCh.Close(); closeErr != nil {
			// Log error but continue with original error
			_ = closeErr
		}
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		defer func() {
			if err := consumeCh.Close(); err != nil {
				// Channel may already be closed
				_ = err
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					// Channel closed (connection lost)
					errChan <- fmt.Errorf("delivery channel closed")
					return
				}

				var event Event
				if err := json.Unmarshal(delivery.Body, &event); err != nil {
					// Invalid message, send to DLQ
					_ = delivery.Nack(false, false)
					errChan <- fmt.Errorf("failed to unmarshal event: %w", err)
					continue
				}

				// Stale events are dropped, not dead-lettered
				if event.IsExpired() {
					_ = delivery.Ack(false)
					continue
				}

				msg := &Message{
					Event:       &event,
					DeliveryTag: delivery.DeliveryTag,
					Channel:     consumeCh,
				}

				select {
				case <-ctx.Done():
					// Context cancelled, requeue the message
					_ = delivery.Nack(false, true)
					return
				case msgChan <- msg:
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

// HealthCheck verifies the bus connection is healthy
func (b *RabbitMQBus) HealthCheck(_ context.Context) error {
	if b.conn == nil || b.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	if b.channel == nil || b.channel.IsClosed() {
		return fmt.Errorf("rabbitmq channel closed")
	}
	return nil
}

// PurgeOlderThan removes dead-lettered messages older than retention.
// Messages newer than the cutoff are requeued and scanning stops, since the
// DLQ is roughly time-ordered.
func (b *RabbitMQBus) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	purged := 0

	for {
		select {
		case <-ctx.Done():
			return purged, ctx.Err()
		default:
		}

		msg, ok, err := b.channel.Get(b.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to get DLQ message: %w", err)
		}
		if !ok {
			return purged, nil
		}

		if msg.Timestamp.Before(cutoff) {
			if err := msg.Ack(false); err != nil {
				return purged, fmt.Errorf("failed to ack DLQ message: %w", err)
			}
			purged++
			continue
		}

		_ = msg.Nack(false, true)
		return purged, nil
	}
}

// Close closes the bus connection
func (b *RabbitMQBus) Close() error {
	var err error
	if b.channel != nil {
		err = b.channel.Close()
	}
	if b.conn != nil {
		if closeErr := b.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
