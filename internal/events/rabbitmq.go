package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const dialTimeout = 10 * time.Second

// RabbitPublisher publishes events to a durable topic exchange, using the
// event type as routing key.
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
}

// NewRabbitPublisher dials the broker and declares the exchange.
func NewRabbitPublisher(amqpURL, exchange string, logger *slog.Logger) (*RabbitPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return nil, err
	}

	p := &RabbitPublisher{conn: conn, exchange: exchange, logger: logger}
	if err := p.openChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// openChannel must be called with mu held or before the publisher is shared.
func (p *RabbitPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	); err != nil {
		ch.Close()
		return err
	}
	p.channel = ch
	return nil
}

// Publish sends one persistent JSON message. A failed publish reopens the
// channel and retries once.
func (p *RabbitPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	event := NewEvent(eventType, payload)
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Type:         eventType,
		Timestamp:    event.OccurredAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, eventType, false, false, msg)
	if err == nil {
		return nil
	}

	p.logger.WarnContext(ctx, "publish failed; reopening channel", "component", "events", "exchange", p.exchange, "type", eventType, "error", err)
	if reopenErr := p.openChannel(); reopenErr != nil {
		return errors.Join(err, reopenErr)
	}
	return p.channel.PublishWithContext(ctx, p.exchange, eventType, false, false, msg)
}

// Close closes the channel and connection.
func (p *RabbitPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
