package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/reseau-affaires/apiserver/config"
)

const defaultExchange = "affaires.events"

// RabbitMQClient routes domain events through a topic exchange. Every
// channel is a queue bound to the exchange under its own name, so events
// published before a consumer starts wait in the queue.
type RabbitMQClient struct {
	conn *amqp.Connection
	cfg  config.RabbitMQConfig

	// mu guards publisher, which amqp does not allow to be shared.
	mu        sync.Mutex
	publisher *amqp.Channel
	bound     map[string]bool
}

// NewRabbitMQClient dials the broker and declares the events exchange.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if strings.TrimSpace(cfg.Exchange) == "" {
		cfg.Exchange = defaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	publisher, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}

	err = publisher.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, cfg.QueueDurable, false, false, false, nil)
	if err != nil {
		_ = publisher.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &RabbitMQClient{
		conn:      conn,
		cfg:       cfg,
		publisher: publisher,
		bound:     map[string]bool{},
	}, nil
}

// Publish routes an event to the queue of the named channel.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}
	contentType := attrs[AttrContentType]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	deliveryMode := amqp.Transient
	if r.cfg.QueueDurable {
		deliveryMode = amqp.Persistent
	}
	messageID := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.bound[channel] {
		if err := r.bindQueue(r.publisher, channel); err != nil {
			return "", err
		}
		r.bound[channel] = true
	}

	err := r.publisher.PublishWithContext(ctx, r.cfg.Exchange, channel, false, false, amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: deliveryMode,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Type:         channel,
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", channel, err)
	}
	return messageID, nil
}

// Subscribe consumes the queue of the named channel on a dedicated amqp
// channel until ctx is done. A message whose handler fails is requeued
// once, then dropped.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}
	defer ch.Close()

	if r.cfg.PrefetchCount > 0 {
		if err := ch.Qos(r.cfg.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}
	}
	if err := r.bindQueue(ch, channel); err != nil {
		return err
	}

	consumerTag := "affaires-" + uuid.NewString()
	deliveries, err := ch.Consume(channel, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", channel, err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(consumerTag, false)
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handler(ctx, deliveryMessage(delivery)); err != nil {
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the publish channel and the connection.
func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publisher != nil {
		_ = r.publisher.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) bindQueue(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(name, r.cfg.QueueDurable, r.cfg.QueueAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	if err := ch.QueueBind(name, name, r.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", name, err)
	}
	return nil
}

func deliveryMessage(delivery amqp.Delivery) Message {
	attrs := headersToAttributes(delivery.Headers)
	if delivery.ContentType != "" {
		attrs[AttrContentType] = delivery.ContentType
	}
	if _, ok := attrs[AttrEvent]; !ok && delivery.Type != "" {
		attrs[AttrEvent] = delivery.Type
	}
	return Message{
		ID:         delivery.MessageId,
		Data:       delivery.Body,
		Attributes: attrs,
	}
}

func headersToAttributes(headers amqp.Table) map[string]string {
	attrs := make(map[string]string, len(headers)+2)
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
