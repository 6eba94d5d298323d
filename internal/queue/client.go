package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Client owns the AMQP connection shared by publishers and the worker
// consumer. It dials lazily and re-dials transparently after a broker
// drop; callers hold one Client for the process lifetime instead of
// dialing per publish.
type Client struct {
	url        string
	exchange   string
	queue      string
	routingKey string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewClient prepares a client for the given broker and topology. No
// connection is made until the first Publish or Consume.
func NewClient(url, exchange, queueName, routingKey string) *Client {
	return &Client{url: url, exchange: exchange, queue: queueName, routingKey: routingKey}
}

// channel returns a live channel, dialing and declaring topology if
// needed. Callers must hold c.mu.
func (c *Client) channel() (*amqp.Channel, error) {
	if c.ch != nil && !c.ch.IsClosed() {
		return c.ch, nil
	}
	if c.conn == nil || c.conn.IsClosed() {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			return nil, fmt.Errorf("amqp dial: %w", err)
		}
		c.conn = conn
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := c.declare(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}
	c.ch = ch
	return ch, nil
}

// declare sets up the durable exchange, queue and binding. All calls
// are idempotent so publisher and consumer can race at startup.
func (c *Client) declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(c.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(c.queue, c.routingKey, c.exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

// Publish sends one processing job as persistent JSON. A publish
// against a dropped connection re-dials once before giving up.
func (c *Client) Publish(ctx context.Context, msg AudioProcessingMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		ch, err := c.channel()
		if err != nil {
			return err
		}
		err = ch.PublishWithContext(ctx, c.exchange, c.routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
		if err == nil {
			return nil
		}
		// Channel may have died since the liveness check; drop it and retry.
		c.reset()
		if attempt == 1 {
			return fmt.Errorf("amqp publish: %w", err)
		}
		log.Printf("queue: publish failed, redialing: %v", err)
	}
	return nil
}

// Consume opens a dedicated consumer channel with prefetch 1 and
// manual acks, so the worker processes one transcoding job at a time
// and unacked jobs return to the queue on crash. The caller owns the
// returned channel and should range over deliveries until it closes.
func (c *Client) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			return nil, fmt.Errorf("amqp dial: %w", err)
		}
		c.conn = conn
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := c.declare(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(c.queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// reset discards the cached channel and connection. Callers must hold
// c.mu.
func (c *Client) reset() {
	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close tears down the connection. Safe to call multiple times.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}
