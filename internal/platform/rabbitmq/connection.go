// Package rabbitmq is the connection hub for domain-event publication after a
// successful tabular commit. It is deliberately not used for the task queue
// itself, which stays broker-free and embedded in postgres instead, built
// on amqp091-go, the maintained fork of the archived streadway/amqp client.
package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Connection struct {
	URL string
	Exchange string

	conn *amqp.Connection
	channel *amqp.Channel
	connected bool
}

func (c *Connection) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}

	conn, err := amqp.Dial(c.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(c.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return fmt.Errorf("declare exchange: %w", err)
	}

	c.conn = conn
	c.channel = ch
	c.connected = true

	return nil
}

// Publish sends body under routingKey on the configured exchange. Domain
// events are fire-and-forget: a publish failure is logged by the caller and
// never aborts the originating catalog transaction, since the event stream
// is an optimization, not a correctness requirement.
func (c *Connection) Publish(ctx context.Context, routingKey string, body []byte) error {
	if !c.connected {
		if err := c.Connect(ctx); err != nil {
			return err
		}
	}

	return c.channel.PublishWithContext(ctx, c.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body: body,
	})
}

func (c *Connection) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}
