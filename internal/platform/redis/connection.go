// Package redis is the connection hub backing the warehouse cache and the
// secret cache.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

type Connection struct {
	URL string

	client *goredis.Client
	connected bool
}

func (c *Connection) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}

	opts, err := goredis.ParseURL(c.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	c.client = client
	c.connected = true

	return nil
}

func (c *Connection) Client(ctx context.Context) (*goredis.Client, error) {
	if !c.connected {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client, nil
}
