// Package mongo is the connection hub for the document store backing the
// secret store.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Connection struct {
	URI string
	Database string

	client *mongo.Client
	connected bool
}

func (c *Connection) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.URI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	c.client = client
	c.connected = true

	return nil
}

func (c *Connection) DB(ctx context.Context) (*mongo.Database, error) {
	if !c.connected {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client.Database(c.Database), nil
}
