// Package mongodb owns the process-wide MongoDB client.
//
// Connect hands every caller the same *mongo.Client; Disconnect closes it so
// CLI commands and the daemon release the connection pool exactly once.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Options configures the shared client.
type Options struct {
	URI            string
	ConnectTimeout time.Duration
	AppName        string
}

var (
	mu     sync.Mutex
	client *mongo.Client
	uri    string
)

// ErrURIMismatch is returned when Connect is called with a different URI than
// the already connected client.
var ErrURIMismatch = errors.New("mongodb: client already connected to a different uri")

// Connect returns the shared client, dialing and pinging it on first use.
func Connect(ctx context.Context, opts Options) (*mongo.Client, error) {
	mu.Lock()
	defer mu.Unlock()

	if client != nil {
		if opts.URI != "" && opts.URI != uri {
			return nil, ErrURIMismatch
		}
		return client, nil
	}
	if opts.URI == "" {
		return nil, errors.New("mongodb: uri is required")
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if opts.AppName != "" {
		clientOpts.SetAppName(opts.AppName)
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}
	if err := c.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: ping: %w", err)
	}

	client = c
	uri = opts.URI
	return client, nil
}

// Disconnect closes the shared client. It is safe to call when not connected.
func Disconnect(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if client == nil {
		return nil
	}
	err := client.Disconnect(ctx)
	client = nil
	uri = ""
	if err != nil {
		return fmt.Errorf("mongodb: disconnect: %w", err)
	}
	return nil
}

// Connected reports whether the shared client is open.
func Connected() bool {
	mu.Lock()
	defer mu.Unlock()
	return client != nil
}
