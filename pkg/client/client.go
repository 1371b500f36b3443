// Package client is a thin producer-side wrapper for processes that only
// need to submit work and never run a Worker: Enqueue builds a
// job.Descriptor and Pushes it onto a named Queue Port, and the result
// backend lets a caller ask how that job finished without itself running
// the reservation loop.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgeq/forgeq/internal/job"
	"github.com/forgeq/forgeq/internal/queueport"
	"github.com/forgeq/forgeq/internal/result"
	"github.com/forgeq/forgeq/internal/store"
	"github.com/redis/go-redis/v9"
)

// Client provides a simple API for submitting jobs and retrieving their
// results. It holds one Queue Port per queue name, plus an optional
// result backend shared across all of them.
type Client struct {
	store         *store.RedisStore
	ports         map[string]*queueport.RedisPort
	resultBackend result.Backend
	ctx           context.Context
}

// NewClient connects to Redis and returns a Client able to enqueue onto
// any queue name; ports are created lazily on first use. The result
// backend is enabled by default with standard TTLs (1h success, 24h
// failure).
func NewClient(redisURL string) (*Client, error) {
	return NewClientWithConfig(redisURL, time.Hour, 24*time.Hour)
}

// NewClientWithConfig creates a new Client with custom result backend
// TTLs.
func NewClientWithConfig(redisURL string, successTTL, failureTTL time.Duration) (*Client, error) {
	s, err := store.NewRedisStore(redisURL)
	if err != nil {
		return nil, fmt.Errorf("client: connect to redis: %w", err)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse redis url: %w", err)
	}
	resultClient := redis.NewClient(opts)
	resultBackend := result.NewRedisBackend(resultClient, successTTL, failureTTL)

	return &Client{
		store:         s,
		ports:         make(map[string]*queueport.RedisPort),
		resultBackend: resultBackend,
		ctx:           context.Background(),
	}, nil
}

// port returns the Queue Port for queueName, creating one on first use.
func (c *Client) port(queueName string) *queueport.RedisPort {
	if p, ok := c.ports[queueName]; ok {
		return p
	}
	p := queueport.NewRedisPort(c.store, queueName, 0)
	c.ports[queueName] = p
	return p
}

// Enqueue marshals payload to JSON, builds a Descriptor for class, and
// pushes it onto the named queue. Returns the job ID on success.
func (c *Client) Enqueue(queueName, class string, payload interface{}) (string, error) {
	arguments, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("client: marshal payload: %w", err)
	}

	d := job.New(class, arguments, "")
	d.OriginQueue = queueName

	if err := c.port(queueName).Push(c.ctx, d); err != nil {
		return "", fmt.Errorf("client: enqueue job: %w", err)
	}

	return d.ID, nil
}

// GetResult retrieves the result of a completed job by its ID. Returns
// nil if the job hasn't completed yet or the result has expired.
func (c *Client) GetResult(ctx context.Context, jobID string) (*result.Result, error) {
	r, err := c.resultBackend.GetResult(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("client: get result: %w", err)
	}
	return r, nil
}

// EnqueueAndWait enqueues a job and blocks until its result is available
// or the timeout is reached, for RPC-style task execution.
func (c *Client) EnqueueAndWait(ctx context.Context, queueName, class string, payload interface{}, timeout time.Duration) (*result.Result, error) {
	jobID, err := c.Enqueue(queueName, class, payload)
	if err != nil {
		return nil, fmt.Errorf("client: submit job: %w", err)
	}

	r, err := c.resultBackend.WaitForResult(ctx, jobID, timeout)
	if err != nil {
		return nil, fmt.Errorf("client: wait for result: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("client: job did not complete within timeout of %v", timeout)
	}
	return r, nil
}

// Close closes the Redis connections backing the client.
func (c *Client) Close() error {
	var storeErr, resultErr error

	if c.store != nil {
		storeErr = c.store.Close()
	}
	if c.resultBackend != nil {
		resultErr = c.resultBackend.Close()
	}

	if storeErr != nil {
		return storeErr
	}
	return resultErr
}
