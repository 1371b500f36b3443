package result

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/forgeq/forgeq/internal/job"
	"github.com/redis/go-redis/v9"
)

// RedisBackend implements the Backend interface using Redis.
type RedisBackend struct {
	client     *redis.Client
	successTTL time.Duration
	failureTTL time.Duration
}

// NewRedisBackend creates a new Redis-backed result backend.
func NewRedisBackend(client *redis.Client, successTTL, failureTTL time.Duration) *RedisBackend {
	return &RedisBackend{
		client:     client,
		successTTL: successTTL,
		failureTTL: failureTTL,
	}
}

// StoreResult stores a job result in Redis.
func (r *RedisBackend) StoreResult(ctx context.Context, result *Result) error {
	key := fmt.Sprintf("forgeq:result:%s", result.JobID)
	notifyChannel := fmt.Sprintf("forgeq:result:notify:%s", result.JobID)

	data := map[string]interface{}{
		"state":        string(result.State),
		"completed_at": result.CompletedAt.Format(time.RFC3339),
		"duration_ms":  result.Duration.Milliseconds(),
	}

	if result.IsSuccess() && len(result.Payload) > 0 {
		data["payload"] = string(result.Payload)
	}

	if result.IsFailed() && result.Error != "" {
		data["error"] = result.Error
	}

	ttl := r.successTTL
	if result.IsFailed() {
		ttl = r.failureTTL
	}

	// Pipeline batches HSET + EXPIRE + PUBLISH into one round trip; it is
	// not a MULTI/EXEC transaction.
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, ttl)
	pipe.Publish(ctx, notifyChannel, "ready")

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	return nil
}

// GetResult retrieves a job result from Redis.
func (r *RedisBackend) GetResult(ctx context.Context, jobID string) (*Result, error) {
	key := fmt.Sprintf("forgeq:result:%s", jobID)

	data, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	result := &Result{JobID: jobID}

	if state, exists := data["state"]; exists {
		result.State = job.State(state)
	}

	if completedAt, exists := data["completed_at"]; exists {
		t, err := time.Parse(time.RFC3339, completedAt)
		if err == nil {
			result.CompletedAt = t
		}
	}

	if durationMs, exists := data["duration_ms"]; exists {
		ms, err := strconv.ParseInt(durationMs, 10, 64)
		if err == nil {
			result.Duration = time.Duration(ms) * time.Millisecond
		}
	}

	if payload, exists := data["payload"]; exists {
		result.Payload = json.RawMessage(payload)
	}

	if errorMsg, exists := data["error"]; exists {
		result.Error = errorMsg
	}

	return result, nil
}

// WaitForResult blocks until a result is available or timeout is
// reached, using Redis pub/sub for efficient waiting.
func (r *RedisBackend) WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*Result, error) {
	notifyChannel := fmt.Sprintf("forgeq:result:notify:%s", jobID)

	result, err := r.GetResult(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pubsub := r.client.Subscribe(waitCtx, notifyChannel)
	defer pubsub.Close()

	select {
	case <-waitCtx.Done():
		// Timeout or context cancelled; do one final check in case the
		// notification was missed.
		return r.GetResult(ctx, jobID)

	case msg := <-pubsub.Channel():
		if msg != nil && msg.Payload == "ready" {
			return r.GetResult(ctx, jobID)
		}
	}

	return nil, nil
}

// DeleteResult removes a result from Redis.
func (r *RedisBackend) DeleteResult(ctx context.Context, jobID string) error {
	key := fmt.Sprintf("forgeq:result:%s", jobID)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete result: %w", err)
	}

	return nil
}

// Close closes the Redis client connection.
func (r *RedisBackend) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
