package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/agent"
)

// Queue moves tasks between the orchestrator and the workers. Tasks are
// addressed by target agent tag; each tag is its own stream.
type Queue interface {
	Publish(ctx context.Context, task *agent.Task) error
	Subscribe(ctx context.Context, workerType string) <-chan *agent.Task
	Close() error
}

// RedisQueue is the Redis Streams task bus.
type RedisQueue struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(redisURL string, logger *zap.Logger) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisQueue{rdb: rdb, logger: logger}, nil
}

const streamPrefix = "charterdesk:tasks:"

// Publish appends a task to its target worker's stream.
func (q *RedisQueue) Publish(ctx context.Context, task *agent.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}

	stream := streamPrefix + task.TargetAgent
	_, err = q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}

	q.logger.Debug("published task",
		zap.String("id", task.ID),
		zap.String("target", task.TargetAgent),
		zap.String("priority", string(task.Priority)))
	return nil
}

// Subscribe listens for tasks addressed to a worker type. Cancel the
// context to stop; the channel closes when the listener exits.
func (q *RedisQueue) Subscribe(ctx context.Context, workerType string) <-chan *agent.Task {
	ch := make(chan *agent.Task, 16)
	stream := streamPrefix + workerType

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := q.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Count:   10,
				Block:   time.Second * 2,
			}).Result()

			if err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
					return
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var task agent.Task
					if json.Unmarshal([]byte(data), &task) == nil {
						ch <- &task
					}
				}
			}
		}
	}()

	return ch
}

// Close shuts down the Redis connection.
func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}
