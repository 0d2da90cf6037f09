package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// TypeDeliver is the asynq task type carrying one Notification.
const TypeDeliver = "notify:deliver"

const (
	queueName  = "notifications"
	maxRetries = 5
)

// ConnectRedis opens a Redis client and verifies the connection.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		if cerr := rdb.Close(); cerr != nil {
			slog.Warn("closing redis client", "error", cerr)
		}
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisOpt derives asynq connection options from a connected client.
func RedisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// QueueDispatcher enqueues notifications for the worker to deliver.
type QueueDispatcher struct {
	client *asynq.Client
}

// NewQueueDispatcher creates a dispatcher backed by an asynq queue.
func NewQueueDispatcher(opt asynq.RedisClientOpt) *QueueDispatcher {
	return &QueueDispatcher{client: asynq.NewClient(opt)}
}

// Notify enqueues n. Enqueuing the same notification ID twice is a no-op.
func (q *QueueDispatcher) Notify(ctx context.Context, n Notification) error {
	task, err := newDeliverTask(n)
	if err != nil {
		return err
	}

	_, err = q.client.EnqueueContext(ctx, task,
		asynq.TaskID(n.ID),
		asynq.Queue(queueName),
		asynq.MaxRetry(maxRetries),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueuing notification %s: %w", n.ID, err)
	}
	return nil
}

// Close releases the queue connection.
func (q *QueueDispatcher) Close() error {
	return q.client.Close()
}

func newDeliverTask(n Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshaling notification: %w", err)
	}
	return asynq.NewTask(TypeDeliver, payload), nil
}

// DeliverHandler returns the worker handler that hands queued
// notifications to deliver.
func DeliverHandler(deliver Dispatcher) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var n Notification
		if err := json.Unmarshal(t.Payload(), &n); err != nil {
			return fmt.Errorf("decoding notification: %v: %w", err, asynq.SkipRetry)
		}
		if err := deliver.Notify(ctx, n); err != nil {
			return fmt.Errorf("delivering notification %s: %w", n.ID, err)
		}
		return nil
	}
}

// NewWorker builds the asynq server that drains the notification queue.
func NewWorker(opt asynq.RedisClientOpt, deliver Dispatcher, concurrency int) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queueName: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			slog.Error("notification task failed", "type", task.Type(), "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeDeliver, DeliverHandler(deliver))
	return srv, mux
}
