package taskqueue

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultBatchSize    = 32
	retryDelay          = 5 * time.Second
	maxDeliveries       = 10
	leaseTimeout        = 60 * time.Second
)

// Task is one deferred unit of work. Delivery is at-least-once: a failed
// handler puts the task back on the queue, so handlers must be idempotent.
type Task struct {
	ID         string    `msgpack:"id"`
	Operation  string    `msgpack:"operation"`
	Payload    []byte    `msgpack:"payload"`
	Deliveries int       `msgpack:"deliveries"`
	EnqueuedAt time.Time `msgpack:"enqueued_at"`
}

func (t *Task) Decode(v interface{}) error {
	return msgpack.Unmarshal(t.Payload, v)
}

type Handler func(ctx context.Context, task *Task) error

// Queue is a redis sorted set keyed by due time in unix millis.
type Queue struct {
	client redis.UniversalClient
	key    string
}

func New(client redis.UniversalClient, key string) *Queue {
	return &Queue{client, key}
}

func (q *Queue) Schedule(ctx context.Context, operation string, payload interface{}, delay time.Duration) error {
	body, err := msgpack.Marshal(payload)
	if err != nil {
		return err
	}

	task := &Task{
		ID:         uuid.NewString(),
		Operation:  operation,
		Payload:    body,
		EnqueuedAt: time.Now(),
	}

	return q.push(ctx, task, time.Now().Add(delay))
}

func (q *Queue) push(ctx context.Context, task *Task, due time.Time) error {
	raw, err := msgpack.Marshal(task)
	if err != nil {
		return err
	}

	return q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: raw,
	}).Err()
}

// claimScript leases a due member by pushing its score into the future; only
// the worker whose script observes a due score runs the task.
var claimScript = redis.NewScript(`
local score = redis.call("ZSCORE", KEYS[1], ARGV[1])
if not score or tonumber(score) > tonumber(ARGV[2]) then
	return 0
end
redis.call("ZADD", KEYS[1], ARGV[3], ARGV[1])
return 1
`)

// Run polls for due tasks until ctx is cancelled. A claim is a lease, not a
// removal: the member stays in the set with a future score and is deleted
// only after the handler returns, so a worker crash mid-task surfaces the
// task again once the lease expires. Failed deliveries are re-queued with a
// delay up to maxDeliveries.
func (q *Queue) Run(ctx context.Context, handler Handler) error {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := q.drainDue(ctx, handler); err != nil && ctx.Err() == nil {
				log.Printf("taskqueue: drain: %v", err)
			}
		}
	}
}

type settle int

const (
	settleAck settle = iota
	settleRetry
	settleDrop
)

// settleDelivery routes a finished delivery: success acks, errors retry
// until the delivery cap and then drop.
func settleDelivery(err error, deliveries int) settle {
	if err == nil {
		return settleAck
	}
	if deliveries < maxDeliveries {
		return settleRetry
	}

	return settleDrop
}

func (q *Queue) drainDue(ctx context.Context, handler Handler) error {
	nowMs := time.Now().UnixMilli()
	members, err := q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(nowMs, 10),
		Count: defaultBatchSize,
	}).Result()
	if err != nil {
		return err
	}

	for _, raw := range members {
		leaseUntil := nowMs + leaseTimeout.Milliseconds()
		claimed, err := claimScript.Run(ctx, q.client, []string{q.key}, raw, nowMs, leaseUntil).Int()
		if err != nil {
			return err
		}
		if claimed == 0 {
			// another worker holds the lease
			continue
		}

		var task Task
		if err := msgpack.Unmarshal([]byte(raw), &task); err != nil {
			log.Printf("taskqueue: dropping undecodable task: %v", err)
			if err := q.client.ZRem(ctx, q.key, raw).Err(); err != nil {
				return err
			}
			continue
		}

		task.Deliveries++
		handleErr := handler(ctx, &task)

		switch settleDelivery(handleErr, task.Deliveries) {
		case settleAck:
		case settleRetry:
			log.Printf("taskqueue: %s (%s) attempt %d: %v", task.Operation, task.ID, task.Deliveries, handleErr)
			// the re-pushed member carries the bumped delivery count, so it
			// differs from the leased one being removed below
			if err := q.push(ctx, &task, time.Now().Add(retryDelay)); err != nil {
				return err
			}
		case settleDrop:
			log.Printf("taskqueue: %s (%s) dropped after %d deliveries: %v", task.Operation, task.ID, task.Deliveries, handleErr)
		}

		if err := q.client.ZRem(ctx, q.key, raw).Err(); err != nil {
			return err
		}
	}

	return nil
}
