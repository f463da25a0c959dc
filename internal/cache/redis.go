// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/taboo/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for room action logs.
const DefaultQueueName = "taboo_actions"

// Connect opens a Redis client for addr and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ActionQueue is a Redis list of JSON-encoded action records. Rooms push with
// Publish; the historian drains with Pop.
type ActionQueue struct {
	client redis.Cmdable
	queue  string
}

// NewActionQueue wraps client. An empty queue name uses DefaultQueueName.
func NewActionQueue(client redis.Cmdable, queue string) *ActionQueue {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &ActionQueue{client: client, queue: queue}
}

// Name returns the Redis key of the queue.
func (q *ActionQueue) Name() string {
	return q.queue
}

// Publish serializes the given record to JSON, then pushes it to the Redis queue.
func (q *ActionQueue) Publish(ctx context.Context, rec models.ActionRecord) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// Requeue puts records back at the head of the queue so the next Pop returns
// recs[0]. LPUSH prepends one value at a time, hence the reversed order.
func (q *ActionQueue) Requeue(ctx context.Context, recs []models.ActionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		data, err := EncodeRecord(recs[i])
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	if err := q.client.LPush(ctx, q.queue, values...).Err(); err != nil {
		return fmt.Errorf("failed to LPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// Pop blocks up to timeout for the next record. It returns (nil, nil) when the
// queue stayed empty.
func (q *ActionQueue) Pop(ctx context.Context, timeout time.Duration) (*models.ActionRecord, error) {
	res, err := q.client.BLPop(ctx, timeout, q.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", q.queue, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	rec, err := DecodeRecord([]byte(res[1]))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// EncodeRecord is the wire format of a queued record.
func EncodeRecord(rec models.ActionRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	return data, nil
}

// DecodeRecord parses a queued record.
func DecodeRecord(data []byte) (models.ActionRecord, error) {
	var rec models.ActionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.ActionRecord{}, fmt.Errorf("invalid action record: %w", err)
	}
	if rec.RoomCode == "" || rec.ActionType == "" {
		return models.ActionRecord{}, fmt.Errorf("invalid action record: missing room_code or action_type")
	}
	return rec, nil
}
