package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/redis/go-redis/v9"

	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

// RedisQueue stores each named queue as a Redis list of JSON queue items
// under "<prefix>:queue:<name>".
type RedisQueue struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisQueue(opts *redis.Options, prefix string) (*RedisQueue, error) {
	if prefix == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("redis queue prefix cannot be empty")
	}
	return &RedisQueue{rdb: redis.NewClient(opts), prefix: prefix}, nil
}

func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func (q *RedisQueue) Append(ctx context.Context, name string, item types.QueueItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode queue item").
			WithCause(err)
	}
	if err := q.rdb.RPush(ctx, q.key(name), data).Err(); err != nil {
		return redisQueueError("append", name, err)
	}
	return nil
}

func (q *RedisQueue) RemoveHead(ctx context.Context, name string) (types.QueueItem, bool, error) {
	data, err := q.rdb.LPop(ctx, q.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.QueueItem{}, false, nil
	}
	if err != nil {
		return types.QueueItem{}, false, redisQueueError("pop", name, err)
	}
	item, err := decodeQueueItem(data)
	return item, err == nil, err
}

func (q *RedisQueue) Peek(ctx context.Context, name string) (types.QueueItem, bool, error) {
	data, err := q.rdb.LIndex(ctx, q.key(name), 0).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.QueueItem{}, false, nil
	}
	if err != nil {
		return types.QueueItem{}, false, redisQueueError("peek", name, err)
	}
	item, err := decodeQueueItem(data)
	return item, err == nil, err
}

func (q *RedisQueue) Len(ctx context.Context, name string) (int, error) {
	size, err := q.rdb.LLen(ctx, q.key(name)).Result()
	if err != nil {
		return 0, redisQueueError("len", name, err)
	}
	return int(size), nil
}

func (q *RedisQueue) key(name string) string {
	return fmt.Sprintf("%s:queue:%s", q.prefix, name)
}

func decodeQueueItem(data []byte) (types.QueueItem, error) {
	var item types.QueueItem
	if err := json.Unmarshal(data, &item); err != nil {
		return types.QueueItem{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to decode queue item").
			WithCause(err)
	}
	return item, nil
}

func redisQueueError(op string, name string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("redis queue %s failed for %s", op, name)).
		WithCause(err)
}

var _ ports.QueuePort = (*RedisQueue)(nil)
