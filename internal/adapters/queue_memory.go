package adapters

import (
	"context"
	"sync"

	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

// MemoryQueue keeps named FIFO queues in process memory.
type MemoryQueue struct {
	mu     sync.Mutex
	queues map[string][]types.QueueItem
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{queues: map[string][]types.QueueItem{}}
}

func (q *MemoryQueue) Append(ctx context.Context, name string, item types.QueueItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[name] = append(q.queues[name], cloneQueueItem(item))
	return nil
}

func (q *MemoryQueue) RemoveHead(ctx context.Context, name string) (types.QueueItem, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.QueueItem{}, false, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.queues[name]
	if len(items) == 0 {
		return types.QueueItem{}, false, nil
	}
	head := items[0]
	if len(items) == 1 {
		delete(q.queues, name)
	} else {
		q.queues[name] = items[1:]
	}
	return head, true, nil
}

func (q *MemoryQueue) Peek(ctx context.Context, name string) (types.QueueItem, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.QueueItem{}, false, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.queues[name]
	if len(items) == 0 {
		return types.QueueItem{}, false, nil
	}
	return cloneQueueItem(items[0]), true, nil
}

func (q *MemoryQueue) Len(ctx context.Context, name string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[name]), nil
}

func cloneQueueItem(item types.QueueItem) types.QueueItem {
	item.Paths = append([]string(nil), item.Paths...)
	return item
}

var _ ports.QueuePort = (*MemoryQueue)(nil)
