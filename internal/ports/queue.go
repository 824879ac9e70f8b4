package ports

import (
	"context"

	"replication-agent/internal/types"
)

// QueuePort holds named FIFO queues. An empty queue and a queue that was
// never written are indistinguishable.
type QueuePort interface {
	Append(ctx context.Context, name string, item types.QueueItem) error
	RemoveHead(ctx context.Context, name string) (types.QueueItem, bool, error)
	Peek(ctx context.Context, name string) (types.QueueItem, bool, error)
	Len(ctx context.Context, name string) (int, error)
}

type QueueProcessorPort interface {
	Process(ctx context.Context, queueName string, item types.QueueItem) bool
}

type QueueProcessorFunc func(ctx context.Context, queueName string, item types.QueueItem) bool

func (f QueueProcessorFunc) Process(ctx context.Context, queueName string, item types.QueueItem) bool {
	return f(ctx, queueName, item)
}
