package app

import (
	"context"
)

func (a *Agent) QueueStatus(ctx context.Context) (QueueStatusResult, error) {
	name := a.QueueName()
	length, err := a.Queue.Len(ctx, name)
	if err != nil {
		return QueueStatusResult{}, err
	}
	result := QueueStatusResult{Name: name, Length: length}
	head, ok, err := a.Queue.Peek(ctx, name)
	if err != nil {
		return QueueStatusResult{}, err
	}
	if !ok {
		return result, nil
	}
	result.Head = &head
	holders, err := a.Holders.Holders(ctx, head.ID)
	if err != nil {
		return QueueStatusResult{}, err
	}
	result.Holders = holders
	return result, nil
}
