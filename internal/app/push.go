package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

// Push drains the agent queue to the transport endpoints. A failed
// delivery puts the package back at the tail of the queue and stops the
// drain with the transport error. The whole package is sent again on the
// next push, so endpoints that already took it under the "all" strategy
// receive it twice; delivery is at least once.
func (a *Agent) Push(ctx context.Context, req PushRequest) (PushResult, error) {
	importer, err := a.RemoteImporter()
	if err != nil {
		return PushResult{}, err
	}
	exporter := a.LocalExporter()
	result := PushResult{QueueName: a.QueueName()}

	for req.Max <= 0 || result.Delivered < req.Max {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		pkg, err := exporter.ExportPackage(ctx)
		if err != nil {
			return result, err
		}
		if pkg == nil {
			break
		}
		if err := a.pushPackage(ctx, importer, pkg); err != nil {
			return result, err
		}
		result.Delivered++
	}

	remaining, err := a.Queue.Len(ctx, result.QueueName)
	if err != nil {
		return result, err
	}
	result.Remaining = remaining
	log.Info().
		Str("queue", result.QueueName).
		Int("delivered", result.Delivered).
		Int("remaining", remaining).
		Msg("push finished")
	return result, nil
}

// pushPackage moves the package from its queue holder to the transport
// holder for the duration of the delivery.
func (a *Agent) pushPackage(ctx context.Context, importer *RemoteImporter, pkg ports.ReplicationPackage) error {
	defer pkg.Close()
	id := pkg.ID()
	queueName := a.QueueName()

	if err := a.Holders.Acquire(ctx, id, TransportHolder); err != nil {
		a.requeue(context.WithoutCancel(ctx), pkg)
		return err
	}
	if _, err := a.Holders.Release(ctx, id, queueName); err != nil {
		log.Warn().Err(err).Str("package", id).Str("holder", queueName).Msg("failed to release queue holder")
	}
	if err := importer.Deliver(ctx, pkg); err != nil {
		log.Error().Err(err).Str("package", id).Msg("package delivery failed, requeueing")
		a.requeue(context.WithoutCancel(ctx), pkg)
		return err
	}
	return nil
}

// requeue hands the package back to the queue holder and appends it to the
// tail of the queue.
func (a *Agent) requeue(ctx context.Context, pkg ports.ReplicationPackage) {
	id := pkg.ID()
	queueName := a.QueueName()
	advance(a.Lifecycle, id, types.PackageStateFailed)
	if err := a.Holders.Acquire(ctx, id, queueName); err != nil {
		log.Error().Err(err).Str("package", id).Msg("failed to reacquire queue holder")
		return
	}
	if _, err := a.Holders.Release(ctx, id, TransportHolder); err != nil {
		log.Warn().Err(err).Str("package", id).Str("holder", TransportHolder).Msg("failed to release transport holder")
	}
	item := types.QueueItem{ID: id, Paths: pkg.Paths(), Action: pkg.Action(), Type: pkg.Type()}
	if err := a.Queue.Append(ctx, queueName, item); err != nil {
		log.Error().Err(err).Str("package", id).Str("queue", queueName).Msg("failed to requeue package")
		return
	}
	advance(a.Lifecycle, id, types.PackageStateQueued)
}
