package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"replication-agent/internal/core"
	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

const remoteExportProcessing = "remote-export"

// LocalExporter hands out packages from the head of a local queue.
type LocalExporter struct {
	Queue     ports.QueuePort
	QueueName string
	Builder   ports.PackageBuilderPort
	Lifecycle *core.Lifecycle
}

// ExportPackage pops queue items until one resolves to a stored package.
// Items whose package is gone are dropped with a warning. An item that
// fails to resolve goes back to the tail of the queue. An empty queue
// returns a nil package.
func (e *LocalExporter) ExportPackage(ctx context.Context) (ports.ReplicationPackage, error) {
	for {
		item, ok, err := e.Queue.RemoveHead(ctx, e.QueueName)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		pkg, found, err := e.Builder.GetPackage(ctx, item.ID)
		if err != nil {
			if appendErr := e.Queue.Append(context.WithoutCancel(ctx), e.QueueName, item); appendErr != nil {
				log.Error().Err(appendErr).Str("package", item.ID).Str("queue", e.QueueName).Msg("failed to requeue unreadable package")
			}
			return nil, err
		}
		if !found {
			log.Warn().
				Str("package", item.ID).
				Str("queue", e.QueueName).
				Msg("queued package no longer exists, skipping")
			continue
		}
		advance(e.Lifecycle, pkg.ID(), types.PackageStateExporting)
		return pkg, nil
	}
}

// RequeuePackage puts an exported package back at the tail of the queue.
// The queue holder is untouched; it was never released by the export.
func (e *LocalExporter) RequeuePackage(ctx context.Context, pkg ports.ReplicationPackage) error {
	id := pkg.ID()
	advance(e.Lifecycle, id, types.PackageStateFailed)
	item := types.QueueItem{ID: id, Paths: pkg.Paths(), Action: pkg.Action(), Type: pkg.Type()}
	if err := e.Queue.Append(ctx, e.QueueName, item); err != nil {
		return err
	}
	advance(e.Lifecycle, id, types.PackageStateQueued)
	return nil
}

func (e *LocalExporter) ExportPackageByID(ctx context.Context, id string) (ports.ReplicationPackage, error) {
	return exportByID(ctx, e.Builder, id)
}

// RemoteExporter pulls packages from remote endpoints through a polling
// transport. Polled items beyond the first are kept for later calls.
type RemoteExporter struct {
	Transport ports.PackageTransportPort
	Builder   ports.PackageBuilderPort
	Lifecycle *core.Lifecycle

	mu      sync.Mutex
	pending []types.QueueItem
}

func (e *RemoteExporter) ExportPackage(ctx context.Context) (ports.ReplicationPackage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.pending) == 0 {
		polled, err := e.poll(ctx)
		e.pending = append(e.pending, polled...)
		if err != nil {
			if len(e.pending) == 0 {
				return nil, err
			}
			log.Warn().Err(err).Int("items", len(polled)).Msg("remote export completed partially")
		}
	}
	for len(e.pending) > 0 {
		item := e.pending[0]
		e.pending = e.pending[1:]
		pkg, found, err := e.Builder.GetPackage(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if !found {
			log.Warn().Str("package", item.ID).Msg("polled package was not stored, skipping")
			continue
		}
		advance(e.Lifecycle, pkg.ID(), types.PackageStateDelivered)
		return pkg, nil
	}
	return nil, nil
}

func (e *RemoteExporter) poll(ctx context.Context) ([]types.QueueItem, error) {
	var mu sync.Mutex
	var polled []types.QueueItem
	e.Transport.EnableProcessing(remoteExportProcessing, ports.QueueProcessorFunc(func(_ context.Context, _ string, item types.QueueItem) bool {
		mu.Lock()
		defer mu.Unlock()
		polled = append(polled, item)
		return true
	}))
	defer e.Transport.DisableProcessing(remoteExportProcessing)

	err := e.Transport.Transport(ctx, remoteExportProcessing, nil)
	mu.Lock()
	defer mu.Unlock()
	return polled, err
}

func (e *RemoteExporter) ExportPackageByID(ctx context.Context, id string) (ports.ReplicationPackage, error) {
	return exportByID(ctx, e.Builder, id)
}

func exportByID(ctx context.Context, builder ports.PackageBuilderPort, id string) (ports.ReplicationPackage, error) {
	pkg, found, err := builder.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("package %s not found", id))
	}
	return pkg, nil
}

var (
	_ ports.PackageExporterPort = (*LocalExporter)(nil)
	_ ports.PackageRequeuerPort = (*LocalExporter)(nil)
	_ ports.PackageExporterPort = (*RemoteExporter)(nil)
)
