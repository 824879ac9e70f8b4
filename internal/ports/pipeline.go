package ports

import (
	"context"

	"replication-agent/internal/types"
)

type PackageExporterPort interface {
	ExportPackage(ctx context.Context) (ReplicationPackage, error)
	ExportPackageByID(ctx context.Context, id string) (ReplicationPackage, error)
}

// PackageRequeuerPort is implemented by exporters that can take back a
// package they handed out but that never reached its consumer.
type PackageRequeuerPort interface {
	RequeuePackage(ctx context.Context, pkg ReplicationPackage) error
}

// PackageImporterPort never fails past its boundary; false means the
// package was kept for the caller to retry or clean up.
type PackageImporterPort interface {
	ImportPackage(ctx context.Context, pkg ReplicationPackage) bool
}

type EventPublisherPort interface {
	Publish(ctx context.Context, event types.Event)
}

type AgentSpecPort interface {
	LoadAgent(path string) (types.AgentSpec, error)
}
