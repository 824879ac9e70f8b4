package ports

import (
	"context"
	"io"

	"replication-agent/internal/types"
)

// ReplicationPackage is a typed, byte-streamable unit of content change.
// Close and Delete are idempotent.
type ReplicationPackage interface {
	ID() string
	Type() string
	Action() types.ActionType
	Paths() []string
	Size() int64
	Open() (io.ReadCloser, error)
	Close() error
	Delete() error
}

// PackageBuilderPort creates, reads, reopens and installs packages of one
// type. Every operation holds a content session only for its own duration.
type PackageBuilderPort interface {
	Type() string
	Build(ctx context.Context, request types.ReplicationRequest) (ReplicationPackage, error)
	ReadPackage(ctx context.Context, stream io.Reader, save bool) (ReplicationPackage, error)
	GetPackage(ctx context.Context, id string) (ReplicationPackage, bool, error)
	InstallPackage(ctx context.Context, pkg ReplicationPackage) error
}

// PackageHolderPort keeps named references on a package. Release reports
// true once no holder remains and the package may be deleted.
type PackageHolderPort interface {
	Acquire(ctx context.Context, id string, holders ...string) error
	Release(ctx context.Context, id string, holders ...string) (bool, error)
	Holders(ctx context.Context, id string) ([]string, error)
}
