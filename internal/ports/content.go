package ports

import (
	"context"
	"io"

	"replication-agent/internal/types"
)

type ContentSession interface {
	Close() error
}

// ContentProviderPort assembles package content for a set of paths and
// applies it back to a repository. Open looks up a complete package the
// repository keeps under id; found is false when it has none.
type ContentProviderPort interface {
	Login(ctx context.Context, credentials types.Credentials) (ContentSession, error)
	Export(ctx context.Context, session ContentSession, paths []string, w io.Writer) error
	Install(ctx context.Context, session ContentSession, action types.ActionType, paths []string, r io.Reader) error
	Open(ctx context.Context, session ContentSession, id string) (io.ReadCloser, bool, error)
}
