package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"replication-agent/internal/types"
)

// Replicate builds a package for the requested paths and appends it to the
// agent queue. The queue name is the package's first holder.
func (a *Agent) Replicate(ctx context.Context, req ReplicateRequest) (ReplicateResult, error) {
	action, ok := types.ParseActionType(req.Action)
	if !ok || !action.IsContentAction() {
		return ReplicateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("action must be ADD or DELETE, got %q", req.Action))
	}
	paths := make([]string, 0, len(req.Paths))
	for _, path := range req.Paths {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			paths = append(paths, trimmed)
		}
	}
	if len(paths) == 0 {
		return ReplicateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one content path is required")
	}

	pkg, err := a.Builder.Build(ctx, types.ReplicationRequest{
		Action: action,
		Paths:  paths,
		Time:   a.now(),
	})
	if err != nil {
		return ReplicateResult{}, err
	}
	defer pkg.Close()

	id := pkg.ID()
	a.Lifecycle.Track(id, types.PackageStateBuilt)
	publish(ctx, a.Events, types.EventPackageCreated, pkg, a.Clock)

	queueName := a.QueueName()
	if err := a.Holders.Acquire(ctx, id, queueName); err != nil {
		releaseAndDelete(ctx, nil, a.Lifecycle, pkg)
		return ReplicateResult{}, err
	}
	item := types.QueueItem{
		ID:     id,
		Paths:  pkg.Paths(),
		Action: pkg.Action(),
		Type:   pkg.Type(),
	}
	if err := a.Queue.Append(ctx, queueName, item); err != nil {
		releaseAndDelete(ctx, a.Holders, a.Lifecycle, pkg, queueName)
		return ReplicateResult{}, err
	}
	advance(a.Lifecycle, id, types.PackageStateQueued)
	publish(ctx, a.Events, types.EventPackageQueued, pkg, a.Clock)

	log.Info().
		Str("package", id).
		Str("queue", queueName).
		Str("action", string(action)).
		Strs("paths", item.Paths).
		Int64("size", pkg.Size()).
		Msg("package queued")
	return ReplicateResult{
		PackageID: id,
		QueueName: queueName,
		Action:    action,
		Paths:     item.Paths,
		Size:      pkg.Size(),
	}, nil
}
