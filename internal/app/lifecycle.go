package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"replication-agent/internal/core"
	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

// Holder names used on top of the queue name.
const (
	TransportHolder = "transport"
)

// advance moves id to state. Packages this process has not seen yet start
// in state; an unexpected move is logged, never fatal.
func advance(lifecycle *core.Lifecycle, id string, state types.PackageState) {
	if lifecycle == nil {
		return
	}
	current, ok := lifecycle.State(id)
	if !ok {
		if state != types.PackageStateDeleted {
			lifecycle.Track(id, state)
		}
		return
	}
	if current == state {
		return
	}
	if err := lifecycle.Transition(id, state); err != nil {
		log.Warn().Err(err).Str("package", id).Msg("unexpected package state change")
	}
}

func publish(ctx context.Context, events ports.EventPublisherPort, eventType types.EventType, pkg ports.ReplicationPackage, clock func() time.Time) {
	if events == nil {
		return
	}
	now := time.Now
	if clock != nil {
		now = clock
	}
	events.Publish(ctx, types.Event{
		Type:      eventType,
		PackageID: pkg.ID(),
		Action:    pkg.Action(),
		Paths:     pkg.Paths(),
		Time:      now(),
	})
}

// releaseAndDelete drops holders from pkg and deletes it once nothing holds
// it anymore. Without a holder store the package is deleted directly.
func releaseAndDelete(ctx context.Context, holders ports.PackageHolderPort, lifecycle *core.Lifecycle, pkg ports.ReplicationPackage, names ...string) {
	released := true
	if holders != nil && len(names) > 0 {
		var err error
		released, err = holders.Release(ctx, pkg.ID(), names...)
		if err != nil {
			log.Warn().Err(err).Str("package", pkg.ID()).Strs("holders", names).Msg("failed to release package")
			return
		}
	}
	if !released {
		return
	}
	if err := pkg.Delete(); err != nil {
		log.Warn().Err(err).Str("package", pkg.ID()).Msg("failed to delete package")
		return
	}
	advance(lifecycle, pkg.ID(), types.PackageStateDeleted)
}
