package adapters

import (
	"context"

	"github.com/rs/zerolog/log"

	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

// LogEventPublisher writes lifecycle events to the global logger.
type LogEventPublisher struct{}

func (LogEventPublisher) Publish(_ context.Context, event types.Event) {
	log.Info().
		Str("event", string(event.Type)).
		Str("package", event.PackageID).
		Str("action", string(event.Action)).
		Strs("paths", event.Paths).
		Time("time", event.Time).
		Msg("replication event")
}

var _ ports.EventPublisherPort = LogEventPublisher{}
