package adapters

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"replication-agent/internal/core"
	"replication-agent/internal/ports"
	"replication-agent/internal/shared"
	"replication-agent/internal/types"
)

// MultiEndpointTransport fans one handler out over several endpoints using
// an endpoint strategy, and keeps the named processors poll handlers feed.
type MultiEndpointTransport struct {
	Handler   ports.EndpointDeliveryPort
	Endpoints []types.Endpoint
	Strategy  types.EndpointStrategy

	mu         sync.RWMutex
	processors map[string]ports.QueueProcessorPort
}

func NewMultiEndpointTransport(handler ports.EndpointDeliveryPort, endpoints []types.Endpoint, strategy types.EndpointStrategy) (*MultiEndpointTransport, error) {
	if handler == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("transport requires a delivery handler")
	}
	if strategy != types.EndpointStrategyAll && strategy != types.EndpointStrategyOne {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown endpoint strategy %q", strategy))
	}
	return &MultiEndpointTransport{
		Handler:    handler,
		Endpoints:  append([]types.Endpoint(nil), endpoints...),
		Strategy:   strategy,
		processors: map[string]ports.QueueProcessorPort{},
	}, nil
}

// Transport delivers pkg through the handler. The processor registered
// under processingName, if any, receives what poll handlers produce.
func (t *MultiEndpointTransport) Transport(ctx context.Context, processingName string, pkg ports.ReplicationPackage) error {
	t.mu.RLock()
	processor := t.processors[processingName]
	t.mu.RUnlock()

	err := core.DeliverToEndpoints(ctx, t.Endpoints, t.Strategy, func(ctx context.Context, endpoint types.Endpoint) error {
		return t.Handler.DeliverPackageToEndpoint(ctx, pkg, endpoint, processor)
	})
	if err != nil {
		return shared.TransportError(err)
	}
	return nil
}

func (t *MultiEndpointTransport) EnableProcessing(name string, processor ports.QueueProcessorPort) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processors[name] = processor
}

func (t *MultiEndpointTransport) DisableProcessing(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.processors, name)
}

var _ ports.PackageTransportPort = (*MultiEndpointTransport)(nil)
