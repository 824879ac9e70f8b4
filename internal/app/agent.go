package app

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"replication-agent/internal/adapters"
	"replication-agent/internal/core"
	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

// Agent is one opened agent spec: the package builder, holder store, queue
// and transport settings every operation shares.
type Agent struct {
	Spec      types.AgentSpec
	Builder   ports.PackageBuilderPort
	Holders   ports.PackageHolderPort
	Queue     ports.QueuePort
	Lifecycle *core.Lifecycle
	Events    ports.EventPublisherPort
	Endpoints []types.Endpoint
	Auth      ports.AuthenticationProviderPort
	Client    ports.HTTPClient
	Clock     func() time.Time

	closers []io.Closer
}

// Open validates spec and wires the adapters it names.
func (s Service) Open(ctx context.Context, spec types.AgentSpec) (*Agent, error) {
	spec = core.ApplyAgentDefaults(spec)
	if err := core.ValidateAgentSpec(ctx, spec); err != nil {
		return nil, err
	}
	endpoints, err := core.ParseEndpoints(spec.Transport.Endpoints)
	if err != nil {
		return nil, err
	}
	auth, err := adapters.NewAuthProvider(spec.Transport.Auth)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(spec.Packages.Dir, 0o755); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create packages directory").
			WithCause(err)
	}

	clock := s.Clock
	if clock == nil {
		clock = time.Now
	}
	events := s.Events
	if events == nil {
		events = adapters.LogEventPublisher{}
	}
	provider := adapters.NewDirContentProvider(spec.Packages.ContentRoot, spec.Packages.User, spec.Packages.Password)
	provider.ArchiveDir = spec.Packages.ArchiveDir
	builder := adapters.NewFilePackageBuilder(spec.Packages.Dir, spec.Packages.Type, provider, types.Credentials{
		User:     spec.Packages.User,
		Password: spec.Packages.Password,
	})
	builder.Clock = clock
	builder.MaxPeekBytes = spec.Packages.MaxPeekBytes

	agent := &Agent{
		Spec:      spec,
		Builder:   builder,
		Holders:   adapters.NewFileHolderStore(spec.Packages.Dir),
		Lifecycle: core.NewLifecycle(),
		Events:    events,
		Endpoints: endpoints,
		Auth:      auth,
		Client:    adapters.NewHTTPClient(time.Duration(spec.Transport.TimeoutSec) * time.Second),
		Clock:     clock,
	}
	queue, err := agent.openQueue(ctx)
	if err != nil {
		return nil, err
	}
	agent.Queue = queue

	log.Debug().
		Str("agent", spec.Name).
		Str("queue", spec.Queue.Name).
		Str("backend", string(spec.Queue.Backend)).
		Int("endpoints", len(endpoints)).
		Msg("agent opened")
	return agent, nil
}

func (a *Agent) openQueue(ctx context.Context) (ports.QueuePort, error) {
	if a.Spec.Queue.Backend != types.QueueBackendRedis {
		return adapters.NewMemoryQueue(), nil
	}
	queue, err := adapters.NewRedisQueue(&redis.Options{
		Addr: a.Spec.Queue.RedisAddr,
		DB:   a.Spec.Queue.RedisDB,
	}, a.Spec.Queue.RedisPrefix)
	if err != nil {
		return nil, err
	}
	if err := queue.Ping(ctx); err != nil {
		_ = queue.Close()
		return nil, err
	}
	a.closers = append(a.closers, queue)
	return queue, nil
}

func (a *Agent) Close() error {
	var errs []error
	for _, closer := range a.closers {
		errs = append(errs, closer.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *Agent) QueueName() string {
	return a.Spec.Queue.Name
}

func (a *Agent) now() time.Time {
	if a.Clock != nil {
		return a.Clock()
	}
	return time.Now()
}

func (a *Agent) requireEndpoints() error {
	if len(a.Endpoints) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("agent has no transport endpoints")
	}
	return nil
}

func (a *Agent) pushTransport() (*adapters.MultiEndpointTransport, error) {
	if err := a.requireEndpoints(); err != nil {
		return nil, err
	}
	handler, err := adapters.NewHTTPTransportHandler(a.Client, a.Auth, a.Spec.Transport.Properties)
	if err != nil {
		return nil, err
	}
	return adapters.NewMultiEndpointTransport(handler, a.Endpoints, a.Spec.Transport.Strategy)
}

// pollTransport stores polled packages so their queue items resolve
// through the builder.
func (a *Agent) pollTransport() (*adapters.MultiEndpointTransport, *adapters.PollingTransportHandler, error) {
	if err := a.requireEndpoints(); err != nil {
		return nil, nil, err
	}
	handler, err := adapters.NewPollingTransportHandler(a.Client, a.Auth, a.Builder, a.Spec.Transport.PollItems, true)
	if err != nil {
		return nil, nil, err
	}
	transport, err := adapters.NewMultiEndpointTransport(handler, a.Endpoints, a.Spec.Transport.Strategy)
	if err != nil {
		return nil, nil, err
	}
	return transport, handler, nil
}

func (a *Agent) LocalExporter() *LocalExporter {
	return &LocalExporter{
		Queue:     a.Queue,
		QueueName: a.QueueName(),
		Builder:   a.Builder,
		Lifecycle: a.Lifecycle,
	}
}

func (a *Agent) LocalImporter() *LocalImporter {
	return &LocalImporter{
		Builder:   a.Builder,
		Events:    a.Events,
		Lifecycle: a.Lifecycle,
		Clock:     a.Clock,
	}
}

func (a *Agent) RemoteImporter() (*RemoteImporter, error) {
	transport, err := a.pushTransport()
	if err != nil {
		return nil, err
	}
	return &RemoteImporter{
		Transport: transport,
		Holders:   a.Holders,
		Holder:    TransportHolder,
		Events:    a.Events,
		Lifecycle: a.Lifecycle,
		Clock:     a.Clock,
	}, nil
}

func (a *Agent) RemoteExporter() (*RemoteExporter, error) {
	transport, _, err := a.pollTransport()
	if err != nil {
		return nil, err
	}
	return &RemoteExporter{
		Transport: transport,
		Builder:   a.Builder,
		Lifecycle: a.Lifecycle,
	}, nil
}
