package app

import (
	"context"
	"time"

	"replication-agent/internal/adapters"
	"replication-agent/internal/core"
	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

type Service struct {
	SpecLoader ports.AgentSpecPort
	Events     ports.EventPublisherPort
	Clock      func() time.Time
}

func NewService() Service {
	return Service{
		SpecLoader: adapters.NewAgentSpecFileAdapter(),
		Events:     adapters.LogEventPublisher{},
		Clock:      time.Now,
	}
}

// LoadAgentSpec reads an agent spec file and returns it with defaults
// applied. Validation happens when the agent is opened so callers can
// override fields first.
func (s Service) LoadAgentSpec(path string) (types.AgentSpec, error) {
	spec, err := s.SpecLoader.LoadAgent(path)
	if err != nil {
		return types.AgentSpec{}, err
	}
	return core.ApplyAgentDefaults(spec), nil
}

func (s Service) Replicate(ctx context.Context, req ReplicateRequest) (ReplicateResult, error) {
	agent, err := s.Open(ctx, req.Agent)
	if err != nil {
		return ReplicateResult{}, err
	}
	defer agent.Close()
	return agent.Replicate(ctx, req)
}

func (s Service) Push(ctx context.Context, req PushRequest) (PushResult, error) {
	agent, err := s.Open(ctx, req.Agent)
	if err != nil {
		return PushResult{}, err
	}
	defer agent.Close()
	return agent.Push(ctx, req)
}

func (s Service) Poll(ctx context.Context, req PollRequest) (PollResult, error) {
	agent, err := s.Open(ctx, req.Agent)
	if err != nil {
		return PollResult{}, err
	}
	defer agent.Close()
	return agent.Poll(ctx, req)
}

func (s Service) Serve(ctx context.Context, req ServeRequest) error {
	agent, err := s.Open(ctx, req.Agent)
	if err != nil {
		return err
	}
	defer agent.Close()
	return agent.Serve(ctx, req)
}

func (s Service) QueueStatus(ctx context.Context, req QueueStatusRequest) (QueueStatusResult, error) {
	agent, err := s.Open(ctx, req.Agent)
	if err != nil {
		return QueueStatusResult{}, err
	}
	defer agent.Close()
	return agent.QueueStatus(ctx)
}
