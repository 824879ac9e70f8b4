package adapters

import (
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

type AgentSpecFileAdapter struct{}

func NewAgentSpecFileAdapter() AgentSpecFileAdapter {
	return AgentSpecFileAdapter{}
}

func (a AgentSpecFileAdapter) LoadAgent(path string) (types.AgentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.AgentSpec{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("agent spec file not found").
			WithCause(err)
	}
	var spec types.AgentSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return types.AgentSpec{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse agent spec yaml").
			WithCause(err)
	}
	return spec, nil
}

var _ ports.AgentSpecPort = AgentSpecFileAdapter{}
