package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replication-agent/internal/types"
)

func validAgentSpec() types.AgentSpec {
	return types.AgentSpec{
		Name: "author",
		Packages: types.PackagesSpec{
			Dir:         "/var/lib/replication/packages",
			ContentRoot: "/var/lib/replication/content",
		},
		Transport: types.TransportSpec{
			Endpoints:  []string{"http://publish.example/replicate"},
			Properties: []string{"header=X-Source: author"},
		},
	}
}

func TestApplyAgentDefaults(t *testing.T) {
	spec := ApplyAgentDefaults(validAgentSpec())

	assert.Equal(t, supportedAPIVersion, spec.APIVersion)
	assert.Equal(t, types.QueueBackendMemory, spec.Queue.Backend)
	assert.Equal(t, "author", spec.Queue.Name)
	assert.Equal(t, DefaultPackageType, spec.Packages.Type)
	assert.Equal(t, DefaultMaxPeekBytes, spec.Packages.MaxPeekBytes)
	assert.Equal(t, types.EndpointStrategyAll, spec.Transport.Strategy)
	assert.Equal(t, types.AuthTypeNone, spec.Transport.Auth.Type)
	assert.Equal(t, DefaultTimeoutSec, spec.Transport.TimeoutSec)
	assert.Equal(t, DefaultPollItems, spec.Transport.PollItems)
	assert.Zero(t, spec.Transport.PollIntervalMs)
	assert.Empty(t, spec.Queue.RedisPrefix)

	redis := validAgentSpec()
	redis.Queue.Backend = types.QueueBackendRedis
	assert.Equal(t, DefaultRedisPrefix, ApplyAgentDefaults(redis).Queue.RedisPrefix)
}

func TestValidateAgentSpec(t *testing.T) {
	require.NoError(t, ValidateAgentSpec(t.Context(), ApplyAgentDefaults(validAgentSpec())))

	tests := []struct {
		name   string
		mutate func(*types.AgentSpec)
	}{
		{name: "api version", mutate: func(s *types.AgentSpec) { s.APIVersion = "v0" }},
		{name: "missing packages dir", mutate: func(s *types.AgentSpec) { s.Packages.Dir = "" }},
		{name: "negative peek cap", mutate: func(s *types.AgentSpec) { s.Packages.MaxPeekBytes = -1 }},
		{name: "missing content root", mutate: func(s *types.AgentSpec) { s.Packages.ContentRoot = " " }},
		{name: "redis without address", mutate: func(s *types.AgentSpec) { s.Queue.Backend = types.QueueBackendRedis }},
		{name: "unknown backend", mutate: func(s *types.AgentSpec) { s.Queue.Backend = "kafka" }},
		{name: "bad endpoint", mutate: func(s *types.AgentSpec) { s.Transport.Endpoints = []string{"file:///tmp"} }},
		{name: "bad property", mutate: func(s *types.AgentSpec) { s.Transport.Properties = []string{"header=nocolon"} }},
		{name: "bad strategy", mutate: func(s *types.AgentSpec) { s.Transport.Strategy = "many" }},
		{name: "basic without user", mutate: func(s *types.AgentSpec) { s.Transport.Auth.Type = types.AuthTypeBasic }},
		{name: "token without token", mutate: func(s *types.AgentSpec) { s.Transport.Auth.Type = types.AuthTypeToken }},
		{name: "negative interval", mutate: func(s *types.AgentSpec) { s.Transport.PollIntervalMs = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := ApplyAgentDefaults(validAgentSpec())
			tt.mutate(&spec)
			require.Error(t, ValidateAgentSpec(t.Context(), spec))
		})
	}
}
