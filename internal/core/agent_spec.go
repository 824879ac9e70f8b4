package core

import (
	"context"
	"fmt"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"replication-agent/internal/types"
)

const (
	DefaultPackageType  = "rpkg"
	DefaultPollItems    = -1
	DefaultTimeoutSec   = 60
	DefaultRedisPrefix  = "replication"
	DefaultMaxPeekBytes = int64(64 << 20)
	supportedAPIVersion = "replication/v1"
)

// ApplyAgentDefaults fills optional fields. Poll interval has no default:
// it must be configured for continuous polling.
func ApplyAgentDefaults(spec types.AgentSpec) types.AgentSpec {
	if spec.APIVersion == "" {
		spec.APIVersion = supportedAPIVersion
	}
	if spec.Queue.Backend == "" {
		spec.Queue.Backend = types.QueueBackendMemory
	}
	if strings.TrimSpace(spec.Queue.Name) == "" {
		spec.Queue.Name = spec.Name
	}
	if spec.Queue.Backend == types.QueueBackendRedis && spec.Queue.RedisPrefix == "" {
		spec.Queue.RedisPrefix = DefaultRedisPrefix
	}
	if spec.Packages.Type == "" {
		spec.Packages.Type = DefaultPackageType
	}
	if spec.Packages.MaxPeekBytes == 0 {
		spec.Packages.MaxPeekBytes = DefaultMaxPeekBytes
	}
	if spec.Transport.Strategy == "" {
		spec.Transport.Strategy = types.EndpointStrategyAll
	}
	if spec.Transport.Auth.Type == "" {
		spec.Transport.Auth.Type = types.AuthTypeNone
	}
	if spec.Transport.TimeoutSec <= 0 {
		spec.Transport.TimeoutSec = DefaultTimeoutSec
	}
	if spec.Transport.PollItems == 0 {
		spec.Transport.PollItems = DefaultPollItems
	}
	return spec
}

// ValidateAgentSpec checks the shape of an agent spec after defaults are
// applied. Every problem found here is a setup error.
func ValidateAgentSpec(ctx context.Context, spec types.AgentSpec) error {
	if spec.APIVersion != supportedAPIVersion {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported api_version %q", spec.APIVersion))
	}
	if strings.TrimSpace(spec.Name) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("agent name must be set")
	}
	if strings.TrimSpace(spec.Packages.Dir) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("packages.dir must be set")
	}
	if strings.TrimSpace(spec.Packages.ContentRoot) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("packages.content_root must be set")
	}
	if spec.Packages.MaxPeekBytes < 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("packages.max_peek_bytes must not be negative")
	}
	switch spec.Queue.Backend {
	case types.QueueBackendMemory:
	case types.QueueBackendRedis:
		if strings.TrimSpace(spec.Queue.RedisAddr) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("queue.redis_addr is required for the redis backend")
		}
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported queue backend %q", spec.Queue.Backend))
	}
	if _, err := ParseEndpointStrategy(string(spec.Transport.Strategy)); err != nil {
		return err
	}
	if _, err := ParseEndpoints(spec.Transport.Endpoints); err != nil {
		return err
	}
	if err := ValidateTransportProperties(spec.Transport.Properties); err != nil {
		return err
	}
	switch spec.Transport.Auth.Type {
	case types.AuthTypeNone:
	case types.AuthTypeBasic:
		if strings.TrimSpace(spec.Transport.Auth.User) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("transport.auth.user is required for basic auth")
		}
	case types.AuthTypeToken:
		if strings.TrimSpace(spec.Transport.Auth.Token) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("transport.auth.token is required for token auth")
		}
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported auth type %q", spec.Transport.Auth.Type))
	}
	if spec.Transport.PollIntervalMs < 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("transport.poll_interval_ms must not be negative")
	}
	assert.NotEmpty(ctx, spec.Queue.Name, "queue name must be resolved")
	assert.NotEmpty(ctx, spec.Packages.Type, "package type must be resolved")
	return nil
}
