package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"replication-agent/internal/types"
)

// ErrEndpointUnreachable marks an endpoint that could not be connected to.
// It is neither a success nor a failure: the fan-out moves on to the next
// endpoint and does not report it.
var ErrEndpointUnreachable = errors.New("endpoint unreachable")

// ParseEndpointStrategy maps a configured strategy name, defaulting to "all".
func ParseEndpointStrategy(value string) (types.EndpointStrategy, error) {
	switch types.EndpointStrategy(value) {
	case "", types.EndpointStrategyAll:
		return types.EndpointStrategyAll, nil
	case types.EndpointStrategyOne:
		return types.EndpointStrategyOne, nil
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown endpoint strategy %q", value))
	}
}

// DeliverToEndpoints runs deliver against endpoints in order. With the "all"
// strategy every endpoint is tried and any failure is returned after the
// last one; with "one" the first success stops the fan-out and an error is
// returned only when every endpoint failed. Unreachable endpoints are
// skipped under both strategies.
func DeliverToEndpoints(ctx context.Context, endpoints []types.Endpoint, strategy types.EndpointStrategy, deliver func(context.Context, types.Endpoint) error) error {
	if len(endpoints) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no endpoints configured")
	}
	var failures []error
	for _, endpoint := range endpoints {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		err := deliver(ctx, endpoint)
		if err == nil {
			if strategy == types.EndpointStrategyOne {
				return nil
			}
			continue
		}
		if errors.Is(err, ErrEndpointUnreachable) {
			log.Warn().
				Str("endpoint", endpoint.URI()).
				Str("strategy", string(strategy)).
				Msg("endpoint unreachable, trying the next one")
			continue
		}
		log.Warn().
			Err(err).
			Str("endpoint", endpoint.URI()).
			Str("strategy", string(strategy)).
			Msg("endpoint delivery failed")
		failures = append(failures, fmt.Errorf("%s: %w", endpoint.URI(), err))
	}
	return errors.Join(failures...)
}
