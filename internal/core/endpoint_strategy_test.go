package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replication-agent/internal/types"
)

func testEndpoints(t *testing.T, raw ...string) []types.Endpoint {
	t.Helper()
	endpoints, err := ParseEndpoints(raw)
	require.NoError(t, err)
	return endpoints
}

func TestDeliverToEndpointsAllTriesEveryEndpoint(t *testing.T) {
	endpoints := testEndpoints(t, "http://a.example/recv", "http://b.example/recv", "http://c.example/recv")
	var visited []string
	err := DeliverToEndpoints(t.Context(), endpoints, types.EndpointStrategyAll, func(_ context.Context, endpoint types.Endpoint) error {
		visited = append(visited, endpoint.Host())
		if endpoint.Host() == "b.example" {
			return errors.New("boom")
		}
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.example")
	assert.Equal(t, []string{"a.example", "b.example", "c.example"}, visited)
}

func TestDeliverToEndpointsOneStopsAtFirstSuccess(t *testing.T) {
	endpoints := testEndpoints(t, "http://a.example/recv", "http://b.example/recv", "http://c.example/recv")
	var visited []string
	err := DeliverToEndpoints(t.Context(), endpoints, types.EndpointStrategyOne, func(_ context.Context, endpoint types.Endpoint) error {
		visited = append(visited, endpoint.Host())
		if endpoint.Host() == "a.example" {
			return errors.New("down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example", "b.example"}, visited)
}

func TestDeliverToEndpointsOneFailsWhenAllFail(t *testing.T) {
	endpoints := testEndpoints(t, "http://a.example/recv", "http://b.example/recv")
	err := DeliverToEndpoints(t.Context(), endpoints, types.EndpointStrategyOne, func(context.Context, types.Endpoint) error {
		return errors.New("down")
	})
	require.Error(t, err)
}

func TestDeliverToEndpointsSkipsUnreachable(t *testing.T) {
	endpoints := testEndpoints(t, "http://a.example/recv", "http://b.example/recv", "http://c.example/recv")
	for _, strategy := range []types.EndpointStrategy{types.EndpointStrategyOne, types.EndpointStrategyAll} {
		t.Run(string(strategy), func(t *testing.T) {
			var visited []string
			err := DeliverToEndpoints(t.Context(), endpoints, strategy, func(_ context.Context, endpoint types.Endpoint) error {
				visited = append(visited, endpoint.Host())
				if endpoint.Host() == "a.example" {
					return fmt.Errorf("dial: %w", ErrEndpointUnreachable)
				}
				return nil
			})
			require.NoError(t, err)
			if strategy == types.EndpointStrategyOne {
				assert.Equal(t, []string{"a.example", "b.example"}, visited)
				return
			}
			assert.Equal(t, []string{"a.example", "b.example", "c.example"}, visited)
		})
	}

	err := DeliverToEndpoints(t.Context(), endpoints, types.EndpointStrategyOne, func(context.Context, types.Endpoint) error {
		return ErrEndpointUnreachable
	})
	require.NoError(t, err, "nothing reachable means nothing available")
}

func TestDeliverToEndpointsRequiresEndpoints(t *testing.T) {
	err := DeliverToEndpoints(t.Context(), nil, types.EndpointStrategyAll, func(context.Context, types.Endpoint) error {
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

func TestParseEndpointStrategy(t *testing.T) {
	strategy, err := ParseEndpointStrategy("")
	require.NoError(t, err)
	assert.Equal(t, types.EndpointStrategyAll, strategy)

	strategy, err = ParseEndpointStrategy("one")
	require.NoError(t, err)
	assert.Equal(t, types.EndpointStrategyOne, strategy)

	_, err = ParseEndpointStrategy("some")
	require.Error(t, err)
}

func TestParseEndpoint(t *testing.T) {
	endpoint, err := ParseEndpoint(" https://target.example:8443/replicate ")
	require.NoError(t, err)
	assert.Equal(t, "https://target.example:8443/replicate", endpoint.URI())
	assert.Equal(t, "target.example:8443", endpoint.Host())

	for _, raw := range []string{"", "ftp://x/y", "http://", "::bad"} {
		_, err := ParseEndpoint(raw)
		assert.Error(t, err, raw)
	}
}
