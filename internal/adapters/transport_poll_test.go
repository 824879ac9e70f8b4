package adapters

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replication-agent/internal/core"
	"replication-agent/internal/ports"
	"replication-agent/internal/shared"
	"replication-agent/internal/types"
)

type collectingProcessor struct {
	mu    sync.Mutex
	items []types.QueueItem
	names []string
}

func (p *collectingProcessor) Process(_ context.Context, queueName string, item types.QueueItem) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, item)
	p.names = append(p.names, queueName)
	return true
}

// newPollServer serves available packages one per POLL request, then
// answers without a type header.
func newPollServer(t *testing.T, available int) (*atomic.Int32, types.Endpoint) {
	t.Helper()
	var requests atomic.Int32
	var served atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get(types.HeaderAction) != string(types.ActionPoll) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if int(served.Load()) >= available {
			w.WriteHeader(http.StatusOK)
			return
		}
		served.Add(1)
		w.Header().Set(types.HeaderType, testPackageType)
		w.Header().Set(types.HeaderAction, string(types.ActionDelete))
		w.Header().Add(types.HeaderPath, "/content/a")
		w.Header().Add(types.HeaderPath, "/content/b")
		raw, err := EncodePackage(types.PackageHeader{Name: "served", Type: testPackageType, Action: types.ActionDelete, Paths: []string{"/content/a", "/content/b"}}, nil)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(raw)
	}))
	t.Cleanup(server.Close)
	return &requests, testEndpoint(t, server.URL+"/replicate")
}

func newPollHandler(t *testing.T, pollItems int, save bool) (*PollingTransportHandler, *FilePackageBuilder) {
	t.Helper()
	builder, _ := newTestBuilder(t)
	handler, err := NewPollingTransportHandler(nil, NoAuthProvider{}, builder, pollItems, save)
	require.NoError(t, err)
	return handler, builder
}

func TestPollDrainsUntilNoTypeHeader(t *testing.T) {
	requests, endpoint := newPollServer(t, 3)
	handler, _ := newPollHandler(t, -1, false)
	processor := &collectingProcessor{}

	count, err := handler.Poll(t.Context(), endpoint, processor)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, int32(4), requests.Load())
	require.Len(t, processor.items, 3)
	for i, item := range processor.items {
		assert.Equal(t, PollQueueName, processor.names[i])
		assert.Equal(t, types.ActionDelete, item.Action)
		assert.Equal(t, testPackageType, item.Type)
		assert.Equal(t, []string{"/content/a", "/content/b"}, item.Paths)
	}
}

func TestPollRespectsPollItems(t *testing.T) {
	requests, endpoint := newPollServer(t, 5)
	handler, _ := newPollHandler(t, 2, false)
	processor := &collectingProcessor{}

	count, err := handler.Poll(t.Context(), endpoint, processor)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, int32(2), requests.Load(), "no request is made past the limit")

	disabled, _ := newPollHandler(t, 0, false)
	count, err = disabled.Poll(t.Context(), endpoint, processor)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, int32(2), requests.Load())
}

func TestPollSavesPackagesForLaterLookup(t *testing.T) {
	_, endpoint := newPollServer(t, 1)
	handler, builder := newPollHandler(t, -1, true)
	processor := &collectingProcessor{}

	count, err := handler.Poll(t.Context(), endpoint, processor)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	pkg, found, err := builder.GetPackage(t.Context(), processor.items[0].ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, types.ActionDelete, pkg.Action())
}

func TestPollConnectionRefusedIsNothingAvailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := testEndpoint(t, server.URL)
	server.Close()

	handler, _ := newPollHandler(t, -1, false)
	count, err := handler.Poll(t.Context(), endpoint, &collectingProcessor{})
	require.NoError(t, err)
	assert.Zero(t, count)

	err = handler.DeliverPackageToEndpoint(t.Context(), nil, endpoint, &collectingProcessor{})
	assert.ErrorIs(t, err, core.ErrEndpointUnreachable)
}

func TestPollStopTakesEffectBetweenRequests(t *testing.T) {
	_, endpoint := newPollServer(t, 10)
	handler, _ := newPollHandler(t, -1, false)
	processor := ports.QueueProcessorFunc(func(context.Context, string, types.QueueItem) bool {
		handler.Stop()
		return true
	})

	count, err := handler.Poll(t.Context(), endpoint, processor)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, handler.Stopped())
}

func TestPollMalformedPackageIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(types.HeaderType, testPackageType)
		_, _ = w.Write(bytes.Repeat([]byte{0xff}, 8))
	}))
	t.Cleanup(server.Close)

	handler, _ := newPollHandler(t, -1, false)
	_, err := handler.Poll(t.Context(), testEndpoint(t, server.URL), &collectingProcessor{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrTransport))
	assert.True(t, errors.Is(err, shared.ErrPackageRead))
}

func TestMultiEndpointTransportStrategies(t *testing.T) {
	downServer := httptest.NewServer(http.NotFoundHandler())
	down := testEndpoint(t, downServer.URL)
	downServer.Close()

	t.Run("one stops at first success", func(t *testing.T) {
		first, firstEndpoint := newRecordingServer(t, http.StatusOK)
		second, secondEndpoint := newRecordingServer(t, http.StatusOK)
		transport, err := NewMultiEndpointTransport(newPushHandler(t), []types.Endpoint{down, firstEndpoint, secondEndpoint}, types.EndpointStrategyOne)
		require.NoError(t, err)

		require.NoError(t, transport.Transport(t.Context(), "push", testPushPackage()))
		assert.Len(t, first.snapshot(), 1)
		assert.Empty(t, second.snapshot())
	})

	t.Run("all reports any failure", func(t *testing.T) {
		first, firstEndpoint := newRecordingServer(t, http.StatusOK)
		transport, err := NewMultiEndpointTransport(newPushHandler(t), []types.Endpoint{firstEndpoint, down}, types.EndpointStrategyAll)
		require.NoError(t, err)

		err = transport.Transport(t.Context(), "push", testPushPackage())
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrTransport))
		assert.Len(t, first.snapshot(), 1)
	})

	t.Run("one polls past an unreachable endpoint", func(t *testing.T) {
		requests, live := newPollServer(t, 2)
		handler, _ := newPollHandler(t, -1, false)
		transport, err := NewMultiEndpointTransport(handler, []types.Endpoint{down, live}, types.EndpointStrategyOne)
		require.NoError(t, err)

		processor := &collectingProcessor{}
		transport.EnableProcessing("import", processor)
		require.NoError(t, transport.Transport(t.Context(), "import", nil))
		assert.Len(t, processor.items, 2)
		assert.Equal(t, int32(3), requests.Load())
	})

	t.Run("poll uses the enabled processor", func(t *testing.T) {
		_, endpoint := newPollServer(t, 2)
		handler, _ := newPollHandler(t, -1, false)
		transport, err := NewMultiEndpointTransport(handler, []types.Endpoint{endpoint, down}, types.EndpointStrategyAll)
		require.NoError(t, err)

		processor := &collectingProcessor{}
		transport.EnableProcessing("import", processor)
		require.NoError(t, transport.Transport(t.Context(), "import", nil))
		assert.Len(t, processor.items, 2)

		transport.DisableProcessing("import")
		err = transport.Transport(t.Context(), "import", nil)
		require.Error(t, err, "polling without a processor is a configuration error")
	})

	_, err := NewMultiEndpointTransport(newPushHandler(t), nil, "some")
	require.Error(t, err)
}
