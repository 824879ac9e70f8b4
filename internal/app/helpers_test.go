package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"replication-agent/internal/types"
	"replication-agent/tests/testutil"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestAgent opens a memory-queue agent whose content root holds
// content/a/one.txt and content/b/two.txt.
func newTestAgent(t *testing.T, name string, mutate func(*types.AgentSpec), endpoints ...string) (*Agent, *testutil.RecordingPublisher) {
	t.Helper()
	spec := testutil.AgentSpec(t, name, endpoints...)
	testutil.WriteTree(t, spec.Packages.ContentRoot, map[string]string{
		"content/a/one.txt": "one",
		"content/b/two.txt": "two",
	})
	if mutate != nil {
		mutate(&spec)
	}
	events := &testutil.RecordingPublisher{}
	service := Service{
		SpecLoader: NewService().SpecLoader,
		Events:     events,
		Clock:      func() time.Time { return fixedTime },
	}
	agent, err := service.Open(t.Context(), spec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = agent.Close() })
	return agent, events
}

type capturedRequest struct {
	header http.Header
	body   string
}

type captureServer struct {
	mu       sync.Mutex
	status   int
	requests []capturedRequest
}

func newCaptureServer(t *testing.T, status int) (*captureServer, string) {
	t.Helper()
	capture := &captureServer{status: status}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		capture.mu.Lock()
		capture.requests = append(capture.requests, capturedRequest{header: r.Header.Clone(), body: string(body)})
		status := capture.status
		capture.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return capture, server.URL + "/replicate"
}

func (s *captureServer) snapshot() []capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capturedRequest(nil), s.requests...)
}

func (s *captureServer) setStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// serveAgent mounts the agent receiver on a test server and returns its
// replication endpoint.
func serveAgent(t *testing.T, agent *Agent, enablePoll bool) string {
	t.Helper()
	server := httptest.NewServer(agent.Handler(DefaultServePath, enablePoll))
	t.Cleanup(server.Close)
	return server.URL + DefaultServePath
}
