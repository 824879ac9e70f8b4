package app

import "replication-agent/internal/types"

type ReplicateRequest struct {
	Agent  types.AgentSpec
	Action string
	Paths  []string
}

type ReplicateResult struct {
	PackageID string
	QueueName string
	Action    types.ActionType
	Paths     []string
	Size      int64
}

type PushRequest struct {
	Agent types.AgentSpec
	// Max caps the packages delivered in one call; zero drains the queue.
	Max int
}

type PushResult struct {
	QueueName string
	Delivered int
	Remaining int
}

type PollRequest struct {
	Agent types.AgentSpec
	// Enqueue appends polled packages to the agent queue instead of
	// installing them.
	Enqueue bool
	// Continuous keeps polling every transport.poll_interval_ms until the
	// context ends.
	Continuous bool
}

type PollResult struct {
	Cycles    int
	Received  int
	Imported  int
	Queued    int
	Failed    int
	LastError error
}

type ServeRequest struct {
	Agent types.AgentSpec
	Addr  string
	Path  string
	// EnablePoll answers POLL requests from the agent queue.
	EnablePoll bool
}

type QueueStatusRequest struct {
	Agent types.AgentSpec
}

type QueueStatusResult struct {
	Name    string
	Length  int
	Head    *types.QueueItem
	Holders []string
}
