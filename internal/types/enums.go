package types

import "strings"

type ActionType string

const (
	ActionAdd    ActionType = "ADD"
	ActionDelete ActionType = "DELETE"
	ActionPoll   ActionType = "POLL"
)

// ParseActionType accepts any casing of a known action name.
func ParseActionType(value string) (ActionType, bool) {
	switch ActionType(strings.ToUpper(strings.TrimSpace(value))) {
	case ActionAdd:
		return ActionAdd, true
	case ActionDelete:
		return ActionDelete, true
	case ActionPoll:
		return ActionPoll, true
	default:
		return "", false
	}
}

// IsContentAction reports whether the action can be carried by a package.
// POLL only ever appears on the wire.
func (a ActionType) IsContentAction() bool {
	return a == ActionAdd || a == ActionDelete
}

type ClientKind string

const (
	ClientKindHTTP ClientKind = "http"
)

type EndpointStrategy string

const (
	EndpointStrategyAll EndpointStrategy = "all"
	EndpointStrategyOne EndpointStrategy = "one"
)

type BodyMode string

const (
	BodyModeStream  BodyMode = "stream"
	BodyModeLiteral BodyMode = "literal"
	BodyModeNone    BodyMode = "none"
)

type PackageState string

const (
	PackageStateBuilt     PackageState = "BUILT"
	PackageStateQueued    PackageState = "QUEUED"
	PackageStateExporting PackageState = "EXPORTING"
	PackageStateDelivered PackageState = "DELIVERED"
	PackageStateImported  PackageState = "IMPORTED"
	PackageStateDeleted   PackageState = "DELETED"
	PackageStateFailed    PackageState = "FAILED"
)

type EventType string

const (
	EventPackageCreated    EventType = "PACKAGE_CREATED"
	EventPackageQueued     EventType = "PACKAGE_QUEUED"
	EventPackageReplicated EventType = "PACKAGE_REPLICATED"
	EventPackageInstalled  EventType = "PACKAGE_INSTALLED"
)

type QueueBackend string

const (
	QueueBackendMemory QueueBackend = "memory"
	QueueBackendRedis  QueueBackend = "redis"
)

type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeBasic AuthType = "basic"
	AuthTypeToken AuthType = "token"
)
