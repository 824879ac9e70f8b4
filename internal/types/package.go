package types

import (
	"net/url"
	"time"
)

// Wire header names. These are part of the replication protocol.
const (
	HeaderAction = "X-Replication-Action"
	HeaderType   = "X-Replication-Type"
	HeaderPath   = "X-Replication-Path"
)

type ReplicationRequest struct {
	Action ActionType
	Paths  []string
	Time   time.Time
}

// QueueItem is the lightweight projection of a package kept in a queue.
// It never owns the package bytes.
type QueueItem struct {
	ID     string     `json:"id"`
	Paths  []string   `json:"paths"`
	Action ActionType `json:"action"`
	Type   string     `json:"type"`
}

// PackageHeader is the metadata block written in front of the package
// content on disk and on the wire.
type PackageHeader struct {
	Name    string     `cbor:"name"`
	Type    string     `cbor:"type"`
	Action  ActionType `cbor:"action"`
	Paths   []string   `cbor:"paths"`
	Created int64      `cbor:"created"`
}

type Endpoint struct {
	uri        url.URL
	properties map[string]string
}

// NewEndpoint copies its inputs so the returned value cannot be changed
// through them later.
func NewEndpoint(uri *url.URL, properties map[string]string) Endpoint {
	props := make(map[string]string, len(properties))
	for key, value := range properties {
		props[key] = value
	}
	return Endpoint{uri: *uri, properties: props}
}

func (e Endpoint) URI() string {
	return e.uri.String()
}

func (e Endpoint) Host() string {
	return e.uri.Host
}

func (e Endpoint) Property(key string) (string, bool) {
	value, ok := e.properties[key]
	return value, ok
}

type AuthContext struct {
	Endpoint Endpoint
}

type Credentials struct {
	User     string
	Password string
}

type Event struct {
	Type      EventType
	PackageID string
	Action    ActionType
	Paths     []string
	Time      time.Time
}
