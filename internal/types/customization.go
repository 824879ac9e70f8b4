package types

import "strings"

// Tokens of the transport property mini-language.
const (
	PropertyKeyHeader    = "header"
	PropertyKeyBody      = "body"
	SelectorAny          = "*"
	PathPlaceholder      = "{path}"
	EmptyBodyPlaceholder = "empty"
	NoBodyPlaceholder    = "none"
)

// TransportProperty is one parsed "key[.selector]=value" entry.
type TransportProperty struct {
	Key      string
	Selector string
	Value    string
}

// CustomizationData is the per-request shape derived from transport
// properties for one action.
type CustomizationData struct {
	Headers           []string
	SinglePathHeaders []string
	Body              string
	BodyMode          BodyMode
}

// UsingSinglePaths reports whether a header or a literal body refers to
// the path placeholder, which requires one request per path.
func (c CustomizationData) UsingSinglePaths() bool {
	if len(c.SinglePathHeaders) > 0 {
		return true
	}
	return c.BodyMode == BodyModeLiteral && strings.Contains(c.Body, PathPlaceholder)
}
