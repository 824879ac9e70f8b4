package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"replication-agent/internal/types"
)

// ParseTransportProperty splits a raw "key[.selector]=value" string. The
// second result is false for entries the parser skips: no "=" or an empty
// key.
func ParseTransportProperty(raw string) (types.TransportProperty, bool) {
	idx := strings.Index(raw, "=")
	if idx < 0 {
		return types.TransportProperty{}, false
	}
	key := strings.TrimSpace(raw[:idx])
	value := strings.TrimSpace(raw[idx+1:])
	if key == "" {
		return types.TransportProperty{}, false
	}
	selector := types.SelectorAny
	if dot := strings.Index(key, "."); dot >= 0 {
		selector = strings.TrimSpace(key[dot+1:])
		key = strings.TrimSpace(key[:dot])
	}
	return types.TransportProperty{Key: key, Selector: selector, Value: value}, true
}

// SelectorMatches reports whether a property selector applies to action.
func SelectorMatches(selector string, action string) bool {
	return selector == types.SelectorAny || strings.EqualFold(selector, action)
}

// ParseTransportProperties builds the customization for one action. Entries
// that do not parse, do not match the action or use an unknown key are
// ignored; use ValidateTransportProperties to reject them up front.
func ParseTransportProperties(properties []string, action string) types.CustomizationData {
	data := types.CustomizationData{
		Headers:           []string{},
		SinglePathHeaders: []string{},
		BodyMode:          types.BodyModeStream,
	}
	for _, raw := range properties {
		property, ok := ParseTransportProperty(raw)
		if !ok {
			continue
		}
		if !SelectorMatches(property.Selector, action) {
			continue
		}
		switch {
		case strings.EqualFold(property.Key, types.PropertyKeyBody):
			switch property.Value {
			case types.NoBodyPlaceholder:
				data.Body = ""
				data.BodyMode = types.BodyModeNone
			case types.EmptyBodyPlaceholder:
				data.Body = ""
				data.BodyMode = types.BodyModeLiteral
			default:
				data.Body = property.Value
				data.BodyMode = types.BodyModeLiteral
			}
		case strings.EqualFold(property.Key, types.PropertyKeyHeader):
			if strings.Contains(property.Value, types.PathPlaceholder) {
				data.SinglePathHeaders = append(data.SinglePathHeaders, property.Value)
			} else {
				data.Headers = append(data.Headers, property.Value)
			}
		}
	}
	log.Debug().
		Str("action", action).
		Int("headers", len(data.Headers)).
		Int("single_path_headers", len(data.SinglePathHeaders)).
		Str("body_mode", string(data.BodyMode)).
		Msg("transport properties parsed")
	return data
}

// FormatTransportProperties serializes a customization back into property
// strings. Parsing the result with any action yields the same data.
func FormatTransportProperties(data types.CustomizationData) []string {
	out := make([]string, 0, len(data.Headers)+len(data.SinglePathHeaders)+1)
	for _, header := range data.Headers {
		out = append(out, types.PropertyKeyHeader+"="+header)
	}
	for _, header := range data.SinglePathHeaders {
		out = append(out, types.PropertyKeyHeader+"="+header)
	}
	switch data.BodyMode {
	case types.BodyModeNone:
		out = append(out, types.PropertyKeyBody+"="+types.NoBodyPlaceholder)
	case types.BodyModeLiteral:
		if data.Body == "" {
			out = append(out, types.PropertyKeyBody+"="+types.EmptyBodyPlaceholder)
		} else {
			out = append(out, types.PropertyKeyBody+"="+data.Body)
		}
	}
	return out
}

// BindToPath resolves the single-path headers and the body against one
// content path. The result carries no single-path headers.
func BindToPath(data types.CustomizationData, path string) types.CustomizationData {
	headers := make([]string, 0, len(data.Headers)+len(data.SinglePathHeaders))
	headers = append(headers, data.Headers...)
	for _, header := range data.SinglePathHeaders {
		headers = append(headers, strings.ReplaceAll(header, types.PathPlaceholder, path))
	}
	return types.CustomizationData{
		Headers:           headers,
		SinglePathHeaders: []string{},
		Body:              strings.ReplaceAll(data.Body, types.PathPlaceholder, path),
		BodyMode:          data.BodyMode,
	}
}

// SplitHeader splits "Name: value" on the first colon.
func SplitHeader(header string) (string, string, bool) {
	idx := strings.Index(header, ":")
	if idx < 0 {
		return "", "", false
	}
	name := strings.TrimSpace(header[:idx])
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(header[idx+1:]), true
}

// ValidateTransportProperties rejects property strings the parser would
// silently skip. It is meant for setup time.
func ValidateTransportProperties(properties []string) error {
	for _, raw := range properties {
		property, ok := ParseTransportProperty(raw)
		if !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid transport property: %q", raw))
		}
		if property.Selector == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("empty selector in transport property: %q", raw))
		}
		switch {
		case strings.EqualFold(property.Key, types.PropertyKeyHeader):
			if _, _, ok := SplitHeader(property.Value); !ok {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("header property is not 'Name: value': %q", raw))
			}
		case strings.EqualFold(property.Key, types.PropertyKeyBody):
		default:
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unknown transport property key %q", property.Key))
		}
	}
	return nil
}
