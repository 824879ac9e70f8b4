package core

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"replication-agent/internal/types"
)

// ParseEndpoint accepts absolute http and https URIs only.
func ParseEndpoint(raw string) (types.Endpoint, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return types.Endpoint{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("endpoint is empty")
	}
	uri, err := url.Parse(trimmed)
	if err != nil {
		return types.Endpoint{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid endpoint %q", trimmed)).
			WithCause(err)
	}
	if uri.Scheme != "http" && uri.Scheme != "https" {
		return types.Endpoint{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("endpoint %q must use http or https", trimmed))
	}
	if uri.Host == "" {
		return types.Endpoint{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("endpoint %q has no host", trimmed))
	}
	return types.NewEndpoint(uri, nil), nil
}

func ParseEndpoints(raw []string) ([]types.Endpoint, error) {
	endpoints := make([]types.Endpoint, 0, len(raw))
	for _, value := range raw {
		endpoint, err := ParseEndpoint(value)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints, nil
}
