package adapters

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

// NoAuthProvider passes HTTP clients through untouched.
type NoAuthProvider struct{}

func (NoAuthProvider) CanAuthenticate(kind types.ClientKind) bool {
	return kind == types.ClientKindHTTP
}

func (NoAuthProvider) Authenticate(_ context.Context, client any, _ types.AuthContext) (any, error) {
	httpClient, err := asHTTPClient(client)
	if err != nil {
		return nil, err
	}
	return httpClient, nil
}

type BasicAuthProvider struct {
	User     string
	Password string
}

func (BasicAuthProvider) CanAuthenticate(kind types.ClientKind) bool {
	return kind == types.ClientKindHTTP
}

func (p BasicAuthProvider) Authenticate(_ context.Context, client any, _ types.AuthContext) (any, error) {
	httpClient, err := asHTTPClient(client)
	if err != nil {
		return nil, err
	}
	return authenticatedClient{inner: httpClient, apply: func(req *http.Request) {
		req.SetBasicAuth(p.User, p.Password)
	}}, nil
}

// TokenAuthProvider sends a bearer token on every request.
type TokenAuthProvider struct {
	Token string
}

func (TokenAuthProvider) CanAuthenticate(kind types.ClientKind) bool {
	return kind == types.ClientKindHTTP
}

func (p TokenAuthProvider) Authenticate(_ context.Context, client any, _ types.AuthContext) (any, error) {
	httpClient, err := asHTTPClient(client)
	if err != nil {
		return nil, err
	}
	return authenticatedClient{inner: httpClient, apply: func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}}, nil
}

// NewAuthProvider maps an auth spec to its provider.
func NewAuthProvider(spec types.AuthSpec) (ports.AuthenticationProviderPort, error) {
	switch spec.Type {
	case "", types.AuthTypeNone:
		return NoAuthProvider{}, nil
	case types.AuthTypeBasic:
		return BasicAuthProvider{User: spec.User, Password: spec.Password}, nil
	case types.AuthTypeToken:
		return TokenAuthProvider{Token: spec.Token}, nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported auth type %q", spec.Type))
	}
}

type authenticatedClient struct {
	inner ports.HTTPClient
	apply func(*http.Request)
}

func (c authenticatedClient) Do(req *http.Request) (*http.Response, error) {
	c.apply(req)
	return c.inner.Do(req)
}

func asHTTPClient(client any) (ports.HTTPClient, error) {
	httpClient, ok := client.(ports.HTTPClient)
	if !ok || httpClient == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("cannot authenticate client of type %T", client))
	}
	return httpClient, nil
}

var (
	_ ports.AuthenticationProviderPort = NoAuthProvider{}
	_ ports.AuthenticationProviderPort = BasicAuthProvider{}
	_ ports.AuthenticationProviderPort = TokenAuthProvider{}
)
