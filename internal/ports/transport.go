package ports

import (
	"context"
	"net/http"

	"replication-agent/internal/types"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// AuthenticationProviderPort authenticates transport clients of the kinds
// it reports through CanAuthenticate.
type AuthenticationProviderPort interface {
	CanAuthenticate(kind types.ClientKind) bool
	Authenticate(ctx context.Context, client any, authCtx types.AuthContext) (any, error)
}

// EndpointDeliveryPort is one transport exchange with one endpoint. Push
// handlers send pkg; poll handlers ignore it and feed processor instead.
type EndpointDeliveryPort interface {
	DeliverPackageToEndpoint(ctx context.Context, pkg ReplicationPackage, endpoint types.Endpoint, processor QueueProcessorPort) error
}

// PackageTransportPort delivers a package to every configured endpoint
// according to its endpoint strategy.
type PackageTransportPort interface {
	Transport(ctx context.Context, processingName string, pkg ReplicationPackage) error
	EnableProcessing(name string, processor QueueProcessorPort)
	DisableProcessing(name string)
}
