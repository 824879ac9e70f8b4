package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"replication-agent/internal/core"
	"replication-agent/internal/ports"
	"replication-agent/internal/shared"
	"replication-agent/internal/types"
)

const (
	defaultTransportTimeout  = 60 * time.Second
	expectContinueTimeout    = 5 * time.Second
	maxDeliveryResponseBytes = 1 << 20
)

// NewHTTPClient returns a client that honors "Expect: 100-continue".
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTransportTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ExpectContinueTimeout = expectContinueTimeout
	return &http.Client{Timeout: timeout, Transport: transport}
}

// HTTPTransportHandler pushes packages to endpoints with one POST per
// delivery.
type HTTPTransportHandler struct {
	Client     ports.HTTPClient
	Auth       ports.AuthenticationProviderPort
	Properties []string
}

// NewHTTPTransportHandler rejects auth providers that cannot handle HTTP
// clients and property strings that do not parse.
func NewHTTPTransportHandler(client ports.HTTPClient, auth ports.AuthenticationProviderPort, properties []string) (*HTTPTransportHandler, error) {
	if err := checkHTTPAuth(auth); err != nil {
		return nil, err
	}
	if err := core.ValidateTransportProperties(properties); err != nil {
		return nil, err
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &HTTPTransportHandler{
		Client:     client,
		Auth:       auth,
		Properties: append([]string(nil), properties...),
	}, nil
}

func (h *HTTPTransportHandler) DeliverPackageToEndpoint(ctx context.Context, pkg ports.ReplicationPackage, endpoint types.Endpoint, _ ports.QueueProcessorPort) error {
	return h.Transport(ctx, pkg, endpoint, h.Auth, h.Properties)
}

// Transport delivers pkg to endpoint. When a header or the body refers to
// the path placeholder the package is sent once per path.
func (h *HTTPTransportHandler) Transport(ctx context.Context, pkg ports.ReplicationPackage, endpoint types.Endpoint, auth ports.AuthenticationProviderPort, properties []string) error {
	if err := checkHTTPAuth(auth); err != nil {
		return err
	}
	if pkg == nil {
		return shared.TransportError(errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package is nil"))
	}
	log.Info().
		Str("package", pkg.ID()).
		Str("endpoint", endpoint.URI()).
		Str("auth", fmt.Sprintf("%T", auth)).
		Msg("delivering package")

	client, err := authenticateHTTP(ctx, h.Client, auth, endpoint)
	if err != nil {
		return shared.TransportError(err)
	}
	data := core.ParseTransportProperties(properties, string(pkg.Action()))
	paths := pkg.Paths()
	if data.UsingSinglePaths() {
		for _, path := range paths {
			bound := core.BindToPath(data, path)
			if err := h.deliver(ctx, client, pkg, endpoint, bound, []string{path}); err != nil {
				return err
			}
		}
		return nil
	}
	return h.deliver(ctx, client, pkg, endpoint, data, paths)
}

func (h *HTTPTransportHandler) deliver(ctx context.Context, client ports.HTTPClient, pkg ports.ReplicationPackage, endpoint types.Endpoint, data types.CustomizationData, paths []string) error {
	body, contentType, size, err := deliveryBody(pkg, data)
	if err != nil {
		return shared.TransportError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URI(), body)
	if err != nil {
		if closer, ok := body.(io.Closer); ok {
			closer.Close()
		}
		return shared.TransportError(errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create delivery request").
			WithCause(err))
	}
	if size > 0 {
		req.ContentLength = size
	}
	req.Header.Set("Expect", "100-continue")
	req.Header.Set(types.HeaderType, pkg.Type())
	req.Header.Set(types.HeaderAction, string(pkg.Action()))
	for _, path := range paths {
		req.Header.Add(types.HeaderPath, path)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, header := range data.Headers {
		name, value, ok := core.SplitHeader(header)
		if !ok {
			continue
		}
		req.Header.Add(name, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return shared.TransportError(errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("delivery to %s failed", endpoint.URI())).
			WithCause(err))
	}
	if resp == nil {
		return shared.TransportError(errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("response is empty"))
	}
	defer resp.Body.Close()
	content, err := io.ReadAll(io.LimitReader(resp.Body, maxDeliveryResponseBytes))
	if err != nil {
		return shared.TransportError(errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read delivery response").
			WithCause(err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return shared.TransportError(errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("delivery rejected").
			WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, endpoint.URI(), strings.TrimSpace(string(content)))))
	}
	log.Info().
		Str("type", pkg.Type()).
		Strs("paths", paths).
		Int("status", resp.StatusCode).
		Str("response", strings.TrimSpace(string(content))).
		Msg("replication content delivered")
	return nil
}

func deliveryBody(pkg ports.ReplicationPackage, data types.CustomizationData) (io.Reader, string, int64, error) {
	switch data.BodyMode {
	case types.BodyModeNone:
		return http.NoBody, "", 0, nil
	case types.BodyModeLiteral:
		return strings.NewReader(data.Body), "text/plain; charset=utf-8", int64(len(data.Body)), nil
	default:
		stream, err := pkg.Open()
		if err != nil {
			return nil, "", 0, err
		}
		if stream == nil {
			return http.NoBody, "", 0, nil
		}
		return stream, "application/octet-stream", pkg.Size(), nil
	}
}

func checkHTTPAuth(auth ports.AuthenticationProviderPort) error {
	if auth == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("transport requires an authentication provider")
	}
	if !auth.CanAuthenticate(types.ClientKindHTTP) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("authentication provider %T cannot authenticate http clients", auth))
	}
	return nil
}

func authenticateHTTP(ctx context.Context, client ports.HTTPClient, auth ports.AuthenticationProviderPort, endpoint types.Endpoint) (ports.HTTPClient, error) {
	authenticated, err := auth.Authenticate(ctx, client, types.AuthContext{Endpoint: endpoint})
	if err != nil {
		return nil, err
	}
	httpClient, ok := authenticated.(ports.HTTPClient)
	if !ok || httpClient == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("authentication returned unusable client %T", authenticated))
	}
	return httpClient, nil
}

var _ ports.EndpointDeliveryPort = (*HTTPTransportHandler)(nil)
