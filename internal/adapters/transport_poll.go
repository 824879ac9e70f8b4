package adapters

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"replication-agent/internal/core"
	"replication-agent/internal/ports"
	"replication-agent/internal/shared"
	"replication-agent/internal/types"
)

// PollQueueName is the queue name handed to processors for polled items.
const PollQueueName = "poll"

// PollingTransportHandler pulls packages from endpoints. Each response that
// carries a package type is read through the builder and handed to the
// processor as a queue item.
type PollingTransportHandler struct {
	Client  ports.HTTPClient
	Auth    ports.AuthenticationProviderPort
	Builder ports.PackageBuilderPort
	// PollItems caps the packages taken per endpoint and call; negative
	// means unlimited and zero disables polling.
	PollItems int
	// Save stores polled packages through the builder so the queue item ID
	// can be resolved later.
	Save bool

	stopped atomic.Bool
}

func NewPollingTransportHandler(client ports.HTTPClient, auth ports.AuthenticationProviderPort, builder ports.PackageBuilderPort, pollItems int, save bool) (*PollingTransportHandler, error) {
	if err := checkHTTPAuth(auth); err != nil {
		return nil, err
	}
	if builder == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("polling transport requires a package builder")
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &PollingTransportHandler{
		Client:    client,
		Auth:      auth,
		Builder:   builder,
		PollItems: pollItems,
		Save:      save,
	}, nil
}

// Stop makes running and future polls return before their next request.
func (h *PollingTransportHandler) Stop() {
	h.stopped.Store(true)
}

func (h *PollingTransportHandler) Stopped() bool {
	return h.stopped.Load()
}

// DeliverPackageToEndpoint polls endpoint. An endpoint that refused the
// connection before handing out anything reports core.ErrEndpointUnreachable
// so strategies can move on to the next endpoint.
func (h *PollingTransportHandler) DeliverPackageToEndpoint(ctx context.Context, _ ports.ReplicationPackage, endpoint types.Endpoint, processor ports.QueueProcessorPort) error {
	_, reached, err := h.poll(ctx, endpoint, processor)
	if err != nil {
		return err
	}
	if !reached {
		return core.ErrEndpointUnreachable
	}
	return nil
}

// Poll requests packages from endpoint until it answers without a package
// type or PollItems is used up. It returns the number of items processed.
// An endpoint that refuses the connection counts as having nothing.
func (h *PollingTransportHandler) Poll(ctx context.Context, endpoint types.Endpoint, processor ports.QueueProcessorPort) (int, error) {
	count, _, err := h.poll(ctx, endpoint, processor)
	return count, err
}

func (h *PollingTransportHandler) poll(ctx context.Context, endpoint types.Endpoint, processor ports.QueueProcessorPort) (int, bool, error) {
	if processor == nil {
		return 0, false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("polling requires a queue processor")
	}
	if h.PollItems == 0 {
		return 0, true, nil
	}
	log.Debug().Str("endpoint", endpoint.URI()).Msg("polling")

	client, err := authenticateHTTP(ctx, h.Client, h.Auth, endpoint)
	if err != nil {
		return 0, false, shared.TransportError(err)
	}

	polls := h.PollItems
	count := 0
	for polls != 0 {
		if h.stopped.Load() {
			return count, true, nil
		}
		if err := ctx.Err(); err != nil {
			return count, true, err
		}
		item, found, err := h.pollOnce(ctx, client, endpoint)
		if err != nil {
			if isConnectionFailure(err) {
				log.Warn().
					Err(err).
					Str("endpoint", endpoint.URI()).
					Msg("could not connect, skipping")
				return count, count > 0, nil
			}
			return count, true, shared.TransportError(err)
		}
		if !found {
			return count, true, nil
		}
		if !processor.Process(ctx, PollQueueName, item) {
			log.Warn().
				Str("package", item.ID).
				Str("endpoint", endpoint.URI()).
				Msg("polled package was not processed")
		}
		count++
		if polls > 0 {
			polls--
		}
	}
	return count, true, nil
}

func (h *PollingTransportHandler) pollOnce(ctx context.Context, client ports.HTTPClient, endpoint types.Endpoint) (types.QueueItem, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URI(), http.NoBody)
	if err != nil {
		return types.QueueItem{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create poll request").
			WithCause(err)
	}
	req.Header.Set(types.HeaderAction, string(types.ActionPoll))
	req.Header.Set("Expect", "100-continue")

	resp, err := client.Do(req)
	if err != nil {
		return types.QueueItem{}, false, err
	}
	if resp == nil {
		return types.QueueItem{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("response is empty")
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.QueueItem{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("poll rejected").
			WithCause(shared.HTTPStatusError(resp.StatusCode, endpoint.URI()))
	}
	if resp.Header.Get(types.HeaderType) == "" {
		return types.QueueItem{}, false, nil
	}
	item, err := h.readQueueItem(ctx, resp)
	if err != nil {
		return types.QueueItem{}, false, err
	}
	return item, true, nil
}

// readQueueItem prefers the protocol headers and falls back to the package
// metadata for anything they leave out.
func (h *PollingTransportHandler) readQueueItem(ctx context.Context, resp *http.Response) (types.QueueItem, error) {
	pkg, err := h.Builder.ReadPackage(ctx, resp.Body, h.Save)
	if err != nil {
		log.Error().Err(err).Msg("error reading polled package")
		return types.QueueItem{}, err
	}
	item := types.QueueItem{
		ID:     pkg.ID(),
		Type:   resp.Header.Get(types.HeaderType),
		Paths:  resp.Header.Values(types.HeaderPath),
		Action: pkg.Action(),
	}
	if action, ok := types.ParseActionType(resp.Header.Get(types.HeaderAction)); ok && action.IsContentAction() {
		item.Action = action
	}
	if len(item.Paths) == 0 {
		item.Paths = pkg.Paths()
	}
	if item.Type != pkg.Type() {
		log.Debug().
			Str("header_type", item.Type).
			Str("package_type", pkg.Type()).
			Msg("polled type header differs from package")
		item.Type = pkg.Type()
	}
	return item, nil
}

func isConnectionFailure(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}

var _ ports.EndpointDeliveryPort = (*PollingTransportHandler)(nil)
