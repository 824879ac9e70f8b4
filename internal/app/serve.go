package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"replication-agent/internal/adapters"
)

const (
	DefaultServeAddr = ":8080"
	DefaultServePath = "/replicate"
	shutdownTimeout  = 10 * time.Second
)

// Handler returns the receiver for pushed packages, mounted at path. With
// enablePoll it also answers POLL requests from the head of the agent
// queue.
func (a *Agent) Handler(path string, enablePoll bool) http.Handler {
	receiver := adapters.ReceiverHandler{
		Builder:  a.Builder,
		Importer: a.LocalImporter(),
		Holders:  a.Holders,
		Holder:   a.QueueName(),
	}
	if enablePoll {
		receiver.Exporter = a.LocalExporter()
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultServePath
	}
	mux := http.NewServeMux()
	mux.Handle(path, receiver)
	return mux
}

// Serve runs the receiver until ctx ends, then shuts the server down.
func (a *Agent) Serve(ctx context.Context, req ServeRequest) error {
	addr := strings.TrimSpace(req.Addr)
	if addr == "" {
		addr = DefaultServeAddr
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("failed to listen on " + addr).
			WithCause(err)
	}
	return a.serve(ctx, listener, req)
}

func (a *Agent) serve(ctx context.Context, listener net.Listener, req ServeRequest) error {
	server := &http.Server{
		Handler:           a.Handler(req.Path, req.EnablePoll),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	log.Info().
		Str("agent", a.Spec.Name).
		Str("addr", listener.Addr().String()).
		Bool("poll", req.EnablePoll).
		Msg("receiver listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("receiver stopped").
			WithCause(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to shut down receiver").
			WithCause(err)
	}
	log.Info().Str("agent", a.Spec.Name).Msg("receiver stopped")
	return nil
}
