package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"replication-agent/internal/ports"
	"replication-agent/internal/shared"
	"replication-agent/internal/types"
)

// ReceiverHandler is the HTTP side of the replication protocol. A POLL
// request is answered with the head of the exporter's queue; any other
// POST carries a package that is read, stored and imported.
type ReceiverHandler struct {
	Builder  ports.PackageBuilderPort
	Exporter ports.PackageExporterPort
	Importer ports.PackageImporterPort
	Holders  ports.PackageHolderPort
	// Holder is released once a polled package has been written out.
	Holder string
}

func (h ReceiverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rawAction := strings.TrimSpace(r.Header.Get(types.HeaderAction))
	action, ok := types.ParseActionType(rawAction)
	if rawAction != "" && !ok {
		http.Error(w, fmt.Sprintf("unknown action %q", rawAction), http.StatusBadRequest)
		return
	}
	if action == types.ActionPoll {
		h.servePoll(w, r)
		return
	}
	h.serveImport(w, r)
}

func (h ReceiverHandler) servePoll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Exporter == nil {
		http.Error(w, "polling is not enabled", http.StatusNotFound)
		return
	}
	pkg, err := h.Exporter.ExportPackage(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to export package for poll")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	if pkg == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	defer pkg.Close()

	stream, err := pkg.Open()
	if err != nil {
		log.Error().Err(err).Str("package", pkg.ID()).Msg("failed to open polled package")
		h.requeuePolled(ctx, pkg)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	defer stream.Close()

	w.Header().Set(types.HeaderType, pkg.Type())
	w.Header().Set(types.HeaderAction, string(pkg.Action()))
	for _, path := range pkg.Paths() {
		w.Header().Add(types.HeaderPath, path)
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if size := pkg.Size(); size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, stream); err != nil {
		log.Error().Err(err).Str("package", pkg.ID()).Msg("failed to stream polled package")
		h.requeuePolled(ctx, pkg)
		return
	}
	log.Info().
		Str("package", pkg.ID()).
		Strs("paths", pkg.Paths()).
		Msg("package served to poller")
	h.releasePolled(ctx, pkg)
}

// requeuePolled hands a package that did not reach the poller back to the
// exporter, when the exporter supports it.
func (h ReceiverHandler) requeuePolled(ctx context.Context, pkg ports.ReplicationPackage) {
	requeuer, ok := h.Exporter.(ports.PackageRequeuerPort)
	if !ok {
		log.Warn().Str("package", pkg.ID()).Msg("exporter cannot requeue, polled package stays stored")
		return
	}
	if err := requeuer.RequeuePackage(context.WithoutCancel(ctx), pkg); err != nil {
		log.Error().Err(err).Str("package", pkg.ID()).Msg("failed to requeue polled package")
	}
}

func (h ReceiverHandler) releasePolled(ctx context.Context, pkg ports.ReplicationPackage) {
	if h.Holders == nil {
		return
	}
	released, err := h.Holders.Release(ctx, pkg.ID(), h.Holder)
	if err != nil {
		log.Warn().Err(err).Str("package", pkg.ID()).Msg("failed to release polled package")
		return
	}
	if !released {
		return
	}
	if err := pkg.Delete(); err != nil {
		log.Warn().Err(err).Str("package", pkg.ID()).Msg("failed to delete polled package")
	}
}

func (h ReceiverHandler) serveImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Builder == nil || h.Importer == nil {
		http.Error(w, "import is not enabled", http.StatusNotFound)
		return
	}
	if packageType := r.Header.Get(types.HeaderType); packageType != "" && packageType != h.Builder.Type() {
		http.Error(w, fmt.Sprintf("unsupported package type %q", packageType), http.StatusBadRequest)
		return
	}
	pkg, err := h.Builder.ReadPackage(ctx, r.Body, true)
	if err != nil {
		log.Warn().Err(err).Msg("rejected inbound package")
		http.Error(w, "invalid package", statusForError(err))
		return
	}
	if !h.Importer.ImportPackage(ctx, pkg) {
		http.Error(w, "import failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "package imported")
}

func statusForError(err error) int {
	switch shared.ErrorCode(err) {
	case errbuilder.CodePermissionDenied:
		return http.StatusForbidden
	case errbuilder.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

var _ http.Handler = ReceiverHandler{}
