package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"replication-agent/internal/core"
	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

const remoteImportProcessing = "remote-import"

// LocalImporter installs packages into the local content root.
type LocalImporter struct {
	Builder   ports.PackageBuilderPort
	Events    ports.EventPublisherPort
	Lifecycle *core.Lifecycle
	Clock     func() time.Time
}

// ImportPackage installs pkg, publishes PACKAGE_INSTALLED and deletes the
// artifact. On failure the artifact is kept and false is returned.
func (i *LocalImporter) ImportPackage(ctx context.Context, pkg ports.ReplicationPackage) (imported bool) {
	if pkg == nil {
		return false
	}
	id := pkg.ID()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("package", id).Str("panic", fmt.Sprint(r)).Msg("package import panicked")
			advance(i.Lifecycle, id, types.PackageStateFailed)
			imported = false
		}
	}()

	advance(i.Lifecycle, id, types.PackageStateDelivered)
	if err := i.Builder.InstallPackage(ctx, pkg); err != nil {
		log.Error().
			Err(err).
			Str("package", id).
			Str("action", string(pkg.Action())).
			Strs("paths", pkg.Paths()).
			Msg("failed to install package")
		advance(i.Lifecycle, id, types.PackageStateFailed)
		return false
	}
	advance(i.Lifecycle, id, types.PackageStateImported)
	publish(ctx, i.Events, types.EventPackageInstalled, pkg, i.Clock)
	log.Info().
		Str("package", id).
		Str("action", string(pkg.Action())).
		Strs("paths", pkg.Paths()).
		Msg("package installed")

	if err := pkg.Delete(); err != nil {
		log.Warn().Err(err).Str("package", id).Msg("failed to delete installed package")
		return true
	}
	advance(i.Lifecycle, id, types.PackageStateDeleted)
	return true
}

// RemoteImporter forwards packages to remote endpoints through a push
// transport.
type RemoteImporter struct {
	Transport ports.PackageTransportPort
	Holders   ports.PackageHolderPort
	// Holder is released after a successful delivery; the package is
	// deleted once no holder remains.
	Holder    string
	Events    ports.EventPublisherPort
	Lifecycle *core.Lifecycle
	Clock     func() time.Time
}

func (i *RemoteImporter) ImportPackage(ctx context.Context, pkg ports.ReplicationPackage) bool {
	if pkg == nil {
		return false
	}
	if err := i.Deliver(ctx, pkg); err != nil {
		log.Error().Err(err).Str("package", pkg.ID()).Msg("failed to replicate package")
		return false
	}
	return true
}

// Deliver is ImportPackage with the transport error kept.
func (i *RemoteImporter) Deliver(ctx context.Context, pkg ports.ReplicationPackage) error {
	id := pkg.ID()
	if err := i.Transport.Transport(ctx, remoteImportProcessing, pkg); err != nil {
		advance(i.Lifecycle, id, types.PackageStateFailed)
		return err
	}
	advance(i.Lifecycle, id, types.PackageStateDelivered)
	publish(ctx, i.Events, types.EventPackageReplicated, pkg, i.Clock)
	log.Info().
		Str("package", id).
		Str("action", string(pkg.Action())).
		Strs("paths", pkg.Paths()).
		Msg("package replicated")

	var holders []string
	if i.Holder != "" {
		holders = append(holders, i.Holder)
	}
	releaseAndDelete(ctx, i.Holders, i.Lifecycle, pkg, holders...)
	return nil
}

var (
	_ ports.PackageImporterPort = (*LocalImporter)(nil)
	_ ports.PackageImporterPort = (*RemoteImporter)(nil)
)
