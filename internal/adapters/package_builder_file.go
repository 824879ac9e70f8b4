package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"replication-agent/internal/ports"
	"replication-agent/internal/shared"
	"replication-agent/internal/types"
)

// DefaultMaxPeekBytes caps packages held in memory when MaxPeekBytes is
// not set.
const DefaultMaxPeekBytes = int64(64 << 20)

// FilePackageBuilder stores packages as files in Dir and delegates content
// assembly and installation to a content provider.
type FilePackageBuilder struct {
	Dir         string
	PackageType string
	Provider    ports.ContentProviderPort
	Credentials types.Credentials
	Clock       func() time.Time
	// MaxPeekBytes bounds packages read into memory instead of Dir.
	MaxPeekBytes int64
}

func NewFilePackageBuilder(dir string, packageType string, provider ports.ContentProviderPort, credentials types.Credentials) *FilePackageBuilder {
	return &FilePackageBuilder{
		Dir:         dir,
		PackageType: packageType,
		Provider:    provider,
		Credentials: credentials,
		Clock:       time.Now,
	}
}

func (b *FilePackageBuilder) Type() string {
	return b.PackageType
}

func (b *FilePackageBuilder) Build(ctx context.Context, request types.ReplicationRequest) (ports.ReplicationPackage, error) {
	if !request.Action.IsContentAction() {
		return nil, shared.PackageBuildError(errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("cannot build a package for action %q", request.Action)))
	}
	paths := normalizePaths(request.Paths)
	if len(paths) == 0 {
		return nil, shared.PackageBuildError(errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cannot build a package without paths"))
	}
	created := request.Time
	if created.IsZero() {
		created = b.now()
	}
	header := types.PackageHeader{
		Name:    uuid.NewString(),
		Type:    b.PackageType,
		Action:  request.Action,
		Paths:   paths,
		Created: created.UnixMilli(),
	}

	var pkg ports.ReplicationPackage
	err := b.withSession(ctx, func(session ports.ContentSession) error {
		built, err := b.writePackage(header, func(w io.Writer) error {
			if request.Action != types.ActionAdd {
				return nil
			}
			return b.Provider.Export(ctx, session, paths, w)
		})
		pkg = built
		return err
	})
	if err != nil {
		return nil, shared.PackageBuildError(err)
	}
	log.Debug().
		Str("package", pkg.ID()).
		Str("action", string(request.Action)).
		Strs("paths", paths).
		Msg("package built")
	return pkg, nil
}

// ReadPackage decodes an inbound package stream. With save the package is
// stored in Dir; without it the package only lives in memory.
func (b *FilePackageBuilder) ReadPackage(ctx context.Context, stream io.Reader, save bool) (ports.ReplicationPackage, error) {
	if stream == nil {
		return nil, shared.PackageReadError(errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package stream is nil"))
	}
	var pkg ports.ReplicationPackage
	err := b.withSession(ctx, func(ports.ContentSession) error {
		if !save {
			streamPkg, err := b.peek(uuid.NewString(), stream)
			if err != nil {
				return err
			}
			pkg = streamPkg
			return nil
		}
		filePkg, err := b.storeStream(stream)
		if err != nil {
			return err
		}
		if err := b.checkType(filePkg.Type()); err != nil {
			_ = filePkg.Delete()
			return err
		}
		pkg = filePkg
		return nil
	})
	if err != nil {
		return nil, shared.PackageReadError(err)
	}
	return pkg, nil
}

// GetPackage looks the id up in Dir, as an absolute path inside Dir and
// then as a file name, and falls back to the content provider's archive.
func (b *FilePackageBuilder) GetPackage(ctx context.Context, id string) (ports.ReplicationPackage, bool, error) {
	if strings.TrimSpace(id) == "" {
		return nil, false, nil
	}
	var pkg ports.ReplicationPackage
	found := false
	err := b.withSession(ctx, func(session ports.ContentSession) error {
		for _, candidate := range b.localCandidates(id) {
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			filePkg, err := OpenFilePackage(candidate)
			if err != nil {
				return err
			}
			pkg = filePkg
			found = true
			return nil
		}
		stream, ok, err := b.Provider.Open(ctx, session, id)
		if err != nil || !ok {
			return err
		}
		defer stream.Close()
		archived, err := b.peek(id, stream)
		if err != nil {
			return err
		}
		pkg = archived
		found = true
		return nil
	})
	if err != nil {
		return nil, false, shared.PackageReadError(err)
	}
	return pkg, found, nil
}

// localCandidates lists the files in Dir that id may name. Absolute ids
// outside Dir are only matched by their base name.
func (b *FilePackageBuilder) localCandidates(id string) []string {
	dir, err := filepath.Abs(b.Dir)
	if err != nil {
		dir = filepath.Clean(b.Dir)
	}
	candidates := []string{}
	if filepath.IsAbs(id) {
		cleaned := filepath.Clean(id)
		if strings.HasPrefix(cleaned, dir+string(filepath.Separator)) {
			candidates = append(candidates, cleaned)
		}
	}
	name := filepath.Base(filepath.Clean(id))
	if name == "." || name == string(filepath.Separator) {
		return candidates
	}
	return append(candidates, filepath.Join(dir, name))
}

// peek reads a whole package into memory, refusing streams larger than
// MaxPeekBytes.
func (b *FilePackageBuilder) peek(id string, stream io.Reader) (*StreamPackage, error) {
	limit := b.MaxPeekBytes
	if limit <= 0 {
		limit = DefaultMaxPeekBytes
	}
	raw, err := io.ReadAll(io.LimitReader(stream, limit+1))
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read package stream").
			WithCause(err)
	}
	if int64(len(raw)) > limit {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeResourceExhausted).
			WithMsg(fmt.Sprintf("package stream exceeds %d bytes", limit))
	}
	streamPkg, err := newStreamPackage(id, raw)
	if err != nil {
		return nil, err
	}
	if err := b.checkType(streamPkg.Type()); err != nil {
		return nil, err
	}
	return streamPkg, nil
}

func (b *FilePackageBuilder) InstallPackage(ctx context.Context, pkg ports.ReplicationPackage) error {
	if pkg == nil {
		return shared.PackageInstallError(errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package is nil"))
	}
	if err := b.checkType(pkg.Type()); err != nil {
		return shared.PackageInstallError(err)
	}
	err := b.withSession(ctx, func(session ports.ContentSession) error {
		content, err := packageContent(pkg)
		if err != nil {
			return err
		}
		defer content.Close()
		return b.Provider.Install(ctx, session, pkg.Action(), pkg.Paths(), content)
	})
	if err != nil {
		return shared.PackageInstallError(err)
	}
	log.Debug().
		Str("package", pkg.ID()).
		Str("action", string(pkg.Action())).
		Strs("paths", pkg.Paths()).
		Msg("package installed")
	return nil
}

func (b *FilePackageBuilder) withSession(ctx context.Context, fn func(ports.ContentSession) error) error {
	if b.Provider == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("package builder has no content provider")
	}
	session, err := b.Provider.Login(ctx, b.Credentials)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close content session")
		}
	}()
	return fn(session)
}

func (b *FilePackageBuilder) writePackage(header types.PackageHeader, content func(io.Writer) error) (*FilePackage, error) {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create package directory").
			WithCause(err)
	}
	tmp, err := os.CreateTemp(b.Dir, ".build-*")
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create package file").
			WithCause(err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) (*FilePackage, error) {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, err
	}
	if _, err := writePackageHeader(tmp, header); err != nil {
		return fail(err)
	}
	if err := content(tmp); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	finalPath := filepath.Join(b.Dir, header.Name+"."+b.PackageType)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to store package file").
			WithCause(err)
	}
	return OpenFilePackage(finalPath)
}

func (b *FilePackageBuilder) storeStream(stream io.Reader) (*FilePackage, error) {
	header, _, err := readPackageHeader(stream)
	if err != nil {
		return nil, err
	}
	return b.writePackage(types.PackageHeader{
		Name:    uuid.NewString(),
		Type:    header.Type,
		Action:  header.Action,
		Paths:   header.Paths,
		Created: header.Created,
	}, func(w io.Writer) error {
		if _, err := io.Copy(w, stream); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read package content").
				WithCause(err)
		}
		return nil
	})
}

func (b *FilePackageBuilder) checkType(packageType string) error {
	if packageType != b.PackageType {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("package type %q does not match builder type %q", packageType, b.PackageType))
	}
	return nil
}

func (b *FilePackageBuilder) now() time.Time {
	if b.Clock == nil {
		return time.Now()
	}
	return b.Clock()
}

// packageContent opens the content section of any package, skipping the
// header when the package cannot do it itself.
func packageContent(pkg ports.ReplicationPackage) (io.ReadCloser, error) {
	if opener, ok := pkg.(contentOpener); ok {
		return opener.Content()
	}
	stream, err := pkg.Open()
	if err != nil {
		return nil, err
	}
	if _, _, err := readPackageHeader(stream); err != nil {
		stream.Close()
		return nil, err
	}
	return stream, nil
}

func normalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := map[string]struct{}{}
	for _, value := range paths {
		normalized := shared.NormalizeContentPath(value)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// EncodePackage writes a complete package stream for header and content.
func EncodePackage(header types.PackageHeader, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := writePackageHeader(&buf, header); err != nil {
		return nil, err
	}
	buf.Write(content)
	return buf.Bytes(), nil
}

var _ ports.PackageBuilderPort = (*FilePackageBuilder)(nil)
