package adapters

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"replication-agent/internal/ports"
	"replication-agent/internal/shared"
	"replication-agent/internal/types"
)

// DirContentProvider maps content paths onto a directory tree. Exported
// content is a zstd-compressed tar stream of the selected subtrees.
// Packages stored in ArchiveDir can be opened by id.
type DirContentProvider struct {
	Root       string
	ArchiveDir string
	User       string
	Password   string
}

func NewDirContentProvider(root string, user string, password string) DirContentProvider {
	return DirContentProvider{Root: root, User: user, Password: password}
}

type dirSession struct {
	user   string
	closed atomic.Bool
}

func (s *dirSession) Close() error {
	s.closed.Store(true)
	return nil
}

// Login opens a session. A provider without a configured user accepts any
// credentials.
func (p DirContentProvider) Login(ctx context.Context, credentials types.Credentials) (ports.ContentSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.User != "" && (credentials.User != p.User || credentials.Password != p.Password) {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg(fmt.Sprintf("content login rejected for user %q", credentials.User))
	}
	return &dirSession{user: credentials.User}, nil
}

func (p DirContentProvider) Export(ctx context.Context, session ports.ContentSession, paths []string, w io.Writer) error {
	if err := p.checkSession(session); err != nil {
		return err
	}
	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create zstd writer").
			WithCause(err)
	}
	archive := tar.NewWriter(encoder)
	for _, contentPath := range paths {
		if err := ctx.Err(); err != nil {
			encoder.Close()
			return err
		}
		if err := p.exportPath(archive, contentPath); err != nil {
			encoder.Close()
			return err
		}
	}
	if err := archive.Close(); err != nil {
		encoder.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finish content archive").
			WithCause(err)
	}
	if err := encoder.Close(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finish content stream").
			WithCause(err)
	}
	return nil
}

func (p DirContentProvider) exportPath(archive *tar.Writer, contentPath string) error {
	localPath, err := p.resolve(contentPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(localPath); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("content path %s not found", contentPath)).
			WithCause(err)
	}
	return filepath.WalkDir(localPath, func(current string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && !info.IsDir() {
			log.Debug().Str("path", current).Msg("skipping non-regular content entry")
			return nil
		}
		rel, err := filepath.Rel(p.Root, current)
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
		}
		if err := archive.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		file, err := os.Open(current)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(archive, file)
		return err
	})
}

// Open finds the archived package named by the base name of id.
func (p DirContentProvider) Open(ctx context.Context, session ports.ContentSession, id string) (io.ReadCloser, bool, error) {
	if err := p.checkSession(session); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	name := filepath.Base(filepath.Clean(id))
	if p.ArchiveDir == "" || name == "." || name == string(filepath.Separator) {
		return nil, false, nil
	}
	file, err := os.Open(filepath.Join(p.ArchiveDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to open archived package %s", name)).
			WithCause(err)
	}
	return file, true, nil
}

// Install applies content. ADD extracts the archive over the tree; DELETE
// removes the listed paths and ignores the stream.
func (p DirContentProvider) Install(ctx context.Context, session ports.ContentSession, action types.ActionType, paths []string, r io.Reader) error {
	if err := p.checkSession(session); err != nil {
		return err
	}
	switch action {
	case types.ActionAdd:
		return p.extract(ctx, r)
	case types.ActionDelete:
		for _, contentPath := range paths {
			localPath, err := p.resolve(contentPath)
			if err != nil {
				return err
			}
			if localPath == filepath.Clean(p.Root) {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg("refusing to delete the content root")
			}
			if err := os.RemoveAll(localPath); err != nil {
				return errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg(fmt.Sprintf("failed to delete %s", contentPath)).
					WithCause(err)
			}
		}
		return nil
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("cannot install action %q", action))
	}
}

func (p DirContentProvider) extract(ctx context.Context, r io.Reader) error {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("content stream is not zstd").
			WithCause(err)
	}
	defer decoder.Close()
	archive := tar.NewReader(decoder)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := archive.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("content archive is malformed").
				WithCause(err)
		}
		target, err := p.resolve(header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return installIOError(target, err)
			}
		case tar.TypeReg:
			if err := writeContentFile(target, archive, os.FileMode(header.Mode).Perm()); err != nil {
				return installIOError(target, err)
			}
		default:
			log.Debug().Str("entry", header.Name).Msg("skipping unsupported archive entry")
		}
	}
}

func writeContentFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o644
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func installIOError(target string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("failed to write %s", target)).
		WithCause(err)
}

// resolve maps a content path to a local path that stays inside Root.
func (p DirContentProvider) resolve(contentPath string) (string, error) {
	normalized := shared.NormalizeContentPath(contentPath)
	if normalized == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("content path is empty")
	}
	root := filepath.Clean(p.Root)
	local := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(normalized, "/")))
	if local != root && !strings.HasPrefix(local, root+string(filepath.Separator)) {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("content path %s escapes the content root", contentPath))
	}
	return local, nil
}

func (p DirContentProvider) checkSession(session ports.ContentSession) error {
	s, ok := session.(*dirSession)
	if !ok || s == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("session was not opened by this content provider")
	}
	if s.closed.Load() {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("content session is closed")
	}
	return nil
}

var _ ports.ContentProviderPort = DirContentProvider{}
