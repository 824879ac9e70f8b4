package adapters

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

// FilePackage is a package stored as a single file. Its ID is the absolute
// file path and its stream is the whole file.
type FilePackage struct {
	path       string
	header     types.PackageHeader
	contentOff int64
	size       int64

	mu      sync.Mutex
	deleted bool
}

func OpenFilePackage(path string) (*FilePackage, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid package path").
			WithCause(err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("package file not found").
				WithCause(err)
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open package file").
			WithCause(err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stat package file").
			WithCause(err)
	}
	header, offset, err := readPackageHeader(file)
	if err != nil {
		return nil, err
	}
	return &FilePackage{
		path:       absPath,
		header:     header,
		contentOff: offset,
		size:       info.Size(),
	}, nil
}

func (p *FilePackage) ID() string {
	return p.path
}

func (p *FilePackage) Name() string {
	return p.header.Name
}

func (p *FilePackage) Type() string {
	return p.header.Type
}

func (p *FilePackage) Action() types.ActionType {
	return p.header.Action
}

func (p *FilePackage) Paths() []string {
	return append([]string(nil), p.header.Paths...)
}

func (p *FilePackage) Size() int64 {
	return p.size
}

func (p *FilePackage) Open() (io.ReadCloser, error) {
	file, err := os.Open(p.path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("package file not readable").
			WithCause(err)
	}
	return file, nil
}

// Content opens the content section only, past the header.
func (p *FilePackage) Content() (io.ReadCloser, error) {
	file, err := os.Open(p.path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("package file not readable").
			WithCause(err)
	}
	if _, err := file.Seek(p.contentOff, io.SeekStart); err != nil {
		file.Close()
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to seek package content").
			WithCause(err)
	}
	return file, nil
}

func (p *FilePackage) Close() error {
	return nil
}

func (p *FilePackage) Delete() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleted {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to delete package file").
			WithCause(err)
	}
	p.deleted = true
	return nil
}

// StreamPackage is a package read from a stream and kept in memory. It is
// what a peek (read without save) produces; it has no backing file.
type StreamPackage struct {
	id         string
	header     types.PackageHeader
	raw        []byte
	contentOff int64
}

func newStreamPackage(id string, raw []byte) (*StreamPackage, error) {
	header, offset, err := readPackageHeader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return &StreamPackage{id: id, header: header, raw: raw, contentOff: offset}, nil
}

func (p *StreamPackage) ID() string {
	return p.id
}

func (p *StreamPackage) Type() string {
	return p.header.Type
}

func (p *StreamPackage) Action() types.ActionType {
	return p.header.Action
}

func (p *StreamPackage) Paths() []string {
	return append([]string(nil), p.header.Paths...)
}

func (p *StreamPackage) Size() int64 {
	return int64(len(p.raw))
}

func (p *StreamPackage) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(p.raw)), nil
}

func (p *StreamPackage) Content() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(p.raw[p.contentOff:])), nil
}

func (p *StreamPackage) Close() error {
	return nil
}

func (p *StreamPackage) Delete() error {
	return nil
}

// contentOpener is implemented by packages that can skip their own header.
type contentOpener interface {
	Content() (io.ReadCloser, error)
}

var (
	_ ports.ReplicationPackage = (*FilePackage)(nil)
	_ ports.ReplicationPackage = (*StreamPackage)(nil)
)
