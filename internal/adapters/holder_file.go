package adapters

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/fxamacker/cbor/v2"

	"replication-agent/internal/ports"
)

const holdersFileSuffix = ".holders"

// FileHolderStore persists package holders next to the packages as
// "<package file name>.holders", a CBOR-encoded list of holder names. The
// file disappears with the last holder.
type FileHolderStore struct {
	Dir string
}

// fileHolderLock serializes holder updates across every store in the
// process; the read-modify-write of a holders file is not atomic.
var fileHolderLock sync.Mutex

func NewFileHolderStore(dir string) FileHolderStore {
	return FileHolderStore{Dir: dir}
}

func (s FileHolderStore) Acquire(ctx context.Context, id string, holders ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fileHolderLock.Lock()
	defer fileHolderLock.Unlock()
	current, err := s.read(id)
	if err != nil {
		return err
	}
	for _, holder := range holders {
		if holder == "" || slices.Contains(current, holder) {
			continue
		}
		current = append(current, holder)
	}
	return s.write(id, current)
}

func (s FileHolderStore) Release(ctx context.Context, id string, holders ...string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fileHolderLock.Lock()
	defer fileHolderLock.Unlock()
	current, err := s.read(id)
	if err != nil {
		return false, err
	}
	current = slices.DeleteFunc(current, func(holder string) bool {
		return slices.Contains(holders, holder)
	})
	if err := s.write(id, current); err != nil {
		return false, err
	}
	return len(current) == 0, nil
}

func (s FileHolderStore) Holders(ctx context.Context, id string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fileHolderLock.Lock()
	defer fileHolderLock.Unlock()
	return s.read(id)
}

func (s FileHolderStore) path(id string) string {
	return filepath.Join(s.Dir, filepath.Base(id)+holdersFileSuffix)
}

func (s FileHolderStore) read(id string) ([]string, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read package holders").
			WithCause(err)
	}
	var holders []string
	if err := cbor.Unmarshal(data, &holders); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("package holders file is corrupt").
			WithCause(err)
	}
	return holders, nil
}

func (s FileHolderStore) write(id string, holders []string) error {
	target := s.path(id)
	if len(holders) == 0 {
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to remove package holders").
				WithCause(err)
		}
		return nil
	}
	slices.Sort(holders)
	data, err := cbor.Marshal(holders)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode package holders").
			WithCause(err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create holders directory").
			WithCause(err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write package holders").
			WithCause(err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to store package holders").
			WithCause(err)
	}
	return nil
}

// MemoryHolderStore keeps holders in process memory.
type MemoryHolderStore struct {
	mu      sync.Mutex
	holders map[string][]string
}

func NewMemoryHolderStore() *MemoryHolderStore {
	return &MemoryHolderStore{holders: map[string][]string{}}
}

func (s *MemoryHolderStore) Acquire(ctx context.Context, id string, holders ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.holders[id]
	for _, holder := range holders {
		if holder == "" || slices.Contains(current, holder) {
			continue
		}
		current = append(current, holder)
	}
	if len(current) > 0 {
		s.holders[id] = current
	}
	return nil
}

func (s *MemoryHolderStore) Release(ctx context.Context, id string, holders ...string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := slices.DeleteFunc(s.holders[id], func(holder string) bool {
		return slices.Contains(holders, holder)
	})
	if len(current) == 0 {
		delete(s.holders, id)
		return true, nil
	}
	s.holders[id] = current
	return false, nil
}

func (s *MemoryHolderStore) Holders(ctx context.Context, id string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.holders[id]), nil
}

var (
	_ ports.PackageHolderPort = FileHolderStore{}
	_ ports.PackageHolderPort = (*MemoryHolderStore)(nil)
)
