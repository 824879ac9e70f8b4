package adapters

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"replication-agent/internal/types"
)

const testPackageType = "rpkg"

type memoryPackage struct {
	id      string
	pkgType string
	action  types.ActionType
	paths   []string
	data    []byte
	deleted bool
}

func (p *memoryPackage) ID() string               { return p.id }
func (p *memoryPackage) Type() string             { return p.pkgType }
func (p *memoryPackage) Action() types.ActionType { return p.action }
func (p *memoryPackage) Paths() []string          { return p.paths }
func (p *memoryPackage) Size() int64              { return int64(len(p.data)) }
func (p *memoryPackage) Close() error             { return nil }

func (p *memoryPackage) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(p.data)), nil
}

func (p *memoryPackage) Delete() error {
	p.deleted = true
	return nil
}

func writeContent(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		target := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
		require.NoError(t, os.WriteFile(target, []byte(content), 0o644))
	}
}

func readContent(t *testing.T, root string, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

// newTestBuilder returns a builder over a fresh content root holding
// content/a/one.txt and content/b.txt.
func newTestBuilder(t *testing.T) (*FilePackageBuilder, string) {
	t.Helper()
	root := t.TempDir()
	writeContent(t, root, map[string]string{
		"content/a/one.txt": "one",
		"content/b.txt":     "bee",
	})
	provider := NewDirContentProvider(root, "", "")
	return NewFilePackageBuilder(t.TempDir(), testPackageType, provider, types.Credentials{}), root
}

func encodeTestPackage(t *testing.T, action types.ActionType, paths ...string) []byte {
	t.Helper()
	raw, err := EncodePackage(types.PackageHeader{
		Name:   "test",
		Type:   testPackageType,
		Action: action,
		Paths:  paths,
	}, nil)
	require.NoError(t, err)
	return raw
}
