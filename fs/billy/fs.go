// Package billy implements the fs.Filesystem interface on top of go-billy,
// providing OS-backed and in-memory filesystems from a single code path.
// The raw billy filesystem remains reachable for the git-backed store,
// which feeds it straight into go-git.
package billy

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	parentfs "github.com/samasrinivas/kafkautomation/fs"
)

// FS implements fs.Filesystem using a billy.Filesystem backend.
type FS struct {
	fs billy.Filesystem
}

// NewOS creates a filesystem rooted at the given OS directory.
func NewOS(root string) *FS {
	return &FS{fs: osfs.New(root)}
}

// NewMemory creates an in-memory filesystem, used by tests and by the
// git store when cloning into memory.
func NewMemory() *FS {
	return &FS{fs: memfs.New()}
}

// NewFromBilly wraps an existing billy filesystem, typically a git
// worktree obtained from the store.
func NewFromBilly(b billy.Filesystem) *FS {
	return &FS{fs: b}
}

// Raw exposes the underlying billy filesystem for go-git integration.
func (b *FS) Raw() billy.Filesystem {
	return b.fs
}

// Chroot returns a new FS rooted at path within this filesystem.
func (b *FS) Chroot(path string) (*FS, error) {
	sub, err := b.fs.Chroot(path)
	if err != nil {
		return nil, fmt.Errorf("billy: chroot %q: %w", path, err)
	}
	return &FS{fs: sub}, nil
}

// Exists implements fs.Filesystem.
func (b *FS) Exists(path string) (bool, error) {
	_, err := b.fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("billy: stat %q: %w", path, err)
	}
}

// ReadFile implements fs.Filesystem.
func (b *FS) ReadFile(path string) ([]byte, error) {
	data, err := util.ReadFile(b.fs, path)
	if err != nil {
		return nil, fmt.Errorf("billy: readfile %q: %w", path, err)
	}
	return data, nil
}

// WriteFile implements fs.Filesystem. Parent directories are created as
// needed, matching util.WriteFile semantics on memfs.
func (b *FS) WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := util.WriteFile(b.fs, path, data, perm); err != nil {
		return fmt.Errorf("billy: writefile %q: %w", path, err)
	}
	return nil
}

// ReadDir implements fs.Filesystem.
func (b *FS) ReadDir(path string) ([]os.FileInfo, error) {
	list, err := b.fs.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("billy: readdir %q: %w", path, err)
	}
	return list, nil
}

// MkdirAll implements fs.Filesystem.
func (b *FS) MkdirAll(path string, perm os.FileMode) error {
	if err := b.fs.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("billy: mkdirall %q: %w", path, err)
	}
	return nil
}

// Remove implements fs.Filesystem.
func (b *FS) Remove(path string) error {
	if err := b.fs.Remove(path); err != nil {
		return fmt.Errorf("billy: remove %q: %w", path, err)
	}
	return nil
}

// Stat implements fs.Filesystem.
func (b *FS) Stat(path string) (os.FileInfo, error) {
	info, err := b.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("billy: stat %q: %w", path, err)
	}
	return info, nil
}

var _ parentfs.Filesystem = (*FS)(nil)
