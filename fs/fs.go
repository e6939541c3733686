// Package fs defines the filesystem abstraction used by every component
// that touches declaration files, schema files, or catalog artifacts.
// Production code runs against an OS-backed implementation; tests run the
// same code against an in-memory one.
package fs

import "os"

// Filesystem is the minimal surface the pipeline needs. Paths are always
// relative to the filesystem root (the repository checkout), never absolute.
type Filesystem interface {
	// Exists reports whether the path exists. It returns an error only for
	// failures other than non-existence.
	Exists(path string) (bool, error)

	// ReadFile reads the entire named file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(path string, data []byte, perm os.FileMode) error

	// ReadDir reads the named directory and returns its entries.
	ReadDir(path string) ([]os.FileInfo, error)

	// MkdirAll creates the named directory along with any missing parents.
	MkdirAll(path string, perm os.FileMode) error

	// Remove removes the named file. Removing a missing file is an error;
	// callers that need idempotent deletes check Exists first.
	Remove(path string) error

	// Stat returns file info for the named path.
	Stat(path string) (os.FileInfo, error)
}
