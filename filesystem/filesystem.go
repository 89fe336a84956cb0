// Package filesystem abstracts the read-only metadata lookups C7/C8
// need to resolve a virtual path onto a real one and serve it: existence
// checks, directory listings, and modification-time/size metadata.
// Trimmed from a general-purpose file-manipulation interface down to
// what an origin server that only ever reads actually calls.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrFileNotFound      = fmt.Errorf("filesystem: file not found")
	ErrDirectoryNotFound = fmt.Errorf("filesystem: directory not found")
)

// Filesystem is the seam fileserve and webdir resolve paths through
// instead of calling os directly, so a future virtual or networked
// backing store can be substituted without touching the resolver.
type Filesystem interface {
	FileExists(path string) (bool, error)
	FileMetaData(path string) (os.FileInfo, error)

	ListDirectory(path string) ([]os.FileInfo, error)

	IsDirectory(path string) (bool, error)
	GetAbsolutePath(path string) (string, error)
}

type localFileSystem struct{}

// NewLocalFileSystem returns the Filesystem that reads the real OS
// filesystem, the only implementation this server uses.
func NewLocalFileSystem() Filesystem {
	return &localFileSystem{}
}

func (fs *localFileSystem) FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (fs *localFileSystem) FileMetaData(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return info, nil
}

func (fs *localFileSystem) ListDirectory(path string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDirectoryNotFound
		}
		return nil, err
	}

	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (fs *localFileSystem) IsDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (fs *localFileSystem) GetAbsolutePath(path string) (string, error) {
	return filepath.Abs(path)
}
