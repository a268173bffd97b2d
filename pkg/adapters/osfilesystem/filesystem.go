// Package osfilesystem writes output files to the local disk.
package osfilesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/framepace/pkg/ports"
)

// FileSystem implements ports.FileSystem using the os package.
//
// WriteFile goes through a temporary file in the target directory and a
// rename, so readers polling an output directory never see a partial PNG.
type FileSystem struct {
	dirMode  os.FileMode
	fileMode os.FileMode
}

// New creates a FileSystem with 0755 directories and 0644 files.
func New() *FileSystem {
	return &FileSystem{dirMode: 0755, fileMode: 0644}
}

// WriteFile atomically replaces path with data.
func (f *FileSystem) WriteFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, f.dirMode); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(f.fileMode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// MkdirAll creates a directory and all parent directories.
func (f *FileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, f.dirMode)
}

// Exists checks if a file or directory exists.
func (f *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

var _ ports.FileSystem = (*FileSystem)(nil)
