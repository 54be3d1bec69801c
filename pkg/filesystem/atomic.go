package filesystem

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/devplug/pkg/errors"
)

const tempPattern = ".devplug-*"

// WriteFileAtomic replaces path with data, creating parent directories.
// The file ends up with mode perm regardless of any previous mode.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return Replace(path, perm, func(tmp *os.File) error {
		if _, err := tmp.Write(data); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", tmp.Name())
		}
		return nil
	})
}

// Replace creates a temporary sibling of path, lets fill write it, then
// syncs, chmods and renames it onto path. On any error the temporary file
// is removed and path is left untouched.
func Replace(path string, perm os.FileMode, fill func(tmp *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot create temp file next to %s", path)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := fill(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot close %s", tmpName)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot replace %s", path)
	}
	committed = true
	return nil
}

// ReplaceByName is Replace for writers that need a path rather than an open
// file, such as an external downloader. fill receives the temporary path,
// which exists and is empty.
func ReplaceByName(path string, perm os.FileMode, fill func(tmpPath string) error) error {
	return Replace(path, perm, func(tmp *os.File) error {
		return fill(tmp.Name())
	})
}
