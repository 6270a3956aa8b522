// Package txnfs provides pseudo-atomic, rollback-on-failure file writes,
// adapted from dep's SafeWriter (txn_writer.go): write the new content to a
// temp file in the target directory, move the existing file aside, then
// rename the new file into place; on any failure, restore what was moved
// aside.
package txnfs

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteFile atomically replaces path's contents with data. If a file
// already exists at path, it is preserved until the new content has been
// renamed into place, and restored if that rename fails.
func WriteFile(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := ioutil.TempFile(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file for atomic write")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "writing temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "setting permissions on temp file")
	}

	var backupPath string
	if _, statErr := os.Stat(path); statErr == nil {
		backupPath = path + ".orig"
		if err := os.Rename(path, backupPath); err != nil {
			os.Remove(tmpPath)
			return errors.Wrap(err, "backing up existing file")
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if backupPath != "" {
			_ = os.Rename(backupPath, path)
		}
		os.Remove(tmpPath)
		return errors.Wrap(err, "moving new file into place")
	}
	if backupPath != "" {
		os.Remove(backupPath)
	}
	return nil
}
