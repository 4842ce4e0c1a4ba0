package util

import (
	"os"

	"github.com/samber/oops"
)

// CheckFileExists reports whether fpath can be stat'ed.
func CheckFileExists(fpath string) bool {
	_, err := os.Stat(fpath)
	return err == nil
}

// EnsureDir creates dir with perm if it is missing. An existing directory whose
// mode grants more than perm is narrowed to perm.
func EnsureDir(dir string, perm os.FileMode) error {
	if err := os.MkdirAll(dir, perm); err != nil {
		return oops.Wrapf(err, "creating directory %s", dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return oops.Wrapf(err, "checking directory %s", dir)
	}
	if !info.IsDir() {
		return oops.Errorf("%s is not a directory", dir)
	}
	if info.Mode().Perm()&^perm != 0 {
		log.WithField("dir", dir).Warn("narrowing directory permissions")
		if err := os.Chmod(dir, perm); err != nil {
			return oops.Wrapf(err, "restricting permissions of %s", dir)
		}
	}
	return nil
}
