package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// writeJSONAtomic encodes v as indented JSON into a temp file beside path,
// syncs it, and renames it over path. Readers see either the old or the new
// file, never a partial one.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "store: encode %s", filepath.Base(path))
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "store: create temp for %s", filepath.Base(path))
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return eris.Wrapf(err, "store: write %s", filepath.Base(path))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return eris.Wrapf(err, "store: sync %s", filepath.Base(path))
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return eris.Wrapf(err, "store: close %s", filepath.Base(path))
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return eris.Wrapf(err, "store: chmod %s", filepath.Base(path))
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return eris.Wrapf(err, "store: rename %s", filepath.Base(path))
	}
	return nil
}
