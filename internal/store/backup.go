package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

const backupTimeLayout = "20060102_150405"

// Archive is the single-file snapshot written by Backup.
type Archive struct {
	Metadata Metadata                   `json:"metadata"`
	Index    *Index                     `json:"index"`
	Profiles map[string]json.RawMessage `json:"profiles"`
}

// Backup writes every profile present in the index, plus the index and
// metadata, into profiles_backup_YYYYMMDD_HHMMSS.json under dir and returns
// its path. Metadata gains last_backup and fresh storage_stats.
func (s *ProfileStore) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "store: create backup dir %s", dir)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make(map[string]json.RawMessage, s.index.Len())
	var total int64
	for id := range s.index.Profiles {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := os.ReadFile(s.docPath(id))
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("backup skipping indexed profile without document", zap.String("profile_id", id))
			continue
		}
		if err != nil {
			return "", eris.Wrapf(err, "store: read profile %s for backup", id)
		}
		if !json.Valid(data) {
			s.log.Warn("backup skipping corrupt profile", zap.String("profile_id", id))
			continue
		}
		docs[id] = json.RawMessage(data)
		total += int64(len(data))
	}

	ts := time.Now().UTC()
	s.meta.LastBackup = &ts
	s.meta.StorageStats = StorageStats{TotalSize: total}
	if len(docs) > 0 {
		s.meta.StorageStats.AvgProfileSize = total / int64(len(docs))
	}
	if err := s.persistMetadata(); err != nil {
		return "", err
	}

	path, err := backupPath(dir, ts)
	if err != nil {
		return "", err
	}
	archive := Archive{Metadata: *s.meta, Index: s.index, Profiles: docs}
	if err := writeJSONAtomic(path, archive); err != nil {
		return "", eris.Wrap(err, "store: write backup")
	}

	s.log.Info("backup written", zap.String("path", path), zap.Int("profiles", len(docs)), zap.Int64("bytes", total))
	return path, nil
}

// backupPath picks an unused archive name for ts, suffixing a counter when
// two backups land in the same second.
func backupPath(dir string, ts time.Time) (string, error) {
	base := "profiles_backup_" + ts.Format(backupTimeLayout)
	path := filepath.Join(dir, base+".json")
	for i := 1; ; i++ {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", eris.Wrapf(err, "store: stat %s", path)
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.json", base, i))
	}
}

// ReadArchive decodes a backup file.
func ReadArchive(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read archive %s", path)
	}
	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, eris.Wrapf(ErrCorruptRecord, "store: decode archive %s: %v", path, err)
	}
	return &a, nil
}

// Restore replays every document in the archive at path into the store,
// overwriting profiles with the same id. Documents that fail to decode are
// logged and skipped. The index is rewritten once at the end, including when
// the replay stops early, so documents already written stay indexed.
func (s *ProfileStore) Restore(ctx context.Context, path string) (restored int, err error) {
	a, err := ReadArchive(path)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if restored == 0 {
			return
		}
		if cerr := s.commitIndex(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	for id, raw := range a.Profiles {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		var p model.Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			s.log.Warn("restore skipping corrupt profile", zap.String("profile_id", id), zap.Error(err))
			continue
		}
		if p.ID != id || validateID(id) != nil || p.Validate() != nil {
			s.log.Warn("restore skipping invalid profile", zap.String("profile_id", id))
			continue
		}
		if err := s.writeDocLocked(&p); err != nil {
			return restored, err
		}
		s.index.Update(&p)
		restored++
	}

	s.log.Info("backup restored", zap.String("path", path), zap.Int("profiles", restored))
	return restored, nil
}
