package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

const (
	profilesSubdir = "profiles"
	indexFile      = "index.json"
	metadataFile   = "metadata.json"
	docExt         = ".json"
)

var (
	// ErrCorruptRecord marks a document or index file that exists but cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrInvalidID marks a profile id that cannot name a document file.
	ErrInvalidID = errors.New("invalid profile id")
)

// ProfileStore persists one JSON document per profile under <dir>/profiles
// and keeps index.json and metadata.json in step with every mutation.
// Mutations hold the write lock for their whole read-modify-write; reads
// share the read lock. There is no cross-process locking.
type ProfileStore struct {
	mu          sync.RWMutex
	dir         string
	profilesDir string
	index       *Index
	meta        *Metadata
	log         *zap.Logger
}

// Open prepares the directory layout under dir and loads the index and
// metadata, creating them when absent. A corrupt index is rebuilt from the
// documents on disk.
func Open(ctx context.Context, dir string) (*ProfileStore, error) {
	s := &ProfileStore{
		dir:         dir,
		profilesDir: filepath.Join(dir, profilesSubdir),
		log:         zap.L().With(zap.String("component", "profile_store"), zap.String("dir", dir)),
	}
	if err := os.MkdirAll(s.profilesDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "store: create %s", s.profilesDir)
	}

	if err := s.loadMetadata(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.indexPath())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.index = NewIndex()
		if err := s.persistIndex(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, eris.Wrap(err, "store: read index")
	default:
		idx, derr := decodeIndex(data)
		if derr != nil {
			s.log.Warn("index unreadable, rebuilding from documents", zap.Error(derr))
			s.index = NewIndex()
			if _, err := s.reindexLocked(ctx); err != nil {
				return nil, err
			}
		} else {
			s.index = idx
		}
	}
	return s, nil
}

func (s *ProfileStore) loadMetadata() error {
	data, err := os.ReadFile(s.metadataPath())
	if errors.Is(err, fs.ErrNotExist) {
		s.meta = newMetadata()
		return s.persistMetadata()
	}
	if err != nil {
		return eris.Wrap(err, "store: read metadata")
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		s.log.Warn("metadata unreadable, starting fresh", zap.Error(err))
		s.meta = newMetadata()
		return s.persistMetadata()
	}
	s.meta = &m
	return nil
}

// Dir returns the store's root directory.
func (s *ProfileStore) Dir() string { return s.dir }

func (s *ProfileStore) indexPath() string    { return filepath.Join(s.dir, indexFile) }
func (s *ProfileStore) metadataPath() string { return filepath.Join(s.dir, metadataFile) }

func (s *ProfileStore) docPath(id string) string {
	return filepath.Join(s.profilesDir, id+docExt)
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") || filepath.Base(id) != id {
		return eris.Wrapf(ErrInvalidID, "store: %q", id)
	}
	return nil
}

func (s *ProfileStore) persistIndex() error {
	return writeJSONAtomic(s.indexPath(), s.index)
}

func (s *ProfileStore) persistMetadata() error {
	return writeJSONAtomic(s.metadataPath(), s.meta)
}

// commitIndex rewrites index.json and the profile count in metadata.json.
func (s *ProfileStore) commitIndex() error {
	if err := s.persistIndex(); err != nil {
		return err
	}
	s.meta.TotalProfiles = s.index.Len()
	return s.persistMetadata()
}

// Save writes p's document and updates the index and metadata.
func (s *ProfileStore) Save(ctx context.Context, p *model.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil {
		return eris.New("store: save nil profile")
	}
	if err := validateID(p.ID); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return eris.Wrapf(err, "store: save %s", p.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(p)
}

func (s *ProfileStore) saveLocked(p *model.Profile) error {
	if err := s.writeDocLocked(p); err != nil {
		return err
	}
	s.index.Update(p)
	if err := s.commitIndex(); err != nil {
		return eris.Wrapf(err, "store: index %s", p.ID)
	}
	s.log.Debug("profile saved", zap.String("profile_id", p.ID), zap.Int("version", p.Version))
	return nil
}

func (s *ProfileStore) writeDocLocked(p *model.Profile) error {
	if err := writeJSONAtomic(s.docPath(p.ID), p); err != nil {
		return eris.Wrapf(err, "store: write profile %s", p.ID)
	}
	return nil
}

// Load reads the profile with the given id. It returns nil, nil when no
// document exists, and an error wrapping ErrCorruptRecord when one exists
// but cannot be decoded.
func (s *ProfileStore) Load(ctx context.Context, id string) (*model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(id)
}

func (s *ProfileStore) loadLocked(id string) (*model.Profile, error) {
	return readDoc(s.docPath(id), id)
}

func readDoc(path, id string) (*model.Profile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: read profile %s", id)
	}
	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(ErrCorruptRecord, "store: decode profile %s: %v", id, err)
	}
	if p.ID != id {
		return nil, eris.Wrapf(ErrCorruptRecord, "store: profile file %s holds id %q", id, p.ID)
	}
	return &p, nil
}

// Delete removes the document and every index reference to id. It reports
// false when id was in neither the documents nor the index.
func (s *ProfileStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateID(id); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fileRemoved := true
	if err := os.Remove(s.docPath(id)); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return false, eris.Wrapf(err, "store: delete profile %s", id)
		}
		fileRemoved = false
	}
	indexed := s.index.Remove(id)
	if !fileRemoved && !indexed {
		return false, nil
	}
	if err := s.commitIndex(); err != nil {
		return true, eris.Wrapf(err, "store: unindex %s", id)
	}
	s.log.Info("profile deleted", zap.String("profile_id", id))
	return true, nil
}

// Update loads id, applies fn, and saves the result in one critical section.
// fn reports whether it changed the profile; unchanged profiles are not
// rewritten. A missing profile yields nil, nil without calling fn.
func (s *ProfileStore) Update(ctx context.Context, id string, fn func(p *model.Profile) (bool, error)) (*model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadLocked(id)
	if err != nil || p == nil {
		return nil, err
	}
	changed, err := fn(p)
	if err != nil {
		return nil, err
	}
	if !changed {
		return p, nil
	}
	if err := p.Validate(); err != nil {
		return nil, eris.Wrapf(err, "store: update %s", id)
	}
	if err := s.saveLocked(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Search returns the ids of indexed profiles matching f, newest first.
func (s *ProfileStore) Search(ctx context.Context, f model.Filter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Search(f), nil
}

// List returns a page of index summaries ordered by updated_at descending.
// A non-positive limit returns everything after offset.
func (s *ProfileStore) List(ctx context.Context, limit, offset int) ([]model.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := s.index.Summaries()
	s.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []model.Summary{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// Summary returns the index entry for id.
func (s *ProfileStore) Summary(id string) (model.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.index.Profiles[id]
	return sum, ok
}

// Count returns the number of indexed profiles.
func (s *ProfileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

// Counts returns the bucket sizes of the secondary maps.
func (s *ProfileStore) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Counts()
}

// Metadata returns a copy of the store metadata.
func (s *ProfileStore) Metadata() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := *s.meta
	return m
}

// LastUpdated returns when the index last changed.
func (s *ProfileStore) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.LastUpdated
}

// documentIDs lists the ids of all documents on disk.
func (s *ProfileStore) documentIDs() ([]string, error) {
	entries, err := os.ReadDir(s.profilesDir)
	if err != nil {
		return nil, eris.Wrap(err, "store: list documents")
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, docExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, docExt))
	}
	return ids, nil
}

// Reindex rebuilds the index from the documents on disk. Corrupt documents
// are logged and left out. It returns the number of profiles indexed.
func (s *ProfileStore) Reindex(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reindexLocked(ctx)
}

func (s *ProfileStore) reindexLocked(ctx context.Context) (int, error) {
	ids, err := s.documentIDs()
	if err != nil {
		return 0, err
	}
	idx := NewIndex()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		p, err := s.loadLocked(id)
		if err != nil {
			s.log.Warn("skipping unreadable profile", zap.String("profile_id", id), zap.Error(err))
			continue
		}
		if p == nil {
			continue
		}
		idx.Update(p)
	}
	s.index = idx
	if err := s.commitIndex(); err != nil {
		return 0, err
	}
	s.log.Info("index rebuilt", zap.Int("profiles", idx.Len()))
	return idx.Len(), nil
}

// Consistency reports drift between the index and the documents on disk.
type Consistency struct {
	Indexed    int      `json:"indexed"`
	Documents  int      `json:"documents"`
	Dangling   []string `json:"dangling"`   // indexed, no document
	Unindexed  []string `json:"unindexed"`  // document, not indexed
	Unreadable []string `json:"unreadable"` // document exists but is corrupt
}

// OK reports whether index and documents agree.
func (c *Consistency) OK() bool {
	return len(c.Dangling) == 0 && len(c.Unindexed) == 0 && len(c.Unreadable) == 0
}

// Verify compares the index with the documents on disk.
func (s *ProfileStore) Verify(ctx context.Context) (*Consistency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.documentIDs()
	if err != nil {
		return nil, err
	}
	c := &Consistency{Indexed: s.index.Len(), Documents: len(ids)}
	onDisk := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		onDisk[id] = struct{}{}
		if _, err := s.loadLocked(id); err != nil {
			c.Unreadable = append(c.Unreadable, id)
		}
		if !s.index.Has(id) {
			c.Unindexed = append(c.Unindexed, id)
		}
	}
	for id := range s.index.Profiles {
		if _, ok := onDisk[id]; !ok {
			c.Dangling = append(c.Dangling, id)
		}
	}
	return c, nil
}
